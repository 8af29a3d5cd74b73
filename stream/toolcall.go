package stream

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casualjim/chatstream/messages"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrToolCallOutOfOrder is returned when a delta goes back to an index that
// is already complete or lower than the one being accumulated.
var ErrToolCallOutOfOrder = errors.New("tool call delta out of order")

type toolCallSlot struct {
	index int
	id    string
	name  string
	args  strings.Builder
}

func (s *toolCallSlot) apply(delta ToolCallDelta) {
	if delta.ID != nil && *delta.ID != "" && s.id == "" {
		s.id = *delta.ID
	}
	if delta.Name != nil && *delta.Name != "" {
		s.name = *delta.Name
	}
	if delta.Arguments != nil {
		s.args.WriteString(*delta.Arguments)
	}
}

func (s *toolCallSlot) freeze() messages.ToolCall {
	return messages.ToolCall{
		Index:     s.index,
		ID:        s.id,
		Name:      s.name,
		Arguments: s.args.String(),
	}
}

// ToolCallAccumulator rebuilds complete tool calls from index-tagged deltas.
// Only one call is open at a time. It is not safe for concurrent use.
type ToolCallAccumulator struct {
	current   *toolCallSlot
	completed *orderedmap.OrderedMap[int, messages.ToolCall]
}

func NewToolCallAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{
		completed: orderedmap.New[int, messages.ToolCall](),
	}
}

// Apply folds delta into the open call. When delta starts a new index the
// open call is frozen and returned with ok set.
func (a *ToolCallAccumulator) Apply(delta ToolCallDelta) (call messages.ToolCall, ok bool, err error) {
	if _, seen := a.completed.Get(delta.Index); seen {
		return messages.ToolCall{}, false, fmt.Errorf("%w: index %d is already complete", ErrToolCallOutOfOrder, delta.Index)
	}

	switch {
	case a.current == nil:
		a.open(delta)
		return messages.ToolCall{}, false, nil
	case delta.Index == a.current.index:
		a.current.apply(delta)
		return messages.ToolCall{}, false, nil
	case delta.Index < a.current.index:
		return messages.ToolCall{}, false, fmt.Errorf("%w: index %d after %d", ErrToolCallOutOfOrder, delta.Index, a.current.index)
	}

	call = a.finish()
	a.open(delta)
	return call, true, nil
}

// Flush freezes the open call, if any. It is called once the stream is done.
func (a *ToolCallAccumulator) Flush() (messages.ToolCall, bool) {
	if a.current == nil {
		return messages.ToolCall{}, false
	}
	return a.finish(), true
}

// Completed returns the frozen calls in completion order. The result is never nil.
func (a *ToolCallAccumulator) Completed() []messages.ToolCall {
	calls := make([]messages.ToolCall, 0, a.completed.Len())
	for pair := a.completed.Oldest(); pair != nil; pair = pair.Next() {
		calls = append(calls, pair.Value)
	}
	return calls
}

func (a *ToolCallAccumulator) open(delta ToolCallDelta) {
	a.current = &toolCallSlot{index: delta.Index}
	a.current.apply(delta)
}

func (a *ToolCallAccumulator) finish() messages.ToolCall {
	call := a.current.freeze()
	a.completed.Set(call.Index, call)
	a.current = nil
	return call
}
