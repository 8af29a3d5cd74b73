package stream

import (
	"iter"

	"github.com/casualjim/chatstream/pkg/stdx"
)

// ToolCallDelta is a partial tool invocation. Deltas for one call share an
// Index; a delta with a new Index means the previous call is complete.
type ToolCallDelta struct {
	Index     int
	ID        *string
	Name      *string
	Arguments *string
}

// Fragment is one decoded event of a streaming completion.
// Nil pointers mean the backend did not send the field.
type Fragment struct {
	Content        *string
	Thinking       *string
	ToolCalls      []ToolCallDelta
	Done           bool
	Model          *string
	FinishReason   *string
	PromptTokens   *int
	ResponseTokens *int
}

// TextFragment is a fragment that only carries a content delta.
func TextFragment(text string) Fragment {
	return Fragment{Content: stdx.Ptr(text)}
}

// DoneFragment is a terminal fragment with a reason code and no usage counts.
func DoneFragment(reason string) Fragment {
	return Fragment{Done: true, FinishReason: stdx.Ptr(reason)}
}

// Fragments turns a fixed list of fragments into a source for Consume.
func Fragments(fragments ...Fragment) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		for _, f := range fragments {
			if !yield(f, nil) {
				return
			}
		}
	}
}
