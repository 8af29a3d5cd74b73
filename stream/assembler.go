package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/casualjim/chatstream/messages"
	"github.com/casualjim/chatstream/pkg/slogx"
	"github.com/casualjim/chatstream/pkg/uuidx"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
)

// State is the lifecycle position of an Assembler.
type State uint8

const (
	StateAwaitingFirstFragment State = iota
	StateStreaming
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwaitingFirstFragment:
		return "awaiting_first_fragment"
	case StateStreaming:
		return "streaming"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

func (s State) canTransition(to State) bool {
	switch s {
	case StateAwaitingFirstFragment:
		return to == StateStreaming || to == StateTerminated
	case StateStreaming:
		return to == StateStreaming || to == StateTerminated
	default:
		return false
	}
}

// Assembler turns the fragments of one stream into handler callbacks and a
// final response. It must be fed from a single goroutine and is discarded
// once it has terminated.
type Assembler struct {
	handler Handler
	cfg     config
	log     *slog.Logger

	state   State
	content *ContentAggregator
	tools   *ToolCallAccumulator
	model   string

	resp messages.Response
	err  error
}

// NewAssembler creates an assembler that reports to handler.
func NewAssembler(handler Handler, options ...Option) (*Assembler, error) {
	if handler == nil {
		return nil, ErrNoHandler
	}

	cfg := config{errorMapper: DefaultErrorMapper}
	if err := opts.Apply(&cfg, options); err != nil {
		return nil, err
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.errorMapper == nil {
		cfg.errorMapper = DefaultErrorMapper
	}
	if cfg.streamID == "" {
		cfg.streamID = uuidx.NewString()
	}

	return &Assembler{
		handler: handler,
		cfg:     cfg,
		log:     cfg.logger.With(slogx.LoggerName("chatstream.stream"), slogx.StreamID(cfg.streamID)),
		content: NewContentAggregator(cfg.captureThinking),
		tools:   NewToolCallAccumulator(),
	}, nil
}

// ID returns the stream id used in log records.
func (a *Assembler) ID() string {
	return a.cfg.streamID
}

// State returns where the assembler is in its lifecycle.
func (a *Assembler) State() State {
	return a.state
}

// Terminated reports whether the terminal callback has been delivered.
func (a *Assembler) Terminated() bool {
	return a.state == StateTerminated
}

// Response returns the final response once OnCompleteResponse was delivered.
func (a *Assembler) Response() (messages.Response, bool) {
	return a.resp, a.state == StateTerminated && a.err == nil
}

// Err returns the error delivered to OnError, if any.
func (a *Assembler) Err() error {
	return a.err
}

func (a *Assembler) transition(to State) bool {
	if !a.state.canTransition(to) {
		return false
	}
	if a.state != to {
		a.log.Debug("stream state changed", slogx.Stringer("from", a.state), slogx.Stringer("to", to))
	}
	a.state = to
	return true
}

// Dispatch applies one fragment. Fragments that arrive after termination are dropped.
func (a *Assembler) Dispatch(ctx context.Context, f Fragment) {
	if !a.transition(StateStreaming) {
		a.log.DebugContext(ctx, "dropping fragment after termination")
		return
	}

	if f.Model != nil && *f.Model != "" {
		a.model = *f.Model
	}

	if f.Content != nil && *f.Content != "" {
		text := *f.Content
		a.content.AppendContent(text)
		a.invoke(ctx, "OnPartialResponse", func() { a.handler.OnPartialResponse(ctx, text) })
	}

	if f.Thinking != nil && *f.Thinking != "" && a.content.CapturesThinking() {
		text := *f.Thinking
		a.content.AppendThinking(text)
		a.invoke(ctx, "OnPartialThinking", func() { a.handler.OnPartialThinking(ctx, text) })
	}

	for _, delta := range f.ToolCalls {
		call, ok, err := a.tools.Apply(delta)
		if err != nil {
			a.Fail(ctx, err)
			return
		}
		if ok {
			a.invoke(ctx, "OnCompleteToolCall", func() { a.handler.OnCompleteToolCall(ctx, call) })
		}
	}

	if f.Done {
		a.complete(ctx, f)
	}
}

func (a *Assembler) complete(ctx context.Context, f Fragment) {
	if call, ok := a.tools.Flush(); ok {
		a.invoke(ctx, "OnCompleteToolCall", func() { a.handler.OnCompleteToolCall(ctx, call) })
	}

	a.resp = messages.Response{
		Text:         a.content.Text(),
		Thinking:     a.content.Thinking(),
		ToolCalls:    a.tools.Completed(),
		Model:        a.model,
		FinishReason: finishReason(f.FinishReason),
		Usage:        messages.UsageFrom(f.PromptTokens, f.ResponseTokens),
		CreatedAt:    strfmt.DateTime(time.Now()),
	}
	a.transition(StateTerminated)

	a.log.DebugContext(ctx, "stream complete",
		slog.String("model", a.resp.Model),
		slogx.Stringer("finish_reason", a.resp.FinishReason),
		slog.Int("tool_calls", len(a.resp.ToolCalls)),
	)
	resp := a.resp
	a.invoke(ctx, "OnCompleteResponse", func() { a.handler.OnCompleteResponse(ctx, resp) })
}

// Fail terminates the stream and reports err, mapped by the configured
// ErrorMapper, through OnError. It does nothing once the stream has terminated.
func (a *Assembler) Fail(ctx context.Context, err error) {
	if !a.transition(StateTerminated) {
		a.log.DebugContext(ctx, "dropping failure after termination", slogx.Error(err))
		return
	}
	if err == nil {
		err = ErrStreamClosed
	}

	mapped := a.cfg.errorMapper.MapError(err)
	if mapped == nil {
		mapped = err
	}
	a.err = mapped

	a.log.WarnContext(ctx, "stream failed", slogx.Error(mapped))
	a.invoke(ctx, "OnError", func() { a.handler.OnError(ctx, mapped) })
}

// invoke runs a handler callback and logs a panic instead of propagating it.
func (a *Assembler) invoke(ctx context.Context, callback string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.log.ErrorContext(ctx, "handler callback panicked", slog.String("callback", callback), slogx.Recovered(r))
		}
	}()
	fn()
}

func finishReason(code *string) messages.FinishReason {
	if code == nil {
		return messages.FinishReasonUnset
	}
	return messages.ParseFinishReason(*code)
}
