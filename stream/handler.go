package stream

import (
	"context"
	"log/slog"

	"github.com/casualjim/chatstream/messages"
	"github.com/casualjim/chatstream/pkg/slogx"
)

// Handler receives the callbacks of one stream. Partial callbacks arrive in
// stream order and are followed by exactly one call to OnCompleteResponse or
// OnError. Callbacks run on the goroutine that feeds the stream, so a slow
// handler slows the stream down.
type Handler interface {
	OnPartialResponse(ctx context.Context, text string)
	OnPartialThinking(ctx context.Context, text string)
	OnCompleteToolCall(ctx context.Context, call messages.ToolCall)
	OnCompleteResponse(ctx context.Context, resp messages.Response)
	OnError(ctx context.Context, err error)
}

// HandlerFuncs adapts plain functions to a Handler. Nil fields are skipped.
type HandlerFuncs struct {
	PartialResponse  func(ctx context.Context, text string)
	PartialThinking  func(ctx context.Context, text string)
	CompleteToolCall func(ctx context.Context, call messages.ToolCall)
	CompleteResponse func(ctx context.Context, resp messages.Response)
	Error            func(ctx context.Context, err error)
}

var _ Handler = HandlerFuncs{}

func (h HandlerFuncs) OnPartialResponse(ctx context.Context, text string) {
	if h.PartialResponse != nil {
		h.PartialResponse(ctx, text)
	}
}

func (h HandlerFuncs) OnPartialThinking(ctx context.Context, text string) {
	if h.PartialThinking != nil {
		h.PartialThinking(ctx, text)
	}
}

func (h HandlerFuncs) OnCompleteToolCall(ctx context.Context, call messages.ToolCall) {
	if h.CompleteToolCall != nil {
		h.CompleteToolCall(ctx, call)
	}
}

func (h HandlerFuncs) OnCompleteResponse(ctx context.Context, resp messages.Response) {
	if h.CompleteResponse != nil {
		h.CompleteResponse(ctx, resp)
	}
}

func (h HandlerFuncs) OnError(ctx context.Context, err error) {
	if h.Error != nil {
		h.Error(ctx, err)
	}
}

// Multi fans every callback out to handlers, in the order given. A handler
// that panics is logged and skipped; the remaining handlers still receive the
// callback.
func Multi(handlers ...Handler) Handler {
	hs := make(multiHandler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			hs = append(hs, h)
		}
	}
	return hs
}

type multiHandler []Handler

func (m multiHandler) each(ctx context.Context, callback string, fn func(Handler)) {
	for i, h := range m {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Default().ErrorContext(ctx, "handler callback panicked",
						slogx.LoggerName("chatstream.stream"),
						slog.String("callback", callback),
						slog.Int("handler", i),
						slogx.Recovered(r))
				}
			}()
			fn(h)
		}()
	}
}

func (m multiHandler) OnPartialResponse(ctx context.Context, text string) {
	m.each(ctx, "OnPartialResponse", func(h Handler) { h.OnPartialResponse(ctx, text) })
}

func (m multiHandler) OnPartialThinking(ctx context.Context, text string) {
	m.each(ctx, "OnPartialThinking", func(h Handler) { h.OnPartialThinking(ctx, text) })
}

func (m multiHandler) OnCompleteToolCall(ctx context.Context, call messages.ToolCall) {
	m.each(ctx, "OnCompleteToolCall", func(h Handler) { h.OnCompleteToolCall(ctx, call) })
}

func (m multiHandler) OnCompleteResponse(ctx context.Context, resp messages.Response) {
	m.each(ctx, "OnCompleteResponse", func(h Handler) { h.OnCompleteResponse(ctx, resp) })
}

func (m multiHandler) OnError(ctx context.Context, err error) {
	m.each(ctx, "OnError", func(h Handler) { h.OnError(ctx, err) })
}
