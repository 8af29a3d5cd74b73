package stream

import (
	"context"

	"github.com/casualjim/chatstream/messages"
)

type recorded struct {
	kind string
	text string
	call messages.ToolCall
	resp messages.Response
	err  error
}

type recorder struct {
	events []recorded
}

func (r *recorder) OnPartialResponse(_ context.Context, text string) {
	r.events = append(r.events, recorded{kind: "partial", text: text})
}

func (r *recorder) OnPartialThinking(_ context.Context, text string) {
	r.events = append(r.events, recorded{kind: "thinking", text: text})
}

func (r *recorder) OnCompleteToolCall(_ context.Context, call messages.ToolCall) {
	r.events = append(r.events, recorded{kind: "tool", call: call})
}

func (r *recorder) OnCompleteResponse(_ context.Context, resp messages.Response) {
	r.events = append(r.events, recorded{kind: "complete", resp: resp})
}

func (r *recorder) OnError(_ context.Context, err error) {
	r.events = append(r.events, recorded{kind: "error", err: err})
}

func (r *recorder) kinds() []string {
	kinds := make([]string, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.kind
	}
	return kinds
}

func (r *recorder) terminals() []recorded {
	var out []recorded
	for _, e := range r.events {
		if e.kind == "complete" || e.kind == "error" {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) toolCalls() []messages.ToolCall {
	var out []messages.ToolCall
	for _, e := range r.events {
		if e.kind == "tool" {
			out = append(out, e.call)
		}
	}
	return out
}

func str(s string) *string { return &s }

func num(n int) *int { return &n }

func delta(index int, name, args string) ToolCallDelta {
	d := ToolCallDelta{Index: index}
	if name != "" {
		d.Name = str(name)
	}
	if args != "" {
		d.Arguments = str(args)
	}
	return d
}
