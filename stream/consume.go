package stream

import (
	"context"
	"iter"

	"github.com/casualjim/chatstream/messages"
)

// Run feeds every fragment of source to the assembler until it terminates.
// A source error, a canceled context or a source that ends without a terminal
// fragment is reported through Fail, so a Run always ends in a terminal callback.
func (a *Assembler) Run(ctx context.Context, source iter.Seq2[Fragment, error]) {
	for f, err := range source {
		if err != nil {
			a.Fail(ctx, err)
			return
		}
		if cerr := ctx.Err(); cerr != nil {
			a.Fail(ctx, cerr)
			return
		}
		a.Dispatch(ctx, f)
		if a.Terminated() {
			return
		}
	}

	if cerr := ctx.Err(); cerr != nil {
		a.Fail(ctx, cerr)
		return
	}
	a.Fail(ctx, ErrStreamClosed)
}

// Consume assembles source with a fresh Assembler. It returns the final
// response, or the error that was delivered to handler.OnError.
// A nil handler only collects the result.
func Consume(ctx context.Context, source iter.Seq2[Fragment, error], handler Handler, options ...Option) (messages.Response, error) {
	if handler == nil {
		handler = HandlerFuncs{}
	}
	asm, err := NewAssembler(handler, options...)
	if err != nil {
		return messages.Response{}, err
	}

	asm.Run(ctx, source)
	if err := asm.Err(); err != nil {
		return messages.Response{}, err
	}
	resp, _ := asm.Response()
	return resp, nil
}
