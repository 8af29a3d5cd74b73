package provider

import (
	"context"
	"errors"
	"iter"

	"github.com/casualjim/chatstream/messages"
	"github.com/casualjim/chatstream/stream"
	"github.com/casualjim/chatstream/tool"
	"github.com/invopop/jsonschema"
)

// ErrNoMessages is reported when a request has nothing to send.
var ErrNoMessages = errors.New("chat request has no messages")

// Provider streams chat completions from one backend.
type Provider interface {
	// ChatStream sends req and drives handler until exactly one terminal
	// callback was delivered. It returns the error given to OnError, or nil.
	ChatStream(ctx context.Context, req ChatRequest, handler stream.Handler, options ...stream.Option) error
}

// Model binds a model name to the provider that serves it.
type Model interface {
	Name() string
	Provider() Provider
}

// ChatRequest is a backend neutral chat completion request.
// Nil sampling parameters are left to the backend defaults.
type ChatRequest struct {
	Model    string
	Messages []messages.Message
	Tools    []tool.Definition

	// Think asks the model for a reasoning trace and captures it in the response.
	Think bool

	Temperature *float64
	TopP        *float64
	TopK        *int
	Seed        *int
	MaxTokens   *int
	// NumCtx sets the context window size where the backend supports it.
	NumCtx *int
	Stop   []string

	// Sampling controls only Ollama honours.
	Mirostat      *int
	MirostatEta   *float64
	MirostatTau   *float64
	RepeatLastN   *int
	RepeatPenalty *float64
	MinP          *float64

	// Format constrains the answer; nil leaves it as free text.
	Format *ResponseFormat
}

// ResponseFormat asks for a JSON answer, matching Schema when it is set.
type ResponseFormat struct {
	Schema *jsonschema.Schema
}

// JSONFormat asks for any JSON value.
func JSONFormat() *ResponseFormat {
	return &ResponseFormat{}
}

// SchemaFormat asks for JSON matching schema.
func SchemaFormat(schema *jsonschema.Schema) *ResponseFormat {
	return &ResponseFormat{Schema: schema}
}

// FormatFor asks for JSON shaped like T.
func FormatFor[T any]() *ResponseFormat {
	return SchemaFormat(tool.SchemaFor[T]())
}

// Validate checks the parts of a request that every backend needs.
func (r ChatRequest) Validate() error {
	if r.Model == "" {
		return errors.New("chat request has no model")
	}
	if len(r.Messages) == 0 {
		return ErrNoMessages
	}
	return nil
}

// Run assembles fragments produced by source into handler callbacks.
// Capture of thinking follows req.Think unless options override it.
func Run(ctx context.Context, req ChatRequest, source iter.Seq2[stream.Fragment, error], handler stream.Handler, options ...stream.Option) error {
	asm, err := stream.NewAssembler(handler, append([]stream.Option{stream.WithThinking(req.Think)}, options...)...)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		asm.Fail(ctx, stream.NewError(stream.ErrorKindInvalidRequest, err.Error(), err))
		return asm.Err()
	}
	asm.Run(ctx, source)
	return asm.Err()
}

// Stream sends req to the provider of model, using the model's name.
func Stream(ctx context.Context, model Model, req ChatRequest, handler stream.Handler, options ...stream.Option) error {
	req.Model = model.Name()
	return model.Provider().ChatStream(ctx, req, handler, options...)
}

// Chat waits for the complete response of req.
func Chat(ctx context.Context, p Provider, req ChatRequest, options ...stream.Option) (messages.Response, error) {
	var resp messages.Response
	err := p.ChatStream(ctx, req, stream.HandlerFuncs{
		CompleteResponse: func(_ context.Context, r messages.Response) { resp = r },
	}, options...)
	if err != nil {
		return messages.Response{}, err
	}
	return resp, nil
}
