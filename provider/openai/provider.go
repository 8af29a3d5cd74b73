package openai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/casualjim/chatstream/messages"
	"github.com/casualjim/chatstream/pkg/jsonx"
	"github.com/casualjim/chatstream/pkg/stdx"
	"github.com/casualjim/chatstream/provider"
	"github.com/casualjim/chatstream/stream"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/tidwall/gjson"
)

var _ provider.Provider = (*Provider)(nil)

type Provider struct {
	client *openai.Client
}

func New(options ...option.RequestOption) *Provider {
	return &Provider{
		client: openai.NewClient(options...),
	}
}

// ChatStream streams req from the chat completions endpoint into handler.
func (p *Provider) ChatStream(ctx context.Context, req provider.ChatRequest, handler stream.Handler, options ...stream.Option) error {
	return provider.Run(ctx, req, p.fragments(ctx, req), handler, options...)
}

func (p *Provider) buildRequest(req provider.ChatRequest) (openai.ChatCompletionNewParams, error) {
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, def := range req.Tools {
		jv, err := jsonx.ToDynamicJSON(def.Schema())
		if err != nil {
			return openai.ChatCompletionNewParams{}, fmt.Errorf("failed to convert tool %s parameters: %w", def.Name, err)
		}

		fn := openai.FunctionDefinitionParam{
			Name:       openai.String(def.Name),
			Parameters: openai.F(shared.FunctionParameters(jv)),
		}
		if strings.TrimSpace(def.Description) != "" {
			fn.Description = openai.String(def.Description)
		}
		tools[i] = openai.ChatCompletionToolParam{
			Type:     openai.F(openai.ChatCompletionToolTypeFunction),
			Function: openai.F(fn),
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: openai.F(messagesToOpenAI(req.Messages)),
		Model:    openai.F(req.Model),
		N:        openai.Int(1),
		StreamOptions: openai.F(openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		}),
	}
	if len(tools) > 0 {
		params.Tools = openai.F(tools)
		params.ParallelToolCalls = openai.Bool(true)
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	}
	if req.Seed != nil {
		params.Seed = openai.Int(int64(*req.Seed))
	}
	if req.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*req.MaxTokens))
	}
	return params, nil
}

func (p *Provider) fragments(ctx context.Context, req provider.ChatRequest) iter.Seq2[stream.Fragment, error] {
	return func(yield func(stream.Fragment, error) bool) {
		params, err := p.buildRequest(req)
		if err != nil {
			yield(stream.Fragment{}, stream.NewError(stream.ErrorKindInvalidRequest, "build chat request", err))
			return
		}

		strm := p.client.Chat.Completions.NewStreaming(ctx, params)
		defer strm.Close()

		var acc chunkState
		for strm.Next() {
			chunk := strm.Current()
			if !yield(acc.fragment(&chunk), nil) {
				return
			}
		}
		if err := strm.Err(); err != nil {
			yield(stream.Fragment{}, mapError(err))
			return
		}
		yield(acc.done(), nil)
	}
}

// chunkState remembers what OpenAI only sends once: the finish reason on the
// last choice and the usage on a trailing chunk without choices.
type chunkState struct {
	finishReason *string
	promptTokens *int
	outputTokens *int
}

func (s *chunkState) fragment(chunk *openai.ChatCompletionChunk) stream.Fragment {
	raw := gjson.Parse(chunk.JSON.RawJSON())
	f := stream.Fragment{Model: stdx.NonEmpty(chunk.Model)}

	if usage := raw.Get("usage"); usage.IsObject() {
		s.promptTokens = stdx.Ptr(int(chunk.Usage.PromptTokens))
		s.outputTokens = stdx.Ptr(int(chunk.Usage.CompletionTokens))
	}

	if len(chunk.Choices) == 0 {
		return f
	}
	choice := chunk.Choices[0]
	if reason := string(choice.FinishReason); reason != "" {
		s.finishReason = &reason
	}

	f.Content = stdx.NonEmpty(choice.Delta.Content)
	if reasoning := raw.Get("choices.0.delta.reasoning_content"); reasoning.Exists() {
		f.Thinking = stdx.NonEmpty(reasoning.String())
	}
	for _, tc := range choice.Delta.ToolCalls {
		f.ToolCalls = append(f.ToolCalls, stream.ToolCallDelta{
			Index:     int(tc.Index),
			ID:        stdx.NonEmpty(tc.ID),
			Name:      stdx.NonEmpty(tc.Function.Name),
			Arguments: stdx.NonEmpty(tc.Function.Arguments),
		})
	}
	return f
}

func (s *chunkState) done() stream.Fragment {
	return stream.Fragment{
		Done:           true,
		FinishReason:   s.finishReason,
		PromptTokens:   s.promptTokens,
		ResponseTokens: s.outputTokens,
	}
}

func mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		se := provider.StatusError(apiErr.StatusCode, apiErr.Message)
		se.Err = err
		return se
	}
	return provider.MapNetworkError(err)
}

func messagesToOpenAI(msgs []messages.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case messages.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case messages.RoleUser:
			parts := []openai.ChatCompletionContentPartUnionParam{openai.TextPart(msg.Content)}
			for _, img := range msg.Images {
				parts = append(parts, openai.ChatCompletionContentPartImageParam{
					ImageURL: openai.F(openai.ChatCompletionContentPartImageImageURLParam{
						URL: openai.String(imageURL(img)),
					}),
					Type: openai.F(openai.ChatCompletionContentPartImageTypeImageURL),
				})
			}
			result = append(result, openai.UserMessageParts(parts...))
		case messages.RoleTool:
			result = append(result, openai.ToolMessage(msg.ToolCallID, msg.Content))
		case messages.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				result = append(result, openai.AssistantMessage(msg.Content))
				continue
			}
			tcd := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				tcd[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   openai.String(tc.ID),
					Type: openai.F(openai.ChatCompletionMessageToolCallTypeFunction),
					Function: openai.F(openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      openai.String(tc.Name),
						Arguments: openai.String(tc.Arguments),
					}),
				}
			}
			result = append(result, openai.ChatCompletionMessageParam{
				Role:      openai.F(openai.ChatCompletionMessageParamRoleAssistant),
				ToolCalls: openai.F[any](tcd),
			})
		}
	}
	return result
}

// imageURL accepts either a URL or raw base64 image data.
func imageURL(img string) string {
	if strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") || strings.HasPrefix(img, "data:") {
		return img
	}
	return "data:image/png;base64," + img
}
