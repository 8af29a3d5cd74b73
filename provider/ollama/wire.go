package ollama

import (
	"bytes"

	"github.com/casualjim/chatstream/messages"
	"github.com/casualjim/chatstream/provider"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

var emptyObject = json.RawMessage(`{}`)

type chatRequest struct {
	Model     string          `json:"model"`
	Messages  []chatMessage   `json:"messages"`
	Tools     []chatTool      `json:"tools,omitempty"`
	Stream    bool            `json:"stream"`
	Think     *bool           `json:"think,omitempty"`
	Format    json.RawMessage `json:"format,omitempty"`
	Options   *requestOptions `json:"options,omitempty"`
	KeepAlive string          `json:"keep_alive,omitempty"`
}

type requestOptions struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	MinP          *float64 `json:"min_p,omitempty"`
	Mirostat      *int     `json:"mirostat,omitempty"`
	MirostatEta   *float64 `json:"mirostat_eta,omitempty"`
	MirostatTau   *float64 `json:"mirostat_tau,omitempty"`
	RepeatLastN   *int     `json:"repeat_last_n,omitempty"`
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty"`
	Seed          *int     `json:"seed,omitempty"`
	NumPredict    *int     `json:"num_predict,omitempty"`
	NumCtx        *int     `json:"num_ctx,omitempty"`
	Stop          []string `json:"stop,omitempty"`
}

func (o requestOptions) empty() bool {
	return o.Temperature == nil && o.TopK == nil && o.TopP == nil && o.MinP == nil &&
		o.Mirostat == nil && o.MirostatEta == nil && o.MirostatTau == nil &&
		o.RepeatLastN == nil && o.RepeatPenalty == nil && o.Seed == nil &&
		o.NumPredict == nil && o.NumCtx == nil && len(o.Stop) == 0
}

type chatMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Images    []string       `json:"images,omitempty"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
}

type wireToolCall struct {
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Index     int             `json:"index"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelInfo describes a model installed on the server.
type ModelInfo struct {
	Name       string          `json:"name"`
	Size       int64           `json:"size"`
	Digest     string          `json:"digest"`
	ModifiedAt strfmt.DateTime `json:"modified_at"`
	Details    ModelDetails    `json:"details"`
}

type ModelDetails struct {
	Format            string `json:"format"`
	Family            string `json:"family"`
	ParameterSize     string `json:"parameter_size"`
	QuantizationLevel string `json:"quantization_level"`
}

func encodeRequest(req provider.ChatRequest, keepAlive string) ([]byte, error) {
	wire := chatRequest{
		Model:     req.Model,
		Messages:  make([]chatMessage, 0, len(req.Messages)),
		Stream:    true,
		KeepAlive: keepAlive,
	}
	if req.Think {
		think := true
		wire.Think = &think
	}

	for _, msg := range req.Messages {
		wire.Messages = append(wire.Messages, toChatMessage(msg))
	}

	for _, def := range req.Tools {
		params, err := def.ParametersJSON()
		if err != nil {
			return nil, err
		}
		wire.Tools = append(wire.Tools, chatTool{
			Type: "function",
			Function: toolFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  params,
			},
		})
	}

	format, err := encodeFormat(req.Format)
	if err != nil {
		return nil, err
	}
	wire.Format = format

	opts := requestOptions{
		Temperature:   req.Temperature,
		TopK:          req.TopK,
		TopP:          req.TopP,
		MinP:          req.MinP,
		Mirostat:      req.Mirostat,
		MirostatEta:   req.MirostatEta,
		MirostatTau:   req.MirostatTau,
		RepeatLastN:   req.RepeatLastN,
		RepeatPenalty: req.RepeatPenalty,
		Seed:          req.Seed,
		NumPredict:    req.MaxTokens,
		NumCtx:        req.NumCtx,
		Stop:          req.Stop,
	}
	if !opts.empty() {
		wire.Options = &opts
	}

	return json.Marshal(wire)
}

// encodeFormat renders the format field: absent for text, "json", or the schema.
func encodeFormat(f *provider.ResponseFormat) (json.RawMessage, error) {
	switch {
	case f == nil:
		return nil, nil
	case f.Schema == nil:
		return json.RawMessage(`"json"`), nil
	default:
		return json.Marshal(f.Schema)
	}
}

func toChatMessage(msg messages.Message) chatMessage {
	cm := chatMessage{
		Role:     string(msg.Role),
		Content:  msg.Content,
		Images:   msg.Images,
		ToolName: msg.ToolName,
	}
	for _, call := range msg.ToolCalls {
		args := json.RawMessage(call.Arguments)
		if !gjson.Valid(call.Arguments) {
			args = emptyObject
		}
		cm.ToolCalls = append(cm.ToolCalls, wireToolCall{
			Function: wireFunction{Index: call.Index, Name: call.Name, Arguments: args},
		})
	}
	return cm
}

// compactArguments renders an arguments value as compact JSON text.
// Arguments sent as a JSON string are taken verbatim.
func compactArguments(args gjson.Result) (string, error) {
	if args.Type == gjson.String {
		return args.String(), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(args.Raw)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
