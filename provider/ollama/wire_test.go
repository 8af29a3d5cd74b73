package ollama

import (
	"testing"

	"github.com/casualjim/chatstream/messages"
	"github.com/casualjim/chatstream/pkg/stdx"
	"github.com/casualjim/chatstream/provider"
	"github.com/casualjim/chatstream/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type lookupArgs struct {
	Query string `json:"query"`
}

func TestEncodeRequest(t *testing.T) {
	call := messages.ToolCall{Index: 0, ID: "c1", Name: "lookup", Arguments: `{"query":"go"}`}
	req := provider.ChatRequest{
		Model: "qwen3",
		Messages: []messages.Message{
			messages.System("be brief"),
			messages.User("look this up", "aW1n"),
			messages.FromResponse(messages.Response{ToolCalls: []messages.ToolCall{call, {Index: 1, Name: "broken", Arguments: "{not json"}}}),
			messages.ToolResult(call, "found it"),
		},
		Tools:       []tool.Definition{tool.Must[lookupArgs](tool.Name("lookup"), tool.Description("search"))},
		Think:       true,
		Temperature: stdx.Ptr(0.2),
		MaxTokens:   stdx.Ptr(128),
		Stop:        []string{"</end>"},
	}

	b, err := encodeRequest(req, "5m")
	require.NoError(t, err)
	doc := gjson.ParseBytes(b)

	assert.Equal(t, "qwen3", doc.Get("model").String())
	assert.True(t, doc.Get("stream").Bool())
	assert.True(t, doc.Get("think").Bool())
	assert.Equal(t, "5m", doc.Get("keep_alive").String())

	assert.Equal(t, "system", doc.Get("messages.0.role").String())
	assert.Equal(t, "aW1n", doc.Get("messages.1.images.0").String())
	assert.Equal(t, "go", doc.Get("messages.2.tool_calls.0.function.arguments.query").String())
	assert.True(t, doc.Get("messages.2.tool_calls.1.function.arguments").IsObject())
	assert.Equal(t, "tool", doc.Get("messages.3.role").String())
	assert.Equal(t, "lookup", doc.Get("messages.3.tool_name").String())

	assert.Equal(t, "function", doc.Get("tools.0.type").String())
	assert.Equal(t, "lookup", doc.Get("tools.0.function.name").String())
	assert.Equal(t, "string", doc.Get("tools.0.function.parameters.properties.query.type").String())

	assert.Equal(t, 0.2, doc.Get("options.temperature").Float())
	assert.Equal(t, int64(128), doc.Get("options.num_predict").Int())
	assert.Equal(t, "</end>", doc.Get("options.stop.0").String())
	assert.False(t, doc.Get("options.top_k").Exists())
}

func TestEncodeRequest_Minimal(t *testing.T) {
	b, err := encodeRequest(provider.ChatRequest{Model: "m", Messages: []messages.Message{messages.User("hi")}}, "")
	require.NoError(t, err)
	doc := gjson.ParseBytes(b)

	assert.False(t, doc.Get("think").Exists())
	assert.False(t, doc.Get("options").Exists())
	assert.False(t, doc.Get("tools").Exists())
	assert.False(t, doc.Get("keep_alive").Exists())
	assert.False(t, doc.Get("format").Exists())
}

func TestEncodeRequest_SamplingOptions(t *testing.T) {
	req := provider.ChatRequest{
		Model:         "m",
		Messages:      []messages.Message{messages.User("hi")},
		MinP:          stdx.Ptr(0.05),
		Mirostat:      stdx.Ptr(2),
		MirostatEta:   stdx.Ptr(0.1),
		MirostatTau:   stdx.Ptr(5.0),
		RepeatLastN:   stdx.Ptr(64),
		RepeatPenalty: stdx.Ptr(1.1),
	}

	b, err := encodeRequest(req, "")
	require.NoError(t, err)
	opts := gjson.GetBytes(b, "options")

	assert.Equal(t, 0.05, opts.Get("min_p").Float())
	assert.Equal(t, int64(2), opts.Get("mirostat").Int())
	assert.Equal(t, 0.1, opts.Get("mirostat_eta").Float())
	assert.Equal(t, 5.0, opts.Get("mirostat_tau").Float())
	assert.Equal(t, int64(64), opts.Get("repeat_last_n").Int())
	assert.Equal(t, 1.1, opts.Get("repeat_penalty").Float())
	assert.False(t, opts.Get("temperature").Exists())
}

type cityAnswer struct {
	City       string `json:"city"`
	Population int    `json:"population"`
}

func TestEncodeRequest_Format(t *testing.T) {
	tests := []struct {
		name     string
		format   *provider.ResponseFormat
		validate func(t *testing.T, format gjson.Result)
	}{
		{
			name:   "text",
			format: nil,
			validate: func(t *testing.T, format gjson.Result) {
				assert.False(t, format.Exists())
			},
		},
		{
			name:   "json",
			format: provider.JSONFormat(),
			validate: func(t *testing.T, format gjson.Result) {
				assert.Equal(t, gjson.String, format.Type)
				assert.Equal(t, "json", format.String())
			},
		},
		{
			name:   "schema",
			format: provider.FormatFor[cityAnswer](),
			validate: func(t *testing.T, format gjson.Result) {
				require.True(t, format.IsObject())
				assert.Equal(t, "object", format.Get("type").String())
				assert.Equal(t, "string", format.Get("properties.city.type").String())
				assert.Equal(t, "integer", format.Get("properties.population.type").String())
				assert.False(t, format.Get("$schema").Exists())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := provider.ChatRequest{Model: "m", Messages: []messages.Message{messages.User("hi")}, Format: tt.format}
			b, err := encodeRequest(req, "")
			require.NoError(t, err)
			tt.validate(t, gjson.GetBytes(b, "format"))
		})
	}
}
