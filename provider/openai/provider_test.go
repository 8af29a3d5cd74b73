package openai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/casualjim/chatstream/messages"
	"github.com/casualjim/chatstream/pkg/stdx"
	"github.com/casualjim/chatstream/provider"
	"github.com/casualjim/chatstream/stream"
	"github.com/casualjim/chatstream/tool"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var quiet = stream.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

func setupTestServer(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(
		option.WithBaseURL(server.URL+"/v1/"),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
}

func writeSSE(t *testing.T, w http.ResponseWriter, chunks ...string) {
	t.Helper()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	require.True(t, ok)

	for _, c := range chunks {
		_, err := fmt.Fprintf(w, "data: %s\n\n", c)
		require.NoError(t, err)
		flusher.Flush()
	}
	_, err := fmt.Fprint(w, "data: [DONE]\n\n")
	require.NoError(t, err)
	flusher.Flush()
}

func chunk(choices string, extra string) string {
	s := `{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4o-mini","choices":[` + choices + `]`
	if extra != "" {
		s += "," + extra
	}
	return s + "}"
}

func request(think bool) provider.ChatRequest {
	return provider.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []messages.Message{messages.System("be brief"), messages.User("hi")},
		Think:    think,
	}
}

type collected struct {
	partial  []string
	thinking []string
	tools    []messages.ToolCall
	resp     *messages.Response
	err      error
}

func (c *collected) handler() stream.Handler {
	return stream.HandlerFuncs{
		PartialResponse:  func(_ context.Context, s string) { c.partial = append(c.partial, s) },
		PartialThinking:  func(_ context.Context, s string) { c.thinking = append(c.thinking, s) },
		CompleteToolCall: func(_ context.Context, tc messages.ToolCall) { c.tools = append(c.tools, tc) },
		CompleteResponse: func(_ context.Context, r messages.Response) { c.resp = &r },
		Error:            func(_ context.Context, err error) { c.err = err },
	}
}

func TestProvider_ChatStream_Text(t *testing.T) {
	p := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		doc := gjson.ParseBytes(body)
		assert.Equal(t, "gpt-4o-mini", doc.Get("model").String())
		assert.True(t, doc.Get("stream").Bool())
		assert.True(t, doc.Get("stream_options.include_usage").Bool())
		assert.Equal(t, "system", doc.Get("messages.0.role").String())
		assert.Equal(t, "user", doc.Get("messages.1.role").String())
		assert.Equal(t, 0.3, doc.Get("temperature").Float())
		assert.False(t, doc.Get("tools").Exists())

		writeSSE(t, w,
			chunk(`{"index":0,"delta":{"role":"assistant","content":"Hel"},"finish_reason":null}`, ""),
			chunk(`{"index":0,"delta":{"content":"lo"},"finish_reason":null}`, ""),
			chunk(`{"index":0,"delta":{},"finish_reason":"stop"}`, ""),
			chunk(``, `"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}`),
		)
	})

	req := request(false)
	req.Temperature = stdx.Ptr(0.3)

	var c collected
	require.NoError(t, p.ChatStream(context.Background(), req, c.handler(), quiet))

	assert.Equal(t, []string{"Hel", "lo"}, c.partial)
	require.NotNil(t, c.resp)
	assert.Equal(t, "Hello", c.resp.Text)
	assert.Equal(t, "gpt-4o-mini", c.resp.Model)
	assert.Equal(t, messages.FinishReasonStop, c.resp.FinishReason)
	assert.Equal(t, &messages.TokenUsage{InputTokens: 5, OutputTokens: 2, TotalTokens: 7}, c.resp.Usage)
	assert.NotNil(t, c.resp.ToolCalls)
	assert.Empty(t, c.resp.ToolCalls)
}

type searchArgs struct {
	Query string `json:"query"`
}

func TestProvider_ChatStream_ToolCalls(t *testing.T) {
	p := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		doc := gjson.ParseBytes(body)
		assert.Equal(t, "search", doc.Get("tools.0.function.name").String())
		assert.Equal(t, "string", doc.Get("tools.0.function.parameters.properties.query.type").String())
		assert.True(t, doc.Get("parallel_tool_calls").Bool())

		writeSSE(t, w,
			chunk(`{"index":0,"delta":{"role":"assistant","tool_calls":[{"index":0,"id":"call_a","type":"function","function":{"name":"search","arguments":""}}]},"finish_reason":null}`, ""),
			chunk(`{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"query\":"}}]},"finish_reason":null}`, ""),
			chunk(`{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"go\"}"}}]},"finish_reason":null}`, ""),
			chunk(`{"index":0,"delta":{"tool_calls":[{"index":1,"id":"call_b","type":"function","function":{"name":"search","arguments":"{}"}}]},"finish_reason":null}`, ""),
			chunk(`{"index":0,"delta":{},"finish_reason":"tool_calls"}`, ""),
		)
	})

	req := request(false)
	req.Tools = []tool.Definition{tool.Must[searchArgs](tool.Name("search"), tool.Description("web search"))}

	var c collected
	require.NoError(t, p.ChatStream(context.Background(), req, c.handler(), quiet))

	require.Len(t, c.tools, 2)
	assert.Equal(t, messages.ToolCall{Index: 0, ID: "call_a", Name: "search", Arguments: `{"query":"go"}`}, c.tools[0])
	assert.Equal(t, messages.ToolCall{Index: 1, ID: "call_b", Name: "search", Arguments: `{}`}, c.tools[1])
	require.NotNil(t, c.resp)
	assert.Equal(t, c.tools, c.resp.ToolCalls)
	assert.Equal(t, messages.FinishReasonOther, c.resp.FinishReason)
	assert.Nil(t, c.resp.Usage)
}

func TestProvider_ChatStream_ReasoningContent(t *testing.T) {
	p := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeSSE(t, w,
			chunk(`{"index":0,"delta":{"role":"assistant","content":"","reasoning_content":"think "},"finish_reason":null}`, ""),
			chunk(`{"index":0,"delta":{"reasoning_content":"harder"},"finish_reason":null}`, ""),
			chunk(`{"index":0,"delta":{"content":"done"},"finish_reason":"length"}`, ""),
		)
	})

	var c collected
	require.NoError(t, p.ChatStream(context.Background(), request(true), c.handler(), quiet))
	assert.Equal(t, []string{"think ", "harder"}, c.thinking)
	require.NotNil(t, c.resp)
	assert.Equal(t, "think harder", c.resp.Thinking)
	assert.Equal(t, "done", c.resp.Text)
	assert.Equal(t, messages.FinishReasonLength, c.resp.FinishReason)
}

func TestProvider_ChatStream_HTTPError(t *testing.T) {
	p := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"Rate limit reached","type":"requests","param":null,"code":"rate_limit_exceeded"}}`)
	})

	var c collected
	err := p.ChatStream(context.Background(), request(false), c.handler(), quiet)
	require.Error(t, err)
	assert.Equal(t, err, c.err)
	assert.Nil(t, c.resp)

	var se *stream.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, stream.ErrorKindRateLimited, se.Kind)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.True(t, se.Retryable())
}

func TestMessagesToOpenAI(t *testing.T) {
	call := messages.ToolCall{ID: "call_1", Name: "search", Arguments: `{"query":"go"}`}
	msgs := messagesToOpenAI([]messages.Message{
		messages.System("sys"),
		messages.User("look", "aW1n"),
		messages.FromResponse(messages.Response{ToolCalls: []messages.ToolCall{call}}),
		messages.ToolResult(call, "result"),
		messages.Assistant("answer"),
	})
	assert.Len(t, msgs, 5)
}

func TestImageURL(t *testing.T) {
	assert.Equal(t, "https://x/y.png", imageURL("https://x/y.png"))
	assert.Equal(t, "data:image/jpeg;base64,AA", imageURL("data:image/jpeg;base64,AA"))
	assert.Equal(t, "data:image/png;base64,AA", imageURL("AA"))
}

func TestModel_Registry(t *testing.T) {
	m := GPT4oMini()
	assert.Equal(t, "gpt-4o-mini", m.Name())
	assert.Same(t, m, Model("gpt-4o-mini"))
	assert.Same(t, m.Provider(), m.Provider())
	assert.Equal(t, "gpt-4o", GPT4o().Name())
	assert.Equal(t, "o1-mini", O1Mini().Name())
}
