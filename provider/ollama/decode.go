package ollama

import (
	"fmt"

	"github.com/casualjim/chatstream/pkg/stdx"
	"github.com/casualjim/chatstream/stream"
	"github.com/tidwall/gjson"
)

// decodeFragment decodes one NDJSON line of an /api/chat stream.
// Tool calls without an index are treated as index 0.
func decodeFragment(line []byte) (stream.Fragment, error) {
	if !gjson.ValidBytes(line) {
		return stream.Fragment{}, stream.NewError(stream.ErrorKindDecode, fmt.Sprintf("invalid json line: %.120s", line), nil)
	}
	doc := gjson.ParseBytes(line)

	if msg := doc.Get("error"); msg.Exists() {
		return stream.Fragment{}, stream.NewError(stream.ErrorKindServer, msg.String(), nil)
	}

	var f stream.Fragment
	if model := doc.Get("model"); model.Exists() {
		f.Model = stdx.Ptr(model.String())
	}

	message := doc.Get("message")
	if content := message.Get("content"); content.Exists() {
		f.Content = stdx.Ptr(content.String())
	}
	if thinking := message.Get("thinking"); thinking.Exists() {
		f.Thinking = stdx.Ptr(thinking.String())
	}

	for i, call := range message.Get("tool_calls").Array() {
		fn := call.Get("function")
		delta := stream.ToolCallDelta{Index: int(fn.Get("index").Int())}
		if id := call.Get("id"); id.Exists() {
			delta.ID = stdx.NonEmpty(id.String())
		}
		if name := fn.Get("name"); name.Exists() {
			delta.Name = stdx.Ptr(name.String())
		}
		if args := fn.Get("arguments"); args.Exists() {
			text, err := compactArguments(args)
			if err != nil {
				return stream.Fragment{}, stream.NewError(stream.ErrorKindDecode, fmt.Sprintf("tool call %d: invalid arguments", i), err)
			}
			delta.Arguments = &text
		}
		f.ToolCalls = append(f.ToolCalls, delta)
	}

	f.Done = doc.Get("done").Bool()
	if reason := doc.Get("done_reason"); reason.Exists() && reason.Type != gjson.Null {
		f.FinishReason = stdx.Ptr(reason.String())
	}
	if n := doc.Get("prompt_eval_count"); n.Exists() && n.Type != gjson.Null {
		f.PromptTokens = stdx.Ptr(int(n.Int()))
	}
	if n := doc.Get("eval_count"); n.Exists() && n.Type != gjson.Null {
		f.ResponseTokens = stdx.Ptr(int(n.Int()))
	}
	return f, nil
}
