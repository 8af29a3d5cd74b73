package messages

// Role identifies the author of a request message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the conversation sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Images holds base64 encoded image data for user messages.
	Images     []string   `json:"images,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func User(content string, images ...string) Message {
	return Message{Role: RoleUser, Content: content, Images: images}
}

func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolResult answers call with the output of the tool.
func ToolResult(call ToolCall, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		ToolName:   call.Name,
	}
}

// FromResponse turns a final response back into an assistant message so a
// conversation can continue after tool calls.
func FromResponse(resp Response) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   resp.Text,
		ToolCalls: resp.ToolCalls,
	}
}
