package messages

import "github.com/go-openapi/strfmt"

// ToolCall is a complete function invocation requested by the model.
// Arguments is the raw argument text exactly as it was streamed.
type ToolCall struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// TokenUsage counts the tokens consumed by one exchange.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// NewTokenUsage derives the total from the input and output counts.
func NewTokenUsage(input, output int) TokenUsage {
	return TokenUsage{
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  input + output,
	}
}

// UsageFrom returns nil unless both counts were reported.
func UsageFrom(input, output *int) *TokenUsage {
	if input == nil || output == nil {
		return nil
	}
	u := NewTokenUsage(*input, *output)
	return &u
}

// Add sums two usages, e.g. across the turns of a tool loop.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return NewTokenUsage(u.InputTokens+other.InputTokens, u.OutputTokens+other.OutputTokens)
}

// Response is the final result of one streamed completion.
type Response struct {
	Text         string          `json:"text"`
	Thinking     string          `json:"thinking,omitempty"`
	ToolCalls    []ToolCall      `json:"tool_calls"`
	Model        string          `json:"model,omitempty"`
	FinishReason FinishReason    `json:"finish_reason"`
	Usage        *TokenUsage     `json:"usage,omitempty"`
	CreatedAt    strfmt.DateTime `json:"created_at"`
}

// HasToolCalls reports whether the model asked for at least one tool invocation.
func (r Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}
