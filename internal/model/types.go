// Package model provides types for chat-completion operations.
package model

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a conversation.
//
// A conversation grows monotonically within a turn: the user message,
// then alternating assistant messages (possibly carrying tool calls)
// and tool messages (one per tool call, correlated by ToolCallID).
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID correlates a tool message with the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message carrying tool calls.
func AssistantMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolMessage builds a tool-role message answering one tool call.
func ToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// Request represents a chat-completion request.
type Request struct {
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Tools       []Tool    `json:"tools,omitempty"` // Tools for function calling
}

// Response represents a chat-completion response.
//
// Exactly one of Text / ToolCalls is meaningful: a response with tool
// calls is a request for execution, a response without them is final.
type Response struct {
	Text       string     `json:"text"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	TokensUsed int        `json:"tokens_used"`
	Model      string     `json:"model"`
	DurationMs int64      `json:"duration_ms"`
}

// Final reports whether the response carries a final answer
// rather than pending tool calls.
func (r *Response) Final() bool {
	return len(r.ToolCalls) == 0
}

// Tool represents a tool definition for function calling.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall represents a tool call requested by the model.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}
