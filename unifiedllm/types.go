package unifiedllm

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model-initiated tool invocation. Arguments is the loosely
// typed argument map exactly as the backend produced it.
type ToolCall struct {
	ID        string         `json:"-"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Message is one entry in a conversation. Only assistant messages carry
// tool calls.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// HasToolCalls reports whether the message requested any tool invocations.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage creates a user Message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage creates an assistant Message, optionally carrying the tool
// calls the model requested.
func AssistantMessage(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// ToolMessage creates a tool outcome Message.
func ToolMessage(text string) Message {
	return Message{Role: RoleTool, Content: text}
}

// ToolDefinition is the schema advertised to the model for one tool.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request is the input to Complete. An empty Tools slice means the backend is
// not offered any tools.
type Request struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Provider    string           `json:"provider,omitempty"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature float64          `json:"temperature"`
}

// Response is the output of Complete.
type Response struct {
	Model    string  `json:"model"`
	Provider string  `json:"provider"`
	Message  Message `json:"message"`
	Done     bool    `json:"done"`
}

// Text returns the assistant's text content.
func (r Response) Text() string {
	return r.Message.Content
}

// ToolCalls returns the tool calls carried by the assistant message.
func (r Response) ToolCalls() []ToolCall {
	return r.Message.ToolCalls
}

// decodeArguments accepts tool-call arguments encoded either as a JSON object
// or as a string holding a JSON object. Some OpenAI-compatible servers use the
// latter.
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return map[string]any{}, nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, err
		}
		if strings.TrimSpace(inner) == "" {
			return map[string]any{}, nil
		}
		raw = json.RawMessage(inner)
	}
	args := map[string]any{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	return args, nil
}
