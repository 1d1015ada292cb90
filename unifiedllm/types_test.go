package unifiedllm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageConstructors(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		role Role
	}{
		{"system", SystemMessage("You are an auditor."), RoleSystem},
		{"user", UserMessage("Analyze this repository."), RoleUser},
		{"assistant", AssistantMessage("Reading files."), RoleAssistant},
		{"tool", ToolMessage("[read_file] ok"), RoleTool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.role, tt.msg.Role)
			assert.False(t, tt.msg.HasToolCalls())
		})
	}
}

func TestAssistantMessageWithToolCalls(t *testing.T) {
	msg := AssistantMessage("", ToolCall{Name: "read_file", Arguments: map[string]any{"path": "a.go"}})
	require.True(t, msg.HasToolCalls())

	resp := Response{Message: msg}
	assert.Equal(t, "read_file", resp.ToolCalls()[0].Name)
	assert.Empty(t, resp.Text())
}

func TestMessageJSONOmitsEmptyToolCalls(t *testing.T) {
	raw, err := json.Marshal(UserMessage("hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":"hi"}`, string(raw))
}

func TestDecodeArguments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{"object", `{"path":"src/main.rs"}`, map[string]any{"path": "src/main.rs"}},
		{"string encoded", `"{\"max_results\":5}"`, map[string]any{"max_results": float64(5)}},
		{"empty", ``, map[string]any{}},
		{"null", `null`, map[string]any{}},
		{"empty string", `""`, map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeArguments(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := decodeArguments(json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}
