package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGollmAdapterNeedsModelOrCatalogEntry(t *testing.T) {
	_, err := NewGollmAdapter("nobody", "")
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), `provider "nobody"`)
}

func TestGollmAdapterClassify(t *testing.T) {
	adapter := &GollmAdapter{provider: ProviderOpenAI}

	tests := []struct {
		err    error
		kind   string
		status int
	}{
		{errors.New("401 Unauthorized"), "rejected", 401},
		{errors.New("API error (429): rate limit exceeded"), "rejected", 429},
		{errors.New("500 internal server error"), "rejected", 500},
		{errors.New("timeout waiting for response"), "timeout", 0},
		{fmt.Errorf("generate: %w", context.DeadlineExceeded), "timeout", 0},
		{errors.New("dial tcp: connection refused"), "unreachable", 0},
		{fmt.Errorf("generate: %w", context.Canceled), "aborted", 0},
		{errors.New("something unknown"), "rejected", 0},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			err := adapter.classify(tt.err)
			assert.Equal(t, tt.kind, ErrorKind(err))
			assert.ErrorIs(t, err, tt.err)
			var pe *ProviderError
			if errors.As(err, &pe) {
				assert.Equal(t, tt.status, pe.StatusCode)
				assert.Equal(t, ProviderOpenAI, pe.Provider)
			}
		})
	}
}

func TestGollmAdapterClassifyRetryable(t *testing.T) {
	adapter := &GollmAdapter{provider: ProviderAnthropic}
	assert.True(t, IsRetryable(adapter.classify(errors.New("503 overloaded"))))
	assert.False(t, IsRetryable(adapter.classify(errors.New("400 bad request"))))
}

func TestExtractToolCalls(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		names []string
		rest  string
	}{
		{
			name:  "bare array",
			text:  `Reading now. [{"name": "read_file", "arguments": {"path": "a.go"}}]`,
			names: []string{"read_file"},
			rest:  "Reading now.",
		},
		{
			name:  "wrapped with string arguments",
			text:  `{"tool_calls": [{"name": "list_files", "arguments": {}}, {"name": "finish_analysis", "arguments": "{}"}]} trailing`,
			names: []string{"list_files", "finish_analysis"},
			rest:  "trailing",
		},
		{
			name:  "fenced single object",
			text:  "Let me look.\n```json\n{\"name\": \"search_code\", \"arguments\": {\"pattern\": \"TODO\"}}\n```",
			names: []string{"search_code"},
			rest:  "Let me look.",
		},
		{
			name:  "two separate objects",
			text:  `{"name": "read_file", "arguments": {"path": "a.go"}} and {"name": "read_file", "arguments": {"path": "b.go"}}`,
			names: []string{"read_file", "read_file"},
			rest:  "and",
		},
		{
			name: "issue json is not a tool call",
			text: `{"file_path": "a.go", "severity": "high"}`,
			rest: `{"file_path": "a.go", "severity": "high"}`,
		},
		{
			name: "plain text",
			text: "Analysis complete. [see above]",
			rest: "Analysis complete. [see above]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, rest := extractToolCalls(tt.text)
			var names []string
			for _, c := range calls {
				names = append(names, c.Name)
				assert.NotNil(t, c.Arguments)
				assert.NotEmpty(t, c.ID)
			}
			assert.Equal(t, tt.names, names)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestExtractToolCallsArguments(t *testing.T) {
	calls, _ := extractToolCalls(`[{"name": "read_file", "arguments": "{\"path\": \"cmd/main.go\"}"}]`)
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"path": "cmd/main.go"}, calls[0].Arguments)
}

func TestGollmResponseKeepsJSONWithoutTools(t *testing.T) {
	adapter := &GollmAdapter{provider: ProviderOpenAI, model: "gpt-4o-mini"}
	text := `[{"name": "read_file", "arguments": {"path": "a.go"}}]`

	resp := adapter.response(Request{}, text)
	assert.Empty(t, resp.ToolCalls())
	assert.Equal(t, text, resp.Text())
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	assert.Equal(t, ProviderOpenAI, resp.Provider)
}

func TestGollmResponseExtractsWithTools(t *testing.T) {
	adapter := &GollmAdapter{provider: ProviderOpenAI, model: "gpt-4o-mini"}
	req := Request{Model: "gpt-4o", Tools: []ToolDefinition{{Name: "read_file"}}}

	resp := adapter.response(req, `[{"name": "read_file", "arguments": {"path": "a.go"}}]`)
	require.Len(t, resp.ToolCalls(), 1)
	assert.Empty(t, resp.Text())
	assert.Equal(t, "gpt-4o", resp.Model)
}
