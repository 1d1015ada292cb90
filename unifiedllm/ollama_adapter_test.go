package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaAdapterCompleteWithTools(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))

		_, _ = io.WriteString(w, `{
			"model": "llama3.2:latest",
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [
					{"function": {"name": "read_file", "arguments": {"path": "src/main.rs"}}},
					{"function": {"name": "search_code", "arguments": "{\"pattern\":\"unwrap\"}"}}
				]
			},
			"done": true
		}`)
	}))
	defer srv.Close()

	adapter := NewOllamaAdapter(srv.URL + "/")
	resp, err := adapter.Complete(context.Background(), Request{
		Model: "llama3.2:latest",
		Messages: []Message{
			SystemMessage("sys"),
			UserMessage("go"),
			AssistantMessage("", ToolCall{Name: "list_files", Arguments: map[string]any{"directory": "."}}),
			ToolMessage("[list_files] src/"),
		},
		Tools: []ToolDefinition{{
			Name:        "read_file",
			Description: "Read a file",
			Parameters:  map[string]any{"type": "object"},
		}},
		Temperature: 0.1,
	})
	require.NoError(t, err)

	assert.Equal(t, "llama3.2:latest", captured["model"])
	assert.Equal(t, false, captured["stream"])
	assert.Equal(t, map[string]any{"temperature": 0.1}, captured["options"])

	tools := captured["tools"].([]any)
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]any)
	assert.Equal(t, "function", tool["type"])
	assert.Equal(t, "read_file", tool["function"].(map[string]any)["name"])

	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 4)
	assistant := msgs[2].(map[string]any)
	assert.Equal(t, "assistant", assistant["role"])
	call := assistant["tool_calls"].([]any)[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "list_files", call["name"])
	assert.Equal(t, map[string]any{"directory": "."}, call["arguments"])
	_, hasCalls := msgs[3].(map[string]any)["tool_calls"]
	assert.False(t, hasCalls, "tool messages carry no tool_calls")

	assert.True(t, resp.Done)
	assert.Equal(t, "ollama", resp.Provider)
	calls := resp.ToolCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "read_file", calls[0].Name)
	assert.Equal(t, map[string]any{"path": "src/main.rs"}, calls[0].Arguments)
	assert.Equal(t, map[string]any{"pattern": "unwrap"}, calls[1].Arguments)
	assert.NotEmpty(t, calls[0].ID)
}

func TestOllamaAdapterOmitsEmptyTools(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))
		_, _ = io.WriteString(w, `{"message":{"role":"assistant","content":"{\"file_path\":\"a.go\"}"},"done":true}`)
	}))
	defer srv.Close()

	resp, err := NewOllamaAdapter(srv.URL).Complete(context.Background(), Request{
		Model:    "qwen2.5-coder:7b",
		Messages: []Message{UserMessage("audit")},
	})
	require.NoError(t, err)

	_, hasTools := captured["tools"]
	assert.False(t, hasTools)
	assert.Equal(t, `{"file_path":"a.go"}`, resp.Text())
	assert.Equal(t, "qwen2.5-coder:7b", resp.Model, "model falls back to the request")
}

func TestOllamaAdapterRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"model 'nope' not found"}`)
	}))
	defer srv.Close()

	_, err := NewOllamaAdapter(srv.URL).Complete(context.Background(), Request{Model: "nope"})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusNotFound, pe.StatusCode)
	assert.Contains(t, pe.Body, "not found")
	assert.False(t, IsRetryable(err))
}

func TestOllamaAdapterParseFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>proxy error</html>`)
	}))
	defer srv.Close()

	_, err := NewOllamaAdapter(srv.URL).Complete(context.Background(), Request{Model: "llama3.2"})
	var parseErr *ResponseParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "parse", ErrorKind(err))
}

func TestOllamaAdapterUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewOllamaAdapter(url).Complete(context.Background(), Request{Model: "llama3.2"})
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Contains(t, err.Error(), "backend unreachable")
}

func TestOllamaAdapterTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	adapter := NewOllamaAdapter(srv.URL, WithRequestTimeout(50*time.Millisecond))
	_, err := adapter.Complete(context.Background(), Request{Model: "llama3.2"})
	var timeoutErr *RequestTimeoutError
	require.True(t, errors.As(err, &timeoutErr), "expected RequestTimeoutError, got %v", err)
}

func TestNewOllamaAdapterDefaults(t *testing.T) {
	a := NewOllamaAdapter("")
	assert.Equal(t, DefaultOllamaURL, a.BaseURL())
	assert.Equal(t, "ollama", a.Name())

	shared := &http.Client{}
	a = NewOllamaAdapter("http://gpu-box:11434/", WithHTTPClient(shared))
	assert.Equal(t, "http://gpu-box:11434", a.BaseURL())
	assert.Same(t, shared, a.httpClient)
}

func TestOllamaAdapterTimeoutLeavesSharedClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	a := NewOllamaAdapter("", WithHTTPClient(shared), WithRequestTimeout(5*time.Second))

	assert.Equal(t, time.Minute, shared.Timeout)
	assert.NotSame(t, shared, a.httpClient)
	assert.Equal(t, 5*time.Second, a.httpClient.Timeout)
}
