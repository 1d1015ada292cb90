package unifiedllm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultOllamaURL is where a local Ollama server listens by default.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaAdapter talks to an Ollama server's /api/chat endpoint. The
// underlying http.Client is shared by every request so concurrent sessions
// reuse one connection pool.
type OllamaAdapter struct {
	baseURL    string
	httpClient *http.Client
}

// OllamaOption configures an OllamaAdapter.
type OllamaOption func(*OllamaAdapter)

// WithHTTPClient replaces the adapter's http.Client.
func WithHTTPClient(c *http.Client) OllamaOption {
	return func(a *OllamaAdapter) {
		a.httpClient = c
	}
}

// WithRequestTimeout bounds every request made by the adapter. The adapter
// gets its own copy of the client, so a client passed to WithHTTPClient is
// left untouched.
func WithRequestTimeout(d time.Duration) OllamaOption {
	return func(a *OllamaAdapter) {
		c := *a.httpClient
		c.Timeout = d
		a.httpClient = &c
	}
}

// NewOllamaAdapter creates an adapter for the server at baseURL. An empty
// baseURL selects DefaultOllamaURL.
func NewOllamaAdapter(baseURL string, opts ...OllamaOption) *OllamaAdapter {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	a := &OllamaAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 300 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the provider identifier.
func (a *OllamaAdapter) Name() string {
	return ProviderOllama
}

// BaseURL returns the server address the adapter posts to.
func (a *OllamaAdapter) BaseURL() string {
	return a.baseURL
}

type ollamaToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ollamaTool struct {
	Type     string             `json:"type"`
	Function ollamaToolFunction `json:"function"`
}

type ollamaCallFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type ollamaToolCall struct {
	Function ollamaCallFunction `json:"function"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Complete posts the full conversation to /api/chat with streaming disabled.
func (a *OllamaAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(a.translateRequest(req))
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "encode chat request", Cause: err}}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "build chat request", Cause: err}}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyRequestError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyRequestError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrorFromStatusCode(resp.StatusCode, strings.TrimSpace(string(payload)), a.Name())
	}

	var decoded ollamaChatResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, newParseError(err)
	}

	msg, err := a.translateMessage(decoded.Message)
	if err != nil {
		return nil, newParseError(err)
	}

	model := decoded.Model
	if model == "" {
		model = req.Model
	}
	return &Response{
		Model:    model,
		Provider: a.Name(),
		Message:  msg,
		Done:     decoded.Done,
	}, nil
}

func (a *OllamaAdapter) translateRequest(req Request) ollamaChatRequest {
	out := ollamaChatRequest{
		Model:    req.Model,
		Messages: make([]ollamaMessage, 0, len(req.Messages)),
		Stream:   false,
		Options:  ollamaOptions{Temperature: req.Temperature},
	}
	for _, m := range req.Messages {
		om := ollamaMessage{Role: string(m.Role), Content: m.Content}
		for _, tc := range m.ToolCalls {
			args := tc.Arguments
			if args == nil {
				args = map[string]any{}
			}
			raw, err := json.Marshal(args)
			if err != nil {
				raw = []byte("{}")
			}
			om.ToolCalls = append(om.ToolCalls, ollamaToolCall{
				Function: ollamaCallFunction{Name: tc.Name, Arguments: raw},
			})
		}
		out.Messages = append(out.Messages, om)
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, ollamaTool{
			Type: "function",
			Function: ollamaToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func (a *OllamaAdapter) translateMessage(m ollamaMessage) (Message, error) {
	role := Role(m.Role)
	if role == "" {
		role = RoleAssistant
	}
	msg := Message{Role: role, Content: m.Content}
	for i, tc := range m.ToolCalls {
		args, err := decodeArguments(tc.Function.Arguments)
		if err != nil {
			return Message{}, fmt.Errorf("tool call %d (%s) arguments: %w", i, tc.Function.Name, err)
		}
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:        "call_" + uuid.New().String()[:8],
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return msg, nil
}
