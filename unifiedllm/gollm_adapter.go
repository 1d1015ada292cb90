package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmAdapter reaches hosted backends (OpenAI, Anthropic) through gollm.
// gollm sends a single prompt per call, so the audit conversation is
// rendered as a transcript and tool calls are recovered from JSON in the
// reply.
type GollmAdapter struct {
	provider string
	model    string
	llm      gollm.LLM

	// Model and temperature are set on the shared LLM before each call.
	mu sync.Mutex
}

// GollmAdapterOption configures NewGollmAdapter.
type GollmAdapterOption func(*gollmSettings)

type gollmSettings struct {
	apiKey    string
	model     string
	maxTokens int
	extra     []gollm.ConfigOption
}

// WithModel sets the model used when a request names none.
func WithModel(model string) GollmAdapterOption {
	return func(s *gollmSettings) { s.model = model }
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) GollmAdapterOption {
	return func(s *gollmSettings) { s.maxTokens = n }
}

// WithGollmOptions passes extra configuration straight to gollm.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmAdapterOption {
	return func(s *gollmSettings) { s.extra = append(s.extra, opts...) }
}

// NewGollmAdapter creates an adapter for provider. Without WithModel the
// first tool-capable catalog model of the provider is used.
func NewGollmAdapter(provider string, apiKey string, opts ...GollmAdapterOption) (*GollmAdapter, error) {
	s := gollmSettings{apiKey: apiKey, maxTokens: 4096}
	for _, opt := range opts {
		opt(&s)
	}
	if s.model == "" {
		info := GetLatestModel(provider)
		if info == nil {
			return nil, &ConfigurationError{SDKError: SDKError{
				Message: fmt.Sprintf("no model given and no catalog entry for provider %q", provider),
			}}
		}
		s.model = info.ID
	}

	config := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(s.model),
		gollm.SetMaxTokens(s.maxTokens),
		gollm.SetMaxRetries(0), // RetryMiddleware owns retries
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if s.apiKey != "" {
		config = append(config, gollm.SetAPIKey(s.apiKey))
	}
	llm, err := gollm.NewLLM(append(config, s.extra...)...)
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("configure %s backend", provider),
			Cause:   err,
		}}
	}
	return &GollmAdapter{provider: provider, model: s.model, llm: llm}, nil
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string { return a.provider }

// Complete renders req as one prompt and parses the reply.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, a.classify(err)
	}
	prompt := renderPrompt(req)

	a.mu.Lock()
	defer a.mu.Unlock()
	if req.Model != "" {
		a.llm.SetOption("model", req.Model)
	}
	a.llm.SetOption("temperature", req.Temperature)

	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, a.classify(err)
	}
	return a.response(req, text), nil
}

const toolCallInstructions = `To use tools, reply with JSON of the form {"tool_calls": [{"name": "<tool>", "arguments": {...}}]}. You may include several calls.`

// renderPrompt turns the conversation into a system prompt plus transcript.
func renderPrompt(req Request) *gollm.Prompt {
	var system []string
	var transcript strings.Builder
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleUser:
			fmt.Fprintf(&transcript, "User: %s\n\n", m.Content)
		case RoleAssistant:
			if m.Content != "" {
				fmt.Fprintf(&transcript, "Assistant: %s\n\n", m.Content)
			}
			for _, tc := range m.ToolCalls {
				args, _ := json.Marshal(tc.Arguments)
				fmt.Fprintf(&transcript, "Assistant called %s(%s)\n\n", tc.Name, args)
			}
		case RoleTool:
			fmt.Fprintf(&transcript, "Tool result %s\n\n", m.Content)
		}
	}

	var opts []gollm.PromptOption
	if len(req.Tools) > 0 {
		system = append(system, toolCallInstructions)
		tools := make([]gollm.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, gollm.Tool{
				Type:     "function",
				Function: gollm.Function{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
			})
		}
		opts = append(opts, gollm.WithTools(tools), gollm.WithToolChoice("auto"))
	}
	if len(system) > 0 {
		opts = append(opts, gollm.WithSystemPrompt(strings.Join(system, "\n\n"), gollm.CacheTypeEphemeral))
	}

	text := strings.TrimSpace(transcript.String())
	if text == "" {
		text = "Begin."
	}
	return gollm.NewPrompt(text, opts...)
}

func (a *GollmAdapter) response(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = a.model
	}
	var calls []ToolCall
	if len(req.Tools) > 0 {
		calls, text = extractToolCalls(text)
	}
	return &Response{
		Model:    model,
		Provider: a.provider,
		Message:  AssistantMessage(text, calls...),
		Done:     true,
	}
}

type textToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

var emptyFence = regexp.MustCompile("```(?:json)?\\s*```")

// extractToolCalls finds tool call JSON anywhere in text: a {"tool_calls":
// [...]} wrapper, a [{"name", "arguments"}] array or a single such object.
// It returns the calls and the text with their JSON removed.
func extractToolCalls(text string) ([]ToolCall, string) {
	var (
		calls []ToolCall
		rest  strings.Builder
		last  int
	)
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		found := toolCallsIn(raw)
		if len(found) == 0 {
			continue
		}
		calls = append(calls, found...)
		rest.WriteString(text[last:i])
		last = i + int(dec.InputOffset())
		i = last - 1
	}
	if len(calls) == 0 {
		return nil, text
	}
	rest.WriteString(text[last:])
	return calls, strings.TrimSpace(emptyFence.ReplaceAllString(rest.String(), ""))
}

func toolCallsIn(raw json.RawMessage) []ToolCall {
	var wrapped struct {
		ToolCalls []textToolCall `json:"tool_calls"`
	}
	var list []textToolCall
	var single textToolCall

	switch {
	case json.Unmarshal(raw, &wrapped) == nil && len(wrapped.ToolCalls) > 0:
		list = wrapped.ToolCalls
	case json.Unmarshal(raw, &list) == nil:
	case json.Unmarshal(raw, &single) == nil && single.Name != "" && len(single.Arguments) > 0:
		list = []textToolCall{single}
	}

	var calls []ToolCall
	for _, c := range list {
		if c.Name == "" {
			continue
		}
		args, err := decodeArguments(c.Arguments)
		if err != nil {
			args = map[string]any{}
		}
		calls = append(calls, ToolCall{ID: "call_" + uuid.New().String()[:8], Name: c.Name, Arguments: args})
	}
	return calls
}

var statusPattern = regexp.MustCompile(`\b([45]\d\d)\b`)

// classify maps a gollm failure onto the transport error classes. gollm
// flattens most errors into text, so status codes are read from the message.
func (a *GollmAdapter) classify(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case errors.Is(err, context.Canceled) || strings.Contains(lower, "context canceled"):
		return &AbortError{SDKError: SDKError{Message: "request cancelled", Cause: err}}
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return &RequestTimeoutError{SDKError: SDKError{Message: msgTimeout, Cause: err}}
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		return &NetworkError{SDKError: SDKError{Message: msgUnreachable, Cause: err}}
	}

	status := 0
	if m := statusPattern.FindStringSubmatch(msg); m != nil {
		status, _ = strconv.Atoi(m[1])
	}
	var pe *ProviderError
	if status != 0 {
		pe = ErrorFromStatusCode(status, msg, a.provider).(*ProviderError)
	} else {
		pe = &ProviderError{SDKError: SDKError{Message: msgRejected}, Provider: a.provider, Body: msg}
	}
	pe.Cause = err
	return pe
}
