package unifiedllm

import "context"

// Provider identifiers understood by the audit tool.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ProviderAdapter performs one non-streaming chat exchange with a backend.
// Implementations must translate every failure into one of the error types
// in errors.go so the agent loop can report it.
type ProviderAdapter interface {
	// Name is the identifier requests are routed by.
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Closer is implemented by adapters holding connections or other resources.
type Closer interface {
	Close() error
}
