// Package unifiedllm is the transport layer between the audit loop and a
// chat backend. It defines provider-neutral request and response types,
// routes requests through a Client with middleware, and ships two adapters:
//
//   - OllamaAdapter posts to an Ollama server's /api/chat endpoint with
//     streaming disabled and the tool schema attached.
//   - GollmAdapter wraps github.com/teilomillet/gollm for hosted providers.
//
// Every failure is reported as one of a small set of typed errors:
// NetworkError (backend unreachable), RequestTimeoutError, ProviderError
// (non-success status with the response body) and ResponseParseError.
// AbortError and ConfigurationError cover cancellation and routing. The
// audit loop treats all of them as fatal. Retries are opt-in through
// RetryMiddleware, pacing through RateLimitMiddleware and observation
// through Metrics.Middleware:
//
//	metrics := unifiedllm.NewMetrics(prometheus.NewRegistry())
//	client := unifiedllm.NewClient(
//	    unifiedllm.WithProvider("ollama", unifiedllm.NewOllamaAdapter("")),
//	    unifiedllm.WithMiddleware(
//	        unifiedllm.RetryMiddleware(unifiedllm.DefaultRetryPolicy(3)),
//	        metrics.Middleware(),
//	    ),
//	)
//
//	resp, err := client.Complete(ctx, unifiedllm.Request{
//	    Model:    "llama3.2:latest",
//	    Messages: []unifiedllm.Message{unifiedllm.UserMessage("Hello")},
//	})
package unifiedllm
