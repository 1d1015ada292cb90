package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// SDKError carries the message and cause shared by every transport error.
// The concrete types below only differ in the Kind they report.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *SDKError) Unwrap() error { return e.Cause }

// ProviderError means the backend answered with a non-success status. Body
// keeps the raw response for the user.
type ProviderError struct {
	SDKError
	Provider   string
	StatusCode int
	Body       string
	Retryable  bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s: status %d: %s", e.Provider, e.Message, e.StatusCode, e.Body)
}

// NetworkError: the backend could not be reached.
type NetworkError struct{ SDKError }

// RequestTimeoutError: no answer before the deadline.
type RequestTimeoutError struct{ SDKError }

// ResponseParseError: the backend answered with a body that did not decode.
type ResponseParseError struct{ SDKError }

// AbortError: the caller cancelled the request.
type AbortError struct{ SDKError }

// ConfigurationError: the request cannot be routed, for example to an
// unregistered provider.
type ConfigurationError struct{ SDKError }

func (*ProviderError) Kind() string       { return "rejected" }
func (*NetworkError) Kind() string        { return "unreachable" }
func (*RequestTimeoutError) Kind() string { return "timeout" }
func (*ResponseParseError) Kind() string  { return "parse" }
func (*AbortError) Kind() string          { return "aborted" }
func (*ConfigurationError) Kind() string  { return "configuration" }

const (
	msgUnreachable = "backend unreachable"
	msgTimeout     = "request timed out"
	msgRejected    = "backend rejected request"
	msgParse       = "response parse failure"
)

// ErrorFromStatusCode maps a non-success HTTP status to a ProviderError and
// marks whether an external retry layer may try again.
func ErrorFromStatusCode(statusCode int, body, provider string) error {
	pe := &ProviderError{
		SDKError:   SDKError{Message: msgRejected},
		Provider:   provider,
		StatusCode: statusCode,
		Body:       body,
	}
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		pe.Retryable = true
	}
	return pe
}

// classifyRequestError turns an error from the HTTP round trip into one of
// the transport failure classes.
func classifyRequestError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &RequestTimeoutError{SDKError: SDKError{Message: msgTimeout, Cause: err}}
	case errors.Is(err, context.Canceled):
		return &AbortError{SDKError: SDKError{Message: "request cancelled", Cause: err}}
	default:
		return &NetworkError{SDKError: SDKError{Message: msgUnreachable, Cause: err}}
	}
}

func newParseError(err error) error {
	return &ResponseParseError{SDKError: SDKError{Message: msgParse, Cause: err}}
}

// ErrorKind returns the short label of a transport error: "none" for nil
// and "unknown" for errors from outside this package. It is used as a
// metrics label.
func ErrorKind(err error) string {
	if err == nil {
		return "none"
	}
	var k interface{ Kind() string }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return "unknown"
}

// IsRetryable reports whether trying the same request again may succeed.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	switch ErrorKind(err) {
	case "unreachable", "timeout":
		return true
	}
	return false
}
