package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFromStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{400, false},
		{401, false},
		{404, false},
		{408, true},
		{413, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := ErrorFromStatusCode(tt.status, "model not found", "ollama")
			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, "model not found", pe.Body)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Contains(t, err.Error(), "backend rejected request")
		})
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassifyRequestError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"net timeout", timeoutErr{}, "timeout"},
		{"cancelled", fmt.Errorf("wrapped: %w", context.Canceled), "aborted"},
		{"refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, ErrorKind(classifyRequestError(tt.err)))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", &NetworkError{}, true},
		{"timeout", &RequestTimeoutError{}, true},
		{"parse", &ResponseParseError{}, false},
		{"abort", &AbortError{}, false},
		{"configuration", &ConfigurationError{}, false},
		{"wrapped network", fmt.Errorf("iteration 3: %w", &NetworkError{}), true},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestSDKErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &NetworkError{SDKError: SDKError{Message: "backend unreachable", Cause: cause}}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "backend unreachable: root cause", err.Error())
}
