package unifiedllm

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryPolicy retries transient backend failures: an unreachable server, a
// timeout, or a 408/429/5xx rejection such as the 503 Ollama returns while
// it loads a model. Everything else fails on the first attempt.
type RetryPolicy struct {
	MaxRetries int // attempts after the first
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool // spread each delay over [d/2, 3d/2)
	OnRetry    func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy waits 2s, 4s, 8s... up to 30s between attempts.
func DefaultRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2,
		Jitter:     true,
	}
}

// Delay is the wait before retry number attempt (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 0; i < attempt; i++ {
		d *= p.Multiplier
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			break
		}
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter {
		d *= 0.5 + rand.Float64()
	}
	return time.Duration(d)
}

// RetryMiddleware applies p to every request. The agent loop treats any
// error it receives as fatal, so retries must happen here.
func RetryMiddleware(p RetryPolicy) Middleware {
	return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		resp, err := next(ctx, req)
		for attempt := 0; err != nil && attempt < p.MaxRetries && IsRetryable(err); attempt++ {
			delay := p.Delay(attempt)
			if p.OnRetry != nil {
				p.OnRetry(err, attempt+1, delay)
			}
			if werr := sleep(ctx, delay); werr != nil {
				return nil, &AbortError{SDKError: SDKError{Message: "request cancelled during retry", Cause: werr}}
			}
			resp, err = next(ctx, req)
		}
		return resp, err
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
