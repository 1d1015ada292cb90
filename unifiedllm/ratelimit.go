package unifiedllm

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware spaces requests to at most perSecond per second,
// shared by every session using the client. A waiting request that is
// cancelled fails with an AbortError.
func RateLimitMiddleware(perSecond float64, burst int) Middleware {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 || math.IsInf(perSecond, 1) {
		limit = rate.Inf
	}
	limiter := rate.NewLimiter(limit, burst)

	return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, &AbortError{SDKError: SDKError{Message: "request cancelled while rate limited", Cause: err}}
		}
		return next(ctx, req)
	}
}
