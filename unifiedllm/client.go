package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Middleware wraps a backend call. next performs the rest of the chain.
type Middleware func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error)

// Client routes audit requests to an adapter by provider name and runs them
// through middleware. Adapters and middleware are fixed once NewClient
// returns, so one Client may serve many concurrent sessions.
type Client struct {
	adapters map[string]ProviderAdapter
	fallback string
	chain    []Middleware
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProvider registers adapter under name.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) { c.adapters[name] = adapter }
}

// WithDefaultProvider routes requests that name no provider to name.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) { c.fallback = name }
}

// WithMiddleware appends middleware. The first registered runs outermost.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) { c.chain = append(c.chain, mw...) }
}

// NewClient builds a client. With a single adapter and no explicit default,
// that adapter becomes the default.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{adapters: make(map[string]ProviderAdapter)}
	for _, opt := range opts {
		opt(c)
	}
	if c.fallback == "" && len(c.adapters) == 1 {
		for name := range c.adapters {
			c.fallback = name
		}
	}
	return c
}

// Providers returns the registered provider names, sorted.
func (c *Client) Providers() []string {
	names := make([]string, 0, len(c.adapters))
	for name := range c.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// adapterFor picks the adapter from the request, the default provider or
// the model catalog, in that order.
func (c *Client) adapterFor(req Request) (ProviderAdapter, error) {
	name := req.Provider
	if name == "" {
		name = c.fallback
	}
	if name == "" {
		if info := GetModelInfo(req.Model); info != nil {
			name = info.Provider
		}
	}
	if name == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("no provider for model %q and no default configured", req.Model),
		}}
	}
	adapter, ok := c.adapters[name]
	if !ok {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("provider %q is not registered (have: %s)", name, strings.Join(c.Providers(), ", ")),
		}}
	}
	return adapter, nil
}

// Complete sends req through the middleware chain to its adapter.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	adapter, err := c.adapterFor(req)
	if err != nil {
		return nil, err
	}
	if req.Provider == "" {
		req.Provider = adapter.Name()
	}
	return c.link(0, adapter)(ctx, req)
}

// link returns the chain starting at middleware i.
func (c *Client) link(i int, adapter ProviderAdapter) func(context.Context, Request) (*Response, error) {
	if i == len(c.chain) {
		return adapter.Complete
	}
	mw, next := c.chain[i], c.link(i+1, adapter)
	return func(ctx context.Context, req Request) (*Response, error) {
		return mw(ctx, req, next)
	}
}

// Close closes every adapter that holds resources.
func (c *Client) Close() error {
	var errs []error
	for _, name := range c.Providers() {
		if closer, ok := c.adapters[name].(Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
