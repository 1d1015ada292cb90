package agentloop

import (
	"go.uber.org/zap"

	"github.com/martinemde/yoauditor/unifiedllm"
)

// Option configures an Auditor or a strategy.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	emitter *EventEmitter
	tokens  *unifiedllm.TokenCounter
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tokens == nil {
		// A nil counter falls back to a character estimate.
		o.tokens, _ = unifiedllm.NewTokenCounter()
	}
	return o
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEventEmitter publishes session events on e.
func WithEventEmitter(e *EventEmitter) Option {
	return func(o *options) {
		o.emitter = e
	}
}

// WithTokenCounter shares a token counter across sessions.
func WithTokenCounter(tc *unifiedllm.TokenCounter) Option {
	return func(o *options) {
		o.tokens = tc
	}
}
