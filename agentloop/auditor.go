package agentloop

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Auditor picks the strategy for a run and executes it. One Auditor may run
// many audits; each Audit call owns its own session state.
type Auditor struct {
	client  Completer
	config  Config
	opts    options
	ownsBus bool
}

// NewAuditor creates an auditor. When no event emitter is supplied the
// auditor creates one and closes it in Close.
func NewAuditor(client Completer, config Config, opts ...Option) *Auditor {
	a := &Auditor{
		client: client,
		config: config.withDefaults(),
		opts:   newOptions(opts),
	}
	if a.opts.emitter == nil {
		a.opts.emitter = NewEventEmitter(0)
		a.ownsBus = true
	}
	return a
}

// Config returns the effective configuration.
func (a *Auditor) Config() Config { return a.config }

// Events returns the event channel. It closes when Close is called.
func (a *Auditor) Events() <-chan SessionEvent { return a.opts.emitter.Events() }

// Close releases the event channel if the auditor created it.
func (a *Auditor) Close() {
	if a.ownsBus {
		a.opts.emitter.Close()
	}
}

// Audit runs one audit of a repository. tools is used in iterative mode and
// files in single-call mode; either may be nil when its mode is not chosen.
func (a *Auditor) Audit(ctx context.Context, tools ToolExecutor, files FileCollector) (*Result, error) {
	opts := []Option{
		WithLogger(a.opts.logger),
		WithEventEmitter(a.opts.emitter),
		WithTokenCounter(a.opts.tokens),
	}

	switch a.config.Mode {
	case ModeSingleCall:
		if files == nil {
			return nil, fmt.Errorf("single-call mode requires a file collector")
		}
		a.opts.logger.Debug("using single-call mode", zap.String("model", a.config.Model))
		return NewSingleCall(a.client, files, a.config, opts...).Run(ctx)
	case ModeIterative:
		if tools == nil {
			return nil, fmt.Errorf("iterative mode requires a tool executor")
		}
		a.opts.logger.Debug("using iterative mode", zap.String("model", a.config.Model))
		return NewSession(a.client, tools, a.config, opts...).Run(ctx)
	default:
		return nil, fmt.Errorf("unknown analysis mode %q", a.config.Mode)
	}
}
