package agentloop

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/martinemde/yoauditor/unifiedllm"
)

// Session runs the iterative, tool-driven audit of one repository. A Session
// is used by a single goroutine and runs once.
type Session struct {
	id         string
	config     Config
	client     Completer
	executor   ToolExecutor
	conv       *Conversation
	coverage   *Coverage
	guard      *FinishGuard
	nudge      *NudgeController
	dispatcher *Dispatcher
	loops      *LoopDetector
	warnedCtx  bool
	events     sessionEvents
	opts       options
}

// NewSession creates an iterative session.
func NewSession(client Completer, executor ToolExecutor, config Config, opts ...Option) *Session {
	cfg := config.withDefaults()
	o := newOptions(opts)
	s := &Session{
		id:       uuid.New().String(),
		config:   cfg,
		client:   client,
		executor: executor,
		conv:     NewConversation(buildSystemPrompt(AgentSystemPrompt, cfg), InitialDirective),
		coverage: NewCoverage(),
		guard:    NewFinishGuard(),
		nudge:    NewNudgeController(cfg.StrongNudgeAfter, cfg.AbandonAfter, cfg.CompletionWords),
		opts:     o,
	}
	s.opts.logger = o.logger.With(zap.String("session_id", s.id))
	s.events = sessionEvents{bus: o.emitter, id: s.id}
	s.dispatcher = NewDispatcher(executor, s.coverage, s.guard, cfg.MaxToolOutput)
	s.dispatcher.events = s.events
	s.dispatcher.logger = s.opts.logger
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Conversation exposes the message log, mainly for inspection in tests.
func (s *Session) Conversation() *Conversation { return s.conv }

// Coverage exposes read and reported file tracking.
func (s *Session) Coverage() *Coverage { return s.coverage }

// Run drives the loop until the finish guard is satisfied, the model
// declares completion, the nudge controller gives up, or the iteration
// budget runs out. Backend failures end the run with an error.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	log := s.opts.logger
	emit := s.events
	tools := ToolDefinitions()

	log.Info("starting iterative analysis",
		zap.String("model", s.config.Model),
		zap.Int("max_iterations", s.config.MaxIterations))
	emit.Emit(EventSessionStart, map[string]any{"mode": string(ModeIterative), "model": s.config.Model})

	for iteration := 0; iteration < s.config.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			emit.Emit(EventError, map[string]any{"error": err.Error()})
			return nil, err
		}

		log.Debug("agent iteration", zap.Int("iteration", iteration+1), zap.Int("messages", s.conv.Len()))
		emit.Emit(EventModelRequest, map[string]any{"iteration": iteration + 1, "messages": s.conv.Len()})

		resp, err := s.client.Complete(ctx, unifiedllm.Request{
			Model:       s.config.Model,
			Provider:    s.config.Provider,
			Messages:    s.conv.Messages(),
			Tools:       tools,
			Temperature: s.config.Temperature,
		})
		if err != nil {
			emit.Emit(EventError, map[string]any{"error": err.Error(), "iteration": iteration + 1})
			return nil, fmt.Errorf("iteration %d: %w", iteration+1, err)
		}

		calls := resp.ToolCalls()
		s.conv.Append(unifiedllm.AssistantMessage(resp.Text(), calls...))
		emit.Emit(EventModelResponse, map[string]any{"tool_calls": len(calls), "text_length": len(resp.Text())})

		if len(calls) > 0 {
			s.nudge.Reset()
			batch := s.dispatcher.ExecuteBatch(ctx, calls)
			s.detectLoop(calls, batch.Messages)
			s.conv.Append(batch.Messages...)
			s.prune()
			s.checkContextUsage()

			if batch.Finished {
				log.Info("agent finished analysis", zap.Int("issues", len(s.executor.Issues())))
				return s.result(TerminationFinished, iteration+1), nil
			}
			continue
		}

		issues := len(s.executor.Issues())
		decision := s.nudge.Observe(resp.Text(), issues)
		switch decision.Action {
		case NudgeComplete:
			log.Info("agent indicated completion via text", zap.Int("issues", issues))
			return s.result(TerminationCompleted, iteration+1), nil
		case NudgeAbandon:
			log.Warn("agent stopped using tools, abandoning",
				zap.Int("consecutive_text_turns", decision.Consecutive),
				zap.Int("issues", issues))
			return s.result(TerminationAbandoned, iteration+1), nil
		default:
			emit.Emit(EventNudge, map[string]any{"consecutive": decision.Consecutive, "message": decision.Message})
			s.conv.Append(unifiedllm.UserMessage(decision.Message))
			s.prune()
		}
	}

	log.Warn("iteration budget exhausted, returning partial results",
		zap.Int("max_iterations", s.config.MaxIterations),
		zap.Int("issues", len(s.executor.Issues())))
	return s.result(TerminationExhausted, s.config.MaxIterations), nil
}

func (s *Session) prune() {
	if removed := s.conv.Prune(s.config.MaxContextMessages); removed > 0 {
		s.events.Emit(EventContextPruned, map[string]any{"removed": removed, "remaining": s.conv.Len()})
	}
}

// detectLoop appends a warning to the last outcome of the batch when the
// recent tool calls repeat. No extra message is added.
func (s *Session) detectLoop(calls []unifiedllm.ToolCall, msgs []unifiedllm.Message) {
	if !s.config.EnableLoopDetection || len(msgs) == 0 {
		return
	}
	if s.loops == nil {
		s.loops = NewLoopDetector(s.config.LoopDetectionWindow)
	}
	if s.loops.Observe(calls) {
		msgs[len(msgs)-1].Content += s.loops.Warning()
		s.events.Emit(EventLoopDetection, map[string]any{"window": s.config.LoopDetectionWindow})
	}
}

// checkContextUsage warns once when the conversation passes 80% of the
// model's known context window.
func (s *Session) checkContextUsage() {
	if s.warnedCtx {
		return
	}
	info := unifiedllm.GetModelInfo(s.config.Model)
	if info == nil || info.ContextWindow <= 0 {
		return
	}
	used := s.opts.tokens.CountMessages(s.conv.Messages())
	if used*10 > info.ContextWindow*8 {
		s.warnedCtx = true
		pct := used * 100 / info.ContextWindow
		s.opts.logger.Warn("conversation near context window",
			zap.Int("tokens", used), zap.Int("context_window", info.ContextWindow))
		s.events.Emit(EventWarning, map[string]any{
			"message": fmt.Sprintf("Context usage at ~%d%% of context window", pct),
		})
	}
}

func (s *Session) result(t Termination, iterations int) *Result {
	issues := s.executor.Issues()
	r := &Result{
		SessionID:     s.id,
		Mode:          ModeIterative,
		Issues:        issues,
		Termination:   t,
		Iterations:    iterations,
		FilesRead:     s.coverage.FilesRead(),
		FilesReported: s.coverage.ReportedCount(),
	}
	if n := s.coverage.ReadCount(); n > 0 {
		r.TotalFiles = &n
	}
	s.opts.logger.Info("analysis complete",
		zap.String("termination", string(t)),
		zap.Int("files_read", s.coverage.ReadCount()),
		zap.Int("files_reported", s.coverage.ReportedCount()),
		zap.Int("issues", len(issues)))
	s.events.Emit(EventSessionEnd, map[string]any{
		"termination": string(t),
		"issues":      len(issues),
		"iterations":  iterations,
	})
	return r
}
