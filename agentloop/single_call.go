package agentloop

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/martinemde/yoauditor/unifiedllm"
)

// SingleCall embeds the whole file corpus in one prompt and parses the
// response as JSON lines. No tools are advertised and nothing is pruned.
type SingleCall struct {
	id     string
	config Config
	client Completer
	files  FileCollector
	events sessionEvents
	opts   options
}

// NewSingleCall creates a single-call strategy.
func NewSingleCall(client Completer, files FileCollector, config Config, opts ...Option) *SingleCall {
	s := &SingleCall{
		id:     uuid.New().String(),
		config: config.withDefaults(),
		client: client,
		files:  files,
		opts:   newOptions(opts),
	}
	s.opts.logger = s.opts.logger.With(zap.String("session_id", s.id))
	s.events = sessionEvents{bus: s.opts.emitter, id: s.id}
	return s
}

// Run collects files, issues exactly one backend call and parses it. An
// empty corpus returns zero issues without contacting the backend.
func (s *SingleCall) Run(ctx context.Context) (*Result, error) {
	log := s.opts.logger
	emit := s.events
	emit.Emit(EventSessionStart, map[string]any{"mode": string(ModeSingleCall), "model": s.config.Model})

	files, err := s.files.CollectFiles()
	if err != nil {
		emit.Emit(EventError, map[string]any{"error": err.Error()})
		return nil, fmt.Errorf("collect files: %w", err)
	}

	total := len(files)
	if total == 0 {
		log.Warn("no files to analyze")
		return s.result(TerminationNoFiles, nil, total), nil
	}

	prompt := BuildSingleCallPrompt(files)
	s.checkPromptSize(prompt, total)

	emit.Emit(EventModelRequest, map[string]any{"files": total, "prompt_bytes": len(prompt)})
	resp, err := s.client.Complete(ctx, unifiedllm.Request{
		Model:    s.config.Model,
		Provider: s.config.Provider,
		Messages: []unifiedllm.Message{
			unifiedllm.SystemMessage(buildSystemPrompt(SingleCallSystemPrompt, s.config)),
			unifiedllm.UserMessage(prompt),
		},
		Temperature: s.config.Temperature,
	})
	if err != nil {
		emit.Emit(EventError, map[string]any{"error": err.Error()})
		return nil, fmt.Errorf("single-call analysis: %w", err)
	}

	text := resp.Text()
	emit.Emit(EventModelResponse, map[string]any{"text_length": len(text)})
	issues := ParseIssueLines(text)
	for _, is := range issues {
		emit.Emit(EventIssueReported, map[string]any{
			"file_path": is.FilePath,
			"severity":  is.Severity,
			"title":     is.Title,
		})
	}
	log.Debug("parsed single-call response",
		zap.Int("response_bytes", len(text)),
		zap.Int("issues", len(issues)))
	return s.result(TerminationSingleCall, issues, total), nil
}

func (s *SingleCall) checkPromptSize(prompt string, files int) {
	tokens := s.opts.tokens.Count(prompt)
	s.opts.logger.Info("sending files for analysis",
		zap.Int("files", files),
		zap.Int("prompt_bytes", len(prompt)),
		zap.Int("estimated_tokens", tokens))

	info := unifiedllm.GetModelInfo(s.config.Model)
	if info == nil || info.ContextWindow <= 0 || tokens <= info.ContextWindow {
		return
	}
	s.opts.logger.Warn("prompt exceeds model context window",
		zap.Int("estimated_tokens", tokens),
		zap.Int("context_window", info.ContextWindow))
	s.events.Emit(EventWarning, map[string]any{
		"message": fmt.Sprintf("Prompt is ~%d tokens but %s has a %d token context window; output may be incomplete",
			tokens, s.config.Model, info.ContextWindow),
	})
}

func (s *SingleCall) result(t Termination, issues []ReportedIssue, total int) *Result {
	if issues == nil {
		issues = []ReportedIssue{}
	}
	reported := NewCoverage()
	for _, is := range issues {
		reported.MarkReported(is.FilePath)
	}
	s.opts.logger.Info("analysis complete",
		zap.String("termination", string(t)),
		zap.Int("files", total),
		zap.Int("issues", len(issues)))
	s.events.Emit(EventSessionEnd, map[string]any{
		"termination": string(t),
		"issues":      len(issues),
		"iterations":  1,
	})
	iterations := 1
	if t == TerminationNoFiles {
		iterations = 0
	}
	return &Result{
		SessionID:     s.id,
		Mode:          ModeSingleCall,
		Issues:        issues,
		Termination:   t,
		Iterations:    iterations,
		FilesReported: reported.ReportedCount(),
		TotalFiles:    &total,
	}
}

// ParseIssueLines extracts issues from a response holding one JSON object
// per line. Lines that are not objects, fail to decode, or lack a string
// file_path are skipped; missing optional fields get defaults.
func ParseIssueLines(text string) []ReportedIssue {
	var issues []ReportedIssue
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}
		fp, ok := raw["file_path"].(string)
		if !ok || strings.TrimSpace(fp) == "" {
			continue
		}
		issues = append(issues, ReportedIssue{
			FilePath:    fp,
			LineNumber:  lineNumber(raw["line_number"]),
			Severity:    NormalizeSeverity(stringField(raw, "severity")),
			Category:    orDefault(stringField(raw, "category"), DefaultCategory),
			Title:       orDefault(stringField(raw, "title"), DefaultTitle),
			Description: stringField(raw, "description"),
			Suggestion:  stringField(raw, "suggestion"),
		})
	}
	return issues
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

func lineNumber(v any) int {
	f, ok := v.(float64)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}
