package agentloop

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/martinemde/yoauditor/unifiedllm"
)

const readNudge = "\n\nNow call report_issue for EACH issue in %q before reading the next file."

// BatchResult is what one batch of tool calls produced.
type BatchResult struct {
	// Messages holds one tool message per invocation, in call order.
	Messages []unifiedllm.Message
	// Finished is set when the finish guard honored a finish_analysis call.
	Finished bool
	// Deferred counts finish_analysis calls the guard refused.
	Deferred int
}

// Dispatcher executes a batch of model tool calls against a ToolExecutor
// while tracking coverage and consulting the finish guard.
type Dispatcher struct {
	executor  ToolExecutor
	coverage  *Coverage
	guard     *FinishGuard
	maxOutput int
	events    sessionEvents
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher. maxOutput is the per-outcome
// truncation ceiling in bytes.
func NewDispatcher(executor ToolExecutor, coverage *Coverage, guard *FinishGuard, maxOutput int) *Dispatcher {
	return &Dispatcher{
		executor:  executor,
		coverage:  coverage,
		guard:     guard,
		maxOutput: maxOutput,
		logger:    zap.NewNop(),
	}
}

type executedCall struct {
	name    string
	outcome ToolOutcome
}

// ExecuteBatch runs every call in order. A honored finish does not cut the
// batch short; the caller stops after the batch.
func (d *Dispatcher) ExecuteBatch(ctx context.Context, calls []unifiedllm.ToolCall) BatchResult {
	var (
		result   BatchResult
		executed = make([]executedCall, 0, len(calls))
		lastRead = -1
		readPath string
		reported bool
	)

	for _, tc := range calls {
		kind := ParseToolKind(tc.Name)
		d.events.Emit(EventToolCallStart, map[string]any{
			"tool_name": tc.Name,
			"call_id":   tc.ID,
		})

		var outcome ToolOutcome
		switch kind {
		case ToolUnknown:
			outcome = Failed("Unknown tool: %s", tc.Name)

		case ToolFinishAnalysis:
			decision := d.guard.Evaluate(d.coverage, len(d.executor.Issues()))
			if decision.Honored {
				result.Finished = true
				outcome = Succeeded(fmt.Sprintf("Analysis finished with %d issues reported.", len(d.executor.Issues())))
			} else {
				result.Deferred++
				outcome = Succeeded(decision.CorrectiveMessage())
				d.logger.Info("finish deferred: files read but no issues reported",
					zap.Strings("unreported", decision.Unreported))
				d.events.Emit(EventFinishDeferred, map[string]any{
					"unreported": decision.Unreported,
				})
			}

		default:
			args, err := DecodeToolArgs(kind, tc.Arguments)
			if err != nil {
				outcome = Failed("%v", err)
				break
			}
			outcome = d.executor.Execute(ctx, ToolCall{ID: tc.ID, Name: tc.Name, Args: args})

			switch a := args.(type) {
			case ReadFileArgs:
				if outcome.Success {
					d.coverage.MarkRead(a.Path)
					lastRead = len(executed)
					readPath = NormalizePath(a.Path)
				}
			case ReportIssueArgs:
				// any decoded report counts toward coverage, even if the
				// executor failed to store it
				d.coverage.MarkReported(a.FilePath)
				if outcome.Success {
					d.events.Emit(EventIssueReported, map[string]any{
						"file_path": a.FilePath,
						"severity":  NormalizeSeverity(a.Severity),
						"title":     a.Title,
					})
				}
			}
		}

		if kind == ToolReportIssue {
			reported = true
		}

		d.logger.Debug("tool executed",
			zap.String("tool", tc.Name),
			zap.Bool("success", outcome.Success))
		d.events.Emit(EventToolCallEnd, map[string]any{
			"tool_name": tc.Name,
			"call_id":   tc.ID,
			"success":   outcome.Success,
			"error":     outcome.Error,
		})
		executed = append(executed, executedCall{name: tc.Name, outcome: outcome})
	}

	result.Messages = make([]unifiedllm.Message, 0, len(executed))
	for i, ec := range executed {
		text := TruncateOutput(ec.outcome.Text(), d.maxOutput)
		if i == lastRead && !reported && !result.Finished {
			text += fmt.Sprintf(readNudge, readPath)
		}
		result.Messages = append(result.Messages, unifiedllm.ToolMessage(fmt.Sprintf("[%s] %s", ec.name, text)))
	}
	return result
}
