package agentloop

import (
	"fmt"
	"strings"
)

// GuardState is the finish guard's lifecycle. The only transition is
// GuardRunning to GuardDone.
type GuardState int

const (
	GuardRunning GuardState = iota
	GuardDone
)

func (s GuardState) String() string {
	if s == GuardDone {
		return "done"
	}
	return "running"
}

// FinishDecision is the guard's answer to one finish_analysis call.
type FinishDecision struct {
	Honored    bool
	Unreported []string
}

// CorrectiveMessage is the outcome shown to the model when finishing is
// deferred.
func (d FinishDecision) CorrectiveMessage() string {
	return fmt.Sprintf(
		"WAIT - you read %d files but reported 0 issues. Please go back and call report_issue for issues in: %s",
		len(d.Unreported), strings.Join(d.Unreported, ", "))
}

// FinishGuard refuses to end a session that read files but never reported
// anything.
type FinishGuard struct {
	state GuardState
}

// NewFinishGuard returns a guard in GuardRunning.
func NewFinishGuard() *FinishGuard {
	return &FinishGuard{state: GuardRunning}
}

// State returns the current state.
func (g *FinishGuard) State() GuardState { return g.state }

// Evaluate decides a finish request. Finishing is deferred only when files
// were read, none has a reported issue, and the executor holds no issues.
func (g *FinishGuard) Evaluate(cov *Coverage, issues int) FinishDecision {
	if g.state == GuardDone {
		return FinishDecision{Honored: true}
	}
	if cov.ReadCount() > 0 && cov.ReportedCount() == 0 && issues == 0 {
		return FinishDecision{Unreported: cov.Unreported()}
	}
	g.state = GuardDone
	return FinishDecision{Honored: true}
}
