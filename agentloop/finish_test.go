package agentloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinishGuard(t *testing.T) {
	tests := []struct {
		name     string
		read     []string
		reported []string
		issues   int
		honored  bool
	}{
		{name: "nothing read", honored: true},
		{name: "read without reports", read: []string{"a.go", "b.go"}, honored: false},
		{name: "read and reported", read: []string{"a.go"}, reported: []string{"a.go"}, issues: 1, honored: true},
		{name: "issues recorded elsewhere", read: []string{"a.go"}, issues: 2, honored: true},
		{name: "reported without reads", reported: []string{"a.go"}, issues: 1, honored: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cov := NewCoverage()
			for _, p := range tt.read {
				cov.MarkRead(p)
			}
			for _, p := range tt.reported {
				cov.MarkReported(p)
			}
			g := NewFinishGuard()

			d := g.Evaluate(cov, tt.issues)

			assert.Equal(t, tt.honored, d.Honored)
			if tt.honored {
				assert.Equal(t, GuardDone, g.State())
			} else {
				assert.Equal(t, GuardRunning, g.State())
				assert.Equal(t, tt.read, d.Unreported)
			}
		})
	}
}

func TestFinishDecisionCorrectiveMessage(t *testing.T) {
	d := FinishDecision{Unreported: []string{"a.go", "b.go"}}
	assert.Equal(t,
		"WAIT - you read 2 files but reported 0 issues. Please go back and call report_issue for issues in: a.go, b.go",
		d.CorrectiveMessage())
}

func TestFinishGuardStaysDone(t *testing.T) {
	g := NewFinishGuard()
	cov := NewCoverage()
	assert.True(t, g.Evaluate(cov, 0).Honored)

	cov.MarkRead("a.go")
	assert.True(t, g.Evaluate(cov, 0).Honored)
	assert.Equal(t, "done", g.State().String())
}
