package agentloop

import (
	"regexp"
	"strings"
)

// Corrective prompts appended when the model answers without tool calls.
const (
	NudgeStrong = "You are not using tools. You MUST call report_issue for each issue you find. " +
		"Please read the next source file and call report_issue for any issues, or call finish_analysis if truly done."
	NudgeNoIssues = "You have not reported any issues yet. Please call report_issue for each issue you found while reading files. " +
		"Do NOT describe issues in text, use the report_issue tool. If you need to read more files, call read_file first."
	NudgeContinue = "Please continue analyzing files or call finish_analysis if you're done."
)

// NudgeAction is what the session should do after a text-only turn.
type NudgeAction int

const (
	// NudgeAppend means append Message as a user turn and keep going.
	NudgeAppend NudgeAction = iota
	// NudgeComplete means the model declared completion with issues on record.
	NudgeComplete
	// NudgeAbandon means the model ignored tools for too long.
	NudgeAbandon
)

// NudgeDecision is the controller's verdict for one text-only turn.
type NudgeDecision struct {
	Action      NudgeAction
	Message     string
	Consecutive int
}

// NudgeController counts consecutive turns without tool calls and picks the
// corrective prompt.
type NudgeController struct {
	consecutive  int
	strongAfter  int
	abandonAfter int
	completion   *regexp.Regexp
}

// NewNudgeController builds a controller. words are matched as whole words,
// case-insensitively; an empty list disables textual completion.
func NewNudgeController(strongAfter, abandonAfter int, words []string) *NudgeController {
	n := &NudgeController{strongAfter: strongAfter, abandonAfter: abandonAfter}
	var quoted []string
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	if len(quoted) > 0 {
		n.completion = regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	}
	return n
}

// Reset is called for every turn that carried tool calls.
func (n *NudgeController) Reset() { n.consecutive = 0 }

// Consecutive returns the current count of text-only turns.
func (n *NudgeController) Consecutive() int { return n.consecutive }

// SignalsCompletion reports whether text contains a completion word.
func (n *NudgeController) SignalsCompletion(text string) bool {
	return n.completion != nil && n.completion.MatchString(text)
}

// Observe handles one text-only turn given the number of issues reported so
// far.
func (n *NudgeController) Observe(text string, issues int) NudgeDecision {
	n.consecutive++
	d := NudgeDecision{Consecutive: n.consecutive}

	if issues > 0 && n.SignalsCompletion(text) {
		d.Action = NudgeComplete
		return d
	}
	if n.consecutive >= n.abandonAfter {
		d.Action = NudgeAbandon
		return d
	}

	d.Action = NudgeAppend
	switch {
	case n.consecutive >= n.strongAfter:
		d.Message = NudgeStrong
	case issues == 0:
		d.Message = NudgeNoIssues
	default:
		d.Message = NudgeContinue
	}
	return d
}
