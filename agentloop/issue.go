package agentloop

import "strings"

// Defaults applied when a reported issue omits a field.
const (
	DefaultSeverity = "medium"
	DefaultCategory = "general"
	DefaultTitle    = "Issue"
)

// ReportedIssue is one defect the model reported, either through the
// report_issue tool or as a JSON line in single-call mode.
type ReportedIssue struct {
	FilePath    string `json:"file_path"`
	LineNumber  int    `json:"line_number"`
	Severity    string `json:"severity"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

var knownSeverities = map[string]struct{}{
	"critical": {},
	"high":     {},
	"medium":   {},
	"low":      {},
}

// NormalizeSeverity lower-cases s and maps anything outside
// critical/high/medium/low to DefaultSeverity.
func NormalizeSeverity(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := knownSeverities[s]; ok {
		return s
	}
	return DefaultSeverity
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
