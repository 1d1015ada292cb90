// Package report turns audit results into Markdown or JSON reports and
// computes the statistics shown in them.
package report

import (
	"fmt"
	"time"

	"github.com/martinemde/yoauditor/agentloop"
)

// Issue is one finding as it appears in a report.
type Issue struct {
	FilePath    string   `json:"file_path"`
	StartLine   int      `json:"start_line"`
	EndLine     int      `json:"end_line,omitempty"`
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Suggestion  string   `json:"suggestion"`
	CodeSnippet string   `json:"code_snippet,omitempty"`
}

// LineRange renders "12" or "12-18".
func (i Issue) LineRange() string {
	if i.EndLine > i.StartLine {
		return fmt.Sprintf("%d-%d", i.StartLine, i.EndLine)
	}
	return fmt.Sprintf("%d", i.StartLine)
}

// FromReported converts the issues an audit produced. Severities were
// normalized by the agent loop; anything still unknown becomes medium.
func FromReported(reported []agentloop.ReportedIssue) []Issue {
	out := make([]Issue, 0, len(reported))
	for _, r := range reported {
		sev, err := ParseSeverity(r.Severity)
		if err != nil {
			sev = SeverityMedium
		}
		out = append(out, Issue{
			FilePath:    r.FilePath,
			StartLine:   r.LineNumber,
			Severity:    sev,
			Category:    r.Category,
			Title:       r.Title,
			Description: r.Description,
			Suggestion:  r.Suggestion,
		})
	}
	return out
}

// AnalyzedFile groups the issues of one file.
type AnalyzedFile struct {
	Path      string  `json:"path"`
	Language  string  `json:"language"`
	LineCount int     `json:"line_count"`
	Issues    []Issue `json:"issues"`
}

// Summary counts issues by severity and category.
type Summary struct {
	Total      int            `json:"total"`
	Critical   int            `json:"critical"`
	High       int            `json:"high"`
	Medium     int            `json:"medium"`
	Low        int            `json:"low"`
	ByCategory map[string]int `json:"by_category"`
}

// Count returns the number of issues with severity s.
func (s Summary) Count(sev Severity) int {
	switch sev {
	case SeverityCritical:
		return s.Critical
	case SeverityHigh:
		return s.High
	case SeverityMedium:
		return s.Medium
	default:
		return s.Low
	}
}

// Metadata describes the run that produced a report.
type Metadata struct {
	Repository      string    `json:"repository"`
	Branch          string    `json:"branch,omitempty"`
	Commit          string    `json:"commit,omitempty"`
	AnalysisDate    time.Time `json:"analysis_date"`
	Model           string    `json:"model"`
	Mode            string    `json:"mode"`
	Termination     string    `json:"termination"`
	FilesAnalyzed   int       `json:"files_analyzed"`
	FilesWithIssues int       `json:"files_with_issues"`
	TotalIssues     int       `json:"total_issues"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// Report is a complete audit report.
type Report struct {
	Metadata        Metadata       `json:"metadata"`
	Overview        string         `json:"project_overview"`
	Files           []AnalyzedFile `json:"files"`
	Summary         Summary        `json:"summary"`
	Recommendations []string       `json:"recommendations"`
}
