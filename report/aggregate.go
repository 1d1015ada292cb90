package report

import (
	"sort"
	"strings"

	"github.com/martinemde/yoauditor/scanner"
)

// Summarize counts issues by severity and category.
func Summarize(issues []Issue) Summary {
	s := Summary{Total: len(issues), ByCategory: make(map[string]int)}
	for _, is := range issues {
		switch is.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		default:
			s.Low++
		}
		s.ByCategory[is.Category]++
	}
	return s
}

// GroupByFile returns one AnalyzedFile per path, in path order. Issues of a
// file are sorted by severity, most severe first, then by line.
func GroupByFile(issues []Issue) []AnalyzedFile {
	byPath := make(map[string][]Issue)
	for _, is := range issues {
		byPath[is.FilePath] = append(byPath[is.FilePath], is)
	}

	files := make([]AnalyzedFile, 0, len(byPath))
	for p, list := range byPath {
		SortIssues(list)
		files = append(files, AnalyzedFile{Path: p, Language: scanner.Language(p), Issues: list})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

// SortIssues orders by severity (descending) then line (ascending).
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Severity != issues[j].Severity {
			return issues[i].Severity > issues[j].Severity
		}
		return issues[i].StartLine < issues[j].StartLine
	})
}

// Count is a named tally.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// sortCounts orders by count descending, then name.
func sortCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Name: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Categories returns the category tallies, largest first.
func (s Summary) Categories() []Count {
	return sortCounts(s.ByCategory)
}

// LanguageDistribution counts files per language, largest first.
func LanguageDistribution(files []AnalyzedFile) []Count {
	m := make(map[string]int)
	for _, f := range files {
		m[f.Language]++
	}
	return sortCounts(m)
}

// MostProblematicFiles returns up to n files with the most issues.
func MostProblematicFiles(files []AnalyzedFile, n int) []Count {
	m := make(map[string]int)
	for _, f := range files {
		if len(f.Issues) > 0 {
			m[f.Path] = len(f.Issues)
		}
	}
	out := sortCounts(m)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// RepeatedPatterns returns issue titles reported more than once,
// case-insensitively, most frequent first.
func RepeatedPatterns(issues []Issue) []Count {
	m := make(map[string]int)
	for _, is := range issues {
		m[strings.ToLower(strings.TrimSpace(is.Title))]++
	}
	for k, v := range m {
		if v < 2 {
			delete(m, k)
		}
	}
	return sortCounts(m)
}

// FilterMinSeverity keeps issues at or above minimum.
func FilterMinSeverity(issues []Issue, minimum Severity) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, is := range issues {
		if is.Severity >= minimum {
			out = append(out, is)
		}
	}
	return out
}

// ExceedsThreshold reports whether any issue is at or above threshold.
func ExceedsThreshold(issues []Issue, threshold Severity) bool {
	for _, is := range issues {
		if is.Severity >= threshold {
			return true
		}
	}
	return false
}

// Recommendations derives the closing advice of a report.
func Recommendations(s Summary, issues []Issue) []string {
	if s.Total == 0 {
		return nil
	}
	recs := []string{"Review all reported issues and prioritize by severity."}
	if s.Critical+s.High > 0 {
		recs = append(recs, "Address critical and high severity issues first.")
	}
	if n := s.ByCategory["security"]; n > 0 {
		recs = append(recs, "Schedule a focused security review: the audit found security issues that may be exploitable.")
	}
	if n := s.ByCategory["performance"]; n > 0 {
		recs = append(recs, "Profile the code paths flagged for performance before optimizing them.")
	}
	if patterns := RepeatedPatterns(issues); len(patterns) > 0 {
		recs = append(recs, "Look for a shared root cause behind repeated findings such as \""+patterns[0].Name+"\".")
	}
	return recs
}
