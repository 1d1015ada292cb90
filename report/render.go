package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format is an output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts "markdown", "md" and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want markdown or json)", s)
	}
}

// Render encodes r in format f.
func Render(r *Report, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return JSON(r)
	case FormatMarkdown, "":
		return []byte(Markdown(r)), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", f)
	}
}

// Write renders r and writes it to path, creating parent directories.
func Write(path string, r *Report, f Format) error {
	data, err := Render(r, f)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// JSON encodes r as indented JSON.
func JSON(r *Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return append(data, '\n'), nil
}

func anchor(p string) string {
	return strings.ToLower(strings.NewReplacer("/", "-", ".", "-", " ", "-").Replace(p))
}

// Markdown renders r as a Markdown document.
func Markdown(r *Report) string {
	var sb strings.Builder
	sb.WriteString("# YoAuditor Report\n\n")
	writeMetadata(&sb, r.Metadata)
	writeContents(&sb, r)
	if r.Overview != "" {
		fmt.Fprintf(&sb, "## Project Overview\n\n%s\n\n", r.Overview)
	}
	writeSummary(&sb, r)
	writeIssues(&sb, r.Files)
	if len(r.Recommendations) > 0 {
		sb.WriteString("## Recommendations\n\n")
		sb.WriteString("Based on the analysis, here are the top recommendations for improving this codebase:\n\n")
		for i, rec := range r.Recommendations {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, rec)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("---\n\n*Report generated by YoAuditor*\n")
	return sb.String()
}

func writeMetadata(sb *strings.Builder, m Metadata) {
	sb.WriteString("## Metadata\n\n")
	fmt.Fprintf(sb, "- **Repository:** %s\n", m.Repository)
	if m.Branch != "" || m.Commit != "" {
		fmt.Fprintf(sb, "- **Revision:** %s\n", strings.TrimSpace(m.Branch+" "+m.Commit))
	}
	fmt.Fprintf(sb, "- **Analysis Date:** %s\n", m.AnalysisDate.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(sb, "- **Model Used:** `%s`\n", m.Model)
	fmt.Fprintf(sb, "- **Mode:** %s\n", m.Mode)
	fmt.Fprintf(sb, "- **Files Analyzed:** %d\n", m.FilesAnalyzed)
	fmt.Fprintf(sb, "- **Total Issues:** %d\n", m.TotalIssues)
	fmt.Fprintf(sb, "- **Analysis Duration:** %.1fs\n", m.DurationSeconds)
	if m.Termination != "" {
		fmt.Fprintf(sb, "- **Termination:** %s\n", m.Termination)
	}
	sb.WriteString("\n")
}

func writeContents(sb *strings.Builder, r *Report) {
	sb.WriteString("## Table of Contents\n\n- [Metadata](#metadata)\n")
	if r.Overview != "" {
		sb.WriteString("- [Project Overview](#project-overview)\n")
	}
	sb.WriteString("- [Summary](#summary)\n- [Issues by File](#issues-by-file)\n")
	for _, f := range r.Files {
		if len(f.Issues) > 0 {
			fmt.Fprintf(sb, "  - [%s](#%s)\n", f.Path, anchor(f.Path))
		}
	}
	if len(r.Recommendations) > 0 {
		sb.WriteString("- [Recommendations](#recommendations)\n")
	}
	sb.WriteString("\n")
}

func writeSummary(sb *strings.Builder, r *Report) {
	s := r.Summary
	sb.WriteString("## Summary\n\n### Issue Severity Breakdown\n\n")
	for _, sev := range Severities {
		fmt.Fprintf(sb, "| %s %s ", sev.Emoji(), sev.Label())
	}
	sb.WriteString("| **Total** |\n|:---:|:---:|:---:|:---:|:---:|\n")
	for _, sev := range Severities {
		fmt.Fprintf(sb, "| %d ", s.Count(sev))
	}
	fmt.Fprintf(sb, "| **%d** |\n\n", s.Total)

	if cats := s.Categories(); len(cats) > 0 {
		sb.WriteString("### Issues by Category\n\n| Category | Count |\n|:---|:---:|\n")
		for _, c := range cats {
			fmt.Fprintf(sb, "| %s | %d |\n", c.Name, c.Count)
		}
		sb.WriteString("\n")
	}

	if langs := LanguageDistribution(r.Files); len(langs) > 0 {
		sb.WriteString("### Files by Language\n\n| Language | Files |\n|:---|:---:|\n")
		for _, c := range langs {
			fmt.Fprintf(sb, "| %s | %d |\n", c.Name, c.Count)
		}
		sb.WriteString("\n")
	}

	if top := MostProblematicFiles(r.Files, 5); len(top) > 0 {
		sb.WriteString("### Most Problematic Files\n\n| File | Issues |\n|:---|:---:|\n")
		for _, c := range top {
			fmt.Fprintf(sb, "| `%s` | %d |\n", c.Name, c.Count)
		}
		sb.WriteString("\n")
	}
}

func writeIssues(sb *strings.Builder, files []AnalyzedFile) {
	sb.WriteString("## Issues by File\n\n")
	if len(files) == 0 {
		sb.WriteString("No issues were found in the analyzed files. Great job! 🎉\n\n")
		return
	}
	for _, f := range files {
		fmt.Fprintf(sb, "<a id=\"%s\"></a>\n\n### %s\n\n", anchor(f.Path), f.Path)
		fmt.Fprintf(sb, "*Language: %s | Lines: %d | Issues: %d*\n\n", f.Language, f.LineCount, len(f.Issues))
		for _, is := range f.Issues {
			writeIssue(sb, is)
		}
	}
}

func writeIssue(sb *strings.Builder, is Issue) {
	fmt.Fprintf(sb, "#### %s **%s** %s - %s\n\n", is.Severity.Emoji(), strings.ToUpper(is.Severity.String()), is.Category, is.Title)
	fmt.Fprintf(sb, "**Lines:** %s\n\n", is.LineRange())
	if is.Description != "" {
		fmt.Fprintf(sb, "**Description:** %s\n\n", is.Description)
	}
	if is.CodeSnippet != "" {
		fmt.Fprintf(sb, "<details>\n<summary>View Code</summary>\n\n```\n%s\n```\n</details>\n\n", is.CodeSnippet)
	}
	if is.Suggestion != "" {
		fmt.Fprintf(sb, "> 💡 **Suggestion:** %s\n\n", is.Suggestion)
	}
	sb.WriteString("---\n\n")
}
