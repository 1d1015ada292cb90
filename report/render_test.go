package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	issues := sampleIssues()
	issues[1].Description = "User input reaches the query."
	issues[1].Suggestion = "Use bound parameters."
	issues[1].CodeSnippet = "  10 | query(input)"
	summary := Summarize(issues)
	return &Report{
		Metadata: Metadata{
			Repository:    "acme/widgets",
			Branch:        "main",
			Commit:        "abc12345",
			AnalysisDate:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Model:         "llama3.2:latest",
			Mode:          "iterative",
			Termination:   "finished",
			FilesAnalyzed: 2,
			TotalIssues:   summary.Total,
		},
		Overview:        "Overview text.",
		Files:           GroupByFile(issues),
		Summary:         summary,
		Recommendations: Recommendations(summary, issues),
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("MD")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)

	f, err = ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("html")
	assert.Error(t, err)
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport())

	for _, want := range []string{
		"# YoAuditor Report\n",
		"- **Repository:** acme/widgets\n",
		"- **Revision:** main abc12345\n",
		"- **Analysis Date:** 2026-01-02 03:04:05 UTC\n",
		"- **Model Used:** `llama3.2:latest`\n",
		"- **Termination:** finished\n",
		"  - [src/main.rs](#src-main-rs)\n",
		"## Project Overview\n\nOverview text.\n",
		"| 🔴 Critical | 🟠 High | 🟡 Medium | 🟢 Low | **Total** |\n",
		"| 2 | 0 | 1 | 1 | **4** |\n",
		"| security | 2 |\n",
		"| `src/main.rs` | 3 |\n",
		"*Language: Rust | Lines: 0 | Issues: 3*\n",
		"#### 🔴 **CRITICAL** security - SQL injection\n",
		"**Lines:** 10\n",
		"**Description:** User input reaches the query.\n",
		"<summary>View Code</summary>\n\n```\n  10 | query(input)\n```\n",
		"> 💡 **Suggestion:** Use bound parameters.\n",
		"1. Review all reported issues and prioritize by severity.\n",
		"*Report generated by YoAuditor*\n",
	} {
		assert.Contains(t, md, want)
	}
	assert.Less(t, strings.Index(md, "### app.py"), strings.Index(md, "### src/main.rs"))
}

func TestMarkdownNoIssues(t *testing.T) {
	md := Markdown(&Report{Summary: Summarize(nil)})
	assert.Contains(t, md, "No issues were found in the analyzed files. Great job! 🎉")
	assert.NotContains(t, md, "## Recommendations")
	assert.NotContains(t, md, "### Issues by Category")
}

func TestJSON(t *testing.T) {
	data, err := JSON(sampleReport())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"metadata\": {")

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, SeverityCritical, decoded.Files[1].Issues[0].Severity)
	assert.Equal(t, 4, decoded.Summary.Total)
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	require.NoError(t, Write(path, sampleReport(), FormatJSON))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	assert.Error(t, Write(path, sampleReport(), Format("pdf")))
}
