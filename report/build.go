package report

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/martinemde/yoauditor/agentloop"
	"github.com/martinemde/yoauditor/scanner"
)

// DefaultSnippetLines is the snippet height when none is configured.
const DefaultSnippetLines = 10

// Source gives the builder read access to the audited repository.
// *scanner.Scanner satisfies it.
type Source interface {
	Resolve(rel string) (string, error)
}

// Options describe the run a report is built for.
type Options struct {
	Repository      string
	Branch          string
	Commit          string
	Model           string
	MinSeverity     Severity
	IncludeSnippets bool
	SnippetLines    int
	Source          Source
	Duration        time.Duration
	Now             time.Time
}

// Build assembles a report from an audit result. Issues below MinSeverity are
// dropped before anything is counted.
func Build(res *agentloop.Result, opts Options) *Report {
	issues := FilterMinSeverity(FromReported(res.Issues), opts.MinSeverity)

	if opts.Source != nil && opts.IncludeSnippets {
		n := opts.SnippetLines
		if n <= 0 {
			n = DefaultSnippetLines
		}
		for i := range issues {
			issues[i].CodeSnippet = snippet(opts.Source, issues[i].FilePath, issues[i].StartLine, n)
		}
	}

	files := GroupByFile(issues)
	if opts.Source != nil {
		for i := range files {
			files[i].LineCount = lineCount(opts.Source, files[i].Path)
		}
	}

	summary := Summarize(issues)
	analyzed := len(files)
	if res.TotalFiles != nil {
		analyzed = *res.TotalFiles
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	return &Report{
		Metadata: Metadata{
			Repository:      opts.Repository,
			Branch:          opts.Branch,
			Commit:          opts.Commit,
			AnalysisDate:    now.UTC(),
			Model:           opts.Model,
			Mode:            string(res.Mode),
			Termination:     string(res.Termination),
			FilesAnalyzed:   analyzed,
			FilesWithIssues: len(files),
			TotalIssues:     summary.Total,
			DurationSeconds: opts.Duration.Seconds(),
		},
		Overview:        overview(res),
		Files:           files,
		Summary:         summary,
		Recommendations: Recommendations(summary, issues),
	}
}

func overview(res *agentloop.Result) string {
	switch res.Mode {
	case agentloop.ModeIterative:
		return fmt.Sprintf("Analysis performed by an AI agent with tool-calling capabilities over %d iterations (%s).",
			res.Iterations, res.Termination)
	default:
		return "Analysis performed in a single model call with every source file embedded in the prompt."
	}
}

func openSource(src Source, rel string) (*os.File, error) {
	p, err := src.Resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// snippet returns up to n numbered lines centered on line.
func snippet(src Source, rel string, line, n int) string {
	if line <= 0 {
		return ""
	}
	fh, err := openSource(src, rel)
	if err != nil {
		return ""
	}
	defer fh.Close()

	start := line - n/2
	if start < 1 {
		start = 1
	}
	end := start + n - 1

	var sb strings.Builder
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for i := 1; sc.Scan() && i <= end; i++ {
		if i >= start {
			fmt.Fprintf(&sb, "%4d | %s\n", i, sc.Text())
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func lineCount(src Source, rel string) int {
	fh, err := openSource(src, rel)
	if err != nil {
		return 0
	}
	defer fh.Close()

	n := 0
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		n++
	}
	return n
}

var _ Source = (*scanner.Scanner)(nil)
