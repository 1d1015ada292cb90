// Package repotools executes the audit tools against one repository on the
// local file system. Every path is resolved through the scanner, so a tool
// can never reach outside the repository root.
package repotools

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/martinemde/yoauditor/agentloop"
	"github.com/martinemde/yoauditor/scanner"
)

// Executor implements agentloop.ToolExecutor. Issues may be read from other
// goroutines while a session runs.
type Executor struct {
	scanner *scanner.Scanner
	logger  *zap.Logger

	mu     sync.Mutex
	issues []agentloop.ReportedIssue
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an executor over the scanner's repository.
func New(s *scanner.Scanner, opts ...Option) *Executor {
	e := &Executor{scanner: s, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one decoded tool call.
func (e *Executor) Execute(ctx context.Context, call agentloop.ToolCall) agentloop.ToolOutcome {
	switch a := call.Args.(type) {
	case agentloop.ListFilesArgs:
		return e.listFiles(a)
	case agentloop.ReadFileArgs:
		return e.readFile(a)
	case agentloop.SearchCodeArgs:
		return e.searchCode(ctx, a)
	case agentloop.GetFileInfoArgs:
		return e.getFileInfo(a)
	case agentloop.ReportIssueArgs:
		return e.reportIssue(a)
	default:
		return agentloop.Failed("Unsupported tool: %s", call.Name)
	}
}

// Issues returns the issues reported so far, in report order.
func (e *Executor) Issues() []agentloop.ReportedIssue {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]agentloop.ReportedIssue, len(e.issues))
	copy(out, e.issues)
	return out
}

func (e *Executor) listFiles(a agentloop.ListFilesArgs) agentloop.ToolOutcome {
	entries, err := e.scanner.ListDirectory(a.Directory)
	if err != nil {
		return agentloop.Failed("%v", err)
	}
	if len(entries) == 0 {
		return agentloop.Succeeded("(empty directory)")
	}
	return agentloop.Succeeded(strings.Join(entries, "\n"))
}

func (e *Executor) readFile(a agentloop.ReadFileArgs) agentloop.ToolOutcome {
	full, outcome, ok := e.statFile(a.Path)
	if !ok {
		return outcome
	}
	if !e.scanner.Matches(full) {
		return agentloop.Failed("File too large or doesn't match scan criteria.")
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return agentloop.Failed("Failed to read file: %v", err)
	}
	return agentloop.Succeeded(numberLines(string(data)))
}

// numberLines formats content as "N | line" rows.
func numberLines(content string) string {
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return ""
	}
	var sb strings.Builder
	for i, line := range strings.Split(content, "\n") {
		fmt.Fprintf(&sb, "%d | %s\n", i+1, line)
	}
	return sb.String()
}

func (e *Executor) searchCode(ctx context.Context, a agentloop.SearchCodeArgs) agentloop.ToolOutcome {
	files, err := e.scanner.Scan()
	if err != nil {
		return agentloop.Failed("%v", err)
	}

	var results []string
	for _, f := range files {
		if len(results) >= a.MaxResults {
			break
		}
		if err := ctx.Err(); err != nil {
			return agentloop.Failed("search cancelled: %v", err)
		}
		results = e.searchFile(f.Path, a.Pattern, a.MaxResults, results)
	}
	if len(results) == 0 {
		return agentloop.Succeeded("No matches found.")
	}
	return agentloop.Succeeded(strings.Join(results, "\n"))
}

func (e *Executor) searchFile(rel, pattern string, limit int, results []string) []string {
	fh, err := os.Open(filepath.Join(e.scanner.Root(), filepath.FromSlash(rel)))
	if err != nil {
		e.logger.Debug("search skipped file", zap.String("path", rel), zap.Error(err))
		return results
	}
	defer fh.Close()

	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if !strings.Contains(text, pattern) {
			continue
		}
		results = append(results, fmt.Sprintf("%s:%d: %s", rel, line, strings.TrimSpace(text)))
		if len(results) >= limit {
			break
		}
	}
	return results
}

func (e *Executor) getFileInfo(a agentloop.GetFileInfoArgs) agentloop.ToolOutcome {
	full, outcome, ok := e.statFile(a.Path)
	if !ok {
		return outcome
	}
	info, err := os.Stat(full)
	if err != nil {
		return agentloop.Failed("Failed to get metadata: %v", err)
	}
	lines := 0
	if data, err := os.ReadFile(full); err == nil {
		lines = countLines(string(data))
	}
	return agentloop.Succeeded(fmt.Sprintf("%s,%d,%d", scanner.Language(full), lines, info.Size()))
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// statFile resolves p and checks that it names a regular file.
func (e *Executor) statFile(p string) (string, agentloop.ToolOutcome, bool) {
	full, err := e.scanner.Resolve(p)
	if err != nil {
		if errors.Is(err, scanner.ErrOutsideRepository) {
			return "", agentloop.Failed("Access denied: path outside repository"), false
		}
		return "", agentloop.Failed("%v", err), false
	}
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return "", agentloop.Failed("File not found: %s", p), false
	}
	if err != nil {
		return "", agentloop.Failed("Failed to get metadata: %v", err), false
	}
	if !info.Mode().IsRegular() {
		return "", agentloop.Failed("Not a file: %s", p), false
	}
	return full, agentloop.ToolOutcome{}, true
}

func (e *Executor) reportIssue(a agentloop.ReportIssueArgs) agentloop.ToolOutcome {
	issue := a.Issue()
	issue.FilePath = agentloop.NormalizePath(e.scanner.Relative(issue.FilePath))

	e.mu.Lock()
	e.issues = append(e.issues, issue)
	total := len(e.issues)
	e.mu.Unlock()

	e.logger.Debug("issue reported",
		zap.String("file", issue.FilePath),
		zap.Int("line", issue.LineNumber),
		zap.String("severity", issue.Severity),
		zap.String("title", issue.Title))
	return agentloop.Succeeded(fmt.Sprintf("Issue recorded (%d total): [%s] %s at %s:%d",
		total, issue.Severity, issue.Title, issue.FilePath, issue.LineNumber))
}
