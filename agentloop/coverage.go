package agentloop

import (
	"path"
	"path/filepath"
	"strings"
)

// Coverage tracks which files the model read successfully and which files it
// reported issues for.
type Coverage struct {
	read     []string
	readSet  map[string]struct{}
	reported map[string]struct{}
}

// NewCoverage returns empty coverage.
func NewCoverage() *Coverage {
	return &Coverage{
		readSet:  make(map[string]struct{}),
		reported: make(map[string]struct{}),
	}
}

// NormalizePath makes "./src/a.go", "/src/a.go", "src//a.go" and
// "src/a.go" compare equal. A leading slash is read as the repository root.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = strings.TrimLeft(path.Clean(filepath.ToSlash(p)), "/")
	if p == "" {
		return "."
	}
	return p
}

// MarkRead records a successful read. Repeat reads keep their first position.
func (c *Coverage) MarkRead(p string) {
	p = NormalizePath(p)
	if p == "" {
		return
	}
	if _, ok := c.readSet[p]; ok {
		return
	}
	c.readSet[p] = struct{}{}
	c.read = append(c.read, p)
}

// MarkReported records that an issue was reported for p.
func (c *Coverage) MarkReported(p string) {
	p = NormalizePath(p)
	if p == "" {
		return
	}
	c.reported[p] = struct{}{}
}

// FilesRead returns the read files in first-read order.
func (c *Coverage) FilesRead() []string {
	out := make([]string, len(c.read))
	copy(out, c.read)
	return out
}

// ReadCount returns the number of distinct files read.
func (c *Coverage) ReadCount() int { return len(c.read) }

// ReportedCount returns the number of distinct files with reported issues.
func (c *Coverage) ReportedCount() int { return len(c.reported) }

// Unreported returns read files without any reported issue, in read order.
func (c *Coverage) Unreported() []string {
	var out []string
	for _, p := range c.read {
		if _, ok := c.reported[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}
