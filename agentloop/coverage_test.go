package agentloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"src/a.go", "src/a.go"},
		{"./src/a.go", "src/a.go"},
		{"src//a.go", "src/a.go"},
		{"/src/a.go", "src/a.go"},
		{"  a.go ", "a.go"},
		{"/", "."},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePath(tt.in), "NormalizePath(%q)", tt.in)
	}
}

func TestCoverageRootAnchoredPaths(t *testing.T) {
	cov := NewCoverage()
	cov.MarkRead("/a.go")
	cov.MarkRead("a.go")
	cov.MarkReported("./a.go")
	cov.MarkReported("/a.go")

	assert.Equal(t, []string{"a.go"}, cov.FilesRead())
	assert.Equal(t, 1, cov.ReportedCount())
}
