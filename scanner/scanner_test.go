package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func paths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestScanAppliesRules(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":               "package main",
		"src/lib.rs":            "fn main() {}",
		"src/app.min.js":        "x",
		"src/app.js":            "let x = 1",
		"README.md":             "# readme",
		"node_modules/dep/a.js": "x",
		".hidden/secret.go":     "package secret",
		"vendor/pkg/v.go":       "package v",
		"big.py":                strings.Repeat("x", 64),
		"UPPER.GO":              "package upper",
	})
	cfg := DefaultConfig()
	cfg.MaxFileSize = 32

	s, err := New(root, cfg)
	require.NoError(t, err)
	files, err := s.Scan()
	require.NoError(t, err)

	assert.Equal(t, []string{"UPPER.GO", "main.go", "src/app.js", "src/lib.rs"}, paths(files))
	assert.Equal(t, "rs", files[3].Extension)
	assert.Equal(t, int64(len("fn main() {}")), files[3].Size)
}

func TestScanMaxFiles(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": "a", "b.go": "b", "c.go": "c"})
	cfg := DefaultConfig()
	cfg.MaxFiles = 2

	s, err := New(root, cfg)
	require.NoError(t, err)
	files, err := s.Scan()
	require.NoError(t, err)

	assert.Equal(t, []string{"a.go", "b.go"}, paths(files))
}

func TestCollectFiles(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": "package a", "docs/x.txt": "no"})

	s, err := New(root, DefaultConfig())
	require.NoError(t, err)
	files, err := s.CollectFiles()
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"a.go": "package a"}, files)
}

func TestListDirectory(t *testing.T) {
	root := writeTree(t, map[string]string{
		"b.go":          "b",
		"a/x.go":        "x",
		"notes.txt":     "n",
		".env":          "SECRET=1",
		"target/out.rs": "x",
	})
	s, err := New(root, DefaultConfig())
	require.NoError(t, err)

	entries, err := s.ListDirectory(".")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/", "b.go", "notes.txt"}, entries)

	entries, err = s.ListDirectory("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"x.go"}, entries)

	_, err = s.ListDirectory("missing")
	assert.EqualError(t, err, "directory not found: missing")

	_, err = s.ListDirectory("b.go")
	assert.EqualError(t, err, "not a directory: b.go")

	_, err = s.ListDirectory("..")
	assert.ErrorIs(t, err, ErrOutsideRepository)
}

func TestResolveRejectsEscapes(t *testing.T) {
	outside := writeTree(t, map[string]string{"secret.go": "package secret"})
	root := writeTree(t, map[string]string{"a.go": "package a"})
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.go"), filepath.Join(root, "link.go")))

	s, err := New(root, DefaultConfig())
	require.NoError(t, err)

	_, err = s.Resolve("../" + filepath.Base(outside) + "/secret.go")
	assert.ErrorIs(t, err, ErrOutsideRepository)

	_, err = s.Resolve("link.go")
	assert.ErrorIs(t, err, ErrOutsideRepository)

	// absolute paths elsewhere are anchored at the root, never followed
	p, err := s.Resolve(filepath.Join(outside, "secret.go"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, s.Root()+string(filepath.Separator)))
	assert.NotEqual(t, filepath.Join(outside, "secret.go"), p)

	_, err = s.Resolve("/../" + filepath.Base(outside) + "/secret.go")
	require.NoError(t, err)

	p, err = s.Resolve("./a.go")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "a.go"), p)

	p, err = s.Resolve("not/yet/there.go")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, s.Root()))
}

func TestResolveRootAnchored(t *testing.T) {
	root := writeTree(t, map[string]string{"main.go": "package main", "cmd/app.go": "package cmd"})
	s, err := New(root, DefaultConfig())
	require.NoError(t, err)

	tests := []struct {
		in, want string
	}{
		{"/main.go", "main.go"},
		{"/cmd/app.go", "cmd/app.go"},
		{filepath.Join(s.Root(), "cmd", "app.go"), "cmd/app.go"},
	}
	for _, tt := range tests {
		p, err := s.Resolve(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, filepath.Join(s.Root(), filepath.FromSlash(tt.want)), p, tt.in)
		assert.Equal(t, tt.want, s.Relative(p))
	}
	assert.Equal(t, "docs/x.md", s.Relative("docs/x.md"))
}

func TestMatches(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": "package a", "a.txt": "text"})
	s, err := New(root, DefaultConfig())
	require.NoError(t, err)

	assert.True(t, s.Matches(filepath.Join(root, "a.go")))
	assert.False(t, s.Matches(filepath.Join(root, "a.txt")))
	assert.False(t, s.Matches(filepath.Join(root, "missing.go")))
	assert.False(t, s.Matches(root))
}

func TestExtensionsAcceptLeadingDot(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": "package a", "b.py": "x"})
	s, err := New(root, Config{Extensions: []string{".py"}})
	require.NoError(t, err)

	files, err := s.Scan()
	require.NoError(t, err)
	assert.Equal(t, []string{"b.py"}, paths(files))
}

func TestNewRejectsFileRoot(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": "package a"})

	_, err := New(filepath.Join(root, "a.go"), DefaultConfig())
	assert.ErrorContains(t, err, "is not a directory")

	_, err = New(filepath.Join(root, "nope"), DefaultConfig())
	assert.Error(t, err)
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, "Go", Language("cmd/main.go"))
	assert.Equal(t, "TypeScript", Language("App.TSX"))
	assert.Equal(t, "C++", Language("x.hpp"))
	assert.Equal(t, "zig", Language("build.zig"))
	assert.Equal(t, "Unknown", Language("Makefile"))
}
