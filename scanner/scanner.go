// Package scanner discovers the source files of a repository and enforces
// the rules that decide which of them are analyzed.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrOutsideRepository is returned for paths that resolve outside the root.
var ErrOutsideRepository = errors.New("access denied: path outside repository")

// Config selects the files a Scanner considers.
type Config struct {
	// Extensions without the leading dot, matched case-insensitively.
	Extensions []string
	// Excludes are base names ("vendor") or glob patterns ("*.min.js").
	Excludes []string
	// MaxFileSize in bytes. Larger files are skipped.
	MaxFileSize int64
	// MaxFiles caps Scan results. Zero means unlimited.
	MaxFiles int
}

// DefaultConfig returns the default scan rules.
func DefaultConfig() Config {
	return Config{
		Extensions: []string{
			"rs", "py", "js", "ts", "jsx", "tsx", "go", "java", "c", "cpp", "h", "hpp",
			"cs", "rb", "php", "swift", "kt", "scala", "vue", "svelte",
		},
		Excludes: []string{
			".git", "target", "node_modules", "vendor", "dist", "build",
			"__pycache__", ".venv", "venv", ".idea", ".vscode", "*.min.js",
		},
		MaxFileSize: 1 << 20,
		MaxFiles:    100,
	}
}

// File is one file selected by Scan.
type File struct {
	Path      string // slash-separated, relative to the root
	Size      int64
	Extension string
}

// Scanner walks one repository root.
type Scanner struct {
	root       string
	realRoot   string
	cfg        Config
	extensions map[string]struct{}
	logger     *zap.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger used for skipped files and unreadable
// directories.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a scanner for root, which must be an existing directory.
func New(root string, cfg Config, opts ...Option) (*Scanner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("repository root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository root %s is not a directory", root)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		resolved = abs
	}

	s := &Scanner{
		root:       abs,
		realRoot:   resolved,
		cfg:        cfg,
		extensions: make(map[string]struct{}, len(cfg.Extensions)),
		logger:     zap.NewNop(),
	}
	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			s.extensions[ext] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute repository root.
func (s *Scanner) Root() string { return s.root }

// Config returns the scan rules.
func (s *Scanner) Config() Config { return s.cfg }

// Scan walks the root in lexical order and returns the matching files, up to
// MaxFiles. Excluded and hidden directories are not descended into.
func (s *Scanner) Scan() ([]File, error) {
	var files []File
	errLimit := errors.New("file limit reached")

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == s.root {
				return err
			}
			s.logger.Debug("cannot read path", zap.String("path", p), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p == s.root {
			return nil
		}
		if s.IsExcluded(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil || !s.matchInfo(d.Name(), info) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return nil
		}
		files = append(files, File{
			Path:      filepath.ToSlash(rel),
			Size:      info.Size(),
			Extension: extension(d.Name()),
		})
		if s.cfg.MaxFiles > 0 && len(files) >= s.cfg.MaxFiles {
			return errLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		return nil, fmt.Errorf("scan %s: %w", s.root, err)
	}
	return files, nil
}

// CollectFiles reads every scanned file. Unreadable files are logged and
// skipped.
func (s *Scanner) CollectFiles() (map[string]string, error) {
	scanned, err := s.Scan()
	if err != nil {
		return nil, err
	}
	files := make(map[string]string, len(scanned))
	for _, f := range scanned {
		data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(f.Path)))
		if err != nil {
			s.logger.Warn("failed to read file", zap.String("path", f.Path), zap.Error(err))
			continue
		}
		files[f.Path] = string(data)
	}
	return files, nil
}

// ListDirectory lists one directory relative to the root. Directories carry
// a trailing "/"; excluded and hidden names are left out.
func (s *Scanner) ListDirectory(rel string) ([]string, error) {
	if strings.TrimSpace(rel) == "" {
		rel = "."
	}
	dir, err := s.Resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("directory not found: %s", rel)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", rel)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", rel, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if s.IsExcluded(e.Name()) {
			continue
		}
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Resolve maps a repository-relative path to an absolute one, refusing
// anything whose real location is outside the root. An absolute path that
// is not under the root is read as anchored at the root, so "/main.go" is
// the repository's main.go.
func (s *Scanner) Resolve(rel string) (string, error) {
	full := filepath.Clean(filepath.FromSlash(rel))
	if !filepath.IsAbs(full) || !(within(s.root, full) || within(s.realRoot, full)) {
		full = filepath.Join(s.root, strings.TrimLeft(full, string(filepath.Separator)))
	}

	if target, err := filepath.EvalSymlinks(full); err == nil {
		if !within(s.realRoot, target) {
			return "", ErrOutsideRepository
		}
		return full, nil
	}
	if !within(s.root, full) && !within(s.realRoot, full) {
		return "", ErrOutsideRepository
	}
	return full, nil
}

// Relative turns an absolute path under the root into a slash-separated
// repository path. Other paths are returned unchanged.
func (s *Scanner) Relative(p string) string {
	if !filepath.IsAbs(p) {
		return p
	}
	for _, root := range []string{s.root, s.realRoot} {
		if within(root, p) {
			if rel, err := filepath.Rel(root, p); err == nil {
				return filepath.ToSlash(rel)
			}
		}
	}
	return p
}

// Matches reports whether the file at abs passes the extension, exclude and
// size rules.
func (s *Scanner) Matches(abs string) bool {
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return s.matchInfo(filepath.Base(abs), info)
}

func (s *Scanner) matchInfo(name string, info fs.FileInfo) bool {
	if s.IsExcluded(name) {
		return false
	}
	if _, ok := s.extensions[extension(name)]; !ok {
		return false
	}
	if s.cfg.MaxFileSize > 0 && info.Size() > s.cfg.MaxFileSize {
		return false
	}
	return true
}

// IsExcluded reports whether a base name is hidden or matches an exclude.
func (s *Scanner) IsExcluded(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, pattern := range s.cfg.Excludes {
		if name == pattern {
			return true
		}
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
