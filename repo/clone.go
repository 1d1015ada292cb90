// Package repo acquires the repositories to audit: shallow git clones of
// remote URLs into temporary directories, or existing local directories.
package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CloneOptions configures Clone.
type CloneOptions struct {
	Branch    string
	Depth     int           // 0 clones full history
	TargetDir string        // empty clones into a new temporary directory
	Timeout   time.Duration // 0 means no limit beyond the context
}

// DefaultCloneOptions returns a shallow clone of the default branch.
func DefaultCloneOptions() CloneOptions {
	return CloneOptions{Depth: 1, Timeout: 10 * time.Minute}
}

// Checkout is a repository available on disk.
type Checkout struct {
	Path      string
	Name      string
	Source    string
	Branch    string
	Commit    string
	Temporary bool
}

// Cloner runs git.
type Cloner struct {
	git    string
	logger *zap.Logger
}

// ClonerOption configures a Cloner.
type ClonerOption func(*Cloner)

// WithGitBinary overrides the git executable.
func WithGitBinary(path string) ClonerOption {
	return func(c *Cloner) { c.git = path }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClonerOption {
	return func(c *Cloner) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCloner creates a cloner using git from PATH.
func NewCloner(opts ...ClonerOption) *Cloner {
	c := &Cloner{git: "git", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clone clones url. When TargetDir already holds a git repository it is used
// as is.
func (c *Cloner) Clone(ctx context.Context, url string, opts CloneOptions) (*Checkout, error) {
	log := c.logger.With(zap.String("url", url))

	dir := opts.TargetDir
	temporary := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "yoauditor-")
		if err != nil {
			return nil, fmt.Errorf("create temporary directory: %w", err)
		}
		dir = tmp
		temporary = true
	} else if isGitRepository(dir) {
		log.Info("using existing repository", zap.String("path", dir))
		return c.describe(ctx, &Checkout{Path: dir, Name: DisplayName(url), Source: url}), nil
	}

	args := []string{"clone", "--quiet"}
	if opts.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(opts.Depth))
	}
	if opts.Branch != "" {
		args = append(args, "--branch", opts.Branch, "--single-branch")
	}
	args = append(args, "--", url, dir)

	log.Info("cloning repository", zap.String("path", dir), zap.String("branch", opts.Branch))
	res, err := run(ctx, "", opts.Timeout, gitEnv, c.git, args...)
	if err == nil && !res.ok() {
		err = cloneFailure(res)
	}
	if err != nil {
		if temporary {
			_ = os.RemoveAll(dir)
		}
		return nil, fmt.Errorf("clone %s: %w", url, err)
	}

	log.Info("cloned repository", zap.Duration("duration", res.elapsed))
	return c.describe(ctx, &Checkout{
		Path:      dir,
		Name:      DisplayName(url),
		Source:    url,
		Branch:    opts.Branch,
		Temporary: temporary,
	}), nil
}

// gitEnv keeps git from prompting for credentials on a terminal nobody is
// watching.
var gitEnv = map[string]string{"GIT_TERMINAL_PROMPT": "0"}

func cloneFailure(res *runResult) error {
	if res.timedOut {
		return fmt.Errorf("git clone timed out after %s", res.elapsed.Round(time.Second))
	}
	return fmt.Errorf("git exited with status %d: %s", res.exitCode, res.combined())
}

// OpenLocal wraps an existing directory. It does not need to be a git
// repository.
func (c *Cloner) OpenLocal(ctx context.Context, path string) (*Checkout, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("repository path does not exist: %s", path)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository path is not a directory: %s", path)
	}
	co := &Checkout{Path: abs, Name: filepath.Base(abs), Source: path}
	if isGitRepository(abs) {
		c.describe(ctx, co)
	}
	return co, nil
}

// describe fills branch and commit. Failures leave the fields empty.
func (c *Cloner) describe(ctx context.Context, co *Checkout) *Checkout {
	if res, err := run(ctx, co.Path, 10*time.Second, gitEnv, c.git, "rev-parse", "--short=8", "HEAD"); err == nil && res.ok() {
		co.Commit = strings.TrimSpace(res.stdout)
	}
	if co.Branch == "" {
		if res, err := run(ctx, co.Path, 10*time.Second, gitEnv, c.git, "rev-parse", "--abbrev-ref", "HEAD"); err == nil && res.ok() {
			co.Branch = strings.TrimSpace(res.stdout)
		}
	}
	return co
}

// Cleanup removes a temporary clone unless keep is set. Local directories are
// never removed.
func (c *Cloner) Cleanup(co *Checkout, keep bool) error {
	if co == nil || !co.Temporary {
		return nil
	}
	if keep {
		c.logger.Info("keeping cloned repository", zap.String("path", co.Path))
		return nil
	}
	c.logger.Debug("removing cloned repository", zap.String("path", co.Path))
	if err := os.RemoveAll(co.Path); err != nil {
		return fmt.Errorf("remove %s: %w", co.Path, err)
	}
	return nil
}

func isGitRepository(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}
