package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// runResult is what a finished child process left behind. A non-zero exit
// is a result, not an error.
type runResult struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
	elapsed  time.Duration
}

func (r *runResult) ok() bool { return !r.timedOut && r.exitCode == 0 }

// combined joins both streams for error messages.
func (r *runResult) combined() string {
	var parts []string
	for _, s := range []string{r.stdout, r.stderr} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// secretSuffixes name variables withheld from git. Clone URLs may point at
// hosts the user does not control, and hooks or credential helpers run there.
var secretSuffixes = []string{"_API_KEY", "_SECRET", "_TOKEN", "_PASSWORD", "_CREDENTIAL"}

// passThrough is inherited even when it matches a secret suffix.
var passThrough = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "TMPDIR": true, "LANG": true,
	"SSH_AUTH_SOCK": true, "GIT_SSH_COMMAND": true, "XDG_CONFIG_HOME": true,
}

// childEnv is the inherited environment minus secrets, plus extra.
func childEnv(extra map[string]string) []string {
	env := make([]string, 0, len(extra)+32)
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if passThrough[name] || !hasSecretSuffix(name) {
			env = append(env, kv)
		}
	}
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

func hasSecretSuffix(name string) bool {
	name = strings.ToUpper(name)
	for _, suffix := range secretSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// run executes name in dir. The child leads its own process group, and
// cancellation kills the whole group so a stuck ssh helper does not outlive
// git.
func run(ctx context.Context, dir string, timeout time.Duration, extra map[string]string, name string, args ...string) (*runResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = childEnv(extra)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL) }

	start := time.Now()
	err := cmd.Run()
	res := &runResult{stdout: stdout.String(), stderr: stderr.String(), elapsed: time.Since(start)}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.timedOut, res.exitCode = true, -1
		return res, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.As(err, &exitErr):
		res.exitCode = exitErr.ExitCode()
		return res, nil
	default:
		return nil, fmt.Errorf("run %s: %w", name, err)
	}
}
