package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/martinemde/yoauditor/agentloop"
	"github.com/martinemde/yoauditor/config"
	"github.com/martinemde/yoauditor/repo"
	"github.com/martinemde/yoauditor/report"
	"github.com/martinemde/yoauditor/repotools"
	"github.com/martinemde/yoauditor/scanner"
	"github.com/martinemde/yoauditor/unifiedllm"
)

// target is one repository to audit: a URL to clone or a local directory.
type target struct {
	url string
	dir string
}

func (t target) source() string {
	if t.url != "" {
		return t.url
	}
	return t.dir
}

func (t target) name() string { return repo.DisplayName(t.source()) }

func collectTargets(f *flags) []target {
	var out []target
	for _, u := range f.repos {
		out = append(out, target{url: u})
	}
	for _, d := range f.locals {
		out = append(out, target{dir: d})
	}
	return out
}

// outputPath names the report of t. With several targets each report
// gets the target's slug before the extension.
func outputPath(base string, format report.Format, t target, multi bool) string {
	if format == report.FormatJSON && strings.EqualFold(filepath.Ext(base), ".md") {
		base = strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
	}
	if !multi {
		return base
	}
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-" + repo.Slug(t.name()) + ext
}

// outcome is what auditing one target produced.
type outcome struct {
	target target
	path   string
	report *report.Report
	result *agentloop.Result
}

type runner struct {
	cfg       *config.Config
	flags     *flags
	overrides func(*config.Config) error
	client    agentloop.Completer
	tokens    *unifiedllm.TokenCounter
	cloner    *repo.Cloner
	logger    *zap.Logger
	format    report.Format
	multi     bool
	stdout    io.Writer
	printMu   sync.Mutex
}

func runAudit(cmd *cobra.Command, f *flags, stdout, stderr io.Writer) error {
	cfg, used, err := config.Resolve(f.configPath)
	if err != nil {
		return err
	}
	overrides := func(c *config.Config) error { return applyFlags(cmd.Flags(), f, c) }
	if err := overrides(cfg); err != nil {
		return err
	}

	logger := newLogger(stderr, cfg.General.Verbose, f.quiet)
	defer func() { _ = logger.Sync() }()
	if used != "" {
		logger.Debug("loaded configuration", zap.String("path", used))
	}

	targets := collectTargets(f)
	if len(targets) == 0 {
		return fmt.Errorf("nothing to audit: pass --repo or --local")
	}
	format, _ := report.ParseFormat(cfg.General.Format)

	r := &runner{
		cfg:       cfg,
		flags:     f,
		overrides: overrides,
		cloner:    repo.NewCloner(repo.WithLogger(logger)),
		logger:    logger,
		format:    format,
		multi:     len(targets) > 1,
		stdout:    stdout,
	}
	ctx := cmd.Context()

	if f.dryRun {
		for _, t := range targets {
			if err := r.dryRun(ctx, t); err != nil {
				return err
			}
		}
		return nil
	}

	reg := prometheus.NewRegistry()
	client, err := newClient(cfg, unifiedllm.NewMetrics(reg), logger)
	if err != nil {
		return err
	}
	defer client.Close()
	r.client = client
	if r.tokens, err = unifiedllm.NewTokenCounter(); err != nil {
		logger.Debug("token counter unavailable, estimating from length", zap.Error(err))
	}

	outcomes := make([]*outcome, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.General.Concurrency)
	for i, t := range targets {
		g.Go(func() error {
			out, err := r.audit(gctx, t)
			if err != nil {
				return fmt.Errorf("%s: %w", t.name(), err)
			}
			outcomes[i] = out
			return nil
		})
	}
	err = g.Wait()

	if f.metricsFile != "" {
		if werr := prometheus.WriteToTextfile(f.metricsFile, reg); werr != nil {
			logger.Error("failed to write metrics", zap.String("path", f.metricsFile), zap.Error(werr))
		}
	}
	if err != nil {
		return err
	}

	printSummary(stdout, outcomes)
	return checkFailOn(cfg, outcomes)
}

// newClient wires the configured provider behind retry, rate limit and
// metrics middleware. Metrics are innermost so every attempt is counted.
func newClient(cfg *config.Config, metrics *unifiedllm.Metrics, logger *zap.Logger) (*unifiedllm.Client, error) {
	var adapter unifiedllm.ProviderAdapter
	switch cfg.Model.Provider {
	case unifiedllm.ProviderOllama:
		adapter = unifiedllm.NewOllamaAdapter(cfg.Model.OllamaURL, unifiedllm.WithRequestTimeout(cfg.Timeout()))
	case unifiedllm.ProviderOpenAI, unifiedllm.ProviderAnthropic:
		env := strings.ToUpper(cfg.Model.Provider) + "_API_KEY"
		key := os.Getenv(env)
		if key == "" {
			return nil, fmt.Errorf("%s is required for provider %s", env, cfg.Model.Provider)
		}
		opts := []unifiedllm.GollmAdapterOption{unifiedllm.WithModel(cfg.Model.Name)}
		if cfg.Model.MaxTokens > 0 {
			opts = append(opts, unifiedllm.WithMaxTokens(cfg.Model.MaxTokens))
		}
		a, err := unifiedllm.NewGollmAdapter(cfg.Model.Provider, key, opts...)
		if err != nil {
			return nil, err
		}
		adapter = a
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Model.Provider)
	}

	var mw []unifiedllm.Middleware
	if cfg.Model.Retries > 0 {
		policy := unifiedllm.DefaultRetryPolicy(cfg.Model.Retries)
		policy.OnRetry = func(err error, attempt int, delay time.Duration) {
			logger.Warn("retrying backend request",
				zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
		}
		mw = append(mw, unifiedllm.RetryMiddleware(policy))
	}
	if cfg.Model.RateLimit > 0 {
		mw = append(mw, unifiedllm.RateLimitMiddleware(cfg.Model.RateLimit, 1))
	}
	mw = append(mw, metrics.Middleware())

	return unifiedllm.NewClient(
		unifiedllm.WithProvider(cfg.Model.Provider, adapter),
		unifiedllm.WithDefaultProvider(cfg.Model.Provider),
		unifiedllm.WithMiddleware(mw...),
	), nil
}

// checkout makes t available on disk.
func (r *runner) checkout(ctx context.Context, t target) (*repo.Checkout, error) {
	if t.url == "" {
		return r.cloner.OpenLocal(ctx, t.dir)
	}
	opts := repo.DefaultCloneOptions()
	opts.Branch = r.flags.branch
	return r.cloner.Clone(ctx, t.url, opts)
}

// targetConfig applies a repository's own config file, then env and flags
// again so they keep precedence over it.
func (r *runner) targetConfig(co *repo.Checkout, log *zap.Logger) (*config.Config, error) {
	cfg, local, err := r.cfg.ForRepository(co.Path)
	if err != nil {
		return nil, err
	}
	if !local {
		return cfg, nil
	}
	log.Info("using repository configuration", zap.String("path", filepath.Join(co.Path, config.FileName)))
	cfg.ApplyEnv()
	if err := r.overrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *runner) audit(ctx context.Context, t target) (*outcome, error) {
	log := r.logger.With(zap.String("target", t.name()))
	co, err := r.checkout(ctx, t)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := r.cloner.Cleanup(co, r.flags.keepClone); err != nil {
			log.Warn("cleanup failed", zap.Error(err))
		}
	}()

	cfg, err := r.targetConfig(co, log)
	if err != nil {
		return nil, err
	}
	sc, err := scanner.New(co.Path, cfg.ScannerRules(), scanner.WithLogger(log))
	if err != nil {
		return nil, err
	}
	tools := repotools.New(sc, repotools.WithLogger(log))

	auditor := agentloop.NewAuditor(r.client, cfg.AgentLoop(t.name()),
		agentloop.WithLogger(log),
		agentloop.WithTokenCounter(r.tokens))
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range auditor.Events() {
			log.Debug("session event",
				zap.String("kind", string(ev.Kind)),
				zap.String("session_id", ev.SessionID),
				zap.Any("data", ev.Data))
		}
	}()

	start := time.Now()
	res, err := auditor.Audit(ctx, tools, sc)
	auditor.Close()
	<-drained
	if err != nil {
		return nil, err
	}

	rep := report.Build(res, report.Options{
		Repository:      t.name(),
		Branch:          co.Branch,
		Commit:          co.Commit,
		Model:           cfg.Model.Name,
		MinSeverity:     cfg.MinSeverity(),
		IncludeSnippets: cfg.Report.IncludeSnippets,
		SnippetLines:    cfg.Report.MaxSnippetLines,
		Source:          sc,
		Duration:        time.Since(start),
	})
	path := outputPath(cfg.General.Output, r.format, t, r.multi)
	if err := report.Write(path, rep, r.format); err != nil {
		return nil, err
	}
	log.Info("report written", zap.String("path", path), zap.Int("issues", rep.Summary.Total))

	if r.flags.print && r.format == report.FormatMarkdown {
		r.printMu.Lock()
		printMarkdown(r.stdout, report.Markdown(rep), log)
		r.printMu.Unlock()
	}
	return &outcome{target: t, path: path, report: rep, result: res}, nil
}

func (r *runner) dryRun(ctx context.Context, t target) error {
	co, err := r.checkout(ctx, t)
	if err != nil {
		return err
	}
	defer func() { _ = r.cloner.Cleanup(co, r.flags.keepClone) }()

	cfg, err := r.targetConfig(co, r.logger)
	if err != nil {
		return err
	}
	sc, err := scanner.New(co.Path, cfg.ScannerRules(), scanner.WithLogger(r.logger))
	if err != nil {
		return err
	}
	files, err := sc.Scan()
	if err != nil {
		return err
	}
	fmt.Fprintf(r.stdout, "%s: %d files would be analyzed (%s mode)\n", t.name(), len(files), cfg.Mode())
	for _, file := range files {
		fmt.Fprintf(r.stdout, "  %s (%d bytes)\n", file.Path, file.Size)
	}
	return nil
}

// checkFailOn returns exit status 2 when any reported issue reaches the
// configured threshold.
func checkFailOn(cfg *config.Config, outcomes []*outcome) error {
	threshold, ok := cfg.FailOn()
	if !ok {
		return nil
	}
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		for _, f := range o.report.Files {
			if report.ExceedsThreshold(f.Issues, threshold) {
				return &exitError{code: 2, err: fmt.Errorf("%s has issues at or above %s", o.target.name(), threshold)}
			}
		}
	}
	return nil
}
