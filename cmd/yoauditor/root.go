package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/martinemde/yoauditor/config"
	"github.com/martinemde/yoauditor/report"
)

type flags struct {
	repos       []string
	locals      []string
	configPath  string
	model       string
	provider    string
	ollamaURL   string
	output      string
	format      string
	branch      string
	verbose     bool
	quiet       bool
	extensions  []string
	excludes    []string
	maxFiles    int
	concurrency int
	temperature float64
	timeout     int
	retries     int
	rateLimit   float64
	singleCall  bool
	iterative   bool
	maxIter     int
	failOn      string
	minSeverity string
	dryRun      bool
	keepClone   bool
	print       bool
	metricsFile string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "yoauditor",
		Short: "Audit source repositories for defects with a language model",
		Long: `yoauditor clones or opens one or more repositories, lets a language model
inspect their source files and writes a report of the issues it found.

In single-call mode every file is sent in one prompt. In iterative mode the
model explores the repository with tools (list_files, read_file, search_code,
get_file_info, report_issue, finish_analysis).`,
		Example: `  yoauditor --repo https://github.com/owner/project
  yoauditor --local . --no-single-call --model qwen2.5-coder:7b
  yoauditor --local ./a --local ./b --format json --fail-on high`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, f, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fs := cmd.Flags()
	fs.StringArrayVar(&f.repos, "repo", nil, "GitHub repository URL to audit (repeatable)")
	fs.StringArrayVar(&f.locals, "local", nil, "local directory to audit (repeatable)")
	fs.StringVarP(&f.configPath, "config", "c", "", "config file (default ./"+config.FileName+" when present)")
	fs.StringVarP(&f.model, "model", "m", "", "model name")
	fs.StringVar(&f.provider, "provider", "", "backend provider: ollama, openai or anthropic")
	fs.StringVar(&f.ollamaURL, "ollama-url", "", "Ollama server URL")
	fs.StringVarP(&f.output, "output", "o", "", "report path")
	fs.StringVarP(&f.format, "format", "f", "", "report format: markdown or json")
	fs.StringVarP(&f.branch, "branch", "b", "", "branch to clone for --repo targets")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "log errors only")
	fs.StringSliceVar(&f.extensions, "extensions", nil, "file extensions to analyze (comma separated)")
	fs.StringSliceVar(&f.excludes, "exclude", nil, "names or glob patterns to skip (comma separated)")
	fs.IntVar(&f.maxFiles, "max-files", 0, "maximum number of files to analyze")
	fs.IntVar(&f.concurrency, "concurrency", 0, "targets audited at once")
	fs.Float64Var(&f.temperature, "temperature", 0, "sampling temperature")
	fs.IntVar(&f.timeout, "timeout", 0, "backend request timeout in seconds")
	fs.IntVar(&f.retries, "retries", 0, "retries for transient backend failures")
	fs.Float64Var(&f.rateLimit, "rate-limit", 0, "maximum backend requests per second (0 disables)")
	fs.BoolVar(&f.singleCall, "single-call", false, "send all files in one request")
	fs.BoolVar(&f.iterative, "no-single-call", false, "let the model explore with tools")
	fs.IntVar(&f.maxIter, "max-iterations", 0, "iteration budget in iterative mode")
	fs.StringVar(&f.failOn, "fail-on", "", "exit with status 2 when an issue at or above this severity is found")
	fs.StringVar(&f.minSeverity, "min-severity", "", "omit issues below this severity from the report")
	fs.BoolVar(&f.dryRun, "dry-run", false, "list the files that would be analyzed and exit")
	fs.BoolVar(&f.keepClone, "keep-clone", false, "keep cloned repositories on disk")
	fs.BoolVar(&f.print, "print", false, "render the Markdown report in the terminal")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	cmd.MarkFlagsMutuallyExclusive("single-call", "no-single-call")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newInitConfigCmd(stdout), newModelsCmd(stdout))
	return cmd
}

// applyFlags copies every explicitly set flag onto cfg and validates it.
func applyFlags(fs *pflag.FlagSet, f *flags, cfg *config.Config) error {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("model", func() { cfg.Model.Name = f.model })
	set("provider", func() { cfg.Model.Provider = f.provider })
	set("ollama-url", func() { cfg.Model.OllamaURL = f.ollamaURL })
	set("output", func() { cfg.General.Output = f.output })
	set("format", func() { cfg.General.Format = f.format })
	set("verbose", func() { cfg.General.Verbose = f.verbose })
	set("extensions", func() { cfg.Scanner.Extensions = f.extensions })
	set("exclude", func() { cfg.Scanner.Excludes = append(append([]string(nil), cfg.Scanner.Excludes...), f.excludes...) })
	set("max-files", func() { cfg.Scanner.MaxFiles = f.maxFiles })
	set("concurrency", func() { cfg.General.Concurrency = f.concurrency })
	set("temperature", func() { cfg.Model.Temperature = f.temperature })
	set("timeout", func() { cfg.Model.TimeoutSeconds = f.timeout })
	set("retries", func() { cfg.Model.Retries = f.retries })
	set("rate-limit", func() { cfg.Model.RateLimit = f.rateLimit })
	set("single-call", func() { cfg.Model.SingleCallMode = f.singleCall })
	set("no-single-call", func() { cfg.Model.SingleCallMode = !f.iterative })
	set("max-iterations", func() { cfg.Agent.MaxIterations = f.maxIter })
	set("fail-on", func() { cfg.Report.FailOn = f.failOn })
	set("min-severity", func() { cfg.Report.MinSeverity = f.minSeverity })

	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := report.ParseFormat(cfg.General.Format); err != nil {
		return err
	}
	return nil
}

func newInitConfigCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write a default " + config.FileName,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Wrote default configuration to %s\n", path)
			return nil
		},
	}
}
