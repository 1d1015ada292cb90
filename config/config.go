// Package config loads and validates the .yoauditor.yaml configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/martinemde/yoauditor/agentloop"
	"github.com/martinemde/yoauditor/report"
	"github.com/martinemde/yoauditor/scanner"
)

// FileName is the configuration file looked up in the working directory and
// in audited repositories.
const FileName = ".yoauditor.yaml"

// Config is the complete tool configuration.
type Config struct {
	General GeneralConfig `yaml:"general"`
	Model   ModelConfig   `yaml:"model"`
	Agent   AgentConfig   `yaml:"agent"`
	Scanner ScannerConfig `yaml:"scanner"`
	Report  ReportConfig  `yaml:"report"`
}

// GeneralConfig covers output and run-level settings.
type GeneralConfig struct {
	Output      string `yaml:"output" validate:"required"`
	Format      string `yaml:"format" validate:"oneof=markdown md json"`
	Verbose     bool   `yaml:"verbose"`
	Concurrency int    `yaml:"concurrency" validate:"gte=1,lte=64"`
}

// ModelConfig selects and tunes the backend.
type ModelConfig struct {
	Name           string  `yaml:"name" validate:"required"`
	Provider       string  `yaml:"provider" validate:"oneof=ollama openai anthropic"`
	OllamaURL      string  `yaml:"ollama_url" validate:"required,url"`
	Temperature    float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens      int     `yaml:"max_tokens" validate:"gte=0"`
	TimeoutSeconds int     `yaml:"timeout_seconds" validate:"gte=1"`
	Retries        int     `yaml:"retries" validate:"gte=0,lte=10"`
	SingleCallMode bool    `yaml:"single_call_mode"`
	// RateLimit caps backend requests per second across all sessions. Zero
	// disables limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
}

// AgentConfig holds the iterative loop thresholds.
type AgentConfig struct {
	MaxIterations       int      `yaml:"max_iterations" validate:"gte=1"`
	MaxContextMessages  int      `yaml:"max_context_messages" validate:"gte=2"`
	MaxToolOutput       int      `yaml:"max_tool_output" validate:"gte=256"`
	StrongNudgeAfter    int      `yaml:"strong_nudge_after" validate:"gte=1"`
	AbandonAfter        int      `yaml:"abandon_after" validate:"gtefield=StrongNudgeAfter"`
	CompletionWords     []string `yaml:"completion_words" validate:"dive,required"`
	EnableLoopDetection bool     `yaml:"enable_loop_detection"`
	LoopDetectionWindow int      `yaml:"loop_detection_window" validate:"gte=2"`
	ExtraInstructions   string   `yaml:"extra_instructions,omitempty"`
}

// ScannerConfig controls which files are analyzed.
type ScannerConfig struct {
	Extensions  []string `yaml:"extensions" validate:"min=1,dive,required"`
	Excludes    []string `yaml:"excludes" validate:"dive,required"`
	MaxFileSize int64    `yaml:"max_file_size" validate:"gt=0"`
	MaxFiles    int      `yaml:"max_files" validate:"gt=0"`
}

// ReportConfig controls report content.
type ReportConfig struct {
	IncludeSnippets bool   `yaml:"include_snippets"`
	MaxSnippetLines int    `yaml:"max_snippet_lines" validate:"gte=1,lte=200"`
	MinSeverity     string `yaml:"min_severity" validate:"oneof=low medium high critical"`
	FailOn          string `yaml:"fail_on,omitempty" validate:"omitempty,oneof=low medium high critical"`
}

// Default returns the built-in configuration.
func Default() *Config {
	sc := scanner.DefaultConfig()
	ac := agentloop.DefaultConfig()
	return &Config{
		General: GeneralConfig{
			Output:      "yoaudit_report.md",
			Format:      "markdown",
			Concurrency: 4,
		},
		Model: ModelConfig{
			Name:           ac.Model,
			Provider:       ac.Provider,
			OllamaURL:      "http://localhost:11434",
			Temperature:    ac.Temperature,
			TimeoutSeconds: 1800,
			SingleCallMode: true,
		},
		Agent: AgentConfig{
			MaxIterations:       ac.MaxIterations,
			MaxContextMessages:  ac.MaxContextMessages,
			MaxToolOutput:       ac.MaxToolOutput,
			StrongNudgeAfter:    ac.StrongNudgeAfter,
			AbandonAfter:        ac.AbandonAfter,
			CompletionWords:     ac.CompletionWords,
			EnableLoopDetection: ac.EnableLoopDetection,
			LoopDetectionWindow: ac.LoopDetectionWindow,
		},
		Scanner: ScannerConfig{
			Extensions:  sc.Extensions,
			Excludes:    sc.Excludes,
			MaxFileSize: sc.MaxFileSize,
			MaxFiles:    sc.MaxFiles,
		},
		Report: ReportConfig{
			IncludeSnippets: true,
			MaxSnippetLines: report.DefaultSnippetLines,
			MinSeverity:     "low",
		},
	}
}

var validate = validator.New()

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load reads path over the defaults and validates the result. Keys missing
// from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.overlay(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Resolve picks the configuration for a run: the explicit path when given,
// else FileName in the working directory, else the defaults. Environment
// overrides are applied last. The returned string names the file used, or
// is empty for defaults.
func Resolve(explicit string) (*Config, string, error) {
	path := explicit
	if path == "" {
		if _, err := os.Stat(FileName); err == nil {
			path = FileName
		}
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, "", err
		}
	}
	cfg.ApplyEnv()
	return cfg, path, nil
}

// ForRepository returns the configuration for auditing root. A FileName in
// root replaces the model name and the agent, scanner and report sections;
// output, concurrency and backend connection settings stay as given. ok
// reports whether a repository file was found.
func (c *Config) ForRepository(root string) (cfg *Config, ok bool, err error) {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return c, false, nil
	}

	local, err := Load(path)
	if err != nil {
		return nil, false, err
	}
	merged := *c
	merged.Model.Name = local.Model.Name
	merged.Agent = local.Agent
	merged.Scanner = local.Scanner
	merged.Report = local.Report
	return &merged, true, nil
}

func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv applies YOAUDITOR_MODEL and OLLAMA_URL when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("YOAUDITOR_MODEL"); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		c.Model.OllamaURL = v
	}
}

// Timeout is the per-request backend timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Model.TimeoutSeconds) * time.Second
}

// Mode is the analysis strategy selected by single_call_mode.
func (c *Config) Mode() agentloop.Mode {
	if c.Model.SingleCallMode {
		return agentloop.ModeSingleCall
	}
	return agentloop.ModeIterative
}

// AgentLoop converts the configuration for one audit of repoName.
func (c *Config) AgentLoop(repoName string) agentloop.Config {
	return agentloop.Config{
		Mode:                c.Mode(),
		Model:               c.Model.Name,
		Provider:            c.Model.Provider,
		Temperature:         c.Model.Temperature,
		MaxIterations:       c.Agent.MaxIterations,
		MaxContextMessages:  c.Agent.MaxContextMessages,
		MaxToolOutput:       c.Agent.MaxToolOutput,
		StrongNudgeAfter:    c.Agent.StrongNudgeAfter,
		AbandonAfter:        c.Agent.AbandonAfter,
		CompletionWords:     c.Agent.CompletionWords,
		EnableLoopDetection: c.Agent.EnableLoopDetection,
		LoopDetectionWindow: c.Agent.LoopDetectionWindow,
		RepositoryName:      repoName,
		ExtraInstructions:   c.Agent.ExtraInstructions,
	}
}

// ScannerRules converts the scanner section.
func (c *Config) ScannerRules() scanner.Config {
	return scanner.Config{
		Extensions:  c.Scanner.Extensions,
		Excludes:    c.Scanner.Excludes,
		MaxFileSize: c.Scanner.MaxFileSize,
		MaxFiles:    c.Scanner.MaxFiles,
	}
}

// MinSeverity is the lowest severity kept in reports.
func (c *Config) MinSeverity() report.Severity {
	sev, err := report.ParseSeverity(c.Report.MinSeverity)
	if err != nil {
		return report.SeverityLow
	}
	return sev
}

// FailOn returns the exit threshold, if one is configured.
func (c *Config) FailOn() (report.Severity, bool) {
	if c.Report.FailOn == "" {
		return report.SeverityLow, false
	}
	sev, err := report.ParseSeverity(c.Report.FailOn)
	return sev, err == nil
}

const header = `# YoAuditor configuration.
# Flags passed on the command line override these values. A .yoauditor.yaml
# inside an audited repository replaces the model name and the agent,
# scanner and report sections for that repository.
`

// DefaultYAML renders the default configuration file.
func DefaultYAML() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Default()); err != nil {
		return nil, fmt.Errorf("encode default config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode default config: %w", err)
	}
	return buf.Bytes(), nil
}

// ErrExists is returned by WriteDefault when the target already exists.
var ErrExists = errors.New("config file already exists")

// WriteDefault writes the default configuration to path. It never
// overwrites an existing file.
func WriteDefault(path string) error {
	data, err := DefaultYAML()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
		return fmt.Errorf("create config: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write config: %w", err)
	}
	return f.Close()
}
