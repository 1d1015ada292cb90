package agentloop

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AgentSystemPrompt instructs the model in iterative mode.
const AgentSystemPrompt = `You are an expert code auditor specializing in security, bugs, and performance analysis. Your task is to thoroughly analyze a code repository.

## Available Tools

- list_files(directory): list a directory (start with ".")
- read_file(path): read a source file with line numbers
- search_code(pattern): find a literal substring across the codebase
- get_file_info(path): language, line count and size of a file
- report_issue(file_path, line_number, severity, category, title, description, suggestion): record one issue
- finish_analysis(): call when every source file is read and every issue reported

## Process

1. Call list_files(".") to discover the project structure.
2. Identify the source files. Skip tests, fixtures, vendored and generated code.
3. Read each source file with read_file.
4. Use search_code to follow data across files.
5. Call report_issue for each real issue as soon as you find it.
6. Call finish_analysis after the last file.

## Severity (use exactly these strings)

- "critical": exploitable vulnerabilities such as SQL injection, RCE, auth bypass, hardcoded secrets, path traversal
- "high": likely crashes, data loss or security risks such as unchecked user input, division by zero, SSRF, XSS
- "medium": fragile code such as missing error handling, races, blocking I/O in loops, unbounded growth
- "low": maintainability such as dead code, poor naming, missing validation on non-critical paths

## Category (use exactly these strings)

- "security", "bug", "performance", "code-quality"

## Rules

1. Read and analyze every source file, not just a few.
2. Use the line numbers shown by read_file.
3. Only report issues you are confident about.
4. Say what the issue is, why it matters, and how to fix it.
5. Never describe issues in plain text. Use report_issue.
`

// InitialDirective is the first user message in iterative mode.
const InitialDirective = `Analyze this repository for code issues. Follow these steps exactly:

1. Call list_files(".") to discover the project structure.
2. Call read_file for EACH source code file (skip docs, configs, tests, fixtures).
3. After reading each file, IMMEDIATELY call report_issue for every bug, security vulnerability, performance problem, or code quality issue in that file. Do NOT wait until the end.
4. After you have read ALL source files and reported ALL issues, call finish_analysis.

IMPORTANT:
- You MUST call report_issue for each issue. Do NOT just describe issues in text.
- If a file has no issues, move to the next file.
- Do NOT call finish_analysis until you have read ALL source files.`

// SingleCallSystemPrompt instructs the model in single-call mode.
const SingleCallSystemPrompt = `You are an expert code auditor specializing in security, bugs, and performance analysis.

Analyze EVERY provided source file. For each real issue, output one JSON object per line. Output ONLY JSON lines: no markdown, no explanations, no commentary.

Severity is one of "critical", "high", "medium", "low".
Category is one of "security", "bug", "performance", "code-quality".

Rules:
1. Analyze every file, even simple ones.
2. Use accurate line numbers.
3. Do not report issues in tests, fixtures or intentionally vulnerable demo code.
4. Only report issues you are confident about.
5. One JSON object per line. No arrays, no wrapping.
6. Output nothing for a file without issues.`

const singleCallExample = `{"file_path": "path/to/file.rs", "line_number": 42, "severity": "high", "category": "security", "title": "SQL injection in query builder", "description": "User input is concatenated into the SQL string, letting an attacker run arbitrary SQL.", "suggestion": "Use parameterized queries."}`

// BuildSingleCallPrompt embeds every file, in path order, into one prompt.
func BuildSingleCallPrompt(files map[string]string) string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are auditing a codebase with %d source files. Analyze EVERY file below for security vulnerabilities, bugs, performance issues, and code quality problems.\n\n", len(paths))
	sb.WriteString("For each issue found, output one JSON object per line in this exact format:\n")
	sb.WriteString(singleCallExample)
	sb.WriteString("\n\nRequirements:\n")
	sb.WriteString("- Analyze ALL files, not just a few\n")
	sb.WriteString("- Use exact line numbers from the source code\n")
	sb.WriteString("- severity must be one of: critical, high, medium, low\n")
	sb.WriteString("- category must be one of: security, bug, performance, code-quality\n")
	sb.WriteString("- title should be under 10 words\n")
	sb.WriteString("- description explains what is wrong and why it matters\n")
	sb.WriteString("- suggestion explains how to fix it\n")
	sb.WriteString("- Output ONLY JSON lines, no other text\n\n")
	fmt.Fprintf(&sb, "=== %d FILES TO ANALYZE ===\n\n", len(paths))

	for i, p := range paths {
		fmt.Fprintf(&sb, "--- FILE %d/%d: %s ---\n```\n%s\n```\n\n", i+1, len(paths), p, files[p])
	}

	sb.WriteString("=== END OF FILES ===\n\n")
	sb.WriteString("Now analyze every file above and output issues as JSON (one per line).")
	return sb.String()
}

const maxExtraInstructionBytes = 32 * 1024

// buildSystemPrompt appends the audit context block and any extra
// instructions to base.
func buildSystemPrompt(base string, cfg Config) string {
	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("\n<audit_context>\n")
	if cfg.RepositoryName != "" {
		fmt.Fprintf(&sb, "Repository: %s\n", cfg.RepositoryName)
	}
	if cfg.Model != "" {
		fmt.Fprintf(&sb, "Model: %s\n", cfg.Model)
	}
	fmt.Fprintf(&sb, "Today's date: %s\n", time.Now().Format("2006-01-02"))
	sb.WriteString("</audit_context>")

	if extra := strings.TrimSpace(cfg.ExtraInstructions); extra != "" {
		if len(extra) > maxExtraInstructionBytes {
			extra = extra[:maxExtraInstructionBytes] + "\n[Instructions truncated at 32KB]"
		}
		sb.WriteString("\n\n# Additional Instructions\n\n")
		sb.WriteString(extra)
	}
	return sb.String()
}
