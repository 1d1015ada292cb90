package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/martinemde/yoauditor/unifiedllm"
)

// ToolKind is the closed set of tools the model may call. Names outside the
// set decode to ToolUnknown.
type ToolKind int

const (
	ToolUnknown ToolKind = iota
	ToolListFiles
	ToolReadFile
	ToolSearchCode
	ToolGetFileInfo
	ToolReportIssue
	ToolFinishAnalysis
)

var toolNames = map[ToolKind]string{
	ToolListFiles:      "list_files",
	ToolReadFile:       "read_file",
	ToolSearchCode:     "search_code",
	ToolGetFileInfo:    "get_file_info",
	ToolReportIssue:    "report_issue",
	ToolFinishAnalysis: "finish_analysis",
}

// ParseToolKind maps a tool name to its kind.
func ParseToolKind(name string) ToolKind {
	for kind, n := range toolNames {
		if n == name {
			return kind
		}
	}
	return ToolUnknown
}

func (k ToolKind) String() string {
	if n, ok := toolNames[k]; ok {
		return n
	}
	return "unknown"
}

// ToolArgs is the typed argument record for one tool kind. The set of
// implementations is closed to this package.
type ToolArgs interface {
	Kind() ToolKind
	sealed()
}

// ListFilesArgs lists a directory relative to the repository root.
type ListFilesArgs struct {
	Directory string
}

// ReadFileArgs reads one file.
type ReadFileArgs struct {
	Path string
}

// SearchCodeArgs runs a substring search across the scanned files.
type SearchCodeArgs struct {
	Pattern    string
	MaxResults int
}

// GetFileInfoArgs asks for language, line count and size of one file.
type GetFileInfoArgs struct {
	Path string
}

// ReportIssueArgs records one issue. Only FilePath is required.
type ReportIssueArgs struct {
	FilePath    string
	LineNumber  int
	Severity    string
	Category    string
	Title       string
	Description string
	Suggestion  string
}

// FinishArgs ends the analysis. Summary is optional.
type FinishArgs struct {
	Summary string
}

func (ListFilesArgs) Kind() ToolKind   { return ToolListFiles }
func (ReadFileArgs) Kind() ToolKind    { return ToolReadFile }
func (SearchCodeArgs) Kind() ToolKind  { return ToolSearchCode }
func (GetFileInfoArgs) Kind() ToolKind { return ToolGetFileInfo }
func (ReportIssueArgs) Kind() ToolKind { return ToolReportIssue }
func (FinishArgs) Kind() ToolKind      { return ToolFinishAnalysis }

func (ListFilesArgs) sealed()   {}
func (ReadFileArgs) sealed()    {}
func (SearchCodeArgs) sealed()  {}
func (GetFileInfoArgs) sealed() {}
func (ReportIssueArgs) sealed() {}
func (FinishArgs) sealed()      {}

// Issue converts the arguments into a ReportedIssue with defaults applied.
func (a ReportIssueArgs) Issue() ReportedIssue {
	line := a.LineNumber
	if line < 0 {
		line = 0
	}
	return ReportedIssue{
		FilePath:    a.FilePath,
		LineNumber:  line,
		Severity:    NormalizeSeverity(a.Severity),
		Category:    orDefault(strings.ToLower(strings.TrimSpace(a.Category)), DefaultCategory),
		Title:       orDefault(a.Title, DefaultTitle),
		Description: a.Description,
		Suggestion:  a.Suggestion,
	}
}

// DefaultSearchResults caps search_code output when max_results is absent.
const DefaultSearchResults = 10

// ToolCall is a decoded invocation handed to a ToolExecutor.
type ToolCall struct {
	ID   string
	Name string
	Args ToolArgs
}

// ToolOutcome is the result of one invocation.
type ToolOutcome struct {
	Success bool
	Output  string
	Error   string
}

// Succeeded builds a successful outcome.
func Succeeded(output string) ToolOutcome {
	return ToolOutcome{Success: true, Output: output}
}

// Failed builds a failed outcome.
func Failed(format string, args ...any) ToolOutcome {
	return ToolOutcome{Error: fmt.Sprintf(format, args...)}
}

// Text renders the outcome the way it is shown to the model.
func (o ToolOutcome) Text() string {
	if o.Success {
		return o.Output
	}
	return "Error: " + o.Error
}

// ToolExecutor runs tool invocations against one repository and keeps the
// issues reported through report_issue.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) ToolOutcome
	Issues() []ReportedIssue
}

// FileCollector returns the analysable files of one repository keyed by
// repository-relative path.
type FileCollector interface {
	CollectFiles() (map[string]string, error)
}

// Completer is the backend the loop talks to. *unifiedllm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req unifiedllm.Request) (*unifiedllm.Response, error)
}

// DecodeToolArgs validates a loosely typed argument map and converts it into
// the record for kind. Missing required fields are reported as errors.
func DecodeToolArgs(kind ToolKind, args map[string]any) (ToolArgs, error) {
	if args == nil {
		args = map[string]any{}
	}
	switch kind {
	case ToolListFiles:
		dir, _ := GetStringArg(args, "directory")
		if strings.TrimSpace(dir) == "" {
			dir = "."
		}
		return ListFilesArgs{Directory: dir}, nil

	case ToolReadFile:
		path, err := requiredPath(args)
		if err != nil {
			return nil, err
		}
		return ReadFileArgs{Path: path}, nil

	case ToolSearchCode:
		pattern, ok := GetStringArg(args, "pattern")
		if !ok || pattern == "" {
			return nil, missingParam("pattern")
		}
		limit, ok := GetIntArg(args, "max_results")
		if !ok || limit <= 0 {
			limit = DefaultSearchResults
		}
		return SearchCodeArgs{Pattern: pattern, MaxResults: limit}, nil

	case ToolGetFileInfo:
		path, err := requiredPath(args)
		if err != nil {
			return nil, err
		}
		return GetFileInfoArgs{Path: path}, nil

	case ToolReportIssue:
		fp, ok := GetStringArg(args, "file_path")
		if !ok || strings.TrimSpace(fp) == "" {
			return nil, missingParam("file_path")
		}
		line, _ := GetIntArg(args, "line_number")
		a := ReportIssueArgs{FilePath: fp, LineNumber: line}
		a.Severity, _ = GetStringArg(args, "severity")
		a.Category, _ = GetStringArg(args, "category")
		a.Title, _ = GetStringArg(args, "title")
		a.Description, _ = GetStringArg(args, "description")
		a.Suggestion, _ = GetStringArg(args, "suggestion")
		return a, nil

	case ToolFinishAnalysis:
		summary, _ := GetStringArg(args, "summary")
		return FinishArgs{Summary: summary}, nil

	default:
		return nil, fmt.Errorf("no argument schema for tool kind %d", kind)
	}
}

// requiredPath reads "path", falling back to "file_path" which some models
// use for every file-oriented tool.
func requiredPath(args map[string]any) (string, error) {
	for _, key := range []string{"path", "file_path"} {
		if p, ok := GetStringArg(args, key); ok && strings.TrimSpace(p) != "" {
			return p, nil
		}
	}
	return "", missingParam("path")
}

func missingParam(name string) error {
	return fmt.Errorf("missing required parameter: %s", name)
}

// GetStringArg extracts a string argument from parsed tool arguments.
func GetStringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetIntArg extracts an integer argument from parsed tool arguments. Models
// sometimes quote numbers, so numeric strings are accepted too.
func GetIntArg(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func intProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

// ToolDefinitions returns the schemas advertised to the model in iterative
// mode.
func ToolDefinitions() []unifiedllm.ToolDefinition {
	return []unifiedllm.ToolDefinition{
		{
			Name:        ToolListFiles.String(),
			Description: "List files and directories inside a directory of the repository. Directories end with '/'.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"directory": stringProp("Directory relative to the repository root. Use \".\" for the root."),
				},
				"required": []string{"directory"},
			},
		},
		{
			Name:        ToolReadFile.String(),
			Description: "Read a source file. Returns its content with line numbers.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": stringProp("File path relative to the repository root."),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        ToolSearchCode.String(),
			Description: "Search every source file for a literal substring. Returns path:line matches.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pattern":     stringProp("Text to search for."),
					"max_results": intProp("Maximum number of matches to return. Default: 10."),
				},
				"required": []string{"pattern"},
			},
		},
		{
			Name:        ToolGetFileInfo.String(),
			Description: "Get the language, line count and size of a file as language,lines,bytes.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": stringProp("File path relative to the repository root."),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        ToolReportIssue.String(),
			Description: "Report one issue found in a file. Call once per issue.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path":   stringProp("File containing the issue, relative to the repository root."),
					"line_number": intProp("Line where the issue occurs."),
					"severity": map[string]any{
						"type": "string",
						"enum": []string{"critical", "high", "medium", "low"},
					},
					"category": map[string]any{
						"type": "string",
						"enum": []string{"security", "bug", "performance", "code-quality"},
					},
					"title":       stringProp("Short title, under ten words."),
					"description": stringProp("What the issue is and why it matters."),
					"suggestion":  stringProp("How to fix it."),
				},
				"required": []string{"file_path", "line_number", "severity", "category", "title", "description"},
			},
		},
		{
			Name:        ToolFinishAnalysis.String(),
			Description: "Call once every source file has been read and every issue reported.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"summary": stringProp("Optional one-paragraph summary of the audit."),
				},
			},
		},
	}
}
