package agentloop

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/martinemde/yoauditor/unifiedllm"
)

// scriptedBackend replays canned responses in order. Once the script runs
// out it keeps answering with plain text.
type scriptedBackend struct {
	responses []*unifiedllm.Response
	err       error
	requests  []unifiedllm.Request
}

func (b *scriptedBackend) Complete(_ context.Context, req unifiedllm.Request) (*unifiedllm.Response, error) {
	b.requests = append(b.requests, req)
	if b.err != nil {
		return nil, b.err
	}
	if len(b.responses) == 0 {
		return textResponse("Still thinking about it."), nil
	}
	r := b.responses[0]
	b.responses = b.responses[1:]
	return r, nil
}

func textResponse(text string) *unifiedllm.Response {
	return &unifiedllm.Response{Message: unifiedllm.AssistantMessage(text), Done: true}
}

func toolResponse(calls ...unifiedllm.ToolCall) *unifiedllm.Response {
	return &unifiedllm.Response{Message: unifiedllm.AssistantMessage("", calls...), Done: true}
}

func call(name string, args map[string]any) unifiedllm.ToolCall {
	return unifiedllm.ToolCall{ID: "call_" + name, Name: name, Arguments: args}
}

func readCall(path string) unifiedllm.ToolCall {
	return call("read_file", map[string]any{"path": path})
}

func reportCall(path string) unifiedllm.ToolCall {
	return call("report_issue", map[string]any{
		"file_path":   path,
		"line_number": float64(1),
		"severity":    "high",
		"category":    "bug",
		"title":       "Broken",
		"description": "It is broken.",
	})
}

func finishCall() unifiedllm.ToolCall {
	return call("finish_analysis", map[string]any{"summary": "done"})
}

// fakeRepo is an in-memory ToolExecutor and FileCollector.
type fakeRepo struct {
	files       map[string]string
	issues      []ReportedIssue
	executed    []string
	failReports bool
}

func newFakeRepo(files map[string]string) *fakeRepo {
	return &fakeRepo{files: files}
}

func (r *fakeRepo) Execute(_ context.Context, c ToolCall) ToolOutcome {
	r.executed = append(r.executed, c.Name)
	switch a := c.Args.(type) {
	case ReadFileArgs:
		content, ok := r.files[NormalizePath(a.Path)]
		if !ok {
			return Failed("file not found: %s", a.Path)
		}
		return Succeeded(content)
	case ListFilesArgs:
		var names []string
		for p := range r.files {
			names = append(names, p)
		}
		sort.Strings(names)
		return Succeeded(strings.Join(names, "\n"))
	case ReportIssueArgs:
		if r.failReports {
			return Failed("issue store unavailable")
		}
		r.issues = append(r.issues, a.Issue())
		return Succeeded(fmt.Sprintf("Issue recorded: %s", a.FilePath))
	default:
		return Succeeded("ok")
	}
}

func (r *fakeRepo) Issues() []ReportedIssue {
	out := make([]ReportedIssue, len(r.issues))
	copy(out, r.issues)
	return out
}

func (r *fakeRepo) CollectFiles() (map[string]string, error) {
	return r.files, nil
}
