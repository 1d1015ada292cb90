package agentloop

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/yoauditor/unifiedllm"
)

func newTestDispatcher(repo *fakeRepo) (*Dispatcher, *Coverage) {
	cov := NewCoverage()
	return NewDispatcher(repo, cov, NewFinishGuard(), DefaultMaxToolOutput), cov
}

func TestDispatcherUnknownToolDoesNotStopBatch(t *testing.T) {
	repo := newFakeRepo(map[string]string{"a.go": "package a"})
	d, cov := newTestDispatcher(repo)

	res := d.ExecuteBatch(context.Background(), []unifiedllm.ToolCall{
		call("delete_everything", nil),
		readCall("a.go"),
	})

	require.Len(t, res.Messages, 2)
	assert.Equal(t, unifiedllm.RoleTool, res.Messages[0].Role)
	assert.Equal(t, "[delete_everything] Error: Unknown tool: delete_everything", res.Messages[0].Content)
	assert.True(t, strings.HasPrefix(res.Messages[1].Content, "[read_file] package a"))
	assert.Equal(t, []string{"a.go"}, cov.FilesRead())
	assert.False(t, res.Finished)
}

func TestDispatcherInvalidArguments(t *testing.T) {
	d, _ := newTestDispatcher(newFakeRepo(nil))

	res := d.ExecuteBatch(context.Background(), []unifiedllm.ToolCall{call("read_file", map[string]any{})})

	require.Len(t, res.Messages, 1)
	assert.Equal(t, "[read_file] Error: missing required parameter: path", res.Messages[0].Content)
}

func TestDispatcherReadNudgeOnLastSuccessfulRead(t *testing.T) {
	repo := newFakeRepo(map[string]string{"a.go": "A", "b.go": "B"})
	d, cov := newTestDispatcher(repo)

	res := d.ExecuteBatch(context.Background(), []unifiedllm.ToolCall{
		readCall("./a.go"),
		readCall("b.go"),
		readCall("missing.go"),
	})

	require.Len(t, res.Messages, 3)
	assert.Equal(t, "[read_file] A", res.Messages[0].Content)
	assert.Equal(t, "[read_file] B"+fmt.Sprintf(readNudge, "b.go"), res.Messages[1].Content)
	assert.Equal(t, "[read_file] Error: file not found: missing.go", res.Messages[2].Content)
	assert.Equal(t, []string{"a.go", "b.go"}, cov.FilesRead())
}

func TestDispatcherNoReadNudgeWhenBatchReports(t *testing.T) {
	repo := newFakeRepo(map[string]string{"a.go": "A"})
	d, cov := newTestDispatcher(repo)

	res := d.ExecuteBatch(context.Background(), []unifiedllm.ToolCall{readCall("a.go"), reportCall("a.go")})

	require.Len(t, res.Messages, 2)
	assert.Equal(t, "[read_file] A", res.Messages[0].Content)
	assert.Equal(t, "[report_issue] Issue recorded: a.go", res.Messages[1].Content)
	assert.Equal(t, 1, cov.ReportedCount())
}

func TestDispatcherFailedReportStillCountsAsReported(t *testing.T) {
	repo := newFakeRepo(map[string]string{"a.go": "A"})
	repo.failReports = true
	d, cov := newTestDispatcher(repo)

	res := d.ExecuteBatch(context.Background(), []unifiedllm.ToolCall{readCall("a.go"), reportCall("./a.go")})

	require.Len(t, res.Messages, 2)
	assert.Equal(t, "[report_issue] Error: issue store unavailable", res.Messages[1].Content)
	assert.Equal(t, 1, cov.ReportedCount())
	assert.Empty(t, repo.Issues())
}

func TestDispatcherTruncatesOutcomes(t *testing.T) {
	repo := newFakeRepo(map[string]string{"big.go": strings.Repeat("x", 100)})
	cov := NewCoverage()
	d := NewDispatcher(repo, cov, NewFinishGuard(), 10)

	res := d.ExecuteBatch(context.Background(), []unifiedllm.ToolCall{readCall("big.go"), reportCall("big.go")})

	assert.Equal(t, "[read_file] xxxxxxxxxx... [truncated, 100 bytes total]", res.Messages[0].Content)
}

func TestDispatcherDefersFinish(t *testing.T) {
	repo := newFakeRepo(map[string]string{"a.go": "A"})
	d, _ := newTestDispatcher(repo)

	res := d.ExecuteBatch(context.Background(), []unifiedllm.ToolCall{readCall("a.go"), finishCall()})

	assert.False(t, res.Finished)
	assert.Equal(t, 1, res.Deferred)
	assert.Contains(t, res.Messages[1].Content, "[finish_analysis] WAIT - you read 1 files")
	assert.Contains(t, res.Messages[1].Content, "a.go")
}

func TestDispatcherBatchRunsAfterHonoredFinish(t *testing.T) {
	repo := newFakeRepo(map[string]string{"a.go": "A", "b.go": "B"})
	d, cov := newTestDispatcher(repo)

	res := d.ExecuteBatch(context.Background(), []unifiedllm.ToolCall{
		reportCall("a.go"),
		finishCall(),
		readCall("b.go"),
	})

	assert.True(t, res.Finished)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, "[finish_analysis] Analysis finished with 1 issues reported.", res.Messages[1].Content)
	assert.Equal(t, []string{"report_issue", "read_file"}, repo.executed)
	assert.Equal(t, []string{"b.go"}, cov.FilesRead())
}
