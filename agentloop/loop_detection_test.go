package agentloop

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/martinemde/yoauditor/unifiedllm"
)

func TestCycles(t *testing.T) {
	tests := []struct {
		name   string
		fps    []string
		window int
		want   bool
	}{
		{"same call", []string{"a", "a", "a", "a"}, 4, true},
		{"period two", []string{"a", "b", "a", "b"}, 4, true},
		{"period three", []string{"a", "b", "c", "a", "b", "c"}, 6, true},
		{"broken tail", []string{"a", "b", "c", "c"}, 4, false},
		{"window not full", []string{"a", "a"}, 4, false},
		{"period four is too long", []string{"a", "b", "c", "d", "a", "b", "c", "d"}, 8, false},
		{"distinct calls fill a small window", []string{"a", "b", "c"}, 3, false},
		{"period equal to window", []string{"a", "b"}, 2, false},
		{"repeat in a window of two", []string{"a", "a"}, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cycles(tt.fps, tt.window))
		})
	}
}

func TestLoopDetectorObserve(t *testing.T) {
	d := NewLoopDetector(3)
	list := call("list_files", map[string]any{"directory": "."})

	assert.False(t, d.Observe([]unifiedllm.ToolCall{list, list}))
	assert.True(t, d.Observe([]unifiedllm.ToolCall{list}))
	// history is cleared after a detection
	assert.False(t, d.Observe([]unifiedllm.ToolCall{list}))

	assert.Contains(t, d.Warning(), "last 3 tool calls")
}

func TestLoopDetectorDistinctCalls(t *testing.T) {
	d := NewLoopDetector(3)
	assert.False(t, d.Observe([]unifiedllm.ToolCall{readCall("a.go"), readCall("b.go"), readCall("c.go")}))
}

func TestLoopDetectorSlidesWindow(t *testing.T) {
	d := NewLoopDetector(4)
	a, b, c := readCall("a.go"), readCall("b.go"), readCall("c.go")

	// a b a c: no cycle yet
	assert.False(t, d.Observe([]unifiedllm.ToolCall{a, b, a, c}))
	// the oldest calls fall out, leaving a c a c
	assert.True(t, d.Observe([]unifiedllm.ToolCall{a, c}))
}

func TestLoopDetectorDisabled(t *testing.T) {
	d := NewLoopDetector(0)
	assert.False(t, d.Observe([]unifiedllm.ToolCall{readCall("a.go"), readCall("a.go")}))
}

func TestCallFingerprintIgnoresKeyOrder(t *testing.T) {
	x := callFingerprint(unifiedllm.ToolCall{Name: "search_code", Arguments: map[string]any{"pattern": "x", "max_results": 3}})
	y := callFingerprint(unifiedllm.ToolCall{Name: "search_code", Arguments: map[string]any{"max_results": 3, "pattern": "x"}})
	assert.Equal(t, x, y)
	assert.NotEqual(t, x, callFingerprint(unifiedllm.ToolCall{Name: "read_file", Arguments: map[string]any{"pattern": "x", "max_results": 3}}))
}
