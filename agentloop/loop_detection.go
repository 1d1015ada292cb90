package agentloop

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/martinemde/yoauditor/unifiedllm"
)

// maxLoopPeriod is the longest repeating cycle of tool calls recognised.
const maxLoopPeriod = 3

// LoopDetector remembers the most recent tool calls of a session and
// reports when they cycle with a period of up to three calls.
type LoopDetector struct {
	window int
	recent []string
}

// NewLoopDetector watches the last window tool calls.
func NewLoopDetector(window int) *LoopDetector {
	return &LoopDetector{window: window}
}

// Observe records a batch of calls and reports whether the window is now
// full of a repeating cycle. A detected loop clears the history so the
// warning is not repeated on the next batch.
func (d *LoopDetector) Observe(calls []unifiedllm.ToolCall) bool {
	if d.window <= 0 {
		return false
	}
	for _, c := range calls {
		d.recent = append(d.recent, callFingerprint(c))
	}
	if over := len(d.recent) - d.window; over > 0 {
		d.recent = append(d.recent[:0], d.recent[over:]...)
	}
	if !cycles(d.recent, d.window) {
		return false
	}
	d.recent = d.recent[:0]
	return true
}

// Warning is appended to the last tool outcome of a looping batch.
func (d *LoopDetector) Warning() string {
	return fmt.Sprintf("\n\nLoop detected: the last %d tool calls follow a repeating pattern. "+
		"Read a file you have not read yet, report issues, or call finish_analysis.", d.window)
}

// callFingerprint identifies a call by name and argument digest. Map keys
// are marshalled in sorted order, so argument order does not matter.
func callFingerprint(c unifiedllm.ToolCall) string {
	raw, err := json.Marshal(c.Arguments)
	if err != nil {
		raw = fmt.Appendf(nil, "%v", c.Arguments)
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%s:%x", c.Name, sum[:8])
}

// cycles reports whether fps holds exactly window entries and every entry
// equals the one p positions before it for some period p dividing window.
// The cycle must repeat at least twice within the window.
func cycles(fps []string, window int) bool {
	if len(fps) != window {
		return false
	}
	for p := 1; p <= maxLoopPeriod && 2*p <= window; p++ {
		if window%p != 0 {
			continue
		}
		periodic := true
		for i := p; i < window; i++ {
			if fps[i] != fps[i-p] {
				periodic = false
				break
			}
		}
		if periodic {
			return true
		}
	}
	return false
}
