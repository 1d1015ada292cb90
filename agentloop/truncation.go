package agentloop

import (
	"fmt"
	"unicode/utf8"
)

// DefaultMaxToolOutput is the truncation ceiling for one tool outcome, in
// bytes.
const DefaultMaxToolOutput = 8000

// TruncateOutput keeps the first maxBytes of output and annotates the
// original size. The cut never splits a UTF-8 sequence. maxBytes <= 0
// disables truncation.
func TruncateOutput(output string, maxBytes int) string {
	if maxBytes <= 0 || len(output) <= maxBytes {
		return output
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(output[cut]) {
		cut--
	}
	return fmt.Sprintf("%s... [truncated, %d bytes total]", output[:cut], len(output))
}
