package agentloop

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateOutput(t *testing.T) {
	long := strings.Repeat("a", 10000)
	got := TruncateOutput(long, DefaultMaxToolOutput)
	assert.Equal(t, strings.Repeat("a", 8000)+"... [truncated, 10000 bytes total]", got)

	short := strings.Repeat("b", 8000)
	assert.Equal(t, short, TruncateOutput(short, DefaultMaxToolOutput))

	assert.Equal(t, long, TruncateOutput(long, 0))
}

func TestTruncateOutputKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("é", 10) // two bytes each
	got := TruncateOutput(s, 5)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasPrefix(got, "éé..."))
	assert.Contains(t, got, "[truncated, 20 bytes total]")
}
