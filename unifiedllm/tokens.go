package unifiedllm

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter estimates prompt sizes. Local models use their own
// vocabularies; the GPT-4 encoding is close enough to warn before a prompt
// overflows a context window.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter creates a counter using the GPT-4 encoding.
func NewTokenCounter() (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("create tokenizer codec: %w", err)
	}
	return &TokenCounter{codec: codec}, nil
}

// Count returns the number of tokens in text. A nil counter or a codec
// failure falls back to four characters per token.
func (tc *TokenCounter) Count(text string) int {
	if tc == nil || tc.codec == nil {
		return len(text) / 4
	}
	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// CountMessages sums Count over the content of every message.
func (tc *TokenCounter) CountMessages(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += tc.Count(m.Content)
	}
	return total
}
