package agentloop

import "github.com/martinemde/yoauditor/unifiedllm"

// AnchorCount is the number of leading messages pruning never removes: the
// system instructions and the initial directive.
const AnchorCount = 2

// Conversation is the ordered message log of one iterative session.
type Conversation struct {
	messages []unifiedllm.Message
}

// NewConversation starts a conversation with its two anchors.
func NewConversation(system, directive string) *Conversation {
	return &Conversation{
		messages: []unifiedllm.Message{
			unifiedllm.SystemMessage(system),
			unifiedllm.UserMessage(directive),
		},
	}
}

// Append adds messages in order.
func (c *Conversation) Append(msgs ...unifiedllm.Message) {
	c.messages = append(c.messages, msgs...)
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []unifiedllm.Message {
	out := make([]unifiedllm.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Last returns the newest message.
func (c *Conversation) Last() unifiedllm.Message {
	return c.messages[len(c.messages)-1]
}

// Prune bounds the log to maxContext messages plus the anchors and returns
// how many messages were dropped.
func (c *Conversation) Prune(maxContext int) int {
	before := len(c.messages)
	c.messages = PruneMessages(c.messages, AnchorCount, maxContext+AnchorCount)
	return before - len(c.messages)
}

// PruneMessages returns msgs with the oldest messages after the first keep
// removed, contiguously, until at most maxLen remain. The first keep messages
// always survive. msgs is not modified.
func PruneMessages(msgs []unifiedllm.Message, keep, maxLen int) []unifiedllm.Message {
	if keep < 0 {
		keep = 0
	}
	if keep > len(msgs) {
		keep = len(msgs)
	}
	if maxLen < keep {
		maxLen = keep
	}
	if len(msgs) <= maxLen {
		out := make([]unifiedllm.Message, len(msgs))
		copy(out, msgs)
		return out
	}

	remove := len(msgs) - maxLen
	out := make([]unifiedllm.Message, 0, maxLen)
	out = append(out, msgs[:keep]...)
	out = append(out, msgs[keep+remove:]...)
	return out
}
