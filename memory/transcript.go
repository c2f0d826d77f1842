package memory

import (
	"errors"
	"strings"
)

// Role tags the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrEmptyContent is returned by Append for blank messages.
var ErrEmptyContent = errors.New("memory: empty message content")

// Message is one turn of the conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System, User and Assistant build messages for the matching role.
func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Transcript is the ordered message history of one session.
// It is not safe for concurrent use; Snapshot hands out copies.
type Transcript struct {
	msgs []Message
}

// NewTranscript returns a transcript seeded with the system prompt, if any.
func NewTranscript(systemPrompt string) *Transcript {
	t := &Transcript{}
	t.Reset(systemPrompt)
	return t
}

// Append adds m to the end of the transcript.
func (t *Transcript) Append(m Message) error {
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	t.msgs = append(t.msgs, m)
	return nil
}

// Reset replaces the whole history with a single system message, or with
// nothing when systemPrompt is blank.
func (t *Transcript) Reset(systemPrompt string) {
	if strings.TrimSpace(systemPrompt) == "" {
		t.msgs = nil
		return
	}
	t.msgs = []Message{System(systemPrompt)}
}

// Snapshot returns a copy of the history in submission order.
func (t *Transcript) Snapshot() []Message {
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// Len reports the number of messages held.
func (t *Transcript) Len() int { return len(t.msgs) }
