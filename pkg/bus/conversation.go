package bus

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conversation is one observed agent-to-agent exchange. Observability
// only; never persisted.
type Conversation struct {
	ConversationID string      `json:"conversation_id"`
	FromAgent      string      `json:"from_agent"`
	ToAgent        string      `json:"to_agent"`
	MessageType    MessageType `json:"message_type"`
	Content        string      `json:"content"`
	Response       string      `json:"response,omitempty"`
	Status         string      `json:"status"`
	StartedAt      time.Time   `json:"started_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
}

// ConversationLog is a bounded, mutex-protected, append-only ring of
// recent conversations.
type ConversationLog struct {
	mu      sync.Mutex
	entries []Conversation
	limit   int
}

// NewConversationLog creates a log bounded to limit entries.
func NewConversationLog(limit int) *ConversationLog {
	if limit <= 0 {
		limit = 256
	}
	return &ConversationLog{limit: limit}
}

// Begin records the start of an exchange and returns its id.
func (l *ConversationLog) Begin(from, to string, msgType MessageType, payload any) string {
	id := uuid.New().String()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Conversation{
		ConversationID: id,
		FromAgent:      from,
		ToAgent:        to,
		MessageType:    msgType,
		Content:        fmt.Sprintf("%+v", payload),
		Status:         "issued",
		StartedAt:      time.Now().UTC(),
	})
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
	return id
}

// Complete records the terminal status of an exchange.
func (l *ConversationLog) Complete(id string, response any, status string) {
	now := time.Now().UTC()
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].ConversationID == id {
			l.entries[i].Status = status
			l.entries[i].CompletedAt = &now
			if response != nil {
				l.entries[i].Response = fmt.Sprintf("%+v", response)
			}
			return
		}
	}
}

// Snapshot returns a copy of the current entries, oldest first.
func (l *ConversationLog) Snapshot() []Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Conversation, len(l.entries))
	copy(out, l.entries)
	return out
}
