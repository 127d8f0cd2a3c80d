package session

import (
	"sync"

	"github.com/soyolab/sns-bridge/internal/domain"
)

// MessageLog is the append-ordered message list for one mounted session.
// Order reflects wire arrival, never timestamps. Confirmed entries are
// indexed by server message id, pending optimistic entries by their
// client message id.
type MessageLog struct {
	mu      sync.RWMutex
	entries []*domain.Message
	byID    map[int64]int
	byToken map[string]int
}

func NewMessageLog() *MessageLog {
	return &MessageLog{
		byID:    make(map[int64]int),
		byToken: make(map[string]int),
	}
}

// Replace swaps the whole log for a freshly fetched history snapshot.
func (l *MessageLog) Replace(msgs []*domain.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make([]*domain.Message, 0, len(msgs))
	l.byID = make(map[int64]int, len(msgs))
	l.byToken = make(map[string]int)

	for _, m := range msgs {
		cp := *m
		l.entries = append(l.entries, &cp)
		if cp.MessageID != 0 {
			l.byID[cp.MessageID] = len(l.entries) - 1
		}
	}
}

// AppendPending adds an optimistic local entry awaiting its server echo.
func (l *MessageLog) AppendPending(msg *domain.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cp := *msg
	cp.Pending = true
	l.entries = append(l.entries, &cp)
	if cp.ClientMessageID != "" {
		l.byToken[cp.ClientMessageID] = len(l.entries) - 1
	}
}

// Reconcile applies a server-confirmed message. An echo carrying the client
// message id of a pending entry confirms that entry in place; a message id
// already present is a duplicate delivery and changes nothing; anything else
// is appended. Returns the stored entry and whether the log changed.
func (l *MessageLog) Reconcile(msg *domain.Message) (*domain.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if msg.ClientMessageID != "" {
		if idx, ok := l.byToken[msg.ClientMessageID]; ok {
			entry := l.entries[idx]
			entry.MessageID = msg.MessageID
			entry.SenderID = msg.SenderID
			entry.Content = msg.Content
			entry.Timestamp = msg.Timestamp
			entry.UnreadCount = msg.UnreadCount
			entry.Pending = false
			if entry.MessageID != 0 {
				l.byID[entry.MessageID] = idx
			}
			delete(l.byToken, msg.ClientMessageID)
			return entry, true
		}
	}

	if msg.MessageID != 0 {
		if _, ok := l.byID[msg.MessageID]; ok {
			return nil, false
		}
	}

	cp := *msg
	cp.Pending = false
	l.entries = append(l.entries, &cp)
	if cp.MessageID != 0 {
		l.byID[cp.MessageID] = len(l.entries) - 1
	}
	return &cp, true
}

// ApplyRead replaces the unread count of the entry with the given message id.
// Unmatched ids are a no-op; nothing else changes either way.
func (l *MessageLog) ApplyRead(messageID int64, unreadCount int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.byID[messageID]
	if !ok {
		return false
	}
	l.entries[idx].UnreadCount = unreadCount
	return true
}

func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot returns a copy of the log in arrival order.
func (l *MessageLog) Snapshot() []domain.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Message, len(l.entries))
	for i, m := range l.entries {
		out[i] = *m
	}
	return out
}
