package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyolab/sns-bridge/internal/domain"
)

func msg(id int64, sender int64, content string) *domain.Message {
	return &domain.Message{
		MessageID: id,
		RoomID:    1,
		SenderID:  sender,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func TestMessageLogReplace(t *testing.T) {
	log := NewMessageLog()
	log.AppendPending(&domain.Message{ClientMessageID: "tok", Content: "stale"})

	log.Replace([]*domain.Message{
		msg(1, 2, "hello"),
		msg(2, 3, "hi"),
	})

	snapshot := log.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "hello", snapshot[0].Content)
	assert.Equal(t, "hi", snapshot[1].Content)

	// The stale pending token must not survive the swap.
	stored, changed := log.Reconcile(&domain.Message{MessageID: 3, ClientMessageID: "tok", Content: "echo"})
	require.True(t, changed)
	assert.Equal(t, int64(3), stored.MessageID)
	assert.Equal(t, 3, log.Len())
}

func TestMessageLogReconcileAppends(t *testing.T) {
	log := NewMessageLog()
	log.Replace([]*domain.Message{msg(1, 2, "hello")})

	stored, changed := log.Reconcile(msg(2, 3, "new"))
	require.True(t, changed)
	assert.Equal(t, int64(2), stored.MessageID)
	assert.False(t, stored.Pending)
	assert.Equal(t, 2, log.Len())
}

func TestMessageLogReconcileConfirmsPendingInPlace(t *testing.T) {
	log := NewMessageLog()
	log.Replace([]*domain.Message{msg(1, 2, "hello")})

	log.AppendPending(&domain.Message{
		ClientMessageID: "tok-1",
		RoomID:          1,
		SenderID:        9,
		Content:         "mine",
	})
	require.Equal(t, 2, log.Len())

	echo := msg(5, 9, "mine")
	echo.ClientMessageID = "tok-1"
	stored, changed := log.Reconcile(echo)
	require.True(t, changed)

	// Confirmed in place: same position, no duplicate entry.
	snapshot := log.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, int64(5), snapshot[1].MessageID)
	assert.False(t, snapshot[1].Pending)
	assert.Equal(t, stored.MessageID, snapshot[1].MessageID)

	// A redelivery of the same echo is a duplicate now.
	_, changed = log.Reconcile(echo)
	assert.False(t, changed)
	assert.Equal(t, 2, log.Len())
}

func TestMessageLogReconcileDuplicateDelivery(t *testing.T) {
	log := NewMessageLog()
	log.Replace([]*domain.Message{msg(1, 2, "hello")})

	_, changed := log.Reconcile(msg(1, 2, "hello"))
	assert.False(t, changed)
	assert.Equal(t, 1, log.Len())
}

func TestMessageLogApplyRead(t *testing.T) {
	log := NewMessageLog()
	first := msg(1, 2, "hello")
	first.UnreadCount = 2
	second := msg(2, 2, "hi")
	second.UnreadCount = 2
	log.Replace([]*domain.Message{first, second})

	// Only the addressed entry changes.
	assert.True(t, log.ApplyRead(1, 0))
	snapshot := log.Snapshot()
	assert.Equal(t, 0, snapshot[0].UnreadCount)
	assert.Equal(t, 2, snapshot[1].UnreadCount)
	assert.Equal(t, 2, log.Len())
}

func TestMessageLogApplyReadUnmatched(t *testing.T) {
	log := NewMessageLog()
	log.Replace([]*domain.Message{msg(1, 2, "hello")})

	assert.False(t, log.ApplyRead(99, 0))
	snapshot := log.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, 0, snapshot[0].UnreadCount)
}

func TestMessageLogSnapshotIsCopy(t *testing.T) {
	log := NewMessageLog()
	log.Replace([]*domain.Message{msg(1, 2, "hello")})

	snapshot := log.Snapshot()
	snapshot[0].Content = "mutated"

	assert.Equal(t, "hello", log.Snapshot()[0].Content)
}
