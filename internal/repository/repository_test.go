package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/soyolab/sns-bridge/internal/domain"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&MessageModel{}, &RoomModel{}))
	return db
}

func archived(id, roomID int64, content string, at time.Time) *domain.Message {
	return &domain.Message{
		MessageID: id,
		RoomID:    roomID,
		SenderID:  2,
		Content:   content,
		Timestamp: at,
	}
}

func TestMessageCreateOrIgnore(t *testing.T) {
	repo := NewMessageRepository(testDB(t))
	ctx := context.Background()
	now := time.Now()

	msg := archived(1, 7, "hello", now)
	require.NoError(t, repo.CreateOrIgnore(ctx, msg))

	// Redelivery of the same message id is silently skipped.
	dup := archived(1, 7, "hello again", now)
	require.NoError(t, repo.CreateOrIgnore(ctx, dup))

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.Content)
}

func TestMessageGetByIDMissing(t *testing.T) {
	repo := NewMessageRepository(testDB(t))

	got, err := repo.GetByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMessageGetByRoomOrdering(t *testing.T) {
	repo := NewMessageRepository(testDB(t))
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	require.NoError(t, repo.CreateOrIgnore(ctx, archived(1, 7, "oldest", base)))
	require.NoError(t, repo.CreateOrIgnore(ctx, archived(2, 7, "newest", base.Add(2*time.Minute))))
	require.NoError(t, repo.CreateOrIgnore(ctx, archived(3, 7, "middle", base.Add(time.Minute))))
	require.NoError(t, repo.CreateOrIgnore(ctx, archived(4, 8, "other room", base)))

	msgs, err := repo.GetByRoom(ctx, 7, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "newest", msgs[0].Content)
	assert.Equal(t, "middle", msgs[1].Content)
	assert.Equal(t, "oldest", msgs[2].Content)
}

func TestMessageUpdateUnreadCount(t *testing.T) {
	repo := NewMessageRepository(testDB(t))
	ctx := context.Background()

	msg := archived(1, 7, "hello", time.Now())
	msg.UnreadCount = 2
	require.NoError(t, repo.CreateOrIgnore(ctx, msg))

	require.NoError(t, repo.UpdateUnreadCount(ctx, 1, 0))

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCount)
}

func TestMessageSearchEscapesWildcards(t *testing.T) {
	repo := NewMessageRepository(testDB(t))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.CreateOrIgnore(ctx, archived(1, 7, "100% sure", now)))
	require.NoError(t, repo.CreateOrIgnore(ctx, archived(2, 7, "100 percent", now)))

	msgs, err := repo.Search(ctx, "100%", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "100% sure", msgs[0].Content)
}

func TestMessageDeleteByRoom(t *testing.T) {
	repo := NewMessageRepository(testDB(t))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.CreateOrIgnore(ctx, archived(1, 7, "a", now)))
	require.NoError(t, repo.CreateOrIgnore(ctx, archived(2, 8, "b", now)))

	require.NoError(t, repo.DeleteByRoom(ctx, 7))

	gone, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestRoomUpsertAndRollup(t *testing.T) {
	repo := NewRoomRepository(testDB(t))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Upsert(ctx, &domain.Room{ID: 7, Name: "General"}))

	// Upsert on an existing id updates in place.
	require.NoError(t, repo.Upsert(ctx, &domain.Room{ID: 7, Name: "General (renamed)"}))

	require.NoError(t, repo.UpdateLastMessage(ctx, 7, "latest text", "me", now))
	require.NoError(t, repo.IncrementUnreadCount(ctx, 7))
	require.NoError(t, repo.IncrementUnreadCount(ctx, 7))

	room, err := repo.GetByID(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, "General (renamed)", room.Name)
	assert.Equal(t, "latest text", room.LastMessageText)
	assert.Equal(t, "me", room.LastMessageSender)
	assert.Equal(t, 2, room.UnreadCount)

	require.NoError(t, repo.UpdateUnreadCount(ctx, 7, 0))
	room, err = repo.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, room.UnreadCount)
}

func TestRoomGetAllOrdersByActivity(t *testing.T) {
	repo := NewRoomRepository(testDB(t))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Upsert(ctx, &domain.Room{ID: 1, Name: "stale", LastMessageTime: now.Add(-time.Hour)}))
	require.NoError(t, repo.Upsert(ctx, &domain.Room{ID: 2, Name: "active", LastMessageTime: now}))

	rooms, err := repo.GetAll(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "active", rooms[0].Name)
	assert.Equal(t, "stale", rooms[1].Name)
}

func TestRoomDelete(t *testing.T) {
	repo := NewRoomRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &domain.Room{ID: 7, Name: "General"}))
	require.NoError(t, repo.Delete(ctx, 7))

	room, err := repo.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, room)
}
