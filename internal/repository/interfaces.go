package repository

import (
	"context"
	"time"

	"github.com/soyolab/sns-bridge/internal/domain"
)

// MessageRepository archives server-confirmed messages observed on the wire.
// The live message log is never rebuilt from this store.
type MessageRepository interface {
	CreateOrIgnore(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	GetByRoom(ctx context.Context, roomID int64, limit, offset int) ([]*domain.Message, error)
	UpdateUnreadCount(ctx context.Context, id int64, unreadCount int) error
	Search(ctx context.Context, query string, limit int) ([]*domain.Message, error)
	DeleteByRoom(ctx context.Context, roomID int64) error
}

type RoomRepository interface {
	Upsert(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
	GetAll(ctx context.Context, limit, offset int) ([]*domain.Room, error)
	UpdateLastMessage(ctx context.Context, id int64, text, sender string, timestamp time.Time) error
	UpdateUnreadCount(ctx context.Context, id int64, count int) error
	IncrementUnreadCount(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}
