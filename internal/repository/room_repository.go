package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soyolab/sns-bridge/internal/domain"
)

type gormRoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &gormRoomRepository{db: db}
}

func (r *gormRoomRepository) Upsert(ctx context.Context, room *domain.Room) error {
	model := RoomDomainToModel(room)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

func (r *gormRoomRepository) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	var model RoomModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return RoomModelToDomain(&model), nil
}

func (r *gormRoomRepository) GetAll(ctx context.Context, limit, offset int) ([]*domain.Room, error) {
	var models []RoomModel
	query := r.db.WithContext(ctx).Order("last_message_time DESC")

	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	rooms := make([]*domain.Room, len(models))
	for i := range models {
		rooms[i] = RoomModelToDomain(&models[i])
	}
	return rooms, nil
}

func (r *gormRoomRepository) UpdateLastMessage(ctx context.Context, id int64, text, sender string, timestamp time.Time) error {
	return r.db.WithContext(ctx).
		Model(&RoomModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message_text":   text,
			"last_message_sender": sender,
			"last_message_time":   timestamp,
		}).Error
}

func (r *gormRoomRepository) UpdateUnreadCount(ctx context.Context, id int64, count int) error {
	return r.db.WithContext(ctx).
		Model(&RoomModel{}).
		Where("id = ?", id).
		Update("unread_count", count).Error
}

func (r *gormRoomRepository) IncrementUnreadCount(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&RoomModel{}).
		Where("id = ?", id).
		UpdateColumn("unread_count", gorm.Expr("unread_count + ?", 1)).Error
}

func (r *gormRoomRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&RoomModel{}).Error
}
