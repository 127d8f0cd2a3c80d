package repository

import (
	"time"

	"github.com/soyolab/sns-bridge/internal/domain"
)

type MessageModel struct {
	MessageID       int64     `gorm:"primaryKey;column:message_id"`
	ClientMessageID string    `gorm:"column:client_message_id"`
	RoomID          int64     `gorm:"column:room_id;index:idx_room_timestamp"`
	SenderID        int64     `gorm:"column:sender_id"`
	Content         string    `gorm:"column:content"`
	Timestamp       time.Time `gorm:"column:timestamp;index:idx_room_timestamp"`
	UnreadCount     int       `gorm:"column:unread_count"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (MessageModel) TableName() string { return "messages" }

type RoomModel struct {
	ID                int64     `gorm:"primaryKey;column:id"`
	Name              string    `gorm:"column:name"`
	LastMessageTime   time.Time `gorm:"column:last_message_time;index"`
	LastMessageText   string    `gorm:"column:last_message_text"`
	LastMessageSender string    `gorm:"column:last_message_sender"`
	UnreadCount       int       `gorm:"column:unread_count"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (RoomModel) TableName() string { return "rooms" }

// Conversion functions
func MessageModelToDomain(m *MessageModel) *domain.Message {
	if m == nil {
		return nil
	}

	return &domain.Message{
		MessageID:       m.MessageID,
		ClientMessageID: m.ClientMessageID,
		RoomID:          m.RoomID,
		SenderID:        m.SenderID,
		Content:         m.Content,
		Timestamp:       m.Timestamp,
		UnreadCount:     m.UnreadCount,
	}
}

func MessageDomainToModel(msg *domain.Message) *MessageModel {
	if msg == nil {
		return nil
	}

	return &MessageModel{
		MessageID:       msg.MessageID,
		ClientMessageID: msg.ClientMessageID,
		RoomID:          msg.RoomID,
		SenderID:        msg.SenderID,
		Content:         msg.Content,
		Timestamp:       msg.Timestamp,
		UnreadCount:     msg.UnreadCount,
	}
}

func RoomModelToDomain(m *RoomModel) *domain.Room {
	if m == nil {
		return nil
	}

	return &domain.Room{
		ID:                m.ID,
		Name:              m.Name,
		LastMessageTime:   m.LastMessageTime,
		LastMessageText:   m.LastMessageText,
		LastMessageSender: m.LastMessageSender,
		UnreadCount:       m.UnreadCount,
	}
}

func RoomDomainToModel(room *domain.Room) *RoomModel {
	if room == nil {
		return nil
	}

	return &RoomModel{
		ID:                room.ID,
		Name:              room.Name,
		LastMessageTime:   room.LastMessageTime,
		LastMessageText:   room.LastMessageText,
		LastMessageSender: room.LastMessageSender,
		UnreadCount:       room.UnreadCount,
	}
}
