package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/soyolab/sns-bridge/internal/domain"
)

type historyMessageDTO struct {
	MessageID       int64     `json:"messageId"`
	ClientMessageID string    `json:"clientMessageId"`
	RoomID          int64     `json:"roomId"`
	SenderID        int64     `json:"senderId"`
	Content         string    `json:"content"`
	Timestamp       time.Time `json:"timestamp"`
	UnreadCount     *int      `json:"unreadCount"`
}

// RoomHistory fetches the ordered message history for a room from the chat
// service. Entries without an unreadCount default to 0.
func (c *Client) RoomHistory(ctx context.Context, roomID int64) ([]*domain.Message, error) {
	var dtos []historyMessageDTO
	endpoint := fmt.Sprintf("/chat/history?room_id=%d", roomID)
	if err := c.doRequest(ctx, http.MethodGet, c.chatBaseURL, endpoint, nil, &dtos); err != nil {
		return nil, err
	}

	messages := make([]*domain.Message, len(dtos))
	for i, d := range dtos {
		unread := 0
		if d.UnreadCount != nil {
			unread = *d.UnreadCount
		}
		messages[i] = &domain.Message{
			MessageID:       d.MessageID,
			ClientMessageID: d.ClientMessageID,
			RoomID:          d.RoomID,
			SenderID:        d.SenderID,
			Content:         d.Content,
			Timestamp:       d.Timestamp,
			UnreadCount:     unread,
		}
	}
	return messages, nil
}

// EnterRoom notifies the chat service that the user entered a room. Callers
// treat failures as non-fatal.
func (c *Client) EnterRoom(ctx context.Context, roomID int64) error {
	return c.doRequest(ctx, http.MethodPost, c.chatBaseURL, fmt.Sprintf("/chat/room/%d/enter", roomID), nil, nil)
}
