package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/soyolab/sns-bridge/internal/domain"
)

type botTurnDTO struct {
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type botHistoryResponse struct {
	History []botTurnDTO `json:"history"`
}

// BotHistory fetches the bot dialogue history for a room. The bot service
// replies with a bare {"history": [...]} body rather than the envelope.
func (c *Client) BotHistory(ctx context.Context, roomID int64) ([]*domain.BotTurn, error) {
	body, err := c.doRaw(ctx, http.MethodGet, c.botBaseURL, fmt.Sprintf("/history?room_id=%d", roomID), nil)
	if err != nil {
		return nil, err
	}

	var resp botHistoryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse bot history: %w", err)
	}

	turns := make([]*domain.BotTurn, len(resp.History))
	for i, t := range resp.History {
		role := domain.BotRoleUser
		if t.Type == string(domain.BotRoleBot) {
			role = domain.BotRoleBot
		}
		turns[i] = &domain.BotTurn{Role: role, Content: t.Content, Timestamp: t.Timestamp}
	}
	return turns, nil
}
