package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/soyolab/sns-bridge/internal/domain"
)

type FrameType string

const (
	FrameTypeJoin    FrameType = "JOIN"
	FrameTypeMessage FrameType = "MESSAGE"
	FrameTypeRead    FrameType = "READ"
)

// JoinFrame is the first outbound frame after a chat connection opens.
type JoinFrame struct {
	Type   FrameType `json:"type"`
	RoomID int64     `json:"roomId"`
}

func NewJoinFrame(roomID int64) JoinFrame {
	return JoinFrame{Type: FrameTypeJoin, RoomID: roomID}
}

// SendFrame carries one outbound chat message with its correlation token.
type SendFrame struct {
	Type            FrameType `json:"type"`
	RoomID          int64     `json:"roomId"`
	Message         string    `json:"message"`
	ClientMessageID string    `json:"clientMessageId"`
}

func NewSendFrame(roomID int64, message, clientMessageID string) SendFrame {
	return SendFrame{
		Type:            FrameTypeMessage,
		RoomID:          roomID,
		Message:         message,
		ClientMessageID: clientMessageID,
	}
}

// Inbound is the closed set of frame shapes the chat server delivers.
// Frames with an unknown discriminant decode to UnrecognizedFrame so the
// caller can log and discard them without guessing at fields.
type Inbound interface {
	inbound()
}

type MessageFrame struct {
	MessageID       int64     `json:"messageId"`
	ClientMessageID string    `json:"clientMessageId,omitempty"`
	RoomID          int64     `json:"roomId,omitempty"`
	SenderID        int64     `json:"senderId"`
	Content         string    `json:"content"`
	Timestamp       time.Time `json:"timestamp"`
	UnreadCount     int       `json:"unreadCount"`
}

func (MessageFrame) inbound() {}

func (f MessageFrame) ToMessage() *domain.Message {
	return &domain.Message{
		MessageID:       f.MessageID,
		ClientMessageID: f.ClientMessageID,
		RoomID:          f.RoomID,
		SenderID:        f.SenderID,
		Content:         f.Content,
		Timestamp:       f.Timestamp,
		UnreadCount:     f.UnreadCount,
	}
}

type ReadFrame struct {
	MessageID   int64 `json:"messageId"`
	UnreadCount int   `json:"unreadCount"`
}

func (ReadFrame) inbound() {}

type UnrecognizedFrame struct {
	TypeName string
	Raw      json.RawMessage
}

func (UnrecognizedFrame) inbound() {}

// Decode parses one inbound frame by its type discriminant.
func Decode(data []byte) (Inbound, error) {
	var probe struct {
		Type FrameType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch probe.Type {
	case FrameTypeMessage:
		var f MessageFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return f, nil
	case FrameTypeRead:
		var f ReadFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return f, nil
	default:
		return UnrecognizedFrame{TypeName: string(probe.Type), Raw: append(json.RawMessage(nil), data...)}, nil
	}
}
