package domain

import "time"

// Message is one entry in a room's message log. MessageID is assigned by the
// server; ClientMessageID is the client-side correlation token attached to
// outbound messages. A Pending message is an optimistic local entry that has
// not yet been confirmed by the server echo. UnreadCount is the only field
// that mutates after the server accepts the message.
type Message struct {
	MessageID       int64
	ClientMessageID string
	RoomID          int64
	SenderID        int64
	Content         string
	Timestamp       time.Time
	UnreadCount     int
	Pending         bool
}

func (m *Message) IsFrom(userID int64) bool {
	return m != nil && m.SenderID == userID
}

type BotRole string

const (
	BotRoleUser BotRole = "user"
	BotRoleBot  BotRole = "bot"
)

// BotTurn is one turn in a bot dialogue. The bot transport carries no
// identifiers or read state, only role-tagged text.
type BotTurn struct {
	Role      BotRole
	Content   string
	Timestamp time.Time
}

func NewUserTurn(content string, at time.Time) *BotTurn {
	return &BotTurn{Role: BotRoleUser, Content: content, Timestamp: at}
}

func NewBotTurn(content string, at time.Time) *BotTurn {
	return &BotTurn{Role: BotRoleBot, Content: content, Timestamp: at}
}
