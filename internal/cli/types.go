package cli

import "time"

// Mode represents the CLI operation mode
type Mode string

const (
	ModeInteractive Mode = "interactive"
	ModeHeadless    Mode = "headless"
)

// Request represents a JSON request in headless mode
type Request struct {
	ID      string                 `json:"id,omitempty"`
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Response represents a JSON response in headless mode
type Response struct {
	ID      string      `json:"id,omitempty"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Event represents a real-time event in headless mode
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// IdentityInfo represents the logged-in user for responses
type IdentityInfo struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// MessageInfo represents a chat message for responses
type MessageInfo struct {
	MessageID       int64     `json:"message_id,omitempty"`
	ClientMessageID string    `json:"client_message_id,omitempty"`
	RoomID          int64     `json:"room_id"`
	SenderID        int64     `json:"sender_id"`
	Content         string    `json:"content"`
	Timestamp       time.Time `json:"timestamp"`
	UnreadCount     int       `json:"unread_count"`
	Pending         bool      `json:"pending,omitempty"`
	IsFromMe        bool      `json:"is_from_me"`
}

// BotTurnInfo represents one bot dialogue turn for responses
type BotTurnInfo struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// RoomInfo represents an archived room rollup for responses
type RoomInfo struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	UnreadCount       int       `json:"unread_count"`
	LastMessageText   string    `json:"last_message_text,omitempty"`
	LastMessageSender string    `json:"last_message_sender,omitempty"`
	LastMessageTime   time.Time `json:"last_message_time,omitempty"`
}

// PostInfo represents a feed post for responses
type PostInfo struct {
	PostID  int64  `json:"post_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author,omitempty"`
}

// InboxInfo represents a recent chat message from the home feed
type InboxInfo struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sent_at"`
}

// ConnectionStatus represents room connection status for responses
type ConnectionStatus struct {
	RoomID   int64  `json:"room_id,omitempty"`
	LoggedIn bool   `json:"logged_in"`
	ChatConn string `json:"chat_connection"`
	BotConn  string `json:"bot_connection"`
	Status   string `json:"status"`
}
