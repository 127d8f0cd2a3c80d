package domain

import "time"

type Post struct {
	PostID  int64
	Title   string
	Content string
}

type PostDetail struct {
	PostID     int64
	Title      string
	Content    string
	AuthorName string
}

// InboxMessage is a recent chat message shown on the home feed, as returned
// by the application API rather than the chat transport.
type InboxMessage struct {
	ID         int64
	SenderID   int64
	SenderName string
	Content    string
	SentAt     time.Time
}
