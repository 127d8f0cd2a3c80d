package domain

import "time"

// Room is the archive-side rollup of a chat room: last observed message and
// unread count. The live message log is owned by the session controller and
// never read back from the archive.
type Room struct {
	ID                int64
	Name              string
	LastMessageTime   time.Time
	LastMessageText   string
	LastMessageSender string
	UnreadCount       int
}

// ConnState is the lifecycle of one realtime connection. A session instance
// moves Disconnected -> Connecting -> Connected and back to Disconnected on
// teardown; Failed is terminal and reached only when reconnect attempts are
// exhausted.
type ConnState int32

const (
	ConnDisconnected ConnState = iota
	ConnConnecting
	ConnConnected
	ConnFailed
)

func (s ConnState) String() string {
	switch s {
	case ConnDisconnected:
		return "disconnected"
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnFailed:
		return "failed"
	default:
		return "unknown"
	}
}
