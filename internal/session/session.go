package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/soyolab/sns-bridge/internal/domain"
	"github.com/soyolab/sns-bridge/internal/logger"
	"github.com/soyolab/sns-bridge/internal/realtime"
)

var (
	ErrNotConnected = errors.New("session: not connected")
	ErrEmptyMessage = errors.New("session: empty message")
)

// ChatAPI is the slice of the backend client the session depends on.
type ChatAPI interface {
	RoomHistory(ctx context.Context, roomID int64) ([]*domain.Message, error)
	EnterRoom(ctx context.Context, roomID int64) error
}

const (
	reconnectBaseDelay   = time.Second
	reconnectMaxDelay    = 30 * time.Second
	reconnectMaxAttempts = 5
)

// Session owns one realtime connection to one chat room: it synchronizes the
// history snapshot, applies live frames to its message log, and provides the
// send operation. A session is single-use; a room change is a Close plus a
// fresh instance, owned by the service layer.
type Session struct {
	roomID   int64
	identity domain.Identity
	api      ChatAPI
	dialer   realtime.Dialer
	wsURL    string
	bus      domain.EventBus
	msgLog   *MessageLog
	zlog     zerolog.Logger

	mu     sync.Mutex
	conn   realtime.Conn
	state  domain.ConnState
	closed bool

	done chan struct{}
}

// New creates a session for one room. Both preconditions of the startup
// protocol are enforced here: without a room and an identity there is
// nothing to mount.
func New(roomID int64, identity domain.Identity, apiClient ChatAPI, dialer realtime.Dialer, wsURL string, bus domain.EventBus) (*Session, error) {
	if roomID == 0 {
		return nil, errors.New("session: room id required")
	}
	if identity.UserID == 0 {
		return nil, errors.New("session: identity required")
	}

	return &Session{
		roomID:   roomID,
		identity: identity,
		api:      apiClient,
		dialer:   dialer,
		wsURL:    wsURL,
		bus:      bus,
		msgLog:   NewMessageLog(),
		zlog:     logger.Module("session").With().Int64("room", roomID).Logger(),
		done:     make(chan struct{}),
	}, nil
}

// Start runs the startup protocol: best-effort enter notification, history
// snapshot, then the connection loop. The connection only opens after the
// history fetch has resolved, so live frames can never race the snapshot on
// first connect. Start returns once the connection loop is running.
func (s *Session) Start(ctx context.Context) {
	if err := s.api.EnterRoom(ctx, s.roomID); err != nil {
		s.zlog.Warn().Err(err).Msg("enter room notification failed")
	}

	history, err := s.api.RoomHistory(ctx, s.roomID)
	if err != nil {
		s.zlog.Warn().Err(err).Msg("history fetch failed, starting with empty log")
	} else if !s.alive() {
		// Torn down while the fetch was in flight; the stale result
		// must not touch the log.
		return
	} else {
		s.msgLog.Replace(history)
	}

	if !s.alive() {
		return
	}

	go s.run(ctx)
}

// run owns the connection lifecycle: dial, JOIN, read until the connection
// drops, then reconnect with bounded exponential backoff. Exhausting the
// attempt budget is terminal.
func (s *Session) run(ctx context.Context) {
	attempt := 0
	delay := reconnectBaseDelay

	for {
		if !s.alive() || ctx.Err() != nil {
			return
		}

		s.transition(domain.ConnConnecting, "")

		conn, err := s.dialer.Dial(ctx, s.wsURL, nil)
		if err != nil {
			attempt++
			s.zlog.Error().Err(err).Int("attempt", attempt).Msg("dial failed")
			if attempt >= reconnectMaxAttempts {
				s.transition(domain.ConnFailed, "reconnect attempts exhausted")
				return
			}
			s.transition(domain.ConnDisconnected, err.Error())
			select {
			case <-time.After(delay):
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}

		if !s.adopt(conn) {
			conn.Close()
			return
		}

		s.transition(domain.ConnConnected, "")

		// JOIN must be the first outbound frame on a fresh connection.
		if err := conn.WriteJSON(realtime.NewJoinFrame(s.roomID)); err != nil {
			s.zlog.Error().Err(err).Msg("failed to send JOIN")
			conn.Close()
			s.transition(domain.ConnDisconnected, "join failed")
			attempt++
			continue
		}

		s.readLoop(conn)

		if !s.alive() {
			return
		}
		s.transition(domain.ConnDisconnected, "connection lost")
		attempt = 1
		delay = reconnectBaseDelay
		select {
		case <-time.After(delay):
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// adopt installs a freshly dialed connection unless the session was closed
// while dialing.
func (s *Session) adopt(conn realtime.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conn = conn
	return true
}

func (s *Session) readLoop(conn realtime.Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if s.alive() {
				s.zlog.Warn().Err(err).Msg("read failed")
			}
			return
		}
		s.handleFrame(data)
	}
}

// handleFrame applies one inbound frame to the log. Malformed and
// unrecognized frames are logged and discarded; they never affect the
// connection state.
func (s *Session) handleFrame(data []byte) {
	if !s.alive() {
		return
	}

	frame, err := realtime.Decode(data)
	if err != nil {
		s.zlog.Warn().Err(err).Msg("discarding inbound frame")
		return
	}

	switch f := frame.(type) {
	case realtime.MessageFrame:
		msg := f.ToMessage()
		if msg.RoomID == 0 {
			msg.RoomID = s.roomID
		}
		stored, changed := s.msgLog.Reconcile(msg)
		if !changed {
			s.zlog.Debug().Int64("message_id", msg.MessageID).Msg("duplicate delivery ignored")
			return
		}
		cp := *stored
		s.bus.Publish(domain.MessageReceivedEvent{Message: &cp, EventTime: time.Now()})

	case realtime.ReadFrame:
		if s.msgLog.ApplyRead(f.MessageID, f.UnreadCount) {
			s.bus.Publish(domain.UnreadUpdatedEvent{
				RoomID:      s.roomID,
				MessageID:   f.MessageID,
				UnreadCount: f.UnreadCount,
				EventTime:   time.Now(),
			})
		}

	case realtime.UnrecognizedFrame:
		s.zlog.Warn().Str("type", f.TypeName).Msg("ignoring unrecognized frame")
	}
}

// Send transmits one chat message. The local entry is appended optimistically
// and confirmed in place when the server echo carrying the same client
// message id arrives. Blank content and a non-connected state are warned
// no-ops: no frame is written and the log is untouched.
func (s *Session) Send(content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		s.zlog.Warn().Msg("ignoring empty message")
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	conn := s.conn
	state := s.state
	s.mu.Unlock()

	if state != domain.ConnConnected || conn == nil {
		s.zlog.Warn().Stringer("state", state).Msg("cannot send while not connected")
		return nil, ErrNotConnected
	}

	msg := &domain.Message{
		ClientMessageID: uuid.NewString(),
		RoomID:          s.roomID,
		SenderID:        s.identity.UserID,
		Content:         content,
		Timestamp:       time.Now(),
		Pending:         true,
	}
	s.msgLog.AppendPending(msg)
	s.bus.Publish(domain.MessageSentEvent{Message: msg, EventTime: time.Now()})

	if err := conn.WriteJSON(realtime.NewSendFrame(s.roomID, content, msg.ClientMessageID)); err != nil {
		s.zlog.Error().Err(err).Msg("failed to write message frame")
		return msg, err
	}
	return msg, nil
}

// Close tears the session down: the connection closes synchronously and any
// late callbacks tied to this instance are discarded. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	close(s.done)
	if conn != nil {
		conn.Close()
	}
	s.transition(domain.ConnDisconnected, "closed")
}

// transition is the single place connection state changes.
func (s *Session) transition(to domain.ConnState, reason string) {
	s.mu.Lock()
	if s.state == to {
		s.mu.Unlock()
		return
	}
	from := s.state
	s.state = to
	s.mu.Unlock()

	s.zlog.Debug().Stringer("from", from).Stringer("to", to).Str("reason", reason).Msg("connection state changed")
	s.bus.Publish(domain.ConnectionStatusEvent{
		RoomID:    s.roomID,
		State:     to,
		Reason:    reason,
		EventTime: time.Now(),
	})
}

func (s *Session) alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *Session) RoomID() int64 {
	return s.roomID
}

func (s *Session) State() domain.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns the current log snapshot in arrival order.
func (s *Session) Messages() []domain.Message {
	return s.msgLog.Snapshot()
}
