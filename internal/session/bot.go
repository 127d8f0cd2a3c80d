package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/soyolab/sns-bridge/internal/domain"
	"github.com/soyolab/sns-bridge/internal/logger"
	"github.com/soyolab/sns-bridge/internal/realtime"
)

// BotAPI is the slice of the backend client the bot session depends on.
type BotAPI interface {
	BotHistory(ctx context.Context, roomID int64) ([]*domain.BotTurn, error)
}

// BotSession is the simplified sibling of Session for the bot dialogue: no
// JOIN handshake, no read receipts, raw text frames both ways. The transport
// only carries bot replies back, so the user's own turn is appended
// optimistically before it is transmitted.
type BotSession struct {
	roomID int64
	api    BotAPI
	dialer realtime.Dialer
	wsURL  string
	bus    domain.EventBus
	zlog   zerolog.Logger

	mu      sync.Mutex
	conn    realtime.Conn
	state   domain.ConnState
	closed  bool
	turns   []*domain.BotTurn
	waiters []chan string

	done chan struct{}
}

func NewBot(roomID int64, apiClient BotAPI, dialer realtime.Dialer, wsURL string, bus domain.EventBus) (*BotSession, error) {
	if roomID == 0 {
		return nil, errors.New("session: room id required")
	}

	return &BotSession{
		roomID: roomID,
		api:    apiClient,
		dialer: dialer,
		wsURL:  wsURL,
		bus:    bus,
		zlog:   logger.Module("bot").With().Int64("room", roomID).Logger(),
		done:   make(chan struct{}),
	}, nil
}

// Start fetches the dialogue history and opens the connection. The room id is
// addressed as a query parameter; there is no handshake frame.
func (b *BotSession) Start(ctx context.Context) {
	history, err := b.api.BotHistory(ctx, b.roomID)
	if err != nil {
		b.zlog.Warn().Err(err).Msg("bot history fetch failed, starting with empty log")
	} else if !b.alive() {
		return
	} else {
		b.mu.Lock()
		b.turns = make([]*domain.BotTurn, len(history))
		copy(b.turns, history)
		b.mu.Unlock()
	}

	if !b.alive() {
		return
	}

	b.transition(domain.ConnConnecting, "")

	url := fmt.Sprintf("%s?room_id=%d", b.wsURL, b.roomID)
	conn, err := b.dialer.Dial(ctx, url, nil)
	if err != nil {
		b.zlog.Error().Err(err).Msg("bot dial failed")
		b.transition(domain.ConnFailed, err.Error())
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.Close()
		return
	}
	b.conn = conn
	b.mu.Unlock()

	b.transition(domain.ConnConnected, "")
	go b.readLoop(conn)
}

func (b *BotSession) readLoop(conn realtime.Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if b.alive() {
				b.zlog.Warn().Err(err).Msg("bot read failed")
				b.transition(domain.ConnDisconnected, "connection lost")
			}
			return
		}
		b.handleReply(string(data))
	}
}

func (b *BotSession) handleReply(content string) {
	if !b.alive() {
		return
	}

	turn := domain.NewBotTurn(content, time.Now())

	b.mu.Lock()
	b.turns = append(b.turns, turn)
	var waiter chan string
	if len(b.waiters) > 0 {
		waiter = b.waiters[0]
		b.waiters = b.waiters[1:]
	}
	b.mu.Unlock()

	if waiter != nil {
		waiter <- content
		close(waiter)
	}

	b.bus.Publish(domain.BotReplyEvent{RoomID: b.roomID, Turn: turn, EventTime: time.Now()})
}

// Send transmits one user turn as raw text, appending it to the dialogue
// before transmission.
func (b *BotSession) Send(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		b.zlog.Warn().Msg("ignoring empty bot message")
		return ErrEmptyMessage
	}

	b.mu.Lock()
	conn := b.conn
	state := b.state
	if state == domain.ConnConnected && conn != nil {
		b.turns = append(b.turns, domain.NewUserTurn(content, time.Now()))
	}
	b.mu.Unlock()

	if state != domain.ConnConnected || conn == nil {
		b.zlog.Warn().Stringer("state", state).Msg("cannot send while not connected")
		return ErrNotConnected
	}

	return conn.WriteText(content)
}

// Ask sends one turn and waits for the next bot reply. The context deadline
// bounds the wait.
func (b *BotSession) Ask(ctx context.Context, content string) (string, error) {
	waiter := make(chan string, 1)

	b.mu.Lock()
	b.waiters = append(b.waiters, waiter)
	b.mu.Unlock()

	if err := b.Send(content); err != nil {
		b.removeWaiter(waiter)
		return "", err
	}

	select {
	case reply := <-waiter:
		return reply, nil
	case <-ctx.Done():
		b.removeWaiter(waiter)
		return "", fmt.Errorf("%w: no bot reply", realtime.ErrTimeout)
	case <-b.done:
		return "", ErrNotConnected
	}
}

func (b *BotSession) removeWaiter(waiter chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, w := range b.waiters {
		if w == waiter {
			b.waiters = append(b.waiters[:i], b.waiters[i+1:]...)
			return
		}
	}
}

func (b *BotSession) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()

	close(b.done)
	if conn != nil {
		conn.Close()
	}
	b.transition(domain.ConnDisconnected, "closed")
}

func (b *BotSession) transition(to domain.ConnState, reason string) {
	b.mu.Lock()
	if b.state == to {
		b.mu.Unlock()
		return
	}
	b.state = to
	b.mu.Unlock()

	b.bus.Publish(domain.ConnectionStatusEvent{
		RoomID:    b.roomID,
		State:     to,
		Reason:    reason,
		EventTime: time.Now(),
	})
}

func (b *BotSession) alive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed
}

func (b *BotSession) State() domain.ConnState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Turns returns the current dialogue snapshot.
func (b *BotSession) Turns() []domain.BotTurn {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.BotTurn, len(b.turns))
	for i, t := range b.turns {
		out[i] = *t
	}
	return out
}
