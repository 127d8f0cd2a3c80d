package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyolab/sns-bridge/internal/domain"
	"github.com/soyolab/sns-bridge/internal/realtime"
)

type fakeConn struct {
	mu      sync.Mutex
	written []interface{}
	inbound chan []byte
	closed  bool
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16)}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	data, ok := <-c.inbound
	if !ok {
		return nil, errors.New("connection closed")
	}
	return data, nil
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("write on closed connection")
	}
	c.written = append(c.written, v)
	return nil
}

func (c *fakeConn) WriteText(s string) error {
	return c.WriteJSON(s)
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.once.Do(func() { close(c.inbound) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// deliver injects one inbound frame as the server would.
func (c *fakeConn) deliver(t *testing.T, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	c.inbound <- data
}

func (c *fakeConn) frames() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]interface{}, len(c.written))
	copy(out, c.written)
	return out
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	errs  []error
	calls int
	gate  chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, url string, header http.Header) (realtime.Conn, error) {
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.calls
	d.calls++
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	if i < len(d.conns) {
		return d.conns[i], nil
	}
	return nil, realtime.ErrConnectionFailed
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeChatAPI struct {
	mu         sync.Mutex
	history    []*domain.Message
	historyErr error
	entered    []int64
	block      chan struct{}
}

func (a *fakeChatAPI) RoomHistory(ctx context.Context, roomID int64) ([]*domain.Message, error) {
	if a.block != nil {
		<-a.block
	}
	if a.historyErr != nil {
		return nil, a.historyErr
	}
	return a.history, nil
}

func (a *fakeChatAPI) EnterRoom(ctx context.Context, roomID int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entered = append(a.entered, roomID)
	return nil
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func testIdentity() domain.Identity {
	return domain.Identity{UserID: 9, Name: "Tester"}
}

func TestNewValidation(t *testing.T) {
	bus := domain.NewEventBus()
	dialer := &fakeDialer{}
	api := &fakeChatAPI{}

	_, err := New(0, testIdentity(), api, dialer, "ws://x", bus)
	assert.Error(t, err)

	_, err = New(7, domain.Identity{}, api, dialer, "ws://x", bus)
	assert.Error(t, err)

	s, err := New(7, testIdentity(), api, dialer, "ws://x", bus)
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.RoomID())
	assert.Equal(t, domain.ConnDisconnected, s.State())
}

func TestStartupProtocol(t *testing.T) {
	bus := domain.NewEventBus()
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}
	api := &fakeChatAPI{history: []*domain.Message{
		{MessageID: 1, RoomID: 7, SenderID: 2, Content: "hello"},
		{MessageID: 2, RoomID: 7, SenderID: 9, Content: "hi"},
	}}

	s, err := New(7, testIdentity(), api, dialer, "ws://chat", bus)
	require.NoError(t, err)
	defer s.Close()

	s.Start(context.Background())

	// History snapshot loads before the connection opens.
	assert.Equal(t, []int64{7}, api.entered)
	assert.Len(t, s.Messages(), 2)

	waitFor(t, func() bool { return s.State() == domain.ConnConnected }, "never connected")

	// JOIN is the first outbound frame.
	waitFor(t, func() bool { return len(conn.frames()) > 0 }, "JOIN never written")
	join, ok := conn.frames()[0].(realtime.JoinFrame)
	require.True(t, ok)
	assert.Equal(t, realtime.FrameTypeJoin, join.Type)
	assert.Equal(t, int64(7), join.RoomID)
}

func TestStartWithHistoryFailure(t *testing.T) {
	bus := domain.NewEventBus()
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}
	api := &fakeChatAPI{historyErr: errors.New("boom")}

	s, err := New(7, testIdentity(), api, dialer, "ws://chat", bus)
	require.NoError(t, err)
	defer s.Close()

	s.Start(context.Background())

	// The room still mounts with an empty log.
	assert.Empty(t, s.Messages())
	waitFor(t, func() bool { return s.State() == domain.ConnConnected }, "never connected")
}

func TestInboundMessageAppends(t *testing.T) {
	bus := domain.NewEventBus()
	events := bus.Subscribe([]domain.EventType{domain.EventTypeMessageReceived})
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}
	api := &fakeChatAPI{}

	s, err := New(7, testIdentity(), api, dialer, "ws://chat", bus)
	require.NoError(t, err)
	defer s.Close()
	s.Start(context.Background())
	waitFor(t, func() bool { return s.State() == domain.ConnConnected }, "never connected")

	conn.deliver(t, map[string]interface{}{
		"type": "MESSAGE", "messageId": 10, "senderId": 2, "content": "incoming",
	})

	waitFor(t, func() bool { return len(s.Messages()) == 1 }, "message never applied")
	got := s.Messages()[0]
	assert.Equal(t, int64(10), got.MessageID)
	assert.Equal(t, int64(7), got.RoomID) // filled from the session's room
	assert.False(t, got.Pending)

	select {
	case evt := <-events:
		received, ok := evt.(domain.MessageReceivedEvent)
		require.True(t, ok)
		assert.Equal(t, int64(10), received.Message.MessageID)
	case <-time.After(time.Second):
		t.Fatal("no message received event")
	}

	// Redelivery of the same message id changes nothing.
	conn.deliver(t, map[string]interface{}{
		"type": "MESSAGE", "messageId": 10, "senderId": 2, "content": "incoming",
	})
	conn.deliver(t, map[string]interface{}{
		"type": "MESSAGE", "messageId": 11, "senderId": 2, "content": "next",
	})
	waitFor(t, func() bool { return len(s.Messages()) == 2 }, "second message never applied")
}

func TestReadFrameUpdatesUnread(t *testing.T) {
	bus := domain.NewEventBus()
	events := bus.Subscribe([]domain.EventType{domain.EventTypeUnreadUpdated})
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}
	first := &domain.Message{MessageID: 1, RoomID: 7, SenderID: 9, Content: "a", UnreadCount: 1}
	api := &fakeChatAPI{history: []*domain.Message{first}}

	s, err := New(7, testIdentity(), api, dialer, "ws://chat", bus)
	require.NoError(t, err)
	defer s.Close()
	s.Start(context.Background())
	waitFor(t, func() bool { return s.State() == domain.ConnConnected }, "never connected")

	conn.deliver(t, map[string]interface{}{"type": "READ", "messageId": 1, "unreadCount": 0})

	waitFor(t, func() bool { return s.Messages()[0].UnreadCount == 0 }, "read never applied")

	select {
	case evt := <-events:
		updated, ok := evt.(domain.UnreadUpdatedEvent)
		require.True(t, ok)
		assert.Equal(t, int64(1), updated.MessageID)
		assert.Equal(t, 0, updated.UnreadCount)
	case <-time.After(time.Second):
		t.Fatal("no unread updated event")
	}

	// Unmatched READ is silently dropped, no event.
	conn.deliver(t, map[string]interface{}{"type": "READ", "messageId": 99, "unreadCount": 0})
	select {
	case evt := <-events:
		t.Fatalf("unexpected event for unmatched READ: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMalformedAndUnrecognizedFramesIgnored(t *testing.T) {
	bus := domain.NewEventBus()
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}
	api := &fakeChatAPI{}

	s, err := New(7, testIdentity(), api, dialer, "ws://chat", bus)
	require.NoError(t, err)
	defer s.Close()
	s.Start(context.Background())
	waitFor(t, func() bool { return s.State() == domain.ConnConnected }, "never connected")

	conn.inbound <- []byte(`{garbage`)
	conn.deliver(t, map[string]interface{}{"type": "TYPING", "roomId": 7})
	conn.deliver(t, map[string]interface{}{
		"type": "MESSAGE", "messageId": 1, "senderId": 2, "content": "still fine",
	})

	// Connection survives and later frames apply.
	waitFor(t, func() bool { return len(s.Messages()) == 1 }, "message after bad frames never applied")
	assert.Equal(t, domain.ConnConnected, s.State())
}

func TestSendOptimisticAppendAndReconcile(t *testing.T) {
	bus := domain.NewEventBus()
	events := bus.Subscribe([]domain.EventType{domain.EventTypeMessageSent})
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}
	api := &fakeChatAPI{}

	s, err := New(7, testIdentity(), api, dialer, "ws://chat", bus)
	require.NoError(t, err)
	defer s.Close()
	s.Start(context.Background())
	waitFor(t, func() bool { return s.State() == domain.ConnConnected }, "never connected")

	sent, err := s.Send("  hello there  ")
	require.NoError(t, err)
	assert.True(t, sent.Pending)
	assert.NotEmpty(t, sent.ClientMessageID)
	assert.Equal(t, "hello there", sent.Content)
	assert.Equal(t, int64(9), sent.SenderID)

	select {
	case evt := <-events:
		sentEvt, ok := evt.(domain.MessageSentEvent)
		require.True(t, ok)
		assert.True(t, sentEvt.Message.Pending)
	case <-time.After(time.Second):
		t.Fatal("no message sent event")
	}

	// The wire frame carries the trimmed content and the correlation token.
	frames := conn.frames()
	require.Len(t, frames, 2) // JOIN then MESSAGE
	sendFrame, ok := frames[1].(realtime.SendFrame)
	require.True(t, ok)
	assert.Equal(t, realtime.FrameTypeMessage, sendFrame.Type)
	assert.Equal(t, "hello there", sendFrame.Message)
	assert.Equal(t, sent.ClientMessageID, sendFrame.ClientMessageID)

	// The server echo confirms the entry in place instead of duplicating it.
	conn.deliver(t, map[string]interface{}{
		"type":            "MESSAGE",
		"messageId":       55,
		"clientMessageId": sent.ClientMessageID,
		"senderId":        9,
		"content":         "hello there",
	})
	waitFor(t, func() bool {
		msgs := s.Messages()
		return len(msgs) == 1 && !msgs[0].Pending
	}, "echo never reconciled")
	assert.Equal(t, int64(55), s.Messages()[0].MessageID)
}

func TestSendRejectsEmptyAndDisconnected(t *testing.T) {
	bus := domain.NewEventBus()
	dialer := &fakeDialer{}
	api := &fakeChatAPI{}

	s, err := New(7, testIdentity(), api, dialer, "ws://chat", bus)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Send("   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = s.Send("hello")
	assert.ErrorIs(t, err, ErrNotConnected)

	// Neither attempt touched the log.
	assert.Empty(t, s.Messages())
}

func TestReconnectAfterConnectionLoss(t *testing.T) {
	bus := domain.NewEventBus()
	first := newFakeConn()
	second := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{first, second}}
	api := &fakeChatAPI{}

	s, err := New(7, testIdentity(), api, dialer, "ws://chat", bus)
	require.NoError(t, err)
	defer s.Close()
	s.Start(context.Background())
	waitFor(t, func() bool { return s.State() == domain.ConnConnected }, "never connected")

	first.deliver(t, map[string]interface{}{
		"type": "MESSAGE", "messageId": 1, "senderId": 2, "content": "before drop",
	})
	waitFor(t, func() bool { return len(s.Messages()) == 1 }, "first message never applied")

	// Server drops the connection; the session redials and re-JOINs.
	first.Close()
	waitFor(t, func() bool { return dialer.dialCount() == 2 }, "never redialed")
	waitFor(t, func() bool { return len(second.frames()) > 0 }, "JOIN never re-sent")
	join, ok := second.frames()[0].(realtime.JoinFrame)
	require.True(t, ok)
	assert.Equal(t, int64(7), join.RoomID)

	// The log survives the reconnect, and redelivered frames dedup by id.
	second.deliver(t, map[string]interface{}{
		"type": "MESSAGE", "messageId": 1, "senderId": 2, "content": "before drop",
	})
	second.deliver(t, map[string]interface{}{
		"type": "MESSAGE", "messageId": 2, "senderId": 2, "content": "after reconnect",
	})
	waitFor(t, func() bool { return len(s.Messages()) == 2 }, "post-reconnect message never applied")
}

func TestDialFailureBacksOffThenRecovers(t *testing.T) {
	bus := domain.NewEventBus()
	events := bus.Subscribe([]domain.EventType{domain.EventTypeConnectionStatus})
	conn := newFakeConn()
	dialer := &fakeDialer{
		errs:  []error{fmt.Errorf("%w: refused", realtime.ErrConnectionFailed)},
		conns: []*fakeConn{nil, conn},
	}
	api := &fakeChatAPI{}

	s, err := New(7, testIdentity(), api, dialer, "ws://chat", bus)
	require.NoError(t, err)
	defer s.Close()
	s.Start(context.Background())

	// Connecting, then Disconnected with the dial error as reason.
	var states []domain.ConnState
	deadline := time.After(5 * time.Second)
	for len(states) < 3 {
		select {
		case evt := <-events:
			status, ok := evt.(domain.ConnectionStatusEvent)
			require.True(t, ok)
			states = append(states, status.State)
		case <-deadline:
			t.Fatalf("timed out waiting for state transitions, saw %v", states)
		}
	}
	assert.Equal(t, domain.ConnConnecting, states[0])
	assert.Equal(t, domain.ConnDisconnected, states[1])
	assert.Equal(t, domain.ConnConnecting, states[2])

	// The second attempt succeeds after the backoff.
	waitFor(t, func() bool { return s.State() == domain.ConnConnected }, "never recovered")
	assert.Equal(t, 2, dialer.dialCount())
}

func TestCloseIsIdempotentAndStopsLateWork(t *testing.T) {
	bus := domain.NewEventBus()
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}
	api := &fakeChatAPI{}

	s, err := New(7, testIdentity(), api, dialer, "ws://chat", bus)
	require.NoError(t, err)
	s.Start(context.Background())
	waitFor(t, func() bool { return s.State() == domain.ConnConnected }, "never connected")

	s.Close()
	s.Close()

	assert.True(t, conn.isClosed())
	assert.Equal(t, domain.ConnDisconnected, s.State())

	_, err = s.Send("too late")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestCloseDuringHistoryFetchDiscardsResult(t *testing.T) {
	bus := domain.NewEventBus()
	dialer := &fakeDialer{conns: []*fakeConn{newFakeConn()}}
	api := &fakeChatAPI{
		history: []*domain.Message{{MessageID: 1, RoomID: 7, SenderID: 2, Content: "stale"}},
		block:   make(chan struct{}),
	}

	s, err := New(7, testIdentity(), api, dialer, "ws://chat", bus)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	// Tear down while the fetch is in flight, then let it resolve.
	s.Close()
	close(api.block)
	<-done

	assert.Empty(t, s.Messages())
	assert.Zero(t, dialer.dialCount())
}

func TestCloseDuringDialDiscardsConnection(t *testing.T) {
	bus := domain.NewEventBus()
	conn := newFakeConn()
	gate := make(chan struct{})
	dialer := &fakeDialer{conns: []*fakeConn{conn}, gate: gate}
	api := &fakeChatAPI{}

	s, err := New(7, testIdentity(), api, dialer, "ws://chat", bus)
	require.NoError(t, err)
	s.Start(context.Background())

	waitFor(t, func() bool { return s.State() == domain.ConnConnecting }, "never started dialing")
	s.Close()
	close(gate)

	// The freshly dialed connection is discarded, never adopted.
	waitFor(t, conn.isClosed, "orphaned connection never closed")
	assert.Equal(t, domain.ConnDisconnected, s.State())
}
