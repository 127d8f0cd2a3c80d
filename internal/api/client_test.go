package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyolab/sns-bridge/internal/config"
	"github.com/soyolab/sns-bridge/internal/domain"
)

func newTestClient(t *testing.T, app, chat, bot *httptest.Server) *Client {
	t.Helper()
	cfg := &config.Config{}
	if app != nil {
		cfg.AppAPIURL = app.URL
	}
	if chat != nil {
		cfg.ChatAPIURL = chat.URL
	}
	if bot != nil {
		cfg.BotAPIURL = bot.URL
	}

	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client
}

func envelope(response interface{}) []byte {
	raw, _ := json.Marshal(response)
	data, _ := json.Marshal(Envelope{Success: true, Response: raw})
	return data
}

func TestLoginUnwrapsEnvelopeAndStoresCookie(t *testing.T) {
	var sawCookie bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/user/login":
			assert.Equal(t, http.MethodPost, r.Method)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "alice", body["userId"])
			assert.Equal(t, "secret", body["password"])

			http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: "abc123", Path: "/"})
			w.Write(envelope(map[string]interface{}{"id": 9, "name": "Alice", "email": "alice@example.com"}))

		case "/api/user/validate-token":
			_, err := r.Cookie("SESSION")
			sawCookie = err == nil
			w.Write(envelope(map[string]interface{}{"userId": 9, "name": "Alice"}))

		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, nil, nil)

	identity, err := client.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(9), identity.UserID)
	assert.Equal(t, "Alice", identity.Name)
	assert.Equal(t, "alice@example.com", identity.Email)

	// The session cookie from login rides along on the next request, and
	// either identity key spelling decodes.
	restored, err := client.ValidateToken(context.Background())
	require.NoError(t, err)
	assert.True(t, sawCookie, "session cookie not carried by the jar")
	assert.Equal(t, int64(9), restored.UserID)
}

func TestErrorEnvelopeSurfacesBackendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Envelope{
			Success: false,
			Error:   &ErrorBody{Message: "invalid credentials"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server, nil, nil)

	_, err := client.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.EqualError(t, err, "invalid credentials")
}

func TestUnauthorizedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server, server, nil)

	_, err := client.ValidateToken(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = client.EnterRoom(context.Background(), 7)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRoomHistoryDefaultsUnreadCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/history", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("room_id"))

		w.Write(envelope([]map[string]interface{}{
			{"messageId": 1, "roomId": 7, "senderId": 2, "content": "a", "timestamp": "2026-01-02T15:04:05Z", "unreadCount": 1},
			{"messageId": 2, "roomId": 7, "senderId": 9, "content": "b", "timestamp": "2026-01-02T15:05:05Z"},
		}))
	}))
	defer server.Close()

	client := newTestClient(t, nil, server, nil)

	messages, err := client.RoomHistory(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, 1, messages[0].UnreadCount)
	assert.Equal(t, 0, messages[1].UnreadCount)
	assert.Equal(t, time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), messages[0].Timestamp)
}

func TestEnterRoomPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write(envelope(nil))
	}))
	defer server.Close()

	client := newTestClient(t, nil, server, nil)

	require.NoError(t, client.EnterRoom(context.Background(), 42))
	assert.Equal(t, "/chat/room/42/enter", gotPath)
}

func TestBotHistoryParsesBareBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/history", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("room_id"))

		// The bot service does not wrap its responses in the envelope.
		json.NewEncoder(w).Encode(map[string]interface{}{
			"history": []map[string]interface{}{
				{"type": "user", "content": "question", "timestamp": "2026-01-02T15:04:05Z"},
				{"type": "bot", "content": "answer", "timestamp": "2026-01-02T15:04:06Z"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, nil, nil, server)

	turns, err := client.BotHistory(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, domain.BotRoleUser, turns[0].Role)
	assert.Equal(t, "question", turns[0].Content)
	assert.Equal(t, domain.BotRoleBot, turns[1].Role)
	assert.Equal(t, "answer", turns[1].Content)
}

func TestLatestFollowingPosts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/posts/following/latest", r.URL.Path)
		w.Write(envelope(map[string]interface{}{
			"posts": []map[string]interface{}{
				{"postId": 1, "title": "First", "content": "body"},
			},
		}))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil, nil)

	posts, err := client.LatestFollowingPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(1), posts[0].PostID)
	assert.Equal(t, "First", posts[0].Title)
}
