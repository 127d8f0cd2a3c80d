package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/soyolab/sns-bridge/internal/domain"
	"github.com/soyolab/sns-bridge/internal/logger"
	"github.com/soyolab/sns-bridge/internal/realtime"
	"github.com/soyolab/sns-bridge/internal/repository"
	"github.com/soyolab/sns-bridge/internal/session"
)

var ErrNoOpenRoom = errors.New("service: no open room")

// BackendAPI is everything the chat service needs from the backend client.
type BackendAPI interface {
	session.ChatAPI
	session.BotAPI
	LatestFollowingPosts(ctx context.Context) ([]domain.Post, error)
	GetPost(ctx context.Context, postID int64) (*domain.PostDetail, error)
	RecentMessages(ctx context.Context) ([]domain.InboxMessage, error)
}

// ChatService composes the user-chat and bot controllers for the open room
// and archives observed traffic. The two sessions are mounted side by side
// and each owns its own connection; they share nothing but the room id.
type ChatService struct {
	api       BackendAPI
	dialer    realtime.Dialer
	chatWSURL string
	botWSURL  string
	bus       domain.EventBus
	auth      *AuthService
	msgRepo   repository.MessageRepository
	roomRepo  repository.RoomRepository
	zlog      zerolog.Logger

	mu       sync.Mutex
	userSess *session.Session
	botSess  *session.BotSession

	archiveCh <-chan domain.Event
}

func NewChatService(
	apiClient BackendAPI,
	dialer realtime.Dialer,
	chatWSURL, botWSURL string,
	bus domain.EventBus,
	auth *AuthService,
	msgRepo repository.MessageRepository,
	roomRepo repository.RoomRepository,
) *ChatService {
	s := &ChatService{
		api:       apiClient,
		dialer:    dialer,
		chatWSURL: chatWSURL,
		botWSURL:  botWSURL,
		bus:       bus,
		auth:      auth,
		msgRepo:   msgRepo,
		roomRepo:  roomRepo,
		zlog:      logger.Module("chat"),
	}

	s.archiveCh = bus.Subscribe([]domain.EventType{
		domain.EventTypeMessageReceived,
		domain.EventTypeUnreadUpdated,
	})
	go s.archiveLoop()

	return s
}

// archiveLoop writes observed traffic behind the live log. Archive failures
// are logged and dropped; they must never affect the session.
func (s *ChatService) archiveLoop() {
	for evt := range s.archiveCh {
		ctx := context.Background()

		switch e := evt.(type) {
		case domain.MessageReceivedEvent:
			s.archiveMessage(ctx, e.Message)
		case domain.UnreadUpdatedEvent:
			if err := s.msgRepo.UpdateUnreadCount(ctx, e.MessageID, e.UnreadCount); err != nil {
				s.zlog.Warn().Err(err).Msg("failed to update archived unread count")
			}
		}
	}
}

func (s *ChatService) archiveMessage(ctx context.Context, msg *domain.Message) {
	if msg == nil || msg.MessageID == 0 {
		return
	}

	if err := s.msgRepo.CreateOrIgnore(ctx, msg); err != nil {
		s.zlog.Warn().Err(err).Msg("failed to archive message")
	}

	room, err := s.roomRepo.GetByID(ctx, msg.RoomID)
	if err != nil {
		s.zlog.Warn().Err(err).Msg("failed to load room rollup")
		return
	}
	if room == nil {
		room = &domain.Room{ID: msg.RoomID, Name: fmt.Sprintf("Room %d", msg.RoomID)}
		if err := s.roomRepo.Upsert(ctx, room); err != nil {
			s.zlog.Warn().Err(err).Msg("failed to create room rollup")
			return
		}
	}

	sender := fmt.Sprintf("user %d", msg.SenderID)
	if identity, ok := s.auth.Current(); ok && msg.IsFrom(identity.UserID) {
		sender = "me"
	} else if err := s.roomRepo.IncrementUnreadCount(ctx, msg.RoomID); err != nil {
		s.zlog.Warn().Err(err).Msg("failed to increment room unread count")
	}

	if err := s.roomRepo.UpdateLastMessage(ctx, msg.RoomID, msg.Content, sender, msg.Timestamp); err != nil {
		s.zlog.Warn().Err(err).Msg("failed to update room rollup")
	}
}

// OpenRoom tears down any previously open room and mounts the user-chat and
// bot controllers for the given one.
func (s *ChatService) OpenRoom(ctx context.Context, roomID int64) error {
	identity, ok := s.auth.Current()
	if !ok {
		return errors.New("service: not logged in")
	}

	s.closeSessions()

	userSess, err := session.New(roomID, identity, s.api, s.dialer, s.chatWSURL, s.bus)
	if err != nil {
		return err
	}
	botSess, err := session.NewBot(roomID, s.api, s.dialer, s.botWSURL, s.bus)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.userSess = userSess
	s.botSess = botSess
	s.mu.Unlock()

	userSess.Start(ctx)
	botSess.Start(ctx)
	return nil
}

// CloseRoom unmounts the open room, if any.
func (s *ChatService) CloseRoom() {
	s.closeSessions()
}

func (s *ChatService) closeSessions() {
	s.mu.Lock()
	userSess := s.userSess
	botSess := s.botSess
	s.userSess = nil
	s.botSess = nil
	s.mu.Unlock()

	if userSess != nil {
		userSess.Close()
	}
	if botSess != nil {
		botSess.Close()
	}
}

func (s *ChatService) CurrentRoom() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userSess == nil {
		return 0, false
	}
	return s.userSess.RoomID(), true
}

func (s *ChatService) Send(content string) (*domain.Message, error) {
	s.mu.Lock()
	sess := s.userSess
	s.mu.Unlock()

	if sess == nil {
		return nil, ErrNoOpenRoom
	}
	return sess.Send(content)
}

func (s *ChatService) SendBot(content string) error {
	s.mu.Lock()
	sess := s.botSess
	s.mu.Unlock()

	if sess == nil {
		return ErrNoOpenRoom
	}
	return sess.Send(content)
}

// AskBot sends one turn to the bot and waits for its reply.
func (s *ChatService) AskBot(ctx context.Context, content string) (string, error) {
	s.mu.Lock()
	sess := s.botSess
	s.mu.Unlock()

	if sess == nil {
		return "", ErrNoOpenRoom
	}
	return sess.Ask(ctx, content)
}

// Messages returns the open room's live log snapshot.
func (s *ChatService) Messages() []domain.Message {
	s.mu.Lock()
	sess := s.userSess
	s.mu.Unlock()

	if sess == nil {
		return nil
	}
	return sess.Messages()
}

func (s *ChatService) BotTurns() []domain.BotTurn {
	s.mu.Lock()
	sess := s.botSess
	s.mu.Unlock()

	if sess == nil {
		return nil
	}
	return sess.Turns()
}

// ConnectionState reports the user and bot connection states for the open
// room.
func (s *ChatService) ConnectionState() (domain.ConnState, domain.ConnState) {
	s.mu.Lock()
	userSess := s.userSess
	botSess := s.botSess
	s.mu.Unlock()

	userState := domain.ConnDisconnected
	botState := domain.ConnDisconnected
	if userSess != nil {
		userState = userSess.State()
	}
	if botSess != nil {
		botState = botSess.State()
	}
	return userState, botState
}

// History fetches a room's message history directly from the chat service,
// independent of any open session.
func (s *ChatService) History(ctx context.Context, roomID int64) ([]*domain.Message, error) {
	return s.api.RoomHistory(ctx, roomID)
}

func (s *ChatService) Feed(ctx context.Context) ([]domain.Post, error) {
	return s.api.LatestFollowingPosts(ctx)
}

func (s *ChatService) Post(ctx context.Context, postID int64) (*domain.PostDetail, error) {
	return s.api.GetPost(ctx, postID)
}

func (s *ChatService) Inbox(ctx context.Context) ([]domain.InboxMessage, error) {
	return s.api.RecentMessages(ctx)
}

// Rooms lists archived room rollups, most recently active first.
func (s *ChatService) Rooms(ctx context.Context, limit, offset int) ([]*domain.Room, error) {
	return s.roomRepo.GetAll(ctx, limit, offset)
}

// SearchArchive searches archived message content.
func (s *ChatService) SearchArchive(ctx context.Context, query string, limit int) ([]*domain.Message, error) {
	return s.msgRepo.Search(ctx, query, limit)
}

// Close unmounts the open room and stops the archive loop.
func (s *ChatService) Close() {
	s.closeSessions()
	s.bus.Unsubscribe(s.archiveCh)
}

func (s *ChatService) GetEventBus() domain.EventBus {
	return s.bus
}
