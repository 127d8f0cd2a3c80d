package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/soyolab/sns-bridge/internal/domain"
	"github.com/soyolab/sns-bridge/internal/service"
)

// CommandHandler handles CLI commands
type CommandHandler struct {
	auth    *service.AuthService
	chatSvc *service.ChatService
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(auth *service.AuthService, chatSvc *service.ChatService) *CommandHandler {
	return &CommandHandler{
		auth:    auth,
		chatSvc: chatSvc,
	}
}

// Command represents a parsed command
type Command struct {
	Name string
	Args []string
}

// ParseCommand parses a command string (e.g., "/open 42" or "/send Hello there")
func ParseCommand(input string) (*Command, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty command")
	}

	if !strings.HasPrefix(input, "/") {
		return nil, fmt.Errorf("commands must start with /")
	}

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	name := strings.TrimPrefix(parts[0], "/")
	args := parts[1:]

	return &Command{Name: name, Args: args}, nil
}

// requireAuth gates commands the way the web app gates protected routes:
// a pending session check reads as loading, a missing one as logged out.
func (h *CommandHandler) requireAuth() (domain.Identity, error) {
	if h.auth.Loading() {
		return domain.Identity{}, fmt.Errorf("session check still in progress, try again")
	}
	identity, ok := h.auth.Current()
	if !ok {
		return domain.Identity{}, fmt.Errorf("not logged in. Use /login <user_id> <password> first")
	}
	return identity, nil
}

// Execute executes a command and returns the result
func (h *CommandHandler) Execute(ctx context.Context, cmd *Command) (interface{}, error) {
	switch cmd.Name {
	case "help", "h":
		return h.cmdHelp()
	case "status", "s":
		return h.cmdStatus()
	case "login":
		return h.cmdLogin(ctx, cmd.Args)
	case "logout":
		return h.cmdLogout(ctx)
	case "whoami", "me":
		return h.cmdWhoami()
	case "feed":
		return h.cmdFeed(ctx)
	case "post":
		return h.cmdPost(ctx, cmd.Args)
	case "inbox":
		return h.cmdInbox(ctx)
	case "open", "o":
		return h.cmdOpen(ctx, cmd.Args)
	case "close":
		return h.cmdClose()
	case "send":
		return h.cmdSend(cmd.Args)
	case "bot", "b":
		return h.cmdBot(cmd.Args)
	case "history", "msg":
		return h.cmdHistory(ctx, cmd.Args)
	case "rooms", "ls":
		return h.cmdRooms(ctx, cmd.Args)
	case "search":
		return h.cmdSearch(ctx, cmd.Args)
	case "quit", "exit", "q":
		return map[string]bool{"quit": true}, nil
	default:
		return nil, fmt.Errorf("unknown command: %s. Type /help for available commands", cmd.Name)
	}
}

func (h *CommandHandler) cmdHelp() (interface{}, error) {
	help := `Available commands:

Account:
  /login <user_id> <password>  Log in
  /logout                      Log out
  /whoami, /me                 Show the logged-in user
  /status, /s                  Show connection status

Feed:
  /feed                        Latest posts from followed users
  /post <id>                   Show one post
  /inbox                       Recent chat messages

Chat:
  /open, /o <room_id>          Open a chat room (closes the previous one)
  /close                       Close the open room
  /send <text>                 Send a message to the open room
  /bot, /b <text>              Send a message to the room's bot
  /history, /msg [room_id]     Show the live log, or fetch a room's history
  /rooms, /ls [limit]          List archived rooms
  /search <query> [limit]      Search archived messages

Other:
  /help, /h                    Show this help
  /quit, /exit, /q             Exit the CLI`

	return map[string]string{"help": help}, nil
}

func (h *CommandHandler) cmdStatus() (interface{}, error) {
	_, loggedIn := h.auth.Current()
	chatState, botState := h.chatSvc.ConnectionState()
	roomID, hasRoom := h.chatSvc.CurrentRoom()

	var status string
	switch {
	case !loggedIn:
		status = "not logged in"
	case !hasRoom:
		status = "logged in, no open room"
	default:
		status = fmt.Sprintf("room %d %s", roomID, chatState)
	}

	return ConnectionStatus{
		RoomID:   roomID,
		LoggedIn: loggedIn,
		ChatConn: chatState.String(),
		BotConn:  botState.String(),
		Status:   status,
	}, nil
}

func (h *CommandHandler) cmdLogin(ctx context.Context, args []string) (interface{}, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: /login <user_id> <password>")
	}

	identity, err := h.auth.Login(ctx, args[0], args[1])
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	return IdentityInfo{UserID: identity.UserID, Name: identity.Name, Email: identity.Email}, nil
}

func (h *CommandHandler) cmdLogout(ctx context.Context) (interface{}, error) {
	h.chatSvc.CloseRoom()
	if err := h.auth.Logout(ctx); err != nil {
		return nil, fmt.Errorf("logout failed: %w", err)
	}
	return map[string]string{"message": "Logged out"}, nil
}

func (h *CommandHandler) cmdWhoami() (interface{}, error) {
	identity, err := h.requireAuth()
	if err != nil {
		return nil, err
	}
	return IdentityInfo{UserID: identity.UserID, Name: identity.Name, Email: identity.Email}, nil
}

func (h *CommandHandler) cmdFeed(ctx context.Context) (interface{}, error) {
	if _, err := h.requireAuth(); err != nil {
		return nil, err
	}

	posts, err := h.chatSvc.Feed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	result := make([]PostInfo, len(posts))
	for i, p := range posts {
		result[i] = PostInfo{PostID: p.PostID, Title: p.Title, Content: p.Content}
	}
	return map[string]interface{}{"posts": result, "count": len(result)}, nil
}

func (h *CommandHandler) cmdPost(ctx context.Context, args []string) (interface{}, error) {
	if _, err := h.requireAuth(); err != nil {
		return nil, err
	}
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /post <id>")
	}

	postID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid post id: %s", args[0])
	}

	post, err := h.chatSvc.Post(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return PostInfo{PostID: post.PostID, Title: post.Title, Content: post.Content, Author: post.AuthorName}, nil
}

func (h *CommandHandler) cmdInbox(ctx context.Context) (interface{}, error) {
	if _, err := h.requireAuth(); err != nil {
		return nil, err
	}

	messages, err := h.chatSvc.Inbox(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox: %w", err)
	}

	result := make([]InboxInfo, len(messages))
	for i, m := range messages {
		result[i] = InboxInfo{
			ID:         m.ID,
			SenderID:   m.SenderID,
			SenderName: m.SenderName,
			Content:    m.Content,
			SentAt:     m.SentAt,
		}
	}
	return map[string]interface{}{"messages": result, "count": len(result)}, nil
}

func (h *CommandHandler) cmdOpen(ctx context.Context, args []string) (interface{}, error) {
	if _, err := h.requireAuth(); err != nil {
		return nil, err
	}
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /open <room_id>")
	}

	roomID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid room id: %s", args[0])
	}

	if err := h.chatSvc.OpenRoom(ctx, roomID); err != nil {
		return nil, fmt.Errorf("failed to open room: %w", err)
	}

	return map[string]string{"message": fmt.Sprintf("Opened room %d", roomID)}, nil
}

func (h *CommandHandler) cmdClose() (interface{}, error) {
	h.chatSvc.CloseRoom()
	return map[string]string{"message": "Room closed"}, nil
}

func (h *CommandHandler) cmdSend(args []string) (interface{}, error) {
	identity, err := h.requireAuth()
	if err != nil {
		return nil, err
	}
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /send <text>")
	}

	text := strings.Join(args, " ")

	msg, err := h.chatSvc.Send(text)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	return h.messageInfo(*msg, identity.UserID), nil
}

func (h *CommandHandler) cmdBot(args []string) (interface{}, error) {
	if _, err := h.requireAuth(); err != nil {
		return nil, err
	}
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /bot <text>")
	}

	text := strings.Join(args, " ")

	if err := h.chatSvc.SendBot(text); err != nil {
		return nil, fmt.Errorf("failed to send bot message: %w", err)
	}

	return map[string]string{"message": "Sent to bot, reply will stream in"}, nil
}

func (h *CommandHandler) cmdHistory(ctx context.Context, args []string) (interface{}, error) {
	identity, err := h.requireAuth()
	if err != nil {
		return nil, err
	}

	// No argument: snapshot of the open room's live log.
	if len(args) == 0 {
		if _, ok := h.chatSvc.CurrentRoom(); !ok {
			return nil, fmt.Errorf("no open room. Use /history <room_id> or /open first")
		}
		messages := h.chatSvc.Messages()
		result := make([]MessageInfo, len(messages))
		for i, m := range messages {
			result[i] = h.messageInfo(m, identity.UserID)
		}
		return map[string]interface{}{"messages": result, "count": len(result), "live": true}, nil
	}

	roomID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid room id: %s", args[0])
	}

	messages, err := h.chatSvc.History(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	result := make([]MessageInfo, len(messages))
	for i, m := range messages {
		result[i] = h.messageInfo(*m, identity.UserID)
	}
	return map[string]interface{}{"messages": result, "count": len(result), "live": false}, nil
}

func (h *CommandHandler) cmdRooms(ctx context.Context, args []string) (interface{}, error) {
	if _, err := h.requireAuth(); err != nil {
		return nil, err
	}

	limit := 20
	if len(args) > 0 {
		if l, err := strconv.Atoi(args[0]); err == nil && l > 0 {
			limit = l
		}
	}

	rooms, err := h.chatSvc.Rooms(ctx, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get rooms: %w", err)
	}

	result := make([]RoomInfo, len(rooms))
	for i, room := range rooms {
		result[i] = RoomInfo{
			ID:                room.ID,
			Name:              room.Name,
			UnreadCount:       room.UnreadCount,
			LastMessageText:   room.LastMessageText,
			LastMessageSender: room.LastMessageSender,
			LastMessageTime:   room.LastMessageTime,
		}
	}
	return map[string]interface{}{"rooms": result, "count": len(result)}, nil
}

func (h *CommandHandler) cmdSearch(ctx context.Context, args []string) (interface{}, error) {
	identity, err := h.requireAuth()
	if err != nil {
		return nil, err
	}
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /search <query> [limit]")
	}

	query := args[0]
	limit := 20

	// Check if last arg is a number (limit)
	if len(args) > 1 {
		if l, err := strconv.Atoi(args[len(args)-1]); err == nil && l > 0 {
			limit = l
			query = strings.Join(args[:len(args)-1], " ")
		} else {
			query = strings.Join(args, " ")
		}
	}

	messages, err := h.chatSvc.SearchArchive(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	result := make([]MessageInfo, len(messages))
	for i, m := range messages {
		result[i] = h.messageInfo(*m, identity.UserID)
	}
	return map[string]interface{}{
		"query":    query,
		"messages": result,
		"count":    len(result),
	}, nil
}

func (h *CommandHandler) messageInfo(m domain.Message, myUserID int64) MessageInfo {
	return MessageInfo{
		MessageID:       m.MessageID,
		ClientMessageID: m.ClientMessageID,
		RoomID:          m.RoomID,
		SenderID:        m.SenderID,
		Content:         m.Content,
		Timestamp:       m.Timestamp,
		UnreadCount:     m.UnreadCount,
		Pending:         m.Pending,
		IsFromMe:        m.SenderID == myUserID,
	}
}

// SubscribeEvents subscribes to bridge events for streaming to the UI
func (h *CommandHandler) SubscribeEvents(eventTypes []domain.EventType) <-chan Event {
	if len(eventTypes) == 0 {
		eventTypes = []domain.EventType{
			domain.EventTypeMessageReceived,
			domain.EventTypeMessageSent,
			domain.EventTypeBotReply,
			domain.EventTypeConnectionStatus,
		}
	}

	eventBus := h.chatSvc.GetEventBus()
	domainChan := eventBus.Subscribe(eventTypes)

	myUserID := int64(0)
	if identity, ok := h.auth.Current(); ok {
		myUserID = identity.UserID
	}

	resultChan := make(chan Event)

	go func() {
		defer close(resultChan)
		for evt := range domainChan {
			var eventType string
			var data interface{}

			switch e := evt.(type) {
			case domain.MessageReceivedEvent:
				eventType = "message_received"
				data = h.messageInfo(*e.Message, myUserID)
			case domain.MessageSentEvent:
				eventType = "message_sent"
				data = h.messageInfo(*e.Message, myUserID)
			case domain.UnreadUpdatedEvent:
				eventType = "unread_updated"
				data = map[string]interface{}{
					"room_id":      e.RoomID,
					"message_id":   e.MessageID,
					"unread_count": e.UnreadCount,
				}
			case domain.BotReplyEvent:
				eventType = "bot_reply"
				data = BotTurnInfo{
					Role:      string(e.Turn.Role),
					Content:   e.Turn.Content,
					Timestamp: e.Turn.Timestamp,
				}
			case domain.ConnectionStatusEvent:
				eventType = "connection_status"
				data = map[string]interface{}{
					"room_id": e.RoomID,
					"state":   e.State.String(),
					"reason":  e.Reason,
				}
			default:
				continue
			}

			resultChan <- Event{
				Type:      eventType,
				Timestamp: time.Now(),
				Data:      data,
			}
		}
	}()

	return resultChan
}
