package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/soyolab/sns-bridge/internal/domain"
)

func (s *Server) handleLatestPosts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	posts, err := s.chatSvc.Feed(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get posts: %v", err)), nil
	}

	if len(posts) == 0 {
		return mcp.NewToolResultText("No posts found. Follow some users first."), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Found %d post(s):\n\n", len(posts)))

	for i, post := range posts {
		result.WriteString(fmt.Sprintf("%d. %s (post %d)\n", i+1, post.Title, post.PostID))
		preview := post.Content
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		result.WriteString(fmt.Sprintf("   %s\n\n", preview))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) handleGetPost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	postID := request.GetInt("post_id", 0)
	if postID <= 0 {
		return mcp.NewToolResultError("post_id is required"), nil
	}

	post, err := s.chatSvc.Post(ctx, int64(postID))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get post: %v", err)), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("%s (post %d)\n", post.Title, post.PostID))
	if post.AuthorName != "" {
		result.WriteString(fmt.Sprintf("by %s\n", post.AuthorName))
	}
	result.WriteString("\n")
	result.WriteString(post.Content)

	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) handleRecentMessages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	messages, err := s.chatSvc.Inbox(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get messages: %v", err)), nil
	}

	if len(messages) == 0 {
		return mcp.NewToolResultText("No recent messages."), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Found %d message(s):\n\n", len(messages)))

	for i, msg := range messages {
		result.WriteString(fmt.Sprintf("%d. [%s] %s:\n", i+1, msg.SentAt.Format("2006-01-02 15:04"), msg.SenderName))
		result.WriteString(fmt.Sprintf("   %s\n\n", msg.Content))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) handleOpenRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID := request.GetInt("room_id", 0)
	if roomID <= 0 {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	if err := s.chatSvc.OpenRoom(ctx, int64(roomID)); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to open room: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Opened room %d. Live chat and bot sessions are connecting.", roomID)), nil
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := request.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("text is required"), nil
	}

	msg, err := s.chatSvc.Send(text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to send message: %v", err)), nil
	}

	roomID, _ := s.chatSvc.CurrentRoom()
	return mcp.NewToolResultText(fmt.Sprintf("Message sent to room %d!\nTimestamp: %s\nPending confirmation: %v",
		roomID, msg.Timestamp.Format("2006-01-02 15:04:05"), msg.Pending)), nil
}

func (s *Server) handleGetHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID := request.GetInt("room_id", 0)
	if roomID <= 0 {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	messages, err := s.chatSvc.History(ctx, int64(roomID))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get history: %v", err)), nil
	}

	if len(messages) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No messages in room %d", roomID)), nil
	}

	myUserID := int64(0)
	if identity, ok := s.authSvc.Current(); ok {
		myUserID = identity.UserID
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Messages from room %d (%d):\n\n", roomID, len(messages)))

	for _, msg := range messages {
		sender := "Me"
		if !msg.IsFrom(myUserID) {
			sender = fmt.Sprintf("user %d", msg.SenderID)
		}

		result.WriteString(fmt.Sprintf("[%s] %s:\n", msg.Timestamp.Format("2006-01-02 15:04"), sender))
		result.WriteString(fmt.Sprintf("  %s\n", msg.Content))
		if msg.UnreadCount > 0 {
			result.WriteString(fmt.Sprintf("  (unread by %d)\n", msg.UnreadCount))
		}
		result.WriteString(fmt.Sprintf("  ID: %d\n\n", msg.MessageID))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) handleAskBot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := request.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("text is required"), nil
	}

	reply, err := s.chatSvc.AskBot(ctx, text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Bot request failed: %v", err)), nil
	}

	return mcp.NewToolResultText(reply), nil
}

func (s *Server) handleSearchMessages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	limit := request.GetInt("limit", 20)
	if limit > 100 {
		limit = 100
	}
	if limit <= 0 {
		limit = 20
	}

	messages, err := s.chatSvc.SearchArchive(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}

	if len(messages) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No messages found matching '%s'", query)), nil
	}

	myUserID := int64(0)
	if identity, ok := s.authSvc.Current(); ok {
		myUserID = identity.UserID
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Search results for '%s' (%d found):\n\n", query, len(messages)))

	for i, msg := range messages {
		sender := "Me"
		if !msg.IsFrom(myUserID) {
			sender = fmt.Sprintf("user %d", msg.SenderID)
		}

		result.WriteString(fmt.Sprintf("%d. [%s] %s:\n", i+1, msg.Timestamp.Format("2006-01-02 15:04"), sender))
		result.WriteString(fmt.Sprintf("   Room: %d\n", msg.RoomID))

		text := msg.Content
		if len(text) > 100 {
			text = text[:100] + "..."
		}
		result.WriteString(fmt.Sprintf("   %s\n", text))
		result.WriteString(fmt.Sprintf("   ID: %d\n\n", msg.MessageID))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 20)
	if limit > 100 {
		limit = 100
	}
	if limit <= 0 {
		limit = 20
	}

	rooms, err := s.chatSvc.Rooms(ctx, limit, 0)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get rooms: %v", err)), nil
	}

	if len(rooms) == 0 {
		return mcp.NewToolResultText("No rooms archived yet. Open a room to start archiving."), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Found %d room(s):\n\n", len(rooms)))

	for i, room := range rooms {
		result.WriteString(fmt.Sprintf("%d. %s (room %d)\n", i+1, room.Name, room.ID))

		if room.UnreadCount > 0 {
			result.WriteString(fmt.Sprintf("   Unread: %d message(s)\n", room.UnreadCount))
		}

		if room.LastMessageText != "" {
			preview := room.LastMessageText
			if len(preview) > 60 {
				preview = preview[:60] + "..."
			}
			result.WriteString(fmt.Sprintf("   Last: %s: %s\n", room.LastMessageSender, preview))
			if !room.LastMessageTime.IsZero() {
				result.WriteString(fmt.Sprintf("   Time: %s\n", room.LastMessageTime.Format("2006-01-02 15:04")))
			}
		}
		result.WriteString("\n")
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) handleConnectionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, loggedIn := s.authSvc.Current()
	chatState, botState := s.chatSvc.ConnectionState()
	roomID, hasRoom := s.chatSvc.CurrentRoom()

	var status string
	switch {
	case !loggedIn:
		status = "Not logged in"
	case !hasRoom:
		status = "Logged in, no open room"
	case chatState == domain.ConnConnected:
		status = fmt.Sprintf("Connected to room %d", roomID)
	default:
		status = fmt.Sprintf("Room %d: %s", roomID, chatState)
	}

	return mcp.NewToolResultText(fmt.Sprintf("Status: %s\nLogged In: %v\nChat: %s\nBot: %s",
		status, loggedIn, chatState, botState)), nil
}
