package mcp

import (
	"context"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/soyolab/sns-bridge/internal/service"
)

type ServerConfig struct {
	Address string
}

type Server struct {
	mcpServer  *server.MCPServer
	sseServer  *server.SSEServer
	httpServer *http.Server
	authSvc    *service.AuthService
	chatSvc    *service.ChatService
	config     ServerConfig
}

func NewServer(
	authSvc *service.AuthService,
	chatSvc *service.ChatService,
	config ServerConfig,
) *Server {
	s := &Server{
		authSvc: authSvc,
		chatSvc: chatSvc,
		config:  config,
	}

	s.mcpServer = server.NewMCPServer(
		"sns-bridge",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	s.sseServer = server.NewSSEServer(s.mcpServer,
		server.WithKeepAliveInterval(30*time.Second),
	)

	return s
}

func (s *Server) registerTools() {
	// Feed tools
	s.mcpServer.AddTool(
		mcp.NewTool("sns_latest_posts",
			mcp.WithDescription("Get the latest posts from followed users"),
		),
		s.handleLatestPosts,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("sns_get_post",
			mcp.WithDescription("Get a single post with its full content"),
			mcp.WithNumber("post_id",
				mcp.Required(),
				mcp.Description("ID of the post"),
			),
		),
		s.handleGetPost,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("sns_recent_messages",
			mcp.WithDescription("Get the most recent chat messages across rooms"),
		),
		s.handleRecentMessages,
	)

	// Chat tools
	s.mcpServer.AddTool(
		mcp.NewTool("sns_open_room",
			mcp.WithDescription("Open a chat room. Closes any previously open room and connects the live chat and bot sessions."),
			mcp.WithNumber("room_id",
				mcp.Required(),
				mcp.Description("ID of the room to open"),
			),
		),
		s.handleOpenRoom,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("sns_send_message",
			mcp.WithDescription("Send a text message to the open chat room"),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Message text to send"),
			),
		),
		s.handleSendMessage,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("sns_get_history",
			mcp.WithDescription("Get the message history of a chat room"),
			mcp.WithNumber("room_id",
				mcp.Required(),
				mcp.Description("ID of the room"),
			),
		),
		s.handleGetHistory,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("sns_ask_bot",
			mcp.WithDescription("Send a question to the open room's assistant bot and wait for its reply"),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Question text"),
			),
		),
		s.handleAskBot,
	)

	// Archive tools
	s.mcpServer.AddTool(
		mcp.NewTool("sns_search_messages",
			mcp.WithDescription("Search archived messages by text content"),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Search query text"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum results to return (default 20, max 100)"),
			),
		),
		s.handleSearchMessages,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("sns_list_rooms",
			mcp.WithDescription("List archived chat rooms sorted by most recent activity"),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of rooms to return (default 20, max 100)"),
			),
		),
		s.handleListRooms,
	)

	// Status tool
	s.mcpServer.AddTool(
		mcp.NewTool("sns_connection_status",
			mcp.WithDescription("Get current login and room connection status"),
		),
		s.handleConnectionStatus,
	)
}

func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.Handle("/sse", s.sseServer.SSEHandler())
	mux.Handle("/message", s.sseServer.MessageHandler())

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.httpServer = &http.Server{
		Addr:    s.config.Address,
		Handler: mux,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
