package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/soyolab/sns-bridge/internal/api"
	"github.com/soyolab/sns-bridge/internal/cli"
	"github.com/soyolab/sns-bridge/internal/config"
	"github.com/soyolab/sns-bridge/internal/domain"
	"github.com/soyolab/sns-bridge/internal/logger"
	"github.com/soyolab/sns-bridge/internal/realtime"
	"github.com/soyolab/sns-bridge/internal/repository"
	"github.com/soyolab/sns-bridge/internal/service"
	mcpTransport "github.com/soyolab/sns-bridge/internal/transport/mcp"
)

// RunMode defines how the application runs
type RunMode string

const (
	RunModeServer      RunMode = "server"
	RunModeInteractive RunMode = "interactive"
	RunModeHeadless    RunMode = "headless"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Interactive and headless modes own stdout, keep logs quiet there.
	logLevel := cfg.LogLevel
	if RunMode(cfg.Mode) != RunModeServer && logLevel == "info" {
		logLevel = "error"
	}
	logger.Init(logLevel)

	// Initialize archive database
	db, err := initDatabase(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize repositories
	msgRepo := repository.NewMessageRepository(db)
	roomRepo := repository.NewRoomRepository(db)

	// Initialize event bus
	eventBus := domain.NewEventBus()

	// Initialize backend client; the dialer shares its cookie jar so the
	// WebSocket handshake carries the session cookie.
	apiClient, err := api.NewClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize API client: %v", err)
	}
	dialer := &realtime.WebsocketDialer{Jar: apiClient.CookieJar()}

	// Initialize services
	authSvc := service.NewAuthService(apiClient)
	chatSvc := service.NewChatService(
		apiClient,
		dialer,
		cfg.ChatWSURL,
		cfg.BotWSURL,
		eventBus,
		authSvc,
		msgRepo,
		roomRepo,
	)
	defer chatSvc.Close()

	// Restore a previous login from the session cookie, if any
	ctx := context.Background()
	authSvc.ValidateSession(ctx)

	switch RunMode(cfg.Mode) {
	case RunModeHeadless:
		runHeadlessMode(ctx, authSvc, chatSvc)
	case RunModeServer:
		runServerMode(ctx, cfg, authSvc, chatSvc)
	default:
		runInteractiveMode(ctx, authSvc, chatSvc)
	}
}

func runServerMode(ctx context.Context, cfg *config.Config, authSvc *service.AuthService, chatSvc *service.ChatService) {
	log.Printf("SNS Bridge starting...")
	log.Printf("Database: %s", cfg.DatabasePath)
	log.Printf("MCP address: %s", cfg.MCPAddress)

	// Initialize MCP SSE server
	mcpServer := mcpTransport.NewServer(
		authSvc,
		chatSvc,
		mcpTransport.ServerConfig{
			Address: cfg.MCPAddress,
		},
	)

	// Error channel for server errors
	errCh := make(chan error, 1)

	// Start MCP SSE server
	go func() {
		log.Printf("Starting MCP SSE server on %s", cfg.MCPAddress)
		if err := mcpServer.Start(); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	// Print ready message for subprocess coordination
	fmt.Println("ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Printf("Server error: %v", err)
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Printf("Closing open room...")
	chatSvc.CloseRoom()

	log.Printf("Stopping MCP server...")
	if err := mcpServer.Stop(shutdownCtx); err != nil {
		log.Printf("MCP server stop error: %v", err)
	}

	log.Printf("Shutdown complete")
}

func runInteractiveMode(ctx context.Context, authSvc *service.AuthService, chatSvc *service.ChatService) {
	// Create CLI handler and interactive CLI
	handler := cli.NewCommandHandler(authSvc, chatSvc)
	interactiveCLI := cli.NewInteractiveCLI(handler)

	// Setup signal handling
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	// Run interactive CLI
	if err := interactiveCLI.Run(ctx); err != nil && err != context.Canceled {
		log.Printf("CLI error: %v", err)
	}

	// Cleanup
	chatSvc.CloseRoom()
}

func runHeadlessMode(ctx context.Context, authSvc *service.AuthService, chatSvc *service.ChatService) {
	// Create CLI handler and headless CLI
	handler := cli.NewCommandHandler(authSvc, chatSvc)
	headlessCLI := cli.NewHeadlessCLI(handler)

	// Setup signal handling
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	// Run headless CLI
	if err := headlessCLI.Run(ctx); err != nil && err != context.Canceled {
		log.Printf("CLI error: %v", err)
	}

	// Cleanup
	chatSvc.CloseRoom()
}

func initDatabase(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	db.Exec("PRAGMA journal_mode=WAL")

	// Auto-migrate models
	err = db.AutoMigrate(
		&repository.MessageModel{},
		&repository.RoomModel{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
