package config

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	Mode         string
	AppAPIURL    string
	ChatAPIURL   string
	ChatWSURL    string
	BotAPIURL    string
	BotWSURL     string
	DatabasePath string
	MCPAddress   string
	LogLevel     string
}

func Load() *Config {
	// Optional .env in the working directory; missing file is fine.
	_ = godotenv.Load()

	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".sns-bridge")

	cfg := &Config{}

	flag.StringVar(&cfg.Mode, "mode", "interactive", "Run mode: interactive, headless, or server")
	flag.StringVar(&cfg.AppAPIURL, "app-api", getEnv("SNS_APP_API_URL", "http://localhost:8080"), "Base URL of the application REST API")
	flag.StringVar(&cfg.ChatAPIURL, "chat-api", getEnv("SNS_CHAT_API_URL", "http://localhost:8081"), "Base URL of the chat service REST API")
	flag.StringVar(&cfg.ChatWSURL, "chat-ws", getEnv("SNS_CHAT_WS_URL", "ws://localhost:8081/ws/chat"), "Chat service WebSocket endpoint")
	flag.StringVar(&cfg.BotAPIURL, "bot-api", getEnv("SNS_BOT_API_URL", "http://localhost:8082"), "Base URL of the bot service REST API")
	flag.StringVar(&cfg.BotWSURL, "bot-ws", getEnv("SNS_BOT_WS_URL", "ws://localhost:8082/ws/bot"), "Bot service WebSocket endpoint")
	flag.StringVar(&cfg.DatabasePath, "db", getEnv("SNS_DATABASE_PATH", filepath.Join(dataDir, "archive.db")), "Archive database file path")
	flag.StringVar(&cfg.MCPAddress, "mcp-port", getEnv("SNS_MCP_ADDRESS", "127.0.0.1:8090"), "MCP SSE server address")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("SNS_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.Parse()

	// Ensure directories exist
	os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755)

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
