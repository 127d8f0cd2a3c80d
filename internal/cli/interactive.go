package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/soyolab/sns-bridge/internal/domain"
)

// InteractiveCLI handles interactive command-line interface
type InteractiveCLI struct {
	handler *CommandHandler
	reader  *bufio.Reader
	writer  io.Writer
}

// NewInteractiveCLI creates a new interactive CLI
func NewInteractiveCLI(handler *CommandHandler) *InteractiveCLI {
	return &InteractiveCLI{
		handler: handler,
		reader:  bufio.NewReader(os.Stdin),
		writer:  os.Stdout,
	}
}

// Run starts the interactive CLI loop
func (cli *InteractiveCLI) Run(ctx context.Context) error {
	cli.printWelcome()

	// Subscribe to events in background
	eventChan := cli.handler.SubscribeEvents([]domain.EventType{
		domain.EventTypeMessageReceived,
		domain.EventTypeBotReply,
		domain.EventTypeConnectionStatus,
	})

	go cli.handleEvents(eventChan)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			cli.print("\n> ")
			line, err := cli.reader.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}

			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if err := cli.processCommand(ctx, line); err != nil {
				if err.Error() == "quit" {
					cli.println("Goodbye!")
					return nil
				}
				cli.printf("Error: %s\n", err)
			}
		}
	}
}

func (cli *InteractiveCLI) printWelcome() {
	cli.println("===========================================")
	cli.println("  SNS Bridge CLI")
	cli.println("===========================================")
	cli.println("Type /help for available commands")
	cli.println("")

	// Show current status
	status, _ := cli.handler.cmdStatus()
	if s, ok := status.(ConnectionStatus); ok {
		cli.printf("Status: %s\n", s.Status)
	}
}

func (cli *InteractiveCLI) processCommand(ctx context.Context, input string) error {
	// Bare text goes to the open room, like typing into the chat box.
	if !strings.HasPrefix(input, "/") {
		input = "/send " + input
	}

	cmd, err := ParseCommand(input)
	if err != nil {
		return err
	}

	result, err := cli.handler.Execute(ctx, cmd)
	if err != nil {
		return err
	}

	// Check for quit command
	if m, ok := result.(map[string]bool); ok && m["quit"] {
		return fmt.Errorf("quit")
	}

	// Format and display result
	cli.displayResult(cmd.Name, result)
	return nil
}

func (cli *InteractiveCLI) displayResult(cmdName string, result interface{}) {
	switch cmdName {
	case "help", "h":
		if m, ok := result.(map[string]string); ok {
			cli.println(m["help"])
		}

	case "status", "s":
		if s, ok := result.(ConnectionStatus); ok {
			cli.printf("Status: %s\n", s.Status)
			cli.printf("  Logged In: %v\n", s.LoggedIn)
			cli.printf("  Chat: %s\n", s.ChatConn)
			cli.printf("  Bot: %s\n", s.BotConn)
		}

	case "whoami", "me", "login":
		if id, ok := result.(IdentityInfo); ok {
			cli.printf("Logged in as %s (user %d)\n", id.Name, id.UserID)
			if id.Email != "" {
				cli.printf("  Email: %s\n", id.Email)
			}
		}

	case "feed":
		if m, ok := result.(map[string]interface{}); ok {
			posts, _ := m["posts"].([]PostInfo)
			cli.printf("Found %d post(s):\n\n", len(posts))
			for i, post := range posts {
				cli.printf("%d. %s (post %d)\n", i+1, post.Title, post.PostID)
				preview := post.Content
				if len(preview) > 80 {
					preview = preview[:80] + "..."
				}
				cli.printf("   %s\n", preview)
			}
		}

	case "post":
		if post, ok := result.(PostInfo); ok {
			cli.printf("%s (post %d)\n", post.Title, post.PostID)
			if post.Author != "" {
				cli.printf("by %s\n", post.Author)
			}
			cli.println("")
			cli.println(post.Content)
		}

	case "inbox":
		if m, ok := result.(map[string]interface{}); ok {
			messages, _ := m["messages"].([]InboxInfo)
			cli.printf("Found %d message(s):\n\n", len(messages))
			for i, msg := range messages {
				cli.printf("%d. [%s] %s:\n", i+1, msg.SentAt.Format("2006-01-02 15:04"), msg.SenderName)
				cli.printf("   %s\n", msg.Content)
			}
		}

	case "rooms", "ls":
		if m, ok := result.(map[string]interface{}); ok {
			rooms, _ := m["rooms"].([]RoomInfo)
			cli.printf("Found %d room(s):\n\n", len(rooms))
			for i, room := range rooms {
				unread := ""
				if room.UnreadCount > 0 {
					unread = fmt.Sprintf(" [%d unread]", room.UnreadCount)
				}
				cli.printf("%d. %s (room %d)%s\n", i+1, room.Name, room.ID, unread)
				if room.LastMessageText != "" {
					preview := room.LastMessageText
					if len(preview) > 50 {
						preview = preview[:50] + "..."
					}
					cli.printf("   Last: %s: %s\n", room.LastMessageSender, preview)
				}
			}
		}

	case "history", "msg":
		if m, ok := result.(map[string]interface{}); ok {
			messages, _ := m["messages"].([]MessageInfo)
			cli.printf("Found %d message(s):\n\n", len(messages))
			for _, msg := range messages {
				cli.printMessage(msg)
			}
		}

	case "send":
		if msg, ok := result.(MessageInfo); ok {
			cli.printf("Message sent!\n")
			if msg.Pending {
				cli.println("  (pending server confirmation)")
			}
			cli.printf("  Time: %s\n", msg.Timestamp.Format("2006-01-02 15:04:05"))
		}

	case "search":
		if m, ok := result.(map[string]interface{}); ok {
			query, _ := m["query"].(string)
			messages, _ := m["messages"].([]MessageInfo)
			cli.printf("Search results for '%s' (%d found):\n\n", query, len(messages))
			for i, msg := range messages {
				sender := "Me"
				if !msg.IsFromMe {
					sender = fmt.Sprintf("user %d", msg.SenderID)
				}
				text := msg.Content
				if len(text) > 80 {
					text = text[:80] + "..."
				}
				cli.printf("%d. [%s] %s:\n", i+1, msg.Timestamp.Format("2006-01-02 15:04"), sender)
				cli.printf("   %s\n", text)
				cli.printf("   Room: %d | ID: %d\n\n", msg.RoomID, msg.MessageID)
			}
		}

	default:
		// Generic JSON output for other commands
		if m, ok := result.(map[string]string); ok {
			if msg, exists := m["message"]; exists {
				cli.println(msg)
				return
			}
		}
		// Pretty print JSON
		data, _ := json.MarshalIndent(result, "", "  ")
		cli.println(string(data))
	}
}

func (cli *InteractiveCLI) printMessage(msg MessageInfo) {
	sender := "Me"
	if !msg.IsFromMe {
		sender = fmt.Sprintf("user %d", msg.SenderID)
	}
	timestamp := msg.Timestamp.Format("2006-01-02 15:04")
	cli.printf("[%s] %s:\n", timestamp, sender)
	cli.printf("  %s\n", msg.Content)
	if msg.Pending {
		cli.println("  (pending)")
	} else if msg.UnreadCount > 0 {
		cli.printf("  (unread by %d)\n", msg.UnreadCount)
	}
	cli.println("")
}

func (cli *InteractiveCLI) handleEvents(eventChan <-chan Event) {
	for event := range eventChan {
		switch event.Type {
		case "message_received":
			if msg, ok := event.Data.(MessageInfo); ok {
				if msg.IsFromMe {
					continue
				}
				cli.printf("\n[New Message] From user %d:\n", msg.SenderID)
				cli.printf("  %s\n", msg.Content)
				cli.print("> ")
			}
		case "bot_reply":
			if turn, ok := event.Data.(BotTurnInfo); ok {
				cli.printf("\n[Bot]\n  %s\n", turn.Content)
				cli.print("> ")
			}
		case "connection_status":
			if data, ok := event.Data.(map[string]interface{}); ok {
				state, _ := data["state"].(string)
				reason, _ := data["reason"].(string)
				if reason != "" {
					cli.printf("\n[Connection: %s (%s)]\n", state, reason)
				} else {
					cli.printf("\n[Connection: %s]\n", state)
				}
				cli.print("> ")
			}
		}
	}
}

func (cli *InteractiveCLI) print(s string) {
	fmt.Fprint(cli.writer, s)
}

func (cli *InteractiveCLI) println(s string) {
	fmt.Fprintln(cli.writer, s)
}

func (cli *InteractiveCLI) printf(format string, args ...interface{}) {
	fmt.Fprintf(cli.writer, format, args...)
}
