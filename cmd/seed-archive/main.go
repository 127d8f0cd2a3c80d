package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/soyolab/sns-bridge/internal/domain"
	"github.com/soyolab/sns-bridge/internal/repository"
)

func main() {
	// Default to a dummy archive in the current directory
	dbPath := "dummy_archive.db"
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}

	fmt.Printf("Using database at: %s\n", dbPath)

	db, err := initDatabase(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Delete all messages but keep room rollups
	ctx := context.Background()
	if err := db.WithContext(ctx).Exec("DELETE FROM messages").Error; err != nil {
		log.Fatalf("Failed to delete messages: %v", err)
	}
	fmt.Println("Deleted all messages from database")

	if err := seedDummyData(db); err != nil {
		log.Fatalf("Failed to seed dummy data: %v", err)
	}

	fmt.Println("Successfully regenerated messages for all rooms!")
	fmt.Printf("Database location: %s\n", dbPath)
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

	err = db.AutoMigrate(
		&repository.MessageModel{},
		&repository.RoomModel{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func seedDummyData(db *gorm.DB) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	roomNames := []string{
		"General",
		"Weekend Plans",
		"Study Group",
		"Travel Buddies",
		"Gaming Squad",
	}

	sampleTexts := []string{
		"Hey! How are you doing?",
		"Just checking in",
		"Can we meet tomorrow?",
		"Thanks for your help!",
		"See you later!",
		"That sounds great!",
		"Let me know when you're free",
		"Perfect! I'll be there",
		"Did you see the latest post?",
		"Have a great day!",
		"What time works for you?",
		"I'll send it over shortly",
		"Looking forward to it!",
		"Let's catch up soon",
		"Hope you're doing well",
	}

	const myUserID int64 = 1

	roomRepo := repository.NewRoomRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	ctx := context.Background()

	now := time.Now()
	nextMessageID := int64(1000)

	for i, name := range roomNames {
		roomID := int64(i + 1)
		room := &domain.Room{ID: roomID, Name: name}

		// Generate 10-15 messages per room, oldest first
		numMessages := 10 + rng.Intn(6)
		daysAgo := 1 + rng.Intn(3)
		messageTime := now.Add(-time.Duration(daysAgo) * 24 * time.Hour)

		var lastMessage *domain.Message
		unreadCount := 0

		for j := 0; j < numMessages; j++ {
			if j > 0 {
				intervalMinutes := 10 + rng.Intn(50)
				messageTime = messageTime.Add(time.Duration(intervalMinutes) * time.Minute)
				if messageTime.After(now) {
					messageTime = now.Add(-time.Duration(rng.Intn(30)) * time.Minute)
				}
			}

			senderID := myUserID
			if rng.Float32() < 0.6 {
				senderID = int64(2 + rng.Intn(4))
			}

			msg := &domain.Message{
				MessageID: nextMessageID,
				RoomID:    roomID,
				SenderID:  senderID,
				Content:   sampleTexts[rng.Intn(len(sampleTexts))],
				Timestamp: messageTime,
			}
			nextMessageID++

			// The last couple of messages from others stay unread
			if senderID != myUserID && j >= numMessages-2 {
				msg.UnreadCount = 1
				unreadCount++
			}

			if err := msgRepo.CreateOrIgnore(ctx, msg); err != nil {
				return fmt.Errorf("failed to create message: %w", err)
			}
			lastMessage = msg
		}

		room.UnreadCount = unreadCount
		room.LastMessageTime = lastMessage.Timestamp
		room.LastMessageText = lastMessage.Content
		if lastMessage.IsFrom(myUserID) {
			room.LastMessageSender = "me"
		} else {
			room.LastMessageSender = fmt.Sprintf("user %d", lastMessage.SenderID)
		}

		if err := roomRepo.Upsert(ctx, room); err != nil {
			return fmt.Errorf("failed to upsert room %d: %w", roomID, err)
		}

		fmt.Printf("Created room: %s (room %d) with %d messages (unread count: %d)\n",
			room.Name, roomID, numMessages, room.UnreadCount)
	}

	return nil
}
