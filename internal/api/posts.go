package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/soyolab/sns-bridge/internal/domain"
)

type postDTO struct {
	PostID  int64  `json:"postId"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type postsResponse struct {
	Posts []postDTO `json:"posts"`
}

// LatestFollowingPosts fetches the home-feed posts from followed users.
func (c *Client) LatestFollowingPosts(ctx context.Context) ([]domain.Post, error) {
	var resp postsResponse
	err := c.doRequest(ctx, http.MethodGet, c.appBaseURL, "/api/posts/following/latest", nil, &resp)
	if err != nil {
		return nil, err
	}

	posts := make([]domain.Post, len(resp.Posts))
	for i, p := range resp.Posts {
		posts[i] = domain.Post{PostID: p.PostID, Title: p.Title, Content: p.Content}
	}
	return posts, nil
}

type postDetailDTO struct {
	PostID  int64  `json:"postId"`
	Title   string `json:"title"`
	Content string `json:"content"`
	User    struct {
		Name string `json:"name"`
	} `json:"user"`
}

func (c *Client) GetPost(ctx context.Context, postID int64) (*domain.PostDetail, error) {
	var dto postDetailDTO
	err := c.doRequest(ctx, http.MethodGet, c.appBaseURL, fmt.Sprintf("/api/posts/%d", postID), nil, &dto)
	if err != nil {
		return nil, err
	}

	return &domain.PostDetail{
		PostID:     dto.PostID,
		Title:      dto.Title,
		Content:    dto.Content,
		AuthorName: dto.User.Name,
	}, nil
}

type inboxMessageDTO struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"senderId"`
	SenderName string    `json:"senderName"`
	Message    string    `json:"message"`
	SentAt     time.Time `json:"sentAt"`
}

type inboxResponse struct {
	Messages []inboxMessageDTO `json:"messages"`
}

// RecentMessages fetches the recent chat messages shown on the home page.
func (c *Client) RecentMessages(ctx context.Context) ([]domain.InboxMessage, error) {
	var resp inboxResponse
	err := c.doRequest(ctx, http.MethodGet, c.appBaseURL, "/api/chat/messages", nil, &resp)
	if err != nil {
		return nil, err
	}

	messages := make([]domain.InboxMessage, len(resp.Messages))
	for i, m := range resp.Messages {
		messages[i] = domain.InboxMessage{
			ID:         m.ID,
			SenderID:   m.SenderID,
			SenderName: m.SenderName,
			Content:    m.Message,
			SentAt:     m.SentAt,
		}
	}
	return messages, nil
}
