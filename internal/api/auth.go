package api

import (
	"context"
	"net/http"

	"github.com/soyolab/sns-bridge/internal/domain"
)

type loginRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

// Login authenticates against the application API. On success the backend
// sets the session cookie on the shared jar.
func (c *Client) Login(ctx context.Context, userID, password string) (*domain.Identity, error) {
	var identity domain.Identity
	err := c.doRequest(ctx, http.MethodPost, c.appBaseURL, "/api/user/login",
		loginRequest{UserID: userID, Password: password}, &identity)
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPost, c.appBaseURL, "/api/user/logout", nil, nil)
}

// ValidateToken checks the server-side session and returns the identity it
// belongs to. Used once at startup to restore a previous login.
func (c *Client) ValidateToken(ctx context.Context) (*domain.Identity, error) {
	var identity domain.Identity
	err := c.doRequest(ctx, http.MethodPost, c.appBaseURL, "/api/user/validate-token", nil, &identity)
	if err != nil {
		return nil, err
	}
	return &identity, nil
}
