package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/soyolab/sns-bridge/internal/config"
	"github.com/soyolab/sns-bridge/internal/logger"
)

var ErrUnauthorized = errors.New("api: unauthorized")

// Envelope is the uniform body every enveloped backend endpoint replies with.
type Envelope struct {
	Success  bool            `json:"success"`
	Response json.RawMessage `json:"response"`
	Error    *ErrorBody      `json:"error"`
}

type ErrorBody struct {
	Message string `json:"message"`
}

// Client is a wrapper around the SNS backends. Authentication is a session
// cookie issued on login and carried by the shared cookie jar; the same jar
// is handed to the realtime dialer.
type Client struct {
	appBaseURL  string
	chatBaseURL string
	botBaseURL  string
	httpClient  *http.Client
	jar         http.CookieJar
	log         zerolog.Logger
}

// NewClient creates a new backend client with the given configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		appBaseURL:  strings.TrimRight(cfg.AppAPIURL, "/"),
		chatBaseURL: strings.TrimRight(cfg.ChatAPIURL, "/"),
		botBaseURL:  strings.TrimRight(cfg.BotAPIURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
		jar: jar,
		log: logger.Module("api"),
	}, nil
}

// CookieJar exposes the session cookie jar for the realtime dialer.
func (c *Client) CookieJar() http.CookieJar {
	return c.jar
}

// doRequest executes a request against one of the backends and unwraps the
// response envelope into out.
func (c *Client) doRequest(ctx context.Context, method, base, endpoint string, body interface{}, out interface{}) error {
	respBody, err := c.doRaw(ctx, method, base, endpoint, body)
	if err != nil {
		return err
	}

	var env Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to parse response envelope: %w", err)
	}

	if !env.Success {
		if env.Error != nil && env.Error.Message != "" {
			return errors.New(env.Error.Message)
		}
		return errors.New("request rejected by backend")
	}

	if out != nil && len(env.Response) > 0 {
		if err := json.Unmarshal(env.Response, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// doRaw executes a request and returns the raw body. Used directly for the
// bot service, which does not wrap its responses in the envelope.
func (c *Client) doRaw(ctx context.Context, method, base, endpoint string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("backend error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
