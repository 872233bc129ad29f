// Package responder provides the HTTP client for the external
// response-generation collaborator.
package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/voicetutor/internal/conversation"
)

// Request types understood by the collaborator.
const (
	TypeChat           = "chat"
	TypeAvatarResponse = "avatar_response"
)

// UserInfo identifies the learner on whose behalf a response is generated.
type UserInfo struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ClientConfig configures the responder client.
type ClientConfig struct {
	ServerURL string        // e.g. "http://localhost:8080"
	Timeout   time.Duration // per-request timeout
	UserID    string        // default user id
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		ServerURL: "http://localhost:8080",
		Timeout:   30 * time.Second,
		UserID:    "default-user",
	}
}

// generateRequest is the wire request.
type generateRequest struct {
	Prompt  string                      `json:"prompt"`
	Type    string                      `json:"type"`
	User    UserInfo                    `json:"user"`
	Context conversation.ContextPayload `json:"conversationContext"`
}

// generateResponse is the wire response. The collaborator answers with
// either "message" or "response" depending on version; both are accepted.
type generateResponse struct {
	Message  string `json:"message,omitempty"`
	Response string `json:"response,omitempty"`
	Type     string `json:"type,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Client talks to the response-generation collaborator.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	logger     zerolog.Logger

	mu        sync.RWMutex
	reachable bool
}

// NewClient creates a responder client.
func NewClient(cfg *ClientConfig, logger zerolog.Logger) *Client {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With().Str("component", "responder-client").Logger(),
	}
}

// Generate asks the collaborator for a response to prompt given the
// bounded conversation context. Failures are returned as errors; the
// coordinator converts them to the fallback utterance.
func (c *Client) Generate(ctx context.Context, prompt, reqType string, user UserInfo, payload conversation.ContextPayload) (string, error) {
	if user.ID == "" {
		user.ID = c.config.UserID
	}
	if reqType == "" {
		reqType = TypeAvatarResponse
	}

	body, err := json.Marshal(generateRequest{
		Prompt:  prompt,
		Type:    reqType,
		User:    user,
		Context: payload,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.ServerURL+"/v1/respond", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug().
		Str("type", reqType).
		Int("contextEntries", len(payload.Entries)).
		Msg("requesting response generation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setReachable(false)
		return "", fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.setReachable(false)
		return "", fmt.Errorf("generation failed: %d - %s", resp.StatusCode, string(msg))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("collaborator error: %s", out.Error)
	}

	c.setReachable(true)
	text := out.Message
	if text == "" {
		text = out.Response
	}
	return text, nil
}

// IsReachable reports the result of the last request.
func (c *Client) IsReachable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reachable
}

func (c *Client) setReachable(ok bool) {
	c.mu.Lock()
	c.reachable = ok
	c.mu.Unlock()
}
