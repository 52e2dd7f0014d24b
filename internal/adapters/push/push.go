// Package push contains the HTTP client for the notification gateway.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/handover/internal/ports/secondary"
)

const maxResponseSizeBytes = 1 << 20

// Config holds the gateway connection settings.
type Config struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

// Client sends push notifications through the gateway's REST endpoint.
// Delivery is at-least-once on the gateway side; callers treat failures as
// non-fatal.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient validates the config and builds a gateway client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("push gateway url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid push gateway url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type pushRequest struct {
	SchoolID string `json:"school_id"`
	Target   string `json:"target"`
	Text     string `json:"text"`
}

// SendPush delivers one message to one recipient.
func (c *Client) SendPush(ctx context.Context, schoolID, target, text string) error {
	if target == "" {
		return errors.New("push target is required")
	}

	body, err := json.Marshal(pushRequest{SchoolID: schoolID, Target: target, Text: text})
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/push", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute push request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read push response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("push gateway status=%d body=%s", resp.StatusCode, string(raw))
	}

	return nil
}

// Ensure Client implements the interface
var _ secondary.PushSender = (*Client)(nil)
