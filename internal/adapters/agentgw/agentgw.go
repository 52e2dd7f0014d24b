// Package agentgw contains the HTTP client for out-of-process origin agents.
// Each agent type runs behind its own endpoint; the client implements the
// OriginAgent contract so the registry can hold remote and in-process
// handlers interchangeably.
package agentgw

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

const maxResponseSizeBytes = 2 << 20

// Config holds the agent endpoint settings. Endpoints map agent tags to
// base URLs, e.g. HANDOVER_AGENT_ENDPOINTS="PA:http://pa:8080,TA:http://ta:8080".
type Config struct {
	Endpoints map[string]string `envconfig:"ENDPOINTS" split_words:"true"`
	Token     string            `envconfig:"TOKEN" split_words:"true"`
	Timeout   time.Duration     `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
}

// Client dispatches messages to one remote origin agent.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient validates the endpoint and builds an agent client.
func NewClient(endpoint, token string, timeout time.Duration) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if baseURL == "" {
		return nil, errors.New("agent endpoint is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid agent endpoint: %w", err)
	}

	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Handle posts the message to the agent's /v1/handle endpoint and decodes
// the crafted reply. Agent calls are LLM-bound; the generous default timeout
// is deliberate.
func (c *Client) Handle(ctx context.Context, msg secondary.AgentMessage) (*secondary.AgentReply, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal agent message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/handle", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute agent request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read agent response: %w", err)
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("agent status=%d body=%s", resp.StatusCode, string(raw))
	}

	var reply secondary.AgentReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("decode agent reply: %w", err)
	}

	return &reply, nil
}

// Ensure Client implements the interface
var _ secondary.OriginAgent = (*Client)(nil)
