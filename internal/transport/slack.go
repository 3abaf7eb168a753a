package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultSlackBaseURL = "https://slack.com/api"

// SlackClient implements Chat against the Slack Web API.
type SlackClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// SlackOption configures a SlackClient.
type SlackOption func(*SlackClient)

// WithSlackBaseURL overrides the API base URL (tests).
func WithSlackBaseURL(u string) SlackOption {
	return func(c *SlackClient) { c.baseURL = u }
}

// WithSlackHTTPClient overrides the HTTP client.
func WithSlackHTTPClient(h *http.Client) SlackOption {
	return func(c *SlackClient) { c.client = h }
}

// WithSlackLogger sets a logger.
func WithSlackLogger(l *zap.Logger) SlackOption {
	return func(c *SlackClient) { c.logger = l }
}

// NewSlackClient creates a client using the given bot token.
func NewSlackClient(token string, opts ...SlackOption) *SlackClient {
	c := &SlackClient{
		baseURL: defaultSlackBaseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	TS    string `json:"ts"`
	Error string `json:"error"`
}

// PostMessage implements Chat.
func (c *SlackClient) PostMessage(ctx context.Context, channel, threadTS, text string, blocks []Block) (string, error) {
	payload := map[string]any{
		"channel": channel,
		"text":    text,
	}
	if threadTS != "" {
		payload["thread_ts"] = threadTS
	}
	if len(blocks) > 0 {
		payload["blocks"] = blocks
	}

	resp, err := c.call(ctx, "chat.postMessage", payload)
	if err != nil {
		return "", err
	}
	return resp.TS, nil
}

// UpdateMessage implements Chat.
func (c *SlackClient) UpdateMessage(ctx context.Context, channel, ts, text string) error {
	_, err := c.call(ctx, "chat.update", map[string]any{
		"channel": channel,
		"ts":      ts,
		"text":    text,
	})
	return err
}

func (c *SlackClient) call(ctx context.Context, method string, payload map[string]any) (*slackResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	httpResp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("slack call failed", zap.String("method", method), zap.Error(err))
		return nil, fmt.Errorf("%s request: %w", method, err)
	}
	defer httpResp.Body.Close()

	var resp slackResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if !resp.OK {
		c.logger.Warn("slack call rejected", zap.String("method", method), zap.String("api_error", resp.Error))
		return nil, fmt.Errorf("%s failed: %s", method, resp.Error)
	}
	c.logger.Debug("slack call ok", zap.String("method", method))
	return &resp, nil
}
