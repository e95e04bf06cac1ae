package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tele "gopkg.in/telebot.v4"

	"goalbot/internal/logger"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// Client talks to the Telegram Bot API directly. Update payloads are decoded
// into telebot types so the wire schema stays exactly compatible with the
// real API; the poll cycle itself is owned by the caller.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides the Bot API host, mostly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient replaces the default tuned HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient builds a Bot API client for the given token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: defaultAPIBaseURL,
		http:    BuildHTTPClient(70 * time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type getUpdatesReply struct {
	OK          bool          `json:"ok"`
	Result      []tele.Update `json:"result"`
	Description string        `json:"description,omitempty"`
}

type sendMessageReply struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// GetUpdates long-polls the Bot API for updates starting at offset.
// The call blocks server-side up to timeout and returns an empty batch when
// nothing arrived. Updates come back ordered by update_id ascending.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]tele.Update, error) {
	payload := map[string]any{
		"allowed_updates": []string{"message"},
	}
	if offset > 0 {
		payload["offset"] = offset
	}
	if timeout > 0 {
		payload["timeout"] = int(timeout.Round(time.Second).Seconds())
	}

	start := time.Now()
	var parsed getUpdatesReply
	if err := c.call(ctx, "getUpdates", payload, &parsed); err != nil {
		return nil, err
	}
	if !parsed.OK {
		return nil, &APIError{StatusCode: http.StatusOK, Description: parsed.Description}
	}

	if len(parsed.Result) > 0 {
		logger.TG.Debug("updates fetched",
			slog.String("event", "get_updates"),
			slog.Int("count", len(parsed.Result)),
			slog.Int64("offset", offset),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return parsed.Result, nil
}

// SendMessage delivers a plain text message to a chat. There is no built-in
// retry beyond the transport level; a failure is reported to the caller.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}

	var parsed sendMessageReply
	if err := c.call(ctx, "sendMessage", payload, &parsed); err != nil {
		return err
	}
	if !parsed.OK {
		return &APIError{StatusCode: http.StatusOK, Description: parsed.Description}
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, payload map[string]any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s encode: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reply, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &APIError{StatusCode: resp.StatusCode, Description: string(reply)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProtocolError{Method: method, Err: err}
	}
	return nil
}
