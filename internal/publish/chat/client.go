// Package chat is the chat-bot publisher and command listener: a thin
// wrapper over the vendor bot HTTP API (sendMessage, long-polling
// getUpdates), access-controlled to a single configured chat id.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"signalbot/internal/errs"
)

const (
	apiBase      = "https://api.telegram.org/bot"
	sendBackoff  = 2 * time.Second
	sendAttempts = 3
)

// Client sends messages to one pre-authorized chat.
type Client struct {
	token      string
	chatID     string
	httpClient *http.Client
}

// New builds a Client for the given bot token and destination chat id.
func New(token, chatID string) *Client {
	return &Client{
		token:      token,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendMessage posts body to the configured chat, retrying transient
// failures with exponential backoff (base 2s, up to 3 attempts).
func (c *Client) SendMessage(ctx context.Context, body string) error {
	var lastErr error
	for attempt := 0; attempt < sendAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sendBackoff * time.Duration(1<<uint(attempt-1))):
			}
		}

		if err := c.send(ctx, body); err != nil {
			lastErr = err
			log.Printf("chat: send attempt %d failed: %v", attempt+1, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("chat: send: %w: %v", errs.ErrNetworkFail, lastErr)
}

func (c *Client) send(ctx context.Context, body string) error {
	url := fmt.Sprintf("%s%s/sendMessage", apiBase, c.token)
	payload := map[string]string{
		"chat_id":    c.chatID,
		"text":       body,
		"parse_mode": "Markdown",
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat API status %s", resp.Status)
	}
	return nil
}
