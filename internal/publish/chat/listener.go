package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// update is the subset of the vendor Update object the listener needs.
type update struct {
	UpdateID int `json:"update_id"`
	Message  struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			Username string `json:"username"`
		} `json:"from"`
	} `json:"message"`
}

type updateResponse struct {
	Ok          bool     `json:"ok"`
	Result      []update `json:"result"`
	Description string   `json:"description"`
	ErrorCode   int      `json:"error_code"`
}

// CommandHandler processes one inbound command and returns the reply text.
type CommandHandler func(chatID string, command string) string

// Listen long-polls getUpdates until ctx is cancelled, dispatching
// authorized commands to handle and replying with its return value.
// Messages from chat ids other than the Client's configured chatID are
// logged and dropped.
func (c *Client) Listen(ctx context.Context, handle CommandHandler) {
	authChatID, err := strconv.ParseInt(c.chatID, 10, 64)
	if err != nil {
		log.Printf("chat: listener disabled, chat id %q is not numeric", c.chatID)
		return
	}

	offset := 0
	log.Println("chat: listener started")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		req, err := c.pollRequest(ctx, offset)
		if err != nil {
			log.Printf("chat: poll request build failed: %v", err)
			sleepOrDone(ctx, 5*time.Second)
			continue
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Printf("chat: poll failed: %v", err)
			sleepOrDone(ctx, 5*time.Second)
			continue
		}

		var result updateResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if decodeErr != nil {
			log.Printf("chat: poll decode failed: %v", decodeErr)
			sleepOrDone(ctx, 5*time.Second)
			continue
		}
		if !result.Ok {
			log.Printf("chat: poll API error: %s (code %d)", result.Description, result.ErrorCode)
			sleepOrDone(ctx, 5*time.Second)
			continue
		}

		for _, u := range result.Result {
			offset = u.UpdateID + 1

			chatID := u.Message.Chat.ID
			text := strings.TrimSpace(u.Message.Text)

			if chatID != authChatID {
				log.Printf("chat: unauthorized message from chat %d (user %s)", chatID, u.Message.From.Username)
				continue
			}
			if !strings.HasPrefix(text, "/") {
				continue
			}

			reply := handle(c.chatID, text)
			if reply != "" {
				if err := c.SendMessage(ctx, reply); err != nil {
					log.Printf("chat: reply send failed: %v", err)
				}
			}
		}
	}
}

func (c *Client) pollRequest(ctx context.Context, offset int) (*http.Request, error) {
	url := fmt.Sprintf("%s%s/getUpdates?offset=%d&timeout=60", apiBase, c.token, offset)
	return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
