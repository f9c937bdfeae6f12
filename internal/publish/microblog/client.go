// Package microblog is the outbound adapter to the vendor microblog API
// (text posts and image-attached posts), with provider rate-limit handling.
package microblog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"signalbot/internal/errs"
)

const (
	postURL          = "https://api.microblog.example/v2/statuses"
	mediaUploadURL   = "https://api.microblog.example/v2/media"
	defaultResetWait = 15 * time.Minute
)

// Client posts to the microblog feed using API key/secret credentials.
type Client struct {
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// New builds a Client. A zero-value key/secret disables posting; callers
// should check Enabled before invoking PostText/PostWithImage.
func New(apiKey, apiSecret string) *Client {
	return &Client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether credentials were configured.
func (c *Client) Enabled() bool {
	return c.apiKey != "" && c.apiSecret != ""
}

// PostText posts body as a new status. On a rate-limit response it sleeps
// until the provider-supplied reset time (or 15 minutes by default) and
// retries exactly once; a second rate-limit response propagates.
func (c *Client) PostText(ctx context.Context, body string) error {
	return c.postWithRetry(ctx, func() (*http.Response, error) {
		return c.doPost(ctx, postURL, map[string]string{"status": body})
	})
}

// PostWithImage posts body with the image at imagePath attached.
func (c *Client) PostWithImage(ctx context.Context, body, imagePath string) error {
	mediaID, err := c.uploadMedia(ctx, imagePath)
	if err != nil {
		return err
	}
	return c.postWithRetry(ctx, func() (*http.Response, error) {
		return c.doPost(ctx, postURL, map[string]string{"status": body, "media_id": mediaID})
	})
}

func (c *Client) postWithRetry(ctx context.Context, do func() (*http.Response, error)) error {
	resp, err := do()
	if err != nil {
		return fmt.Errorf("microblog: post: %w: %v", errs.ErrNetworkFail, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := retryAfter(resp)
		log.Printf("microblog: rate limited, sleeping %s before single retry", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		resp2, err := do()
		if err != nil {
			return fmt.Errorf("microblog: retry post: %w: %v", errs.ErrNetworkFail, err)
		}
		defer resp2.Body.Close()
		if resp2.StatusCode == http.StatusTooManyRequests {
			return errs.ErrRateLimited
		}
		if resp2.StatusCode >= 300 {
			return fmt.Errorf("microblog: retry post status %s", resp2.Status)
		}
		return nil
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("microblog: post status %s", resp.Status)
	}
	return nil
}

func (c *Client) doPost(ctx context.Context, url string, payload map[string]string) (*http.Response, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	c.setAuth(req)
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

func (c *Client) uploadMedia(ctx context.Context, imagePath string) (string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("microblog: open image: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("media", filepath.Base(imagePath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mediaUploadURL, &buf)
	if err != nil {
		return "", err
	}
	c.setAuth(req)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("microblog: upload media: %w: %v", errs.ErrNetworkFail, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("microblog: upload media status %s", resp.Status)
	}

	var out struct {
		MediaID string `json:"media_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("microblog: decode media response: %w", err)
	}
	return out.MediaID, nil
}

func (c *Client) setAuth(req *http.Request) {
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("X-Api-Secret", c.apiSecret)
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultResetWait
}
