// Package brevo sends the transactional welcome email after a successful
// registration.
package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultAPIURL = "https://api.brevo.com/v3/smtp/email"

type Client struct {
	apiKey     string
	templateID int
	client     *http.Client
	logger     *slog.Logger
	apiURL     string
}

func NewClient(apiKey string, templateID int, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		templateID: templateID,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		apiURL:     defaultAPIURL,
	}
}

// SetTestURL points the client at a fake Brevo server.
func (c *Client) SetTestURL(url string) {
	c.apiURL = url
}

// SendWelcomeEmail sends the welcome template to the recipient. Callers treat
// a failure as best-effort: it is logged, never blocks registration.
func (c *Client) SendWelcomeEmail(ctx context.Context, email, firstName string) error {
	body, err := json.Marshal(map[string]any{
		"to": []map[string]string{
			{"email": email, "name": firstName},
		},
		"templateId": c.templateID,
		"params": map[string]string{
			"firstName": firstName,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("brevo post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("brevo error %d: %s", resp.StatusCode, string(respBody))
	}

	c.logger.Info("welcome email sent", "template_id", c.templateID)
	return nil
}
