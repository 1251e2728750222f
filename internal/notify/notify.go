// Package notify delivers operational events to Discord webhooks.
// Delivery is best-effort: failures are retried a few times, then logged
// and dropped. Nothing in the request path ever blocks on Discord.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Embed colors.
const (
	ColorSuccess = 0x2ECC71
	ColorFailure = 0xE74C3C
	ColorInfo    = 0x3498DB
)

const maxAttempts = 3

// Notifier posts alerts (session/login events) and logs (queue events)
// to two separate webhooks. Either URL may be empty, which disables
// that channel.
type Notifier struct {
	alertURL string
	logURL   string
	client   *http.Client
	logger   *slog.Logger
	backoff  time.Duration
}

// New creates a Notifier. Empty URLs disable the corresponding channel.
func New(alertURL, logURL string, logger *slog.Logger) *Notifier {
	return &Notifier{
		alertURL: alertURL,
		logURL:   logURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
		backoff:  1 * time.Second,
	}
}

type embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds,omitempty"`
}

// Alert posts an embed to the alert webhook in the background.
func (n *Notifier) Alert(title, description string, color int) {
	if n.alertURL == "" {
		return
	}
	payload := webhookPayload{
		Embeds: []embed{{
			Title:       title,
			Description: description,
			Color:       color,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
	}
	go func() {
		if err := n.post(n.alertURL, payload); err != nil {
			n.logger.Warn("discord alert delivery failed", "title", title, "error", err)
		}
	}()
}

// Log posts a plain message to the log webhook in the background.
func (n *Notifier) Log(message string) {
	if n.logURL == "" {
		return
	}
	payload := webhookPayload{Content: message}
	go func() {
		if err := n.post(n.logURL, payload); err != nil {
			n.logger.Warn("discord log delivery failed", "error", err)
		}
	}()
}

// post delivers a payload with bounded retries and exponential backoff.
func (n *Notifier) post(url string, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	backoff := n.backoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := n.client.Post(url, "application/json", bytes.NewReader(body))
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			lastErr = fmt.Errorf("webhook returned status %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", maxAttempts, lastErr)
}
