package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// webhookTimeout bounds one delivery including retries.
const webhookTimeout = 15 * time.Second

// webhookPayload is the JSON body posted for each reminder.
type webhookPayload struct {
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sentAt"`
}

// WebhookNotifier posts reminders to an HTTP push endpoint (ntfy, Gotify
// or a custom relay). A non-empty token is sent as a Bearer credential.
type WebhookNotifier struct {
	url        string
	token      string
	httpClient *http.Client
	maxRetries int
	logger     *zap.Logger
	now        func() time.Time
}

// NewWebhookNotifier creates a notifier for url.
func NewWebhookNotifier(url, token string, logger *zap.Logger) *WebhookNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookNotifier{
		url:   strings.TrimSpace(url),
		token: token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 2,
		logger:     logger,
		now:        time.Now,
	}
}

// Notify posts the reminder. Failures are logged and reported as not shown.
func (w *WebhookNotifier) Notify(title, body string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	if err := w.Send(ctx, title, body); err != nil {
		w.logger.Warn("webhook delivery failed", zap.String("url", w.url), zap.Error(err))
		return false
	}
	return true
}

// Send posts one reminder, retrying on HTTP 429.
func (w *WebhookNotifier) Send(ctx context.Context, title, body string) error {
	if w.url == "" {
		return fmt.Errorf("webhook url is not configured")
	}

	data, err := json.Marshal(webhookPayload{Title: title, Body: body, SentAt: w.now()})
	if err != nil {
		return fmt.Errorf("marshaling reminder: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Title", title)
		if w.token != "" {
			req.Header.Set("Authorization", "Bearer "+w.token)
		}

		resp, err := w.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("posting reminder: %w", err)
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429)")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfter(resp, attempt)):
				continue
			}
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return fmt.Errorf("authentication failed (%d): check the webhook token", resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", w.maxRetries, lastErr)
}

// retryAfter reads the Retry-After header, falling back to exponential
// backoff capped at 5s.
func retryAfter(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 5*time.Second {
		backoff = 5 * time.Second
	}
	return backoff
}
