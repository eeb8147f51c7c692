// Package webhook notifies callers when a batch job finishes.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// EventBatchCompleted is sent once every URL of a batch has a result.
const EventBatchCompleted = "batch.completed"

// SignatureHeader carries "sha256=<hex HMAC of the body>".
const SignatureHeader = "X-Scrapeurl-Signature"

// DefaultRetryDelays are the waits before the second, third and fourth
// delivery attempts.
var DefaultRetryDelays = []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second}

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	JobID     string `json:"jobId"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Sender delivers events with retries.
type Sender struct {
	client *http.Client
	delays []time.Duration
}

// NewSender creates a Sender. A nil delays slice uses DefaultRetryDelays.
func NewSender(client *http.Client, delays []time.Duration) *Sender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if delays == nil {
		delays = DefaultRetryDelays
	}
	return &Sender{client: client, delays: delays}
}

// Deliver sends an event once. The body is signed when secret is set.
func (s *Sender) Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Scrapeurl-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, Sign(secret, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DeliverWithRetry attempts delivery until it succeeds, the retry delays are
// exhausted or ctx ends.
func (s *Sender) DeliverWithRetry(ctx context.Context, url, secret string, event *Event) error {
	log := slog.With("url", url, "event", event.Type, "job_id", event.JobID)

	var err error
	for attempt := 0; attempt <= len(s.delays); attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(s.delays[attempt-1])
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = s.Deliver(attemptCtx, url, secret, event)
		cancel()
		if err == nil {
			log.Info("webhook delivered", "attempt", attempt+1)
			return nil
		}
		log.Warn("webhook delivery failed", "attempt", attempt+1, "error", err)
	}
	log.Error("webhook delivery exhausted all retries")
	return err
}

// DeliverAsync runs DeliverWithRetry in the background.
func (s *Sender) DeliverAsync(url, secret string, event *Event) {
	go func() {
		_ = s.DeliverWithRetry(context.Background(), url, secret, event)
	}()
}
