package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxlane/call-bridge-go/internal/config"
	"github.com/voxlane/call-bridge-go/internal/retry"
)

// WebhookEvent is the envelope delivered to the customer's endpoint.
type WebhookEvent struct {
	Type      string    `json:"type"`
	CallID    string    `json:"callId"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// WebhookSender delivers signed events to a customer endpoint with bounded
// exponential redelivery.
type WebhookSender struct {
	url    string
	secret string
	client *http.Client
	policy retry.Policy
}

func NewWebhookSender(url, secret string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: config.WebhookTimeout},
		policy: retry.Policy{
			MaxAttempts: config.WebhookMaxAttempts,
			Backoff:     retry.ExponentialSeconds,
		},
	}
}

// Enabled reports whether a destination is configured.
func (s *WebhookSender) Enabled() bool {
	return s != nil && s.url != ""
}

// SignWebhookPayload returns the hex HMAC-SHA256 of the request body.
func SignWebhookPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Deliver posts one event. Every attempt is logged with its status and
// response time; the last error is returned after the schedule is exhausted.
func (s *WebhookSender) Deliver(ctx context.Context, event WebhookEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}

	signature := SignWebhookPayload(s.secret, body)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	attempt := 0
	return s.policy.Do(ctx, func() error {
		attempt++
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Webhook-Signature", signature)
		req.Header.Set("X-Webhook-Timestamp", timestamp)

		resp, err := s.client.Do(req)
		elapsed := time.Since(start)
		if err != nil {
			log.Warn().
				Err(err).
				Str("call_id", event.CallID).
				Int("attempt", attempt).
				Dur("elapsed", elapsed).
				Dur("next_retry", s.policy.NextDelay(attempt)).
				Msg("webhook delivery failed")
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			log.Warn().
				Str("call_id", event.CallID).
				Int("attempt", attempt).
				Int("status", resp.StatusCode).
				Dur("elapsed", elapsed).
				Dur("next_retry", s.policy.NextDelay(attempt)).
				Msg("webhook delivery rejected")
			return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
		}

		log.Info().
			Str("call_id", event.CallID).
			Str("type", event.Type).
			Int("attempt", attempt).
			Int("status", resp.StatusCode).
			Dur("elapsed", elapsed).
			Msg("webhook delivered")
		return nil
	})
}
