package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// CompletionEventKey dedupes at-least-once vendor completion deliveries.
func CompletionEventKey(conversationID, eventType string) string {
	return fmt.Sprintf("completion:%s:%s", eventType, conversationID)
}

// ClaimCompletionEvent marks a completion event as taken for processing.
// Returns false when the event was already claimed inside the TTL window.
func (c *Client) ClaimCompletionEvent(ctx context.Context, conversationID, eventType string, ttl time.Duration) (bool, error) {
	return c.SetNX(ctx, CompletionEventKey(conversationID, eventType), 1, ttl).Result()
}

// ReleaseCompletionEvent drops a claim so the vendor's redelivery is
// processed instead of skipped as a duplicate.
func (c *Client) ReleaseCompletionEvent(ctx context.Context, conversationID, eventType string) error {
	return c.Del(ctx, CompletionEventKey(conversationID, eventType)).Err()
}

// DialRateKey is the fixed-window rate limit counter for outbound dialing.
func DialRateKey(userID string, window int64) string {
	return fmt.Sprintf("dialrate:%s:%d", userID, window)
}
