package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher appends mail events to the outbox stream.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a Publisher from a Redis URL.
func NewPublisher(redisURL string) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &Publisher{rdb: redis.NewClient(opts)}, nil
}

// Publish appends one event to the outbox stream and returns its message ID.
func (p *Publisher) Publish(ctx context.Context, evt Event) (string, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return "", fmt.Errorf("failed to marshal mail event: %w", err)
	}

	result := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamOutbox,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload":        string(payload),
			"published_at":   time.Now().Unix(),
			"schema_version": SchemaVersionV1,
		},
	})
	if result.Err() != nil {
		return "", fmt.Errorf("failed to publish to outbox: %w", result.Err())
	}

	return result.Val(), nil
}

// PublishBestEffort publishes and only logs on failure. This is the path for
// every notification mail: the state change it announces must never be rolled
// back or failed because the announcement could not be queued.
func (p *Publisher) PublishBestEffort(ctx context.Context, evt Event) {
	if p == nil {
		return
	}
	if _, err := p.Publish(ctx, evt); err != nil {
		slog.Error("Failed to publish mail event", "type", evt.Type, "to", evt.To, "error", err.Error())
	}
}

// Close closes the Redis client connection
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
