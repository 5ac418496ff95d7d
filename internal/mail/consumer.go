package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ekaramel/rentdesk/internal/models"
)

// Consumer drains the outbox stream through a consumer group and delivers
// each event over the configured Sender.
type Consumer struct {
	rdb          *redis.Client
	sender       Sender
	consumerName string
}

// NewConsumer creates a Consumer and ensures the consumer group exists.
func NewConsumer(redisURL, consumerName string, sender Sender) (*Consumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration (5s)
	// to avoid spurious i/o timeout errors on idle streams.
	opts.ReadTimeout = 10 * time.Second

	client := redis.NewClient(opts)

	err = client.XGroupCreateMkStream(context.Background(), StreamOutbox, GroupSenders, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{rdb: client, sender: sender, consumerName: consumerName}, nil
}

// Run consumes outbox events until the context is cancelled. Every event is
// ACKed after Deliver runs: a failed SMTP send is recorded in the audit log,
// not retried.
func (c *Consumer) Run(ctx context.Context, db *gorm.DB) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    GroupSenders,
			Consumer: c.consumerName,
			Streams:  []string{StreamOutbox, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err == redis.Nil {
			continue
		}
		if err != nil {
			// Blocking reads return a timeout when no messages arrive
			// within the Block duration — this is normal, not an error.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("Failed to read from outbox stream", "error", err.Error())
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				payloadStr, ok := message.Values["payload"].(string)
				if !ok {
					slog.Error("Invalid outbox message payload", "message_id", message.ID)
					c.ack(ctx, message.ID)
					continue
				}

				var evt Event
				if err := json.Unmarshal([]byte(payloadStr), &evt); err != nil {
					slog.Error("Failed to unmarshal mail event", "error", err.Error(), "message_id", message.ID)
					c.ack(ctx, message.ID)
					continue
				}

				Deliver(db, c.sender, evt)
				c.ack(ctx, message.ID)
			}
		}
	}
}

func (c *Consumer) ack(ctx context.Context, messageID string) {
	if err := c.rdb.XAck(ctx, StreamOutbox, GroupSenders, messageID).Err(); err != nil {
		slog.Error("Failed to ACK outbox message", "error", err.Error(), "message_id", messageID)
	}
}

// Close closes the Redis client connection
func (c *Consumer) Close() error {
	return c.rdb.Close()
}

// Deliver sends one event and appends the audit row. The row is written for
// success and failure alike; an audit insert failure is only logged.
func Deliver(db *gorm.DB, sender Sender, evt Event) {
	sendErr := sender.Send(evt.To, evt.Subject, evt.Body)

	entry := models.Notification{
		To:         evt.To,
		Subject:    evt.Subject,
		Type:       evt.Type,
		Status:     models.MailStatusSent,
		UserID:     evt.UserID,
		PropertyID: evt.PropertyID,
	}
	if sendErr != nil {
		entry.Status = models.MailStatusFailed
		entry.ErrorMessage = sendErr.Error()
		slog.Warn("Mail delivery failed", "type", evt.Type, "to", evt.To, "error", sendErr.Error())
	}

	if err := db.Create(&entry).Error; err != nil {
		slog.Error("Failed to append notification log", "type", evt.Type, "to", evt.To, "error", err.Error())
	}
}

// StartConsumer runs a Consumer in a background goroutine and returns a stop
// function.
func StartConsumer(redisURL string, db *gorm.DB, sender Sender) (stop func(), err error) {
	consumer, err := NewConsumer(redisURL, "mail-sender-1", sender)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := consumer.Run(ctx, db); err != nil && err != context.Canceled {
			slog.Error("Outbox consumer stopped with error", "error", err.Error())
		}
	}()

	slog.Info("Outbox consumer started")

	return func() {
		cancel()
		consumer.Close()
	}, nil
}
