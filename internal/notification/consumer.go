package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-be/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Sender delivers a notification event to an outbound channel (email,
// push). Delivery mechanics live outside this service; the default sender
// only logs.
type Sender interface {
	Send(ctx context.Context, ev Event) error
}

type LogSender struct{}

func (LogSender) Send(ctx context.Context, ev Event) error {
	logger.FromCtx(ctx).Info("notification dispatched",
		zap.String("event_id", ev.EventID),
		zap.String("type", ev.Type),
		zap.Uint("user_id", ev.UserID),
	)
	return nil
}

const dedupTTL = 24 * time.Hour

// Consumer drains the notification queue with at-least-once semantics.
// Redelivered events are deduplicated on event_id so the sender stays
// idempotent.
type Consumer struct {
	channel *amqp.Channel
	rdb     *redis.Client
	sender  Sender
}

func NewConsumer(channel *amqp.Channel, rdb *redis.Client, sender Sender) *Consumer {
	return &Consumer{channel: channel, rdb: rdb, sender: sender}
}

func (c *Consumer) Run(ctx context.Context) error {
	if err := DeclareTopology(c.channel); err != nil {
		return err
	}

	msgs, err := c.channel.Consume(
		Queue,
		"storefront-notifier", // consumer tag
		false,                 // auto-ack
		false,                 // exclusive
		false,                 // no-local
		false,                 // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	log := logger.FromCtx(ctx)
	log.Info("notifier consuming", zap.String("queue", Queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery) {
	log := logger.FromCtx(ctx)

	var ev Event
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		log.Warn("dropping malformed notification event", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	// Dedup on event_id: SETNX wins once per delivery window.
	dkey := "dedup:notifier:" + ev.EventID
	fresh, err := c.rdb.SetNX(ctx, dkey, "1", dedupTTL).Result()
	if err != nil {
		log.Warn("dedup check failed, processing anyway", zap.Error(err))
		fresh = true
	}
	if !fresh {
		log.Debug("skipping duplicate event", zap.String("event_id", ev.EventID))
		_ = msg.Ack(false)
		return
	}

	if err := c.sender.Send(ctx, ev); err != nil {
		log.Error("failed to send notification",
			zap.String("event_id", ev.EventID),
			zap.Error(err),
		)
		// Clear the dedup key so a redelivery can retry.
		_ = c.rdb.Del(ctx, dkey).Err()
		_ = msg.Nack(false, true)
		return
	}

	_ = msg.Ack(false)
}
