package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskhub/marketplace/internal/metrics"
)

// Stream is the Redis stream notifications are appended to.
const Stream = "taskhub:notifications"

const streamMaxLen = 10000

type envelope struct {
	Message
	Timestamp time.Time `json:"timestamp"`
}

// RedisNotifier appends notifications to a capped Redis stream for
// downstream consumers (mail, push, chat).
type RedisNotifier struct {
	client  *redis.Client
	metrics *metrics.Collector
	now     func() time.Time
}

// NewRedisNotifier builds a notifier publishing through client.
func NewRedisNotifier(client *redis.Client, collector *metrics.Collector) *RedisNotifier {
	return &RedisNotifier{client: client, metrics: collector, now: time.Now}
}

// Send appends the message to Stream.
func (n *RedisNotifier) Send(ctx context.Context, message Message) error {
	payload, err := json.Marshal(envelope{Message: message, Timestamp: n.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: Stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{"kind": message.Kind, "event": payload},
	}
	if err := n.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	n.metrics.NotificationSent(message.Kind)
	return nil
}
