package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskhub/marketplace/internal/metrics"
)

// ViewCache is a JSON-backed Redis cache for read views. A cache without a
// client always misses.
type ViewCache[T any] struct {
	name    string
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewViewCache creates a ViewCache backed by client. A zero ttl keeps keys until deleted.
func NewViewCache[T any](name string, client *redis.Client, ttl time.Duration, logger *slog.Logger, collector *metrics.Collector) *ViewCache[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewCache[T]{name: name, client: client, ttl: ttl, logger: logger, metrics: collector}
}

// Get retrieves and unmarshals a value. Any error counts as a miss.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		c.metrics.CacheLookup(c.name, false)
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.metrics.CacheLookup(c.name, false)
		return nil, false
	}
	c.metrics.CacheLookup(c.name, true)
	return &v, true
}

// Set stores value under key. Write failures are logged, not returned.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "cache marshal failed", "cache", c.name, "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache write failed", "cache", c.name, "key", key, "error", err)
	}
}

// Delete removes key.
func (c *ViewCache[T]) Delete(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache delete failed", "cache", c.name, "key", key, "error", err)
	}
}
