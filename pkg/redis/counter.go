package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// incrementer is the slice of the client a Counter needs.
type incrementer interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// Counter is a monotonically increasing number shared by every instance
// connected to the same Redis.
type Counter struct {
	client incrementer
	key    string
}

// NewCounter returns a counter stored under key.
func NewCounter(client redis.UniversalClient, key string) *Counter {
	return &Counter{client: client, key: key}
}

// Next atomically increments and returns the counter. The first value is 1.
func (c *Counter) Next(ctx context.Context) (int64, error) {
	if c.client == nil || c.key == "" {
		return 0, ErrCounterUnavailable
	}
	n, err := c.client.Incr(ctx, c.key).Result()
	if err != nil {
		return 0, errors.Join(ErrCounterUnavailable, err)
	}
	return n, nil
}
