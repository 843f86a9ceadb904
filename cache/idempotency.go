package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Idempotency records keys that must be acted on at most once.
type Idempotency struct {
	client *redis.Client
	prefix string
}

func NewIdempotency(client *redis.Client, prefix string) *Idempotency {
	return &Idempotency{client: client, prefix: prefix}
}

// MarkOnce claims key for ttl. It returns false when the key was already claimed.
func (i *Idempotency) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := i.client.SetNX(ctx, i.prefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return ok, nil
}

// Release forgets key so a later attempt can claim it again.
func (i *Idempotency) Release(ctx context.Context, key string) error {
	if err := i.client.Del(ctx, i.prefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
