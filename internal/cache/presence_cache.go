package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceCache mirrors which identities hold a live connection so other
// processes (and the REST presence endpoint) can see it.
type PresenceCache interface {
	Online(ctx context.Context, userID, connID string) error
	Offline(ctx context.Context, userID, connID string) error
	// Touch extends the expiry while a connection for userID is alive
	Touch(ctx context.Context, userID string) error
	IsOnline(ctx context.Context, userID string) (bool, error)
}

type presenceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPresenceCache creates a Redis presence cache. Entries expire after ttl so a
// crashed process does not leave identities online forever.
func NewPresenceCache(client *redis.Client, ttl time.Duration) PresenceCache {
	return &presenceCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *presenceCache) key(userID string) string {
	return fmt.Sprintf("presence:%s", userID)
}

func (c *presenceCache) Online(ctx context.Context, userID, connID string) error {
	key := c.key(userID)
	pipe := c.client.TxPipeline()
	pipe.SAdd(ctx, key, connID)
	pipe.Expire(ctx, key, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *presenceCache) Offline(ctx context.Context, userID, connID string) error {
	return c.client.SRem(ctx, c.key(userID), connID).Err()
}

func (c *presenceCache) Touch(ctx context.Context, userID string) error {
	return c.client.Expire(ctx, c.key(userID), c.ttl).Err()
}

func (c *presenceCache) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := c.client.SCard(ctx, c.key(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	return n > 0, err
}
