package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mentorhub/internal/model"

	"github.com/redis/go-redis/v9"
)

// RoomCache handles Redis operations for room lookups
type RoomCache interface {
	Get(ctx context.Context, id string) (*model.Room, error)
	Set(ctx context.Context, room *model.Room) error
	Delete(ctx context.Context, id string) error
}

type roomCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomCache creates a new room cache
func NewRoomCache(client *redis.Client) RoomCache {
	return &roomCache{
		client: client,
		ttl:    24 * time.Hour, // Rooms expire after 24h
	}
}

func (c *roomCache) key(id string) string {
	return fmt.Sprintf("room:%s", id)
}

func (c *roomCache) Set(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(room.ID), data, c.ttl).Err()
}

func (c *roomCache) Get(ctx context.Context, id string) (*model.Room, error) {
	data, err := c.client.Get(ctx, c.key(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var room model.Room
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *roomCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
