package cache

import (
	"context"
	"sync"

	"mentorhub/internal/model"
)

// In-process equivalents used by the "memory" store mode and tests.

type memoryRoomCache struct {
	mu    sync.RWMutex
	rooms map[string]model.Room
}

// NewMemoryRoomCache creates a process-local room cache
func NewMemoryRoomCache() RoomCache {
	return &memoryRoomCache{rooms: make(map[string]model.Room)}
}

func (c *memoryRoomCache) Get(_ context.Context, id string) (*model.Room, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	room, ok := c.rooms[id]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

func (c *memoryRoomCache) Set(_ context.Context, room *model.Room) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room.ID] = *room
	return nil
}

func (c *memoryRoomCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, id)
	return nil
}

type memoryPresence struct {
	mu    sync.RWMutex
	conns map[string]map[string]struct{}
}

// NewMemoryPresence creates a process-local presence cache
func NewMemoryPresence() PresenceCache {
	return &memoryPresence{conns: make(map[string]map[string]struct{})}
}

func (c *memoryPresence) Online(_ context.Context, userID, connID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conns[userID] == nil {
		c.conns[userID] = make(map[string]struct{})
	}
	c.conns[userID][connID] = struct{}{}
	return nil
}

func (c *memoryPresence) Offline(_ context.Context, userID, connID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if set, ok := c.conns[userID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(c.conns, userID)
		}
	}
	return nil
}

// Touch is a no-op; process-local entries do not expire
func (c *memoryPresence) Touch(context.Context, string) error {
	return nil
}

func (c *memoryPresence) IsOnline(_ context.Context, userID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns[userID]) > 0, nil
}

// NewLocalLocker returns a locker for single-process deployments. Decisions are
// already serialized in-process, so acquiring always succeeds.
func NewLocalLocker() BookingLocker {
	return localLocker{}
}

type localLocker struct{}

func (localLocker) Acquire(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}
