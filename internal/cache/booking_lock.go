package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned when a booking lock could not be taken in time
var ErrLockBusy = errors.New("booking is being decided elsewhere")

// BookingLocker serializes booking decisions across server processes
type BookingLocker interface {
	Acquire(ctx context.Context, bookingID string) (release func(context.Context) error, err error)
}

// releaseScript deletes the lock only if we still own it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type bookingLocker struct {
	client   *redis.Client
	ttl      time.Duration
	retry    time.Duration
	attempts int
}

// NewBookingLocker creates a Redis SET NX lock keyed by booking id
func NewBookingLocker(client *redis.Client, ttl time.Duration) BookingLocker {
	return &bookingLocker{
		client:   client,
		ttl:      ttl,
		retry:    50 * time.Millisecond,
		attempts: 40,
	}
}

func (l *bookingLocker) key(bookingID string) string {
	return fmt.Sprintf("booking:%s:lock", bookingID)
}

func (l *bookingLocker) Acquire(ctx context.Context, bookingID string) (func(context.Context) error, error) {
	key := l.key(bookingID)
	token := uuid.NewString()

	for i := 0; i < l.attempts; i++ {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func(ctx context.Context) error {
				return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
	return nil, ErrLockBusy
}
