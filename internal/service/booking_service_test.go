package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mentorhub/internal/cache"
	"mentorhub/internal/model"
	"mentorhub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBookingFixture(t *testing.T) (*BookingService, *repository.Memory, *recorder) {
	t.Helper()
	mem := repository.NewMemory()
	rec := newRecorder()
	svc := NewBookingService(mem.Bookings, newRoomService(mem), cache.NewLocalLocker())
	svc.SetBroadcaster(rec)

	now := time.Now()
	require.NoError(t, mem.Bookings.Create(context.Background(), &model.Booking{
		ID:        "b1",
		Mentor:    mentor,
		Learner:   learner,
		Status:    model.BookingRequested,
		CreatedAt: now,
		UpdatedAt: now,
	}))
	return svc, mem, rec
}

func TestBooking_ConfirmCreatesRoomAndNotifiesLearner(t *testing.T) {
	ctx := context.Background()
	svc, mem, rec := newBookingFixture(t)
	rec.online[learner.UserID] = 1

	booking, err := svc.Decide(ctx, "b1", model.DecisionConfirm, mentor)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, booking.Status)
	require.NotEmpty(t, booking.RoomID)
	assert.Equal(t, "http://localhost:3000/session/"+booking.RoomID, booking.SessionLink)

	room, err := mem.Rooms.GetByBookingID(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, booking.RoomID, room.ID)
	assert.Equal(t, mentor, room.Mentor)
	assert.Equal(t, learner, room.Learner)

	updates := rec.ofType(model.EventBookingStatusUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, learner.UserID, updates[0].Target)
	update := updates[0].Payload.(model.BookingStatusUpdate)
	assert.Equal(t, model.BookingConfirmed, update.Status)
	assert.Equal(t, booking.SessionLink, update.SessionLink)

	stored, err := mem.Bookings.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, stored.Status)
}

func TestBooking_ConcurrentConfirmCreatesOneRoom(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newBookingFixture(t)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		rooms = make(map[string]struct{})
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			booking, err := svc.Decide(ctx, "b1", model.DecisionConfirm, mentor)
			if assert.NoError(t, err) {
				mu.Lock()
				rooms[booking.RoomID] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, rooms, 1)
}

func TestBooking_RejectNotifiesWithoutRoom(t *testing.T) {
	ctx := context.Background()
	svc, mem, rec := newBookingFixture(t)

	booking, err := svc.Decide(ctx, "b1", model.DecisionReject, mentor)
	require.NoError(t, err)
	assert.Equal(t, model.BookingRejected, booking.Status)
	assert.Empty(t, booking.SessionLink)

	room, err := mem.Rooms.GetByBookingID(ctx, "b1")
	require.NoError(t, err)
	assert.Nil(t, room)

	updates := rec.ofType(model.EventBookingStatusUpdate)
	require.Len(t, updates, 1, "sent even when the learner is offline")
	assert.Equal(t, model.BookingRejected, updates[0].Payload.(model.BookingStatusUpdate).Status)

	_, err = svc.Decide(ctx, "b1", model.DecisionConfirm, mentor)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBooking_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, _, rec := newBookingFixture(t)

	_, err := svc.Decide(ctx, "missing", model.DecisionConfirm, mentor)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Decide(ctx, "b1", model.DecisionConfirm, learner)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Decide(ctx, "b1", model.DecisionConfirm, model.Identity{UserID: "m2", Role: model.RoleMentor})
	assert.ErrorIs(t, err, ErrUnauthorized, "only the booking's own mentor")

	_, err = svc.Decide(ctx, "b1", "maybe", mentor)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	assert.Empty(t, rec.ofType(model.EventBookingStatusUpdate))
}

// staleBookings loses every decision CAS, as if another process decided first
type staleBookings struct {
	repository.BookingRepo
}

func (staleBookings) UpdateDecision(context.Context, string, model.BookingStatus, model.BookingStatus, string, string) (bool, error) {
	return false, nil
}

// flakyRooms fails the first n room writes
type flakyRooms struct {
	repository.RoomRepo
	failures int
}

func (r *flakyRooms) Create(ctx context.Context, room *model.Room) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("connection reset")
	}
	return r.RoomRepo.Create(ctx, room)
}

func TestBooking_LostDecisionLeavesNoRoom(t *testing.T) {
	ctx := context.Background()
	_, mem, rec := newBookingFixture(t)
	svc := NewBookingService(staleBookings{mem.Bookings}, newRoomService(mem), cache.NewLocalLocker())
	svc.SetBroadcaster(rec)

	_, err := svc.Decide(ctx, "b1", model.DecisionConfirm, mentor)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	room, err := mem.Rooms.GetByBookingID(ctx, "b1")
	require.NoError(t, err)
	assert.Nil(t, room, "no orphan room for a decision that did not apply")
	assert.Empty(t, rec.ofType(model.EventBookingStatusUpdate))
}

func TestBooking_RepeatConfirmRepairsMissingRoom(t *testing.T) {
	ctx := context.Background()
	_, mem, rec := newBookingFixture(t)
	rooms := &flakyRooms{RoomRepo: mem.Rooms, failures: 1}
	roomSvc := NewRoomService(rooms, cache.NewMemoryRoomCache(), "http://localhost:3000")
	svc := NewBookingService(mem.Bookings, roomSvc, cache.NewLocalLocker())
	svc.SetBroadcaster(rec)

	_, err := svc.Decide(ctx, "b1", model.DecisionConfirm, mentor)
	require.Error(t, err)

	stored, err := mem.Bookings.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, stored.Status)
	require.NotEmpty(t, stored.RoomID)

	booking, err := svc.Decide(ctx, "b1", model.DecisionConfirm, mentor)
	require.NoError(t, err)
	assert.Equal(t, stored.RoomID, booking.RoomID)

	room, err := mem.Rooms.GetByBookingID(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, stored.RoomID, room.ID, "room takes the id the booking already advertises")
	assert.Equal(t, stored.SessionLink, room.SessionLink)

	_, err = roomSvc.Authorize(ctx, room.ID, learner)
	assert.NoError(t, err)
}
