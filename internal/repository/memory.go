package repository

import (
	"context"
	"sync"
	"time"

	"mentorhub/internal/model"
)

// Memory holds in-process implementations of every repository. It backs the
// "memory" store mode and the service tests.
type Memory struct {
	Bookings    BookingRepo
	Rooms       RoomRepo
	Chats       ChatRepo
	Whiteboards WhiteboardRepo
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		Bookings:    &memBookingRepo{items: make(map[string]model.Booking)},
		Rooms:       &memRoomRepo{items: make(map[string]model.Room), byBooking: make(map[string]string)},
		Chats:       &memChatRepo{logs: make(map[string]*model.ChatLog)},
		Whiteboards: &memWhiteboardRepo{items: make(map[string]*model.WhiteboardState)},
	}
}

type memBookingRepo struct {
	mu    sync.RWMutex
	items map[string]model.Booking
}

func (r *memBookingRepo) Create(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[booking.ID]; ok {
		return ErrDuplicate
	}
	now := time.Now()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	if booking.Status == "" {
		booking.Status = model.BookingRequested
	}
	r.items[booking.ID] = *booking
	return nil
}

func (r *memBookingRepo) GetByID(_ context.Context, id string) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *memBookingRepo) UpdateDecision(_ context.Context, id string, from, to model.BookingStatus, roomID, sessionLink string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	b.UpdatedAt = time.Now()
	if roomID != "" {
		b.RoomID = roomID
	}
	if sessionLink != "" {
		b.SessionLink = sessionLink
	}
	r.items[id] = b
	return true, nil
}

type memRoomRepo struct {
	mu        sync.RWMutex
	items     map[string]model.Room
	byBooking map[string]string
}

func (r *memRoomRepo) EnsureIndexes(context.Context) error { return nil }

func (r *memRoomRepo) Create(_ context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byBooking[room.BookingID]; ok {
		return ErrDuplicate
	}
	if _, ok := r.items[room.ID]; ok {
		return ErrDuplicate
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	r.items[room.ID] = *room
	r.byBooking[room.BookingID] = room.ID
	return nil
}

func (r *memRoomRepo) GetByID(_ context.Context, id string) (*model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

func (r *memRoomRepo) GetByBookingID(ctx context.Context, bookingID string) (*model.Room, error) {
	r.mu.RLock()
	id, ok := r.byBooking[bookingID]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

type memChatRepo struct {
	mu   sync.RWMutex
	logs map[string]*model.ChatLog
}

func (r *memChatRepo) Ensure(_ context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLocked(roomID)
	return nil
}

func (r *memChatRepo) ensureLocked(roomID string) *model.ChatLog {
	log, ok := r.logs[roomID]
	if !ok {
		log = &model.ChatLog{RoomID: roomID, Messages: make([]*model.Message, 0), CreatedAt: time.Now()}
		r.logs[roomID] = log
	}
	return log
}

func (r *memChatRepo) Append(_ context.Context, roomID string, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log := r.ensureLocked(roomID)
	stored := *msg
	log.Messages = append(log.Messages, &stored)
	return nil
}

func (r *memChatRepo) Get(_ context.Context, roomID string) (*model.ChatLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	log, ok := r.logs[roomID]
	if !ok {
		return nil, nil
	}
	out := &model.ChatLog{RoomID: log.RoomID, CreatedAt: log.CreatedAt, Messages: make([]*model.Message, len(log.Messages))}
	for i, m := range log.Messages {
		msg := *m
		out.Messages[i] = &msg
	}
	return out, nil
}

type memWhiteboardRepo struct {
	mu    sync.RWMutex
	items map[string]*model.WhiteboardState
}

func (r *memWhiteboardRepo) Get(_ context.Context, roomID string) (*model.WhiteboardState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.items[roomID]
	if !ok {
		return nil, nil
	}
	return state.Clone(), nil
}

func (r *memWhiteboardRepo) Save(_ context.Context, state *model.WhiteboardState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state.UpdatedAt = time.Now()
	r.items[state.RoomID] = state.Clone()
	return nil
}
