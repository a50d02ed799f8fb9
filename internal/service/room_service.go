package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mentorhub/internal/cache"
	"mentorhub/internal/model"
	"mentorhub/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RoomService looks up rooms and enforces the two-party membership rule
type RoomService struct {
	roomRepo  repository.RoomRepo
	roomCache cache.RoomCache
	linkBase  string
}

// NewRoomService creates a new room service. linkBase prefixes generated session links.
func NewRoomService(roomRepo repository.RoomRepo, roomCache cache.RoomCache, linkBase string) *RoomService {
	return &RoomService{
		roomRepo:  roomRepo,
		roomCache: roomCache,
		linkBase:  strings.TrimRight(linkBase, "/"),
	}
}

// GetRoom retrieves a room, reading through the cache
func (s *RoomService) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: room id is required", ErrInvalidPayload)
	}

	room, err := s.roomCache.Get(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("module", "service.room").Str("room_id", id).Msg("room cache read failed")
	}
	if room != nil {
		return room, nil
	}

	room, err = s.roomRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return nil, fmt.Errorf("room %s: %w", id, ErrNotFound)
	}

	if err := s.roomCache.Set(ctx, room); err != nil {
		log.Warn().Err(err).Str("module", "service.room").Str("room_id", id).Msg("room cache write failed")
	}
	return room, nil
}

// Authorize returns the room if identity is one of its two bound participants
func (s *RoomService) Authorize(ctx context.Context, id string, identity model.Identity) (*model.Room, error) {
	room, err := s.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if !room.IsParticipant(identity.UserID) {
		return nil, fmt.Errorf("%w: not a participant of room %s", ErrUnauthorized, id)
	}
	return room, nil
}

// EnsureForBooking returns the room bound to booking, creating it on first call.
// The second return value reports whether this call created it.
func (s *RoomService) EnsureForBooking(ctx context.Context, booking *model.Booking) (*model.Room, bool, error) {
	room, stored, err := s.PlanForBooking(ctx, booking)
	if err != nil || stored {
		return room, false, err
	}
	return s.EnsureRoom(ctx, room)
}

// PlanForBooking returns the stored room for booking (stored == true) or an
// unsaved one. An unsaved room reuses booking.RoomID when the booking already
// names one.
func (s *RoomService) PlanForBooking(ctx context.Context, booking *model.Booking) (room *model.Room, stored bool, err error) {
	existing, err := s.roomRepo.GetByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up room: %w", err)
	}
	if existing != nil {
		return existing, true, nil
	}

	id := booking.RoomID
	if id == "" {
		id = uuid.NewString()
	}
	return &model.Room{
		ID:          id,
		BookingID:   booking.ID,
		Mentor:      booking.Mentor,
		Learner:     booking.Learner,
		SessionLink: s.SessionLink(id),
	}, false, nil
}

// EnsureRoom stores room unless a room for its booking already exists, in which
// case the stored one is returned. The bool reports whether this call stored it.
func (s *RoomService) EnsureRoom(ctx context.Context, room *model.Room) (*model.Room, bool, error) {
	if err := s.roomRepo.Create(ctx, room); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, false, fmt.Errorf("failed to create room: %w", err)
		}
		// Another process won the race; use its room.
		existing, err := s.roomRepo.GetByBookingID(ctx, room.BookingID)
		if err != nil || existing == nil {
			return nil, false, fmt.Errorf("failed to reload room after duplicate: %w", err)
		}
		return existing, false, nil
	}

	if err := s.roomCache.Set(ctx, room); err != nil {
		log.Warn().Err(err).Str("module", "service.room").Str("room_id", room.ID).Msg("room cache write failed")
	}
	return room, true, nil
}

// SessionLink builds the shareable link for a room
func (s *RoomService) SessionLink(roomID string) string {
	return s.linkBase + "/session/" + roomID
}
