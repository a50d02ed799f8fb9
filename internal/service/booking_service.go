package service

import (
	"context"
	"fmt"

	"mentorhub/internal/cache"
	"mentorhub/internal/model"
	"mentorhub/internal/repository"

	"github.com/rs/zerolog/log"
)

// BookingService applies mentor decisions to bookings and notifies the learner
// on their personal channel, wherever they are.
type BookingService struct {
	bookingRepo repository.BookingRepo
	roomSvc     *RoomService
	locker      cache.BookingLocker
	locks       *keyedMutex
	broadcaster Broadcaster
}

// NewBookingService creates a new booking service
func NewBookingService(bookingRepo repository.BookingRepo, roomSvc *RoomService, locker cache.BookingLocker) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		roomSvc:     roomSvc,
		locker:      locker,
		locks:       newKeyedMutex(),
		broadcaster: noopBroadcaster{},
	}
}

// SetBroadcaster injects the broadcaster
func (s *BookingService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// GetBooking retrieves a booking by id
func (s *BookingService) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	return booking, nil
}

// Decide confirms or rejects a requested booking on behalf of its mentor.
// Confirming creates the booking's single room and session link; repeating the
// same decision is idempotent. The learner is notified either way.
func (s *BookingService) Decide(ctx context.Context, bookingID string, decision model.Decision, actor model.Identity) (*model.Booking, error) {
	target, ok := decision.Status()
	if !ok {
		return nil, fmt.Errorf("%w: unknown decision %q", ErrInvalidPayload, decision)
	}

	unlock := s.locks.Lock(bookingID)
	defer unlock()

	release, err := s.locker.Acquire(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Str("module", "service.booking").Str("booking_id", bookingID).Msg("lock release failed")
		}
	}()

	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Mentor.UserID != actor.UserID {
		return nil, fmt.Errorf("%w: only the booking's mentor can decide", ErrUnauthorized)
	}

	switch booking.Status {
	case target:
		// Already decided this way; fall through to re-notify. A confirmed
		// booking whose room write failed last time gets it now.
		if target == model.BookingConfirmed && booking.RoomID != "" {
			if err := s.ensureRoom(ctx, booking); err != nil {
				return nil, err
			}
		}
	case model.BookingRequested:
		if err := s.transition(ctx, booking, target); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: booking is %s", ErrInvalidTransition, booking.Status)
	}

	update := model.BookingStatusUpdate{
		BookingID:   booking.ID,
		Status:      booking.Status,
		Mentor:      booking.Mentor,
		SessionLink: booking.SessionLink,
	}
	delivered := s.broadcaster.SendToUser(booking.Learner.UserID, model.EventBookingStatusUpdate, update)

	log.Info().
		Str("module", "service.booking").
		Str("booking_id", booking.ID).
		Str("status", string(booking.Status)).
		Str("learner_id", booking.Learner.UserID).
		Int("delivered", delivered).
		Msg("booking decided")

	return booking, nil
}

// transition flips the booking status first and only then stores the room, so a
// lost race never leaves a room behind for a booking it does not belong to.
func (s *BookingService) transition(ctx context.Context, booking *model.Booking, target model.BookingStatus) error {
	var room *model.Room
	if target == model.BookingConfirmed {
		planned, _, err := s.roomSvc.PlanForBooking(ctx, booking)
		if err != nil {
			return err
		}
		room = planned
	}

	var roomID, link string
	if room != nil {
		roomID, link = room.ID, room.SessionLink
	}
	ok, err := s.bookingRepo.UpdateDecision(ctx, booking.ID, model.BookingRequested, target, roomID, link)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: booking changed concurrently", ErrInvalidTransition)
	}

	booking.Status = target
	booking.RoomID = roomID
	booking.SessionLink = link

	if room == nil {
		return nil
	}
	return s.ensureRoom(ctx, booking)
}

// ensureRoom stores the room a confirmed booking points at if it is missing
func (s *BookingService) ensureRoom(ctx context.Context, booking *model.Booking) error {
	planned, stored, err := s.roomSvc.PlanForBooking(ctx, booking)
	if err != nil {
		return err
	}
	if stored {
		return nil
	}
	room, created, err := s.roomSvc.EnsureRoom(ctx, planned)
	if err != nil {
		return fmt.Errorf("booking %s confirmed without a room, retry the decision: %w", booking.ID, err)
	}
	if created {
		log.Info().Str("module", "service.booking").Str("booking_id", booking.ID).Str("room_id", room.ID).Msg("room created")
	}
	return nil
}
