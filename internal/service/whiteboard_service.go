package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mentorhub/internal/model"
	"mentorhub/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StrokePhase tells whether a stroke frame is a live point or a finished stroke
type StrokePhase string

const (
	StrokePoint    StrokePhase = "point"
	StrokeComplete StrokePhase = "complete"
)

// StrokePayload is relayed on whiteboard:stroke
type StrokePayload struct {
	RoomID string        `json:"roomId"`
	Stroke *model.Stroke `json:"stroke"`
	Phase  StrokePhase   `json:"phase"`
}

// ClearPayload is broadcast on whiteboard:clear
type ClearPayload struct {
	RoomID string         `json:"roomId"`
	By     model.Identity `json:"by"`
}

// HistoryPayload is broadcast on whiteboard:undo and whiteboard:redo
type HistoryPayload struct {
	RoomID   string        `json:"roomId"`
	StrokeID string        `json:"strokeId"`
	Stroke   *model.Stroke `json:"stroke"`
}

// WhiteboardService runs the per-room drawing state machine:
// unlocked <-> locked(by identity), an append-only stroke log with tail
// removal for undo, and a redo stack that any new stroke or clear empties.
// Lock ownership lives only in this process; it never outlives the
// connections that took it.
type WhiteboardService struct {
	repo        repository.WhiteboardRepo
	policy      LockPolicy
	locks       *keyedMutex
	broadcaster Broadcaster

	holdersMu sync.Mutex
	holders   map[string]model.Identity
}

// NewWhiteboardService creates a new whiteboard service
func NewWhiteboardService(repo repository.WhiteboardRepo, policy LockPolicy) *WhiteboardService {
	if policy == nil {
		policy = LearnerLockPolicy{}
	}
	return &WhiteboardService{
		repo:        repo,
		policy:      policy,
		locks:       newKeyedMutex(),
		broadcaster: noopBroadcaster{},
		holders:     make(map[string]model.Identity),
	}
}

// SetBroadcaster injects the broadcaster
func (s *WhiteboardService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Policy returns the active lock policy
func (s *WhiteboardService) Policy() LockPolicy {
	return s.policy
}

// Snapshot returns the current board of a room
func (s *WhiteboardService) Snapshot(ctx context.Context, roomID string) (*model.WhiteboardState, error) {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	state, err := s.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return state.Clone(), nil
}

// Replay hands the current board to attach while mutations of the room are
// held off, so whatever attach subscribes misses nothing and sees nothing twice.
func (s *WhiteboardService) Replay(ctx context.Context, roomID string, attach func(state *model.WhiteboardState) error) error {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	state, err := s.load(ctx, roomID)
	if err != nil {
		return err
	}
	return attach(state.Clone())
}

// Lock hands the exclusive drawing lock to actor
func (s *WhiteboardService) Lock(ctx context.Context, room *model.Room, actor model.Identity) (*model.WhiteboardState, error) {
	if !s.policy.CanLock(room, actor) {
		return nil, fmt.Errorf("%w: lock is reserved by the %s policy", ErrUnauthorized, s.policy.Name())
	}

	return s.mutate(ctx, room.ID, func(state *model.WhiteboardState) error {
		if state.Locked && state.LockedBy != nil && state.LockedBy.UserID != actor.UserID {
			return fmt.Errorf("%w: board is locked by %s", ErrForbidden, state.LockedBy.Username)
		}
		holder := actor
		state.Locked = true
		state.LockedBy = &holder
		return nil
	}, func(state *model.WhiteboardState) {
		s.broadcastLockState(state)
	})
}

// Unlock releases the lock held by actor. Unlocking an unlocked board is a no-op.
func (s *WhiteboardService) Unlock(ctx context.Context, room *model.Room, actor model.Identity) (*model.WhiteboardState, error) {
	state, err := s.mutate(ctx, room.ID, func(state *model.WhiteboardState) error {
		if !state.Locked {
			return errNoChange
		}
		if state.LockedBy != nil && state.LockedBy.UserID != actor.UserID {
			return fmt.Errorf("%w: board is locked by %s", ErrForbidden, state.LockedBy.Username)
		}
		state.Locked = false
		state.LockedBy = nil
		return nil
	}, func(state *model.WhiteboardState) {
		s.broadcastLockState(state)
	})
	if errors.Is(err, errNoChange) {
		return s.Snapshot(ctx, room.ID)
	}
	return state, err
}

// ReleaseHeldBy drops the lock if userID holds it. It reports whether a lock was released.
func (s *WhiteboardService) ReleaseHeldBy(ctx context.Context, roomID, userID string) (bool, error) {
	_, err := s.mutate(ctx, roomID, func(state *model.WhiteboardState) error {
		if !state.Locked || state.LockedBy == nil || state.LockedBy.UserID != userID {
			return errNoChange
		}
		state.Locked = false
		state.LockedBy = nil
		return nil
	}, func(state *model.WhiteboardState) {
		s.broadcastLockState(state)
	})
	if errors.Is(err, errNoChange) {
		return false, nil
	}
	return err == nil, err
}

// Stroke relays a live point or appends a finished stroke. Peers other than
// originConnID receive it; the sender already drew it locally.
func (s *WhiteboardService) Stroke(ctx context.Context, roomID string, actor model.Identity, originConnID string, stroke *model.Stroke, phase StrokePhase) (*model.Stroke, error) {
	if stroke == nil {
		return nil, fmt.Errorf("%w: stroke is required", ErrInvalidPayload)
	}
	if phase == "" {
		phase = StrokeComplete
	}
	if phase != StrokePoint && phase != StrokeComplete {
		return nil, fmt.Errorf("%w: unknown stroke phase %q", ErrInvalidPayload, phase)
	}

	stored := *stroke
	stored.Author = actor
	stored.Timestamp = time.Now().UTC()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	if phase == StrokePoint {
		unlock := s.locks.Lock(roomID)
		defer unlock()

		state, err := s.load(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if err := guardLock(state, actor); err != nil {
			return nil, err
		}
		s.broadcaster.BroadcastToRoomExcept(roomID, originConnID, model.EventWhiteboardStroke, StrokePayload{
			RoomID: roomID,
			Stroke: &stored,
			Phase:  StrokePoint,
		})
		return &stored, nil
	}

	if len(stored.Points) == 0 {
		return nil, fmt.Errorf("%w: stroke has no points", ErrInvalidPayload)
	}

	_, err := s.mutate(ctx, roomID, func(state *model.WhiteboardState) error {
		if err := guardLock(state, actor); err != nil {
			return err
		}
		state.Strokes = append(state.Strokes, &stored)
		state.Redo = state.Redo[:0]
		return nil
	}, func(*model.WhiteboardState) {
		s.broadcaster.BroadcastToRoomExcept(roomID, originConnID, model.EventWhiteboardStroke, StrokePayload{
			RoomID: roomID,
			Stroke: &stored,
			Phase:  StrokeComplete,
		})
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// Clear empties the stroke log and the redo stack
func (s *WhiteboardService) Clear(ctx context.Context, roomID string, actor model.Identity) (*model.WhiteboardState, error) {
	return s.mutate(ctx, roomID, func(state *model.WhiteboardState) error {
		if err := guardLock(state, actor); err != nil {
			return err
		}
		state.Strokes = make([]*model.Stroke, 0)
		state.Redo = make([]*model.Stroke, 0)
		return nil
	}, func(*model.WhiteboardState) {
		s.broadcaster.BroadcastToRoom(roomID, model.EventWhiteboardClear, ClearPayload{RoomID: roomID, By: actor})
	})
}

// Undo removes the most recently appended stroke and keeps it for redo
func (s *WhiteboardService) Undo(ctx context.Context, roomID string, actor model.Identity) (*model.Stroke, error) {
	var removed *model.Stroke
	_, err := s.mutate(ctx, roomID, func(state *model.WhiteboardState) error {
		if err := guardLock(state, actor); err != nil {
			return err
		}
		n := len(state.Strokes)
		if n == 0 {
			return fmt.Errorf("%w: nothing to undo", ErrEmptyHistory)
		}
		removed = state.Strokes[n-1]
		state.Strokes = state.Strokes[:n-1]
		state.Redo = append(state.Redo, removed)
		return nil
	}, func(*model.WhiteboardState) {
		s.broadcaster.BroadcastToRoom(roomID, model.EventWhiteboardUndo, HistoryPayload{
			RoomID:   roomID,
			StrokeID: removed.ID,
			Stroke:   removed,
		})
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Redo restores the most recently undone stroke
func (s *WhiteboardService) Redo(ctx context.Context, roomID string, actor model.Identity) (*model.Stroke, error) {
	var restored *model.Stroke
	_, err := s.mutate(ctx, roomID, func(state *model.WhiteboardState) error {
		if err := guardLock(state, actor); err != nil {
			return err
		}
		n := len(state.Redo)
		if n == 0 {
			return fmt.Errorf("%w: nothing to redo", ErrEmptyHistory)
		}
		restored = state.Redo[n-1]
		state.Redo = state.Redo[:n-1]
		state.Strokes = append(state.Strokes, restored)
		return nil
	}, func(*model.WhiteboardState) {
		s.broadcaster.BroadcastToRoom(roomID, model.EventWhiteboardRedo, HistoryPayload{
			RoomID:   roomID,
			StrokeID: restored.ID,
			Stroke:   restored,
		})
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

var errNoChange = errors.New("no change")

// mutate runs apply and announce under the room lock. The new state is saved
// before announce, so a failed save is never broadcast.
func (s *WhiteboardService) mutate(
	ctx context.Context,
	roomID string,
	apply func(state *model.WhiteboardState) error,
	announce func(state *model.WhiteboardState),
) (*model.WhiteboardState, error) {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	state, err := s.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := apply(state); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, state); err != nil {
		log.Error().Err(err).Str("module", "service.whiteboard").Str("room_id", roomID).Msg("save failed")
		return nil, fmt.Errorf("failed to save whiteboard: %w", err)
	}
	s.setHolder(roomID, state)
	announce(state)
	return state.Clone(), nil
}

func (s *WhiteboardService) load(ctx context.Context, roomID string) (*model.WhiteboardState, error) {
	state, err := s.repo.Get(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load whiteboard: %w", err)
	}
	if state == nil {
		state = model.NewWhiteboardState(roomID)
	}
	if state.Strokes == nil {
		state.Strokes = make([]*model.Stroke, 0)
	}
	if state.Redo == nil {
		state.Redo = make([]*model.Stroke, 0)
	}
	s.applyHolder(state)
	return state, nil
}

// applyHolder overwrites whatever lock the store returned with the in-process owner
func (s *WhiteboardService) applyHolder(state *model.WhiteboardState) {
	s.holdersMu.Lock()
	defer s.holdersMu.Unlock()
	holder, ok := s.holders[state.RoomID]
	state.Locked = ok
	state.LockedBy = nil
	if ok {
		state.LockedBy = &holder
	}
}

func (s *WhiteboardService) setHolder(roomID string, state *model.WhiteboardState) {
	s.holdersMu.Lock()
	defer s.holdersMu.Unlock()
	if state.Locked && state.LockedBy != nil {
		s.holders[roomID] = *state.LockedBy
		return
	}
	delete(s.holders, roomID)
}

func (s *WhiteboardService) broadcastLockState(state *model.WhiteboardState) {
	payload := model.LockStatePayload{RoomID: state.RoomID, Locked: state.Locked}
	if state.LockedBy != nil {
		holder := *state.LockedBy
		payload.LockedBy = &holder
	}
	s.broadcaster.BroadcastToRoom(state.RoomID, model.EventWhiteboardLockState, payload)
}

// guardLock rejects mutations from anyone but the holder while the board is locked
func guardLock(state *model.WhiteboardState, actor model.Identity) error {
	if state.Locked && state.LockedBy != nil && state.LockedBy.UserID != actor.UserID {
		return fmt.Errorf("%w: board is locked by %s", ErrForbidden, state.LockedBy.Username)
	}
	return nil
}
