package service

import (
	"fmt"

	"mentorhub/internal/model"
)

// LockPolicy decides who may take the exclusive whiteboard lock of a room
type LockPolicy interface {
	CanLock(room *model.Room, who model.Identity) bool
	Name() string
}

// LearnerLockPolicy lets only the room's learner lock the board
type LearnerLockPolicy struct{}

func (LearnerLockPolicy) CanLock(room *model.Room, who model.Identity) bool {
	return who.UserID != "" && who.UserID == room.Learner.UserID
}

func (LearnerLockPolicy) Name() string { return "learner" }

// ParticipantLockPolicy lets either bound participant lock the board
type ParticipantLockPolicy struct{}

func (ParticipantLockPolicy) CanLock(room *model.Room, who model.Identity) bool {
	return room.IsParticipant(who.UserID)
}

func (ParticipantLockPolicy) Name() string { return "participant" }

// LockPolicyByName resolves the configured policy
func LockPolicyByName(name string) (LockPolicy, error) {
	switch name {
	case "", "learner":
		return LearnerLockPolicy{}, nil
	case "participant":
		return ParticipantLockPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown lock policy %q", name)
}
