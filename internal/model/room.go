package model

import "time"

// Room is a private collaboration session bound to one confirmed booking
type Room struct {
	ID          string    `json:"id" bson:"_id"`
	BookingID   string    `json:"bookingId" bson:"bookingId"`
	Mentor      Identity  `json:"mentor" bson:"mentor"`
	Learner     Identity  `json:"learner" bson:"learner"`
	SessionLink string    `json:"sessionLink" bson:"sessionLink"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// IsParticipant reports whether userID is one of the two bound identities
func (r *Room) IsParticipant(userID string) bool {
	return userID != "" && (r.Mentor.UserID == userID || r.Learner.UserID == userID)
}

// Peer returns the other bound identity for userID
func (r *Room) Peer(userID string) (Identity, bool) {
	switch userID {
	case r.Mentor.UserID:
		return r.Learner, true
	case r.Learner.UserID:
		return r.Mentor, true
	}
	return Identity{}, false
}
