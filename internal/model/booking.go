package model

import "time"

type BookingStatus string

const (
	BookingRequested BookingStatus = "requested"
	BookingConfirmed BookingStatus = "confirmed"
	BookingRejected  BookingStatus = "rejected"
	BookingCompleted BookingStatus = "completed"
)

// Decision is what a mentor can do with a requested booking
type Decision string

const (
	DecisionConfirm Decision = "confirm"
	DecisionReject  Decision = "reject"
)

// Status returns the booking status a decision leads to
func (d Decision) Status() (BookingStatus, bool) {
	switch d {
	case DecisionConfirm:
		return BookingConfirmed, true
	case DecisionReject:
		return BookingRejected, true
	}
	return "", false
}

// Booking is owned by the booking subsystem. The hub reads the participant pair and
// writes the status transition plus the resulting session link.
type Booking struct {
	ID          string        `json:"id" bson:"_id"`
	Mentor      Identity      `json:"mentor" bson:"mentor"`
	Learner     Identity      `json:"learner" bson:"learner"`
	Status      BookingStatus `json:"status" bson:"status"`
	RoomID      string        `json:"roomId,omitempty" bson:"roomId,omitempty"`
	SessionLink string        `json:"sessionLink,omitempty" bson:"sessionLink,omitempty"`
	ScheduledAt time.Time     `json:"scheduledAt" bson:"scheduledAt"`
	CreatedAt   time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// BookingStatusUpdate is pushed to the learner's personal channel after a decision
type BookingStatusUpdate struct {
	BookingID   string        `json:"bookingId"`
	Status      BookingStatus `json:"status"`
	Mentor      Identity      `json:"mentor"`
	SessionLink string        `json:"sessionLink,omitempty"`
}

// DecisionRequest is the request body for POST /v1/bookings/{bookingId}/decision
type DecisionRequest struct {
	Decision Decision `json:"decision"`
}
