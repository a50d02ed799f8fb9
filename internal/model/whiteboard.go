package model

import "time"

// Point is one sampled position of a freehand stroke
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Stroke is one complete freehand drawing action
type Stroke struct {
	ID        string    `json:"id" bson:"id"`
	Points    []Point   `json:"points" bson:"points"`
	Color     string    `json:"color" bson:"color"`
	Width     float64   `json:"width" bson:"width"`
	Author    Identity  `json:"author" bson:"author"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// WhiteboardState is the persisted drawing surface of a room
type WhiteboardState struct {
	RoomID    string    `json:"roomId" bson:"_id"`
	Strokes   []*Stroke `json:"strokes" bson:"strokes"`
	Redo      []*Stroke `json:"-" bson:"redo"`
	Locked    bool      `json:"locked" bson:"-"`
	LockedBy  *Identity `json:"lockedBy,omitempty" bson:"-"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NewWhiteboardState returns an empty, unlocked board for roomID
func NewWhiteboardState(roomID string) *WhiteboardState {
	return &WhiteboardState{
		RoomID:  roomID,
		Strokes: make([]*Stroke, 0),
		Redo:    make([]*Stroke, 0),
	}
}

// Clone returns a deep enough copy for handing out of a critical section
func (w *WhiteboardState) Clone() *WhiteboardState {
	out := &WhiteboardState{
		RoomID:    w.RoomID,
		Strokes:   append(make([]*Stroke, 0, len(w.Strokes)), w.Strokes...),
		Redo:      append(make([]*Stroke, 0, len(w.Redo)), w.Redo...),
		Locked:    w.Locked,
		UpdatedAt: w.UpdatedAt,
	}
	if w.LockedBy != nil {
		holder := *w.LockedBy
		out.LockedBy = &holder
	}
	return out
}
