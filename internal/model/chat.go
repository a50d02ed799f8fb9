package model

import "time"

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
	MessageCode  MessageType = "code"
)

// Valid reports whether t is a known message type
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageCode:
		return true
	}
	return false
}

// Message is one entry of a room's chat log
type Message struct {
	ID        string      `json:"id" bson:"id"`
	Sender    Identity    `json:"sender" bson:"sender"`
	Content   string      `json:"content" bson:"content"`
	Type      MessageType `json:"type" bson:"type"`
	Timestamp time.Time   `json:"timestamp" bson:"timestamp"`
}

// ChatLog is the append-only message sequence of a room
type ChatLog struct {
	RoomID    string     `json:"roomId" bson:"_id"`
	Messages  []*Message `json:"messages" bson:"messages"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
}
