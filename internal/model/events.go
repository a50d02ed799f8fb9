package model

// Event names carried in the "type" field of every WebSocket frame
const (
	// client -> server
	EventRoomJoin     = "room:join"
	EventRoomLeave    = "room:leave"
	EventChatMessage  = "chat:message"
	EventCallUser     = "call-user"
	EventAnswerCall   = "answer-call"
	EventIceCandidate = "ice-candidate"
	EventEndCall      = "end-call"

	// server -> client
	EventRoomJoined          = "room:joined"
	EventRoomUserJoined      = "room:userJoined"
	EventRoomUserLeft        = "room:userLeft"
	EventChatNewMessage      = "chat:newMessage"
	EventChatHistory         = "chat:history"
	EventWhiteboardState     = "whiteboard:state"
	EventWhiteboardLockState = "whiteboard:lockState"
	EventSignal              = "signal"
	EventBookingStatusUpdate = "booking:statusUpdate"
	EventError               = "error"

	// both directions
	EventWhiteboardStroke = "whiteboard:stroke"
	EventWhiteboardClear  = "whiteboard:clear"
	EventWhiteboardUndo   = "whiteboard:undo"
	EventWhiteboardRedo   = "whiteboard:redo"
	EventWhiteboardLock   = "whiteboard:lock"
	EventWhiteboardUnlock = "whiteboard:unlock"
)

// PresencePayload is sent on room:userJoined / room:userLeft
type PresencePayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// LockStatePayload is sent on whiteboard:lockState
type LockStatePayload struct {
	RoomID   string    `json:"roomId"`
	Locked   bool      `json:"locked"`
	LockedBy *Identity `json:"lockedBy,omitempty"`
}
