package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	// BroadcastToRoom delivers to every connection joined to roomID
	BroadcastToRoom(roomID string, msgType string, payload interface{})
	// BroadcastToRoomExcept skips the connection identified by connID
	BroadcastToRoomExcept(roomID, connID string, msgType string, payload interface{})
	// SendToUser delivers on the personal channel of userID and returns how
	// many connections it reached
	SendToUser(userID string, msgType string, payload interface{}) int
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToRoom(string, string, interface{})               {}
func (noopBroadcaster) BroadcastToRoomExcept(string, string, string, interface{}) {}
func (noopBroadcaster) SendToUser(string, string, interface{}) int                { return 0 }
