package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"mentorhub/internal/model"
	"mentorhub/internal/service"

	"github.com/rs/zerolog/log"
)

// JoinedPayload acknowledges room:join to the joiner
type JoinedPayload struct {
	RoomID    string           `json:"roomId"`
	BookingID string           `json:"bookingId"`
	Peers     []model.Identity `json:"peers"`
}

// SignalPayload is forwarded verbatim to the signaling target
type SignalPayload struct {
	RoomID  string          `json:"roomId"`
	From    model.Identity  `json:"from"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrorPayload is the body of a sender-only error event
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

type roomRef struct {
	RoomID string `json:"roomId"`
}

type chatRequest struct {
	RoomID  string            `json:"roomId"`
	Content string            `json:"content"`
	Type    model.MessageType `json:"type"`
}

type strokeRequest struct {
	RoomID string              `json:"roomId"`
	Stroke *model.Stroke       `json:"stroke"`
	Phase  service.StrokePhase `json:"phase"`
}

type signalRequest struct {
	RoomID  string          `json:"roomId"`
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

var signalKinds = map[string]string{
	model.EventCallUser:     "offer",
	model.EventAnswerCall:   "answer",
	model.EventIceCandidate: "candidate",
	model.EventEndCall:      "hangup",
}

// Dispatch handles one inbound frame from conn. Failures never close the
// connection; they are logged and reported to the sender only.
func (h *Handler) Dispatch(ctx context.Context, conn *Connection, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.fail(conn, "", fmt.Errorf("%w: malformed frame", service.ErrInvalidPayload))
		return
	}

	var err error
	switch msg.Type {
	case model.EventRoomJoin:
		err = h.handleJoin(ctx, conn, msg.Payload)
	case model.EventRoomLeave:
		err = h.handleLeave(ctx, conn, msg.Payload)
	case model.EventChatMessage:
		err = h.handleChat(ctx, conn, msg.Payload)
	case model.EventWhiteboardStroke:
		err = h.handleStroke(ctx, conn, msg.Payload)
	case model.EventWhiteboardClear:
		err = h.handleBoard(ctx, conn, msg.Payload, func(roomID string) error {
			_, err := h.boardSvc.Clear(ctx, roomID, conn.Identity)
			return err
		})
	case model.EventWhiteboardUndo:
		err = h.handleBoard(ctx, conn, msg.Payload, func(roomID string) error {
			_, err := h.boardSvc.Undo(ctx, roomID, conn.Identity)
			return err
		})
	case model.EventWhiteboardRedo:
		err = h.handleBoard(ctx, conn, msg.Payload, func(roomID string) error {
			_, err := h.boardSvc.Redo(ctx, roomID, conn.Identity)
			return err
		})
	case model.EventWhiteboardLock:
		err = h.handleLock(ctx, conn, msg.Payload, true)
	case model.EventWhiteboardUnlock:
		err = h.handleLock(ctx, conn, msg.Payload, false)
	case model.EventCallUser, model.EventAnswerCall, model.EventIceCandidate, model.EventEndCall:
		err = h.handleSignal(ctx, conn, signalKinds[msg.Type], msg.Payload)
	default:
		err = fmt.Errorf("%w: unknown event %q", service.ErrInvalidPayload, msg.Type)
	}

	if err != nil {
		h.fail(conn, msg.Type, err)
	}
}

// Disconnect runs the cleanup for a connection that went away: it leaves every
// room, releases whiteboard locks the identity no longer backs, and tells peers.
func (h *Handler) Disconnect(ctx context.Context, conn *Connection) {
	rooms := h.hub.Unregister(conn)
	if err := h.presence.Offline(ctx, conn.Identity.UserID, conn.ID); err != nil {
		log.Warn().Err(err).Str("module", "ws.dispatch").Str("user_id", conn.Identity.UserID).Msg("presence offline failed")
	}
	for _, roomID := range rooms {
		h.departed(ctx, conn, roomID)
	}
}

func (h *Handler) handleJoin(ctx context.Context, conn *Connection, raw json.RawMessage) error {
	roomID, err := decodeRoomID(raw)
	if err != nil {
		return err
	}
	room, err := h.roomSvc.Authorize(ctx, roomID, conn.Identity)
	if err != nil {
		return err
	}

	// Attach and replay under both room locks so the joiner sees every later
	// message and stroke exactly once.
	err = h.chatSvc.Replay(ctx, roomID, func(history []*model.Message) error {
		return h.boardSvc.Replay(ctx, roomID, func(board *model.WhiteboardState) error {
			h.hub.Join(conn, roomID)
			h.hub.SendTo(conn, model.EventRoomJoined, JoinedPayload{
				RoomID:    room.ID,
				BookingID: room.BookingID,
				Peers:     h.hub.RoomMembers(roomID),
			})
			h.hub.SendTo(conn, model.EventChatHistory, service.ChatHistoryPayload{RoomID: roomID, Messages: history})
			h.hub.SendTo(conn, model.EventWhiteboardState, board)
			return nil
		})
	})
	if err != nil {
		return err
	}

	h.hub.BroadcastToRoomExcept(roomID, conn.ID, model.EventRoomUserJoined, presenceOf(roomID, conn.Identity))

	log.Info().Str("module", "ws.dispatch").Str("room_id", roomID).
		Str("user_id", conn.Identity.UserID).Str("conn_id", conn.ID).Msg("joined room")
	return nil
}

func (h *Handler) handleLeave(ctx context.Context, conn *Connection, raw json.RawMessage) error {
	roomID, err := decodeRoomID(raw)
	if err != nil {
		return err
	}
	if _, err := h.memberRoom(ctx, conn, roomID); err != nil {
		return err
	}
	h.hub.Leave(conn, roomID)
	h.departed(ctx, conn, roomID)

	log.Info().Str("module", "ws.dispatch").Str("room_id", roomID).
		Str("user_id", conn.Identity.UserID).Str("conn_id", conn.ID).Msg("left room")
	return nil
}

// departed runs after conn stopped being a member of roomID
func (h *Handler) departed(ctx context.Context, conn *Connection, roomID string) {
	uid := conn.Identity.UserID
	if !h.hub.UserInRoom(uid, roomID) {
		released, err := h.boardSvc.ReleaseHeldBy(ctx, roomID, uid)
		if err != nil {
			log.Error().Err(err).Str("module", "ws.dispatch").Str("room_id", roomID).Str("user_id", uid).Msg("lock release failed")
		} else if released {
			log.Info().Str("module", "ws.dispatch").Str("room_id", roomID).Str("user_id", uid).Msg("released whiteboard lock")
		}
	}
	h.hub.BroadcastToRoom(roomID, model.EventRoomUserLeft, presenceOf(roomID, conn.Identity))
}

func (h *Handler) handleChat(ctx context.Context, conn *Connection, raw json.RawMessage) error {
	var req chatRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	if _, err := h.memberRoom(ctx, conn, req.RoomID); err != nil {
		return err
	}
	_, err := h.chatSvc.Send(ctx, req.RoomID, conn.Identity, req.Content, req.Type)
	return err
}

func (h *Handler) handleStroke(ctx context.Context, conn *Connection, raw json.RawMessage) error {
	var req strokeRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	if _, err := h.memberRoom(ctx, conn, req.RoomID); err != nil {
		return err
	}
	_, err := h.boardSvc.Stroke(ctx, req.RoomID, conn.Identity, conn.ID, req.Stroke, req.Phase)
	return err
}

func (h *Handler) handleBoard(ctx context.Context, conn *Connection, raw json.RawMessage, op func(roomID string) error) error {
	roomID, err := decodeRoomID(raw)
	if err != nil {
		return err
	}
	if _, err := h.memberRoom(ctx, conn, roomID); err != nil {
		return err
	}
	return op(roomID)
}

// handleLock ignores any identity in the payload; the connection's bound
// identity is the only one that can take or drop the lock.
func (h *Handler) handleLock(ctx context.Context, conn *Connection, raw json.RawMessage, lock bool) error {
	roomID, err := decodeRoomID(raw)
	if err != nil {
		return err
	}
	room, err := h.memberRoom(ctx, conn, roomID)
	if err != nil {
		return err
	}
	if lock {
		_, err = h.boardSvc.Lock(ctx, room, conn.Identity)
	} else {
		_, err = h.boardSvc.Unlock(ctx, room, conn.Identity)
	}
	return err
}

// handleSignal relays an opaque negotiation payload to the other participant
// of a room the sender has joined. Delivery is fire-and-forget.
func (h *Handler) handleSignal(ctx context.Context, conn *Connection, kind string, raw json.RawMessage) error {
	var req signalRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	if req.To == "" {
		return fmt.Errorf("%w: signal target is required", service.ErrInvalidPayload)
	}
	room, err := h.memberRoom(ctx, conn, req.RoomID)
	if err != nil {
		return err
	}
	peer, ok := room.Peer(conn.Identity.UserID)
	if !ok || peer.UserID != req.To {
		return fmt.Errorf("%w: %s is not your peer in room %s", service.ErrUnauthorized, req.To, room.ID)
	}

	delivered := h.hub.SendToUser(req.To, model.EventSignal, SignalPayload{
		RoomID:  room.ID,
		From:    conn.Identity,
		Kind:    kind,
		Payload: req.Payload,
	})
	if delivered == 0 {
		log.Debug().Str("module", "ws.dispatch").Str("room_id", room.ID).Str("to", req.To).Str("kind", kind).Msg("signal target offline")
	}
	return nil
}

// memberRoom returns the room if conn has joined it. A missing room is
// NotFound; an existing room conn has not joined is Unauthorized.
func (h *Handler) memberRoom(ctx context.Context, conn *Connection, roomID string) (*model.Room, error) {
	if roomID == "" {
		return nil, fmt.Errorf("%w: roomId is required", service.ErrInvalidPayload)
	}
	room, err := h.roomSvc.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !h.hub.IsMember(conn, roomID) {
		return nil, fmt.Errorf("%w: join room %s first", service.ErrUnauthorized, roomID)
	}
	return room, nil
}

func (h *Handler) fail(conn *Connection, event string, err error) {
	code := service.ErrorCode(err)
	message := err.Error()
	if code == "internal" {
		message = "internal error"
	}

	ev := log.Warn()
	if code == "internal" {
		ev = log.Error()
	}
	ev.Err(err).Str("module", "ws.dispatch").Str("event", event).Str("code", code).
		Str("user_id", conn.Identity.UserID).Str("conn_id", conn.ID).Msg("event failed")

	h.hub.SendTo(conn, model.EventError, ErrorPayload{Code: code, Message: message, Event: event})
}

func presenceOf(roomID string, id model.Identity) model.PresencePayload {
	return model.PresencePayload{RoomID: roomID, UserID: id.UserID, Username: id.Username, Role: id.Role}
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: payload is required", service.ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	return nil
}

// decodeRoomID accepts either a bare JSON string or {"roomId": "..."}
func decodeRoomID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
		}
		if id == "" {
			return "", fmt.Errorf("%w: roomId is required", service.ErrInvalidPayload)
		}
		return id, nil
	}
	var ref roomRef
	if err := decode(raw, &ref); err != nil {
		return "", err
	}
	if ref.RoomID == "" {
		return "", fmt.Errorf("%w: roomId is required", service.ErrInvalidPayload)
	}
	return ref.RoomID, nil
}
