package handler

import (
	"net/http"

	"mentorhub/internal/cache"
	"mentorhub/internal/model"
	"mentorhub/internal/service"
	"mentorhub/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// RoomHandler handles room read endpoints for the two participants
type RoomHandler struct {
	roomSvc  *service.RoomService
	chatSvc  *service.ChatService
	boardSvc *service.WhiteboardService
	presence cache.PresenceCache
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomSvc *service.RoomService, chatSvc *service.ChatService, boardSvc *service.WhiteboardService, presence cache.PresenceCache) *RoomHandler {
	return &RoomHandler{
		roomSvc:  roomSvc,
		chatSvc:  chatSvc,
		boardSvc: boardSvc,
		presence: presence,
	}
}

func (h *RoomHandler) authorize(w http.ResponseWriter, r *http.Request) (*model.Room, bool) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	room, err := h.roomSvc.Authorize(r.Context(), mux.Vars(r)["roomId"], identity)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return room, true
}

// Get handles GET /v1/rooms/{roomId}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, ok := h.authorize(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// Messages handles GET /v1/rooms/{roomId}/messages
func (h *RoomHandler) Messages(w http.ResponseWriter, r *http.Request) {
	room, ok := h.authorize(w, r)
	if !ok {
		return
	}
	history, err := h.chatSvc.History(r.Context(), room.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.ChatHistoryPayload{RoomID: room.ID, Messages: history})
}

// Whiteboard handles GET /v1/rooms/{roomId}/whiteboard
func (h *RoomHandler) Whiteboard(w http.ResponseWriter, r *http.Request) {
	room, ok := h.authorize(w, r)
	if !ok {
		return
	}
	board, err := h.boardSvc.Snapshot(r.Context(), room.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// Presence handles GET /v1/presence/{userId}
func (h *RoomHandler) Presence(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	online, err := h.presence.IsOnline(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"userId": userID, "online": online})
}
