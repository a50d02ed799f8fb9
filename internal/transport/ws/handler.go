package ws

import (
	"context"
	"net/http"
	"time"

	"mentorhub/internal/cache"
	"mentorhub/internal/service"
	"mentorhub/internal/transport/rest/middleware"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Settings tunes connection liveness and buffering
type Settings struct {
	ReadLimit  int64
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

// DefaultSettings mirrors the config defaults
func DefaultSettings() Settings {
	return Settings{
		ReadLimit:  64 * 1024,
		PongWait:   60 * time.Second,
		PingPeriod: 54 * time.Second,
		WriteWait:  10 * time.Second,
		SendBuffer: 256,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin is enforced by the bearer credential, not the browser
	},
}

// Handler handles WebSocket connections
type Handler struct {
	hub      *Hub
	authSvc  *service.AuthService
	roomSvc  *service.RoomService
	chatSvc  *service.ChatService
	boardSvc *service.WhiteboardService
	presence cache.PresenceCache
	settings Settings
}

// NewHandler creates a new WebSocket handler
func NewHandler(
	hub *Hub,
	authSvc *service.AuthService,
	roomSvc *service.RoomService,
	chatSvc *service.ChatService,
	boardSvc *service.WhiteboardService,
	presence cache.PresenceCache,
	settings Settings,
) *Handler {
	return &Handler{
		hub:      hub,
		authSvc:  authSvc,
		roomSvc:  roomSvc,
		chatSvc:  chatSvc,
		boardSvc: boardSvc,
		presence: presence,
		settings: settings,
	}
}

// ServeWS handles GET /v1/ws. The credential is checked before the upgrade, so
// an unauthenticated client never gets a connection or any event handler.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		// Browsers cannot set headers on a WebSocket handshake
		token = r.URL.Query().Get("token")
	}

	identity, err := h.authSvc.Validate(token)
	if err != nil {
		log.Warn().Err(err).Str("module", "ws.handler").Str("remote", r.RemoteAddr).Msg("handshake rejected")
		middleware.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws.handler").Msg("upgrade failed")
		return
	}

	conn := NewConnection(identity, h.settings.SendBuffer)
	h.hub.Register(conn)

	ctx, cancel := context.WithCancel(context.Background())
	if err := h.presence.Online(ctx, identity.UserID, conn.ID); err != nil {
		log.Warn().Err(err).Str("module", "ws.handler").Str("user_id", identity.UserID).Msg("presence online failed")
	}

	log.Info().Str("module", "ws.handler").Str("user_id", identity.UserID).
		Str("role", string(identity.Role)).Str("conn_id", conn.ID).Msg("connected")

	go h.writePump(wsConn, conn)
	go h.readPump(ctx, cancel, wsConn, conn)
}

func (h *Handler) readPump(ctx context.Context, cancel context.CancelFunc, wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.Disconnect(context.WithoutCancel(ctx), conn)
		cancel()
		wsConn.Close()
	}()

	wsConn.SetReadLimit(h.settings.ReadLimit)
	wsConn.SetReadDeadline(time.Now().Add(h.settings.PongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(h.settings.PongWait))
		if err := h.presence.Touch(ctx, conn.Identity.UserID); err != nil {
			log.Warn().Err(err).Str("module", "ws.handler").Str("user_id", conn.Identity.UserID).Msg("presence refresh failed")
		}
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "ws.handler").Str("conn_id", conn.ID).Msg("read failed")
			}
			return
		}
		h.Dispatch(ctx, conn, data)
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(h.settings.PingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(h.settings.WriteWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-conn.Kicked():
			wsConn.SetWriteDeadline(time.Now().Add(h.settings.WriteWait))
			wsConn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"))
			return

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(h.settings.WriteWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
