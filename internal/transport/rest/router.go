package rest

import (
	"net/http"

	"mentorhub/internal/app"
	"mentorhub/internal/transport/rest/handler"
	"mentorhub/internal/transport/rest/middleware"
	"mentorhub/internal/transport/ws"

	"github.com/gorilla/mux"
)

// NewRouter creates the API router with all endpoints
func NewRouter(a *app.App) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	bookingHandler := handler.NewBookingHandler(a.BookingService)
	roomHandler := handler.NewRoomHandler(a.RoomService, a.ChatService, a.WhiteboardService, a.Presence)
	wsHandler := ws.NewHandler(a.Hub, a.AuthService, a.RoomService, a.ChatService, a.WhiteboardService, a.Presence, a.WSSettings())

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(a.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(a.Config.CORSOrigins))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// WebSocket route (token in Authorization header or query param)
	v1.HandleFunc("/ws", wsHandler.ServeWS).Methods("GET")

	// Authenticated routes
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("/bookings/{bookingId}/decision", bookingHandler.Decide).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/rooms/{roomId}", roomHandler.Get).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/rooms/{roomId}/messages", roomHandler.Messages).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/rooms/{roomId}/whiteboard", roomHandler.Whiteboard).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/presence/{userId}", roomHandler.Presence).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
