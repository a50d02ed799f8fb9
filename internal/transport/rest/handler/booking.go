package handler

import (
	"encoding/json"
	"net/http"

	"mentorhub/internal/model"
	"mentorhub/internal/service"
	"mentorhub/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// BookingHandler handles booking lifecycle endpoints
type BookingHandler struct {
	bookingSvc *service.BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingSvc *service.BookingService) *BookingHandler {
	return &BookingHandler{bookingSvc: bookingSvc}
}

// Decide handles POST /v1/bookings/{bookingId}/decision
func (h *BookingHandler) Decide(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	bookingID := mux.Vars(r)["bookingId"]

	var req model.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	booking, err := h.bookingSvc.Decide(r.Context(), bookingID, req.Decision, identity)
	if err != nil {
		log.Warn().Err(err).Str("module", "rest.booking").Str("booking_id", bookingID).
			Str("user_id", identity.UserID).Msg("decision failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}
