package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mentorhub/internal/app"
	"mentorhub/internal/config"
	"mentorhub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mentor  = model.Identity{UserID: "m1", Username: "mia", Role: model.RoleMentor}
	learner = model.Identity{UserID: "l1", Username: "leo", Role: model.RoleLearner}
)

func newTestApp(t *testing.T) (*app.App, http.Handler) {
	t.Helper()
	cfg := &config.Config{
		Mode:          "test",
		Port:          8080,
		Store:         config.StoreMemory,
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
		PublicBaseURL: "http://localhost:3000",
		LockPolicy:    "learner",
		CORSOrigins:   "*",
		WS: config.WSConfig{
			ReadLimit:  65536,
			PingPeriod: 54 * time.Second,
			PongWait:   60 * time.Second,
			WriteWait:  10 * time.Second,
			SendBuffer: 16,
		},
	}
	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	require.NoError(t, a.BookingRepo.Create(context.Background(), &model.Booking{
		ID:      "b1",
		Mentor:  mentor,
		Learner: learner,
		Status:  model.BookingRequested,
	}))
	return a, NewRouter(a)
}

func do(t *testing.T, a *app.App, router http.Handler, method, path string, who *model.Identity, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if who != nil {
		token, err := a.AuthService.IssueToken(*who)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token.Token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	a, router := newTestApp(t)
	rec := do(t, a, router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDecide_RequiresToken(t *testing.T) {
	a, router := newTestApp(t)
	rec := do(t, a, router, http.MethodPost, "/v1/bookings/b1/decision", nil, `{"decision":"confirm"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDecide_ConfirmThenReadRoom(t *testing.T) {
	a, router := newTestApp(t)

	rec := do(t, a, router, http.MethodPost, "/v1/bookings/b1/decision", &learner, `{"decision":"confirm"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code, "learners cannot decide")

	rec = do(t, a, router, http.MethodPost, "/v1/bookings/b1/decision", &mentor, `{"decision":"confirm"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var booking model.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &booking))
	assert.Equal(t, model.BookingConfirmed, booking.Status)
	require.NotEmpty(t, booking.RoomID)
	assert.True(t, strings.HasPrefix(booking.SessionLink, "http://localhost:3000/session/"))

	rec = do(t, a, router, http.MethodGet, "/v1/rooms/"+booking.RoomID, &learner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var room model.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &room))
	assert.Equal(t, "b1", room.BookingID)

	rec = do(t, a, router, http.MethodGet, "/v1/rooms/"+booking.RoomID+"/messages", &mentor, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"roomId":"`+booking.RoomID+`","messages":[]}`, rec.Body.String())

	rec = do(t, a, router, http.MethodGet, "/v1/rooms/"+booking.RoomID+"/whiteboard", &mentor, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"locked":false`)

	stranger := model.Identity{UserID: "x1", Role: model.RoleLearner}
	rec = do(t, a, router, http.MethodGet, "/v1/rooms/"+booking.RoomID, &stranger, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, a, router, http.MethodPost, "/v1/bookings/b1/decision", &mentor, `{"decision":"reject"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDecide_BadInput(t *testing.T) {
	a, router := newTestApp(t)

	rec := do(t, a, router, http.MethodPost, "/v1/bookings/b1/decision", &mentor, `{"decision":"perhaps"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, a, router, http.MethodPost, "/v1/bookings/b1/decision", &mentor, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, a, router, http.MethodPost, "/v1/bookings/nope/decision", &mentor, `{"decision":"confirm"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, a, router, http.MethodGet, "/v1/rooms/nope", &mentor, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPresence(t *testing.T) {
	a, router := newTestApp(t)
	require.NoError(t, a.Presence.Online(context.Background(), learner.UserID, "conn-1"))

	rec := do(t, a, router, http.MethodGet, "/v1/presence/"+learner.UserID, &mentor, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"l1","online":true}`, rec.Body.String())

	rec = do(t, a, router, http.MethodGet, "/v1/presence/nobody", &mentor, "")
	assert.JSONEq(t, `{"userId":"nobody","online":false}`, rec.Body.String())
}
