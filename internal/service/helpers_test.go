package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"mentorhub/internal/cache"
	"mentorhub/internal/model"
	"mentorhub/internal/repository"

	"github.com/stretchr/testify/require"
)

var (
	mentor   = model.Identity{UserID: "m1", Username: "mia", Role: model.RoleMentor}
	learner  = model.Identity{UserID: "l1", Username: "leo", Role: model.RoleLearner}
	outsider = model.Identity{UserID: "x1", Username: "xan", Role: model.RoleLearner}
)

type sent struct {
	Target  string // room id or user id
	Except  string
	Type    string
	Payload interface{}
}

// recorder is a Broadcaster that remembers every event in call order
type recorder struct {
	mu     sync.Mutex
	events []sent
	online map[string]int
}

func newRecorder() *recorder {
	return &recorder{online: make(map[string]int)}
}

func (r *recorder) BroadcastToRoom(roomID string, msgType string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{Target: roomID, Type: msgType, Payload: payload})
}

func (r *recorder) BroadcastToRoomExcept(roomID, connID string, msgType string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{Target: roomID, Except: connID, Type: msgType, Payload: payload})
}

func (r *recorder) SendToUser(userID string, msgType string, payload interface{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{Target: userID, Type: msgType, Payload: payload})
	return r.online[userID]
}

func (r *recorder) ofType(msgType string) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sent
	for _, e := range r.events {
		if e.Type == msgType {
			out = append(out, e)
		}
	}
	return out
}

func seedRoom(t *testing.T, repo repository.RoomRepo) *model.Room {
	t.Helper()
	room := &model.Room{
		ID:          "room-1",
		BookingID:   "booking-1",
		Mentor:      mentor,
		Learner:     learner,
		SessionLink: "http://localhost:3000/session/room-1",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), room))
	return room
}

func newRoomService(mem *repository.Memory) *RoomService {
	return NewRoomService(mem.Rooms, cache.NewMemoryRoomCache(), "http://localhost:3000/")
}
