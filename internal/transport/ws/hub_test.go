package ws

import (
	"encoding/json"
	"testing"

	"mentorhub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mentor   = model.Identity{UserID: "m1", Username: "mia", Role: model.RoleMentor}
	learner  = model.Identity{UserID: "l1", Username: "leo", Role: model.RoleLearner}
	outsider = model.Identity{UserID: "x1", Username: "xan", Role: model.RoleLearner}
)

func TestHub_JoinLeaveMembership(t *testing.T) {
	hub := NewHub()
	a := NewConnection(learner, 8)
	b := NewConnection(learner, 8)
	hub.Register(a)
	hub.Register(b)

	assert.False(t, hub.Join(a, "r1"))
	assert.True(t, hub.Join(a, "r1"), "second join reports existing membership")
	hub.Join(b, "r1")

	assert.True(t, hub.IsMember(a, "r1"))
	assert.Len(t, hub.RoomMembers("r1"), 1, "members are distinct identities")
	assert.True(t, hub.UserInRoom(learner.UserID, "r1"))

	assert.True(t, hub.Leave(a, "r1"))
	assert.False(t, hub.Leave(a, "r1"))
	assert.True(t, hub.UserInRoom(learner.UserID, "r1"), "second connection still joined")

	rooms := hub.Unregister(b)
	assert.Equal(t, []string{"r1"}, rooms)
	assert.False(t, hub.UserInRoom(learner.UserID, "r1"))
	assert.Nil(t, hub.Unregister(b), "unregister is idempotent")
	assert.True(t, hub.Online(learner.UserID))

	hub.Unregister(a)
	assert.False(t, hub.Online(learner.UserID))
}

func TestHub_BroadcastExcept(t *testing.T) {
	hub := NewHub()
	a := NewConnection(learner, 8)
	b := NewConnection(mentor, 8)
	hub.Register(a)
	hub.Register(b)
	hub.Join(a, "r1")
	hub.Join(b, "r1")

	hub.BroadcastToRoomExcept("r1", a.ID, "ping", map[string]string{"k": "v"})
	assert.Len(t, a.Send, 0)
	require.Len(t, b.Send, 1)

	var msg Message
	require.NoError(t, json.Unmarshal(<-b.Send, &msg))
	assert.Equal(t, "ping", msg.Type)
	assert.JSONEq(t, `{"k":"v"}`, string(msg.Payload))

	hub.BroadcastToRoom("r1", "pong", nil)
	assert.Len(t, a.Send, 1)
	assert.Len(t, b.Send, 1)
}

func TestHub_SendToUserReachesEveryConnection(t *testing.T) {
	hub := NewHub()
	a := NewConnection(learner, 8)
	b := NewConnection(learner, 8)
	hub.Register(a)
	hub.Register(b)

	assert.Equal(t, 2, hub.SendToUser(learner.UserID, "note", "x"))
	assert.Equal(t, 0, hub.SendToUser(mentor.UserID, "note", "x"))
	assert.Len(t, a.Send, 1)
	assert.Len(t, b.Send, 1)
}

func TestHub_FullBufferKicksConnection(t *testing.T) {
	hub := NewHub()
	slow := NewConnection(learner, 1)
	hub.Register(slow)
	hub.Join(slow, "r1")

	hub.BroadcastToRoom("r1", "one", 1)
	hub.BroadcastToRoom("r1", "two", 2)

	select {
	case <-slow.Kicked():
	default:
		t.Fatal("expected slow connection to be kicked")
	}

	hub.BroadcastToRoom("r1", "three", 3)
	assert.Len(t, slow.Send, 1, "nothing is queued after a kick")
}

func TestHub_SendAfterUnregisterIsDropped(t *testing.T) {
	hub := NewHub()
	conn := NewConnection(learner, 4)
	hub.Register(conn)
	hub.Unregister(conn)

	assert.NotPanics(t, func() {
		hub.SendTo(conn, "late", nil)
		hub.SendToUser(learner.UserID, "late", nil)
	})
}
