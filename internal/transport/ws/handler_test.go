package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mentorhub/internal/cache"
	"mentorhub/internal/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestServeWS_RejectsMissingToken(t *testing.T) {
	f := newFixture(t, nil)
	server := httptest.NewServer(http.HandlerFunc(f.handler.ServeWS))
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(server)+"?token=garbage", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWS_JoinAndChat(t *testing.T) {
	f := newFixture(t, nil)
	server := httptest.NewServer(http.HandlerFunc(f.handler.ServeWS))
	defer server.Close()

	learnerToken, err := f.authSvc.IssueToken(learner)
	require.NoError(t, err)
	mentorToken, err := f.authSvc.IssueToken(mentor)
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+learnerToken.Token)
	l, _, err := websocket.DefaultDialer.Dial(wsURL(server), header)
	require.NoError(t, err)
	defer l.Close()

	m, _, err := websocket.DefaultDialer.Dial(wsURL(server)+"?token="+mentorToken.Token, nil)
	require.NoError(t, err)
	defer m.Close()

	read := func(c *websocket.Conn) Message {
		t.Helper()
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg Message
		require.NoError(t, c.ReadJSON(&msg))
		return msg
	}
	readUntil := func(c *websocket.Conn, msgType string) Message {
		t.Helper()
		for {
			msg := read(c)
			if msg.Type == msgType {
				return msg
			}
		}
	}

	require.NoError(t, l.WriteJSON(map[string]interface{}{"type": model.EventRoomJoin, "payload": roomID}))
	assert.Equal(t, model.EventRoomJoined, read(l).Type)
	assert.Equal(t, model.EventChatHistory, read(l).Type)
	assert.Equal(t, model.EventWhiteboardState, read(l).Type)

	require.NoError(t, m.WriteJSON(map[string]interface{}{"type": model.EventRoomJoin, "payload": roomID}))
	readUntil(m, model.EventWhiteboardState)
	assert.Equal(t, model.EventRoomUserJoined, read(l).Type)

	require.NoError(t, l.WriteJSON(map[string]interface{}{
		"type":    model.EventChatMessage,
		"payload": map[string]string{"roomId": roomID, "content": "hi"},
	}))
	for _, c := range []*websocket.Conn{l, m} {
		msg := readUntil(c, model.EventChatNewMessage)
		assert.Contains(t, string(msg.Payload), `"content":"hi"`)
	}

	require.NoError(t, l.Close())
	left := readUntil(m, model.EventRoomUserLeft)
	assert.Contains(t, string(left.Payload), learner.UserID)
}

type touchCounter struct {
	cache.PresenceCache
	touches atomic.Int32
}

func (c *touchCounter) Touch(ctx context.Context, userID string) error {
	c.touches.Add(1)
	return c.PresenceCache.Touch(ctx, userID)
}

func TestServeWS_PongRefreshesPresence(t *testing.T) {
	f := newFixture(t, nil)
	counter := &touchCounter{PresenceCache: f.presence}
	f.handler.presence = counter
	f.handler.settings.PingPeriod = 20 * time.Millisecond
	f.handler.settings.PongWait = 200 * time.Millisecond

	server := httptest.NewServer(http.HandlerFunc(f.handler.ServeWS))
	defer server.Close()

	token, err := f.authSvc.IssueToken(learner)
	require.NoError(t, err)
	c, _, err := websocket.DefaultDialer.Dial(wsURL(server)+"?token="+token.Token, nil)
	require.NoError(t, err)
	defer c.Close()

	// the default ping handler answers pings while the client reads
	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	assert.Eventually(t, func() bool { return counter.touches.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)

	online, err := f.presence.IsOnline(context.Background(), learner.UserID)
	require.NoError(t, err)
	assert.True(t, online, "connection outlived several pong waits")
}

func TestServeWS_RejectionIsJSON(t *testing.T) {
	f := newFixture(t, nil)
	server := httptest.NewServer(http.HandlerFunc(f.handler.ServeWS))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "missing token")
}
