package web

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestServer(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestPublish_DeliversKeyboardEvents(t *testing.T) {
	s := newTestServer(t, &fakeTracker{}, nil)
	conn := dialTestServer(t, s)

	for _, payload := range []string{"key:a", "cmd:delete", "cmd:submit"} {
		s.Publish("keyboard", payload)
	}

	for _, want := range []string{"key:a", "cmd:delete", "cmd:submit"} {
		msg := readMessage(t, conn)
		assert.Equal(t, "keyboard", msg.Event)
		assert.Equal(t, want, msg.Payload)
	}
}

func TestBroadcastStatus(t *testing.T) {
	tracker := &fakeTracker{}
	s := newTestServer(t, tracker, nil)
	conn := dialTestServer(t, s)

	require.NoError(t, tracker.Start())
	s.BroadcastStatus()

	msg := readMessage(t, conn)
	assert.Equal(t, "status", msg.Event)
	payload, ok := msg.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, payload["active"])
	assert.Equal(t, "s-1", payload["session"])
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	s := newTestServer(t, &fakeTracker{}, nil)
	conn := dialTestServer(t, s)

	s.hub.Stop()
	require.Eventually(t, func() bool { return s.hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	// publishing after stop must not block
	done := make(chan bool, 1)
	go func() {
		done <- s.Publish("keyboard", "key:x")
	}()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after hub stop")
	}
}

func TestHub_BroadcastReportsFullQueue(t *testing.T) {
	h := NewHub()

	for i := 0; i < cap(h.broadcast); i++ {
		require.True(t, h.BroadcastMessage(Message{Event: "keyboard", Payload: "key:a"}))
	}
	assert.False(t, h.BroadcastMessage(Message{Event: "keyboard", Payload: "key:b"}))
}
