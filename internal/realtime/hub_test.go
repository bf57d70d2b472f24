package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/robalobadob/slidepuzzle/internal/puzzle"
)

func recv(t *testing.T, ch <-chan []byte) Message {
	t.Helper()
	select {
	case data, ok := <-ch:
		require.True(t, ok, "send channel closed")
		var m Message
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestHub_FanOutAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	a := &Client{hub: h, send: make(chan []byte, sendBuffer), gameID: "g1"}
	b := &Client{hub: h, send: make(chan []byte, sendBuffer), gameID: "g1"}
	other := &Client{hub: h, send: make(chan []byte, sendBuffer), gameID: "g2"}
	h.register <- a
	h.register <- b
	h.register <- other
	assert.Equal(t, 2, h.Clients("g1"))

	snap := puzzle.Snapshot{Size: 3, Board: []int{1, 2, 3, 4, 5, 6, 7, 9, 8}, Empty: 7, State: puzzle.StateInProgress}
	h.Renderer("g1").Render(snap)

	for _, c := range []*Client{a, b} {
		m := recv(t, c.send)
		assert.Equal(t, "g1", m.GameID)
		assert.Equal(t, EventState, m.Event)
		require.NotNil(t, m.State)
		assert.Equal(t, snap.Board, m.State.Board)
	}

	solved := puzzle.Snapshot{Size: 3, Board: []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, Empty: 8, State: puzzle.StateSolved}
	h.Renderer("g1").Render(solved)
	assert.Equal(t, EventSolved, recv(t, a.send).Event)
	assert.Equal(t, EventSolved, recv(t, b.send).Event)
	assert.Len(t, other.send, 0, "other games see nothing")

	h.unregister <- b
	assert.Equal(t, 1, h.Clients("g1"))
	_, ok := <-b.send
	assert.False(t, ok, "unregister closes the send channel")

	cancel()
	<-h.done
	_, ok = <-a.send
	assert.False(t, ok)
	assert.Equal(t, 0, h.Clients("g1"))

	// broadcasting after shutdown must not block
	h.Broadcast("g1", EventState, nil, nil)
}

func TestHub_ServeWS(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, "game-1")
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.Clients("game-1") == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Broadcast("game-1", "hello", nil, map[string]int{"n": 1})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m Message
	require.NoError(t, conn.ReadJSON(&m))
	assert.Equal(t, "hello", m.Event)
	assert.Equal(t, "game-1", m.GameID)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.Clients("game-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CheckOrigin(t *testing.T) {
	h := NewHub("http://localhost:5173")
	check := h.upgrader.CheckOrigin

	r := httptest.NewRequest(http.MethodGet, "http://example.com/ws", nil)
	assert.True(t, check(r), "no origin header")

	r.Header.Set("Origin", "http://localhost:5173")
	assert.True(t, check(r))

	r.Header.Set("Origin", "http://example.com")
	assert.True(t, check(r), "same host")

	r.Header.Set("Origin", "http://evil.test")
	assert.False(t, check(r))
}
