package notifiers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/daniacca/molsim/internal/molsim"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialNotifier(t *testing.T, wsn *WebSocketNotifier) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(wsn)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestWebSocketNotifier_Broadcast(t *testing.T) {
	wsn := NewWebSocketNotifier("ws")
	defer wsn.Close()
	assert.Equal(t, "ws", wsn.ID())
	assert.Equal(t, "websocket", wsn.Type())

	conn, cleanup := dialNotifier(t, wsn)
	defer cleanup()
	require.Eventually(t, func() bool { return wsn.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	ev := molsim.ProgressEvent{SimulationID: "sim", Step: 7, Moves: []molsim.MoveStats{{Move: "cbmc"}}}
	require.NoError(t, wsn.Notify(context.Background(), ev))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got molsim.ProgressEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "sim", got.SimulationID)
	assert.Equal(t, int64(7), got.Step)
	require.Len(t, got.Moves, 1)
}

func TestWebSocketNotifier_ClientDisconnect(t *testing.T) {
	wsn := NewWebSocketNotifier("ws")
	defer wsn.Close()

	conn, cleanup := dialNotifier(t, wsn)
	defer cleanup()
	require.Eventually(t, func() bool { return wsn.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return wsn.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestWebSocketNotifier_Close(t *testing.T) {
	wsn := NewWebSocketNotifier("ws")
	_, cleanup := dialNotifier(t, wsn)
	defer cleanup()
	require.Eventually(t, func() bool { return wsn.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, wsn.Close())
	require.NoError(t, wsn.Close())
	assert.Zero(t, wsn.ClientCount())
	assert.Error(t, wsn.Notify(context.Background(), molsim.ProgressEvent{}))
}
