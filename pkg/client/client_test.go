package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/daniacca/molsim/internal/molsim"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer records the last request and answers like molsim-server.
type fakeServer struct {
	mu   sync.Mutex
	last recorded
}

type recorded struct {
	method string
	path   string
	query  string
	body   []byte
}

func (f *fakeServer) request() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	record := func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.last = recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: body}
		f.mu.Unlock()
	}
	progress := func(w http.ResponseWriter, r *http.Request) {
		record(w, r)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(molsim.ProgressEvent{SimulationID: "sim", Step: 10})
	}
	ok := func(w http.ResponseWriter, r *http.Request) {
		record(w, r)
		_, _ = w.Write([]byte("done"))
	}
	mux.HandleFunc("GET /healthz", ok)
	mux.HandleFunc("POST /simulation", progress)
	mux.HandleFunc("GET /stats", progress)
	mux.HandleFunc("POST /steps", progress)
	mux.HandleFunc("POST /start", ok)
	mux.HandleFunc("POST /stop", func(w http.ResponseWriter, r *http.Request) {
		record(w, r)
		http.Error(w, "simulation is not running", http.StatusConflict)
	})
	mux.HandleFunc("POST /temperature", ok)
	mux.HandleFunc("GET /snapshot", func(w http.ResponseWriter, r *http.Request) {
		record(w, r)
		_ = json.NewEncoder(w).Encode(molsim.Snapshot{SimulationID: "sim", Time: 3})
	})
	mux.HandleFunc("PUT /snapshot", ok)
	mux.HandleFunc("POST /notifiers", ok)
	mux.HandleFunc("DELETE /notifiers/{id}", ok)
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for i := int64(1); i <= 2; i++ {
			data, _ := molsim.ProgressEvent{Step: i}.JSON()
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
		_, _, _ = conn.ReadMessage()
	})
	return mux
}

func newFake(t *testing.T) (*fakeServer, *Client) {
	t.Helper()
	f := &fakeServer{}
	ts := httptest.NewServer(f.handler(t))
	t.Cleanup(ts.Close)
	return f, New(ts.URL + "/")
}

func TestClient_Requests(t *testing.T) {
	f, c := newFake(t)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	ev, err := c.Load(ctx, NewSimulation("sim").Species(NewSpecies("x", 1, 3)).Move(CBMC("cbmc")))
	require.NoError(t, err)
	assert.Equal(t, "sim", ev.SimulationID)
	var sent molsim.SimulationConfig
	require.NoError(t, json.Unmarshal(f.request().body, &sent))
	assert.Equal(t, "x", sent.Species[0].Name)

	ev, err = c.Steps(ctx, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(10), ev.Step)
	assert.Equal(t, "n=250", f.request().query)

	_, err = c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/stats", f.request().path)

	require.NoError(t, c.Start(ctx, 50, 100))
	assert.Equal(t, "batch=100&interval=50", f.request().query)

	require.NoError(t, c.SetTemperature(ctx, 2.5))
	assert.Equal(t, "value=2.5", f.request().query)

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Time)

	require.NoError(t, c.Restore(ctx, snap))
	assert.Equal(t, http.MethodPut, f.request().method)
	assert.Contains(t, string(f.request().body), `"simulation_id":"sim"`)

	require.NoError(t, c.RegisterWebhook(ctx, "hook", "http://example.com", map[string]string{"X-Token": "t"}))
	assert.JSONEq(t, `{"type":"webhook","id":"hook","url":"http://example.com","headers":{"X-Token":"t"}}`, string(f.request().body))

	require.NoError(t, c.UnregisterNotifier(ctx, "hook"))
	assert.Equal(t, "/notifiers/hook", f.request().path)
	assert.Equal(t, http.MethodDelete, f.request().method)
}

func TestClient_ErrorStatus(t *testing.T) {
	_, c := newFake(t)
	err := c.Stop(context.Background())
	assert.ErrorContains(t, err, "status 409")
	assert.ErrorContains(t, err, "simulation is not running")
}

func TestClient_Subscribe(t *testing.T) {
	_, c := newFake(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var steps []int64
	err := c.Subscribe(ctx, func(ev molsim.ProgressEvent) {
		steps = append(steps, ev.Step)
		if len(steps) == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int64{1, 2}, steps)
}
