package notifiers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/daniacca/molsim/internal/molsim"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// WebSocketNotifier streams progress events to every connected WebSocket client
type WebSocketNotifier struct {
	id         string
	mu         sync.RWMutex
	clients    map[*websocket.Conn]bool
	upgrader   websocket.Upgrader
	broadcast  chan molsim.ProgressEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

// NewWebSocketNotifier creates a new WebSocket notifier
func NewWebSocketNotifier(id string) *WebSocketNotifier {
	notifier := &WebSocketNotifier{
		id:         id,
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan molsim.ProgressEvent, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	notifier.wg.Add(1)
	go notifier.run()

	return notifier
}

// ID returns the notifier ID
func (wsn *WebSocketNotifier) ID() string {
	return wsn.id
}

// Type returns the notifier type
func (wsn *WebSocketNotifier) Type() string {
	return "websocket"
}

// ClientCount returns the number of connected clients
func (wsn *WebSocketNotifier) ClientCount() int {
	wsn.mu.RLock()
	defer wsn.mu.RUnlock()
	return len(wsn.clients)
}

// RegisterClient registers a new WebSocket client connection
func (wsn *WebSocketNotifier) RegisterClient(conn *websocket.Conn) {
	select {
	case wsn.register <- conn:
	case <-wsn.done:
	}
}

// UnregisterClient unregisters and closes a WebSocket client connection
func (wsn *WebSocketNotifier) UnregisterClient(conn *websocket.Conn) {
	select {
	case wsn.unregister <- conn:
	case <-wsn.done:
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects. Incoming messages are discarded.
func (wsn *WebSocketNotifier) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wsn.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	wsn.RegisterClient(conn)
	defer wsn.UnregisterClient(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Notify queues the event for broadcast
func (wsn *WebSocketNotifier) Notify(ctx context.Context, event molsim.ProgressEvent) error {
	select {
	case <-wsn.done:
		return fmt.Errorf("websocket notifier %s is closed", wsn.id)
	default:
	}
	select {
	case wsn.broadcast <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(1 * time.Second):
		return fmt.Errorf("notification queue full")
	}
}

func (wsn *WebSocketNotifier) run() {
	defer wsn.wg.Done()
	for {
		select {
		case <-wsn.done:
			return

		case conn := <-wsn.register:
			if conn == nil {
				continue
			}
			wsn.mu.Lock()
			wsn.clients[conn] = true
			wsn.mu.Unlock()

		case conn := <-wsn.unregister:
			if conn == nil {
				continue
			}
			wsn.mu.Lock()
			if _, ok := wsn.clients[conn]; ok {
				delete(wsn.clients, conn)
				conn.Close()
			}
			wsn.mu.Unlock()

		case event := <-wsn.broadcast:
			data, err := event.JSON()
			if err != nil {
				continue
			}
			wsn.write(data)
		}
	}
}

// write sends one message to every client and drops the ones that fail.
func (wsn *WebSocketNotifier) write(data []byte) {
	wsn.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(wsn.clients))
	for conn := range wsn.clients {
		conns = append(conns, conn)
	}
	wsn.mu.RUnlock()

	var failed []*websocket.Conn
	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			failed = append(failed, conn)
			conn.Close()
		}
	}

	if len(failed) > 0 {
		wsn.mu.Lock()
		for _, conn := range failed {
			delete(wsn.clients, conn)
		}
		wsn.mu.Unlock()
	}
}

// Close stops the broadcaster and closes all client connections
func (wsn *WebSocketNotifier) Close() error {
	wsn.closeOnce.Do(func() {
		close(wsn.done)
		wsn.wg.Wait()

		wsn.mu.Lock()
		for conn := range wsn.clients {
			conn.Close()
			delete(wsn.clients, conn)
		}
		wsn.mu.Unlock()
	})
	return nil
}
