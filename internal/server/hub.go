// Package server exposes the system to the outside: the WebSocket hub
// for dashboard viewers, the HTTP API, and the glue that wires the
// session bridge events into the monitor.
package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event is one named frame pushed to dashboard viewers.
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// viewer is one connected dashboard. Its send channel is bounded; a
// viewer that cannot drain it misses events rather than stalling the
// broadcast path.
type viewer struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// Hub fans events out to every connected dashboard viewer. Broadcasts
// are best effort: no buffering for absent viewers, no delivery
// guarantee for slow ones.
type Hub struct {
	mu      sync.RWMutex
	viewers map[string]*viewer
	hello   func() []Event

	upgrader websocket.Upgrader
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		viewers: make(map[string]*viewer),
		upgrader: websocket.Upgrader{
			// The dashboard is served from anywhere on the LAN.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetHello installs the snapshot event builder. A new viewer receives
// these frames immediately after connecting, so the dashboard renders
// current state without waiting for the next change.
func (h *Hub) SetHello(build func() []Event) {
	h.mu.Lock()
	h.hello = build
	h.mu.Unlock()
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// Broadcast pushes one event to every viewer. Never blocks: viewers
// with a full queue miss the event.
func (h *Hub) Broadcast(event string, payload interface{}) {
	e := Event{Name: event, Data: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, v := range h.viewers {
		select {
		case v.send <- e:
		default:
		}
	}
}

// ServeHTTP upgrades the request and runs the viewer until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		fmt.Printf("[Hub] Upgrade failed: %v\n", err)
		return
	}

	v := &viewer{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Event, 32),
	}

	h.mu.Lock()
	h.viewers[v.id] = v
	hello := h.hello
	count := len(h.viewers)
	h.mu.Unlock()

	fmt.Printf("[Hub] Viewer connected (%d online)\n", count)

	if hello != nil {
		for _, e := range hello() {
			select {
			case v.send <- e:
			default:
			}
		}
	}

	go h.writeLoop(v)
	h.readLoop(v)
}

func (h *Hub) writeLoop(v *viewer) {
	for e := range v.send {
		if err := v.conn.WriteJSON(e); err != nil {
			return
		}
	}
}

// readLoop drains inbound frames until the viewer disconnects. The
// only frame acted on is request-chats, which replays the snapshot
// events for a dashboard that reloaded its state.
func (h *Hub) readLoop(v *viewer) {
	defer h.drop(v)
	for {
		var in struct {
			Event string `json:"event"`
		}
		if err := v.conn.ReadJSON(&in); err != nil {
			return
		}
		if in.Event == "request-chats" {
			h.mu.RLock()
			hello := h.hello
			h.mu.RUnlock()
			if hello != nil {
				for _, e := range hello() {
					select {
					case v.send <- e:
					default:
					}
				}
			}
		}
	}
}

func (h *Hub) drop(v *viewer) {
	h.mu.Lock()
	if _, ok := h.viewers[v.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.viewers, v.id)
	count := len(h.viewers)
	h.mu.Unlock()

	close(v.send)
	v.conn.Close()
	fmt.Printf("[Hub] Viewer disconnected (%d online)\n", count)
}
