package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e Event
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return e
}

func TestHubBroadcastReachesViewer(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)

	// The connection registers asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Count() != 1 {
		t.Fatalf("viewer count = %d, want 1", hub.Count())
	}

	hub.Broadcast("stats-update", map[string]int{"totalMessages": 3})

	e := readEvent(t, conn)
	if e.Name != "stats-update" {
		t.Errorf("event = %q, want stats-update", e.Name)
	}
}

func TestHubSendsHelloOnConnect(t *testing.T) {
	hub := NewHub()
	hub.SetHello(func() []Event {
		return []Event{
			{Name: "config-updated", Data: map[string]bool{"botActive": true}},
			{Name: "chats-loaded", Data: []string{}},
		}
	})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)

	first := readEvent(t, conn)
	second := readEvent(t, conn)
	if first.Name != "config-updated" || second.Name != "chats-loaded" {
		t.Errorf("hello events = %q, %q", first.Name, second.Name)
	}
}

func TestHubReplaysHelloOnRequestChats(t *testing.T) {
	hub := NewHub()
	hub.SetHello(func() []Event {
		return []Event{{Name: "chats-loaded", Data: []string{}}}
	})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)
	readEvent(t, conn) // initial hello

	if err := conn.WriteJSON(map[string]string{"event": "request-chats"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	replay := readEvent(t, conn)
	if replay.Name != "chats-loaded" {
		t.Errorf("replay event = %q, want chats-loaded", replay.Name)
	}
}

func TestHubDropsDisconnectedViewer(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for hub.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Count() != 0 {
		t.Errorf("viewer count = %d after close, want 0", hub.Count())
	}

	// Broadcasting into an empty hub must not panic or block.
	hub.Broadcast("stats-update", nil)
}
