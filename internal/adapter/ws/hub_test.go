package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func readMessage(t *testing.T, c *websocket.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func waitForConnections(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.ConnectionCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d connections, got %d", n, h.ConnectionCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubGreetsAndBroadcasts(t *testing.T) {
	greet := func(context.Context) []Message {
		m, _ := NewMessage("tasks.refreshed", map[string]int{"total_count": 2})
		return []Message{m}
	}
	hub := NewHub("", greet)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()
	defer hub.Close()

	c := dial(t, srv)
	if m := readMessage(t, c); m.Type != "tasks.refreshed" || string(m.Payload) != `{"total_count":2}` {
		t.Fatalf("unexpected greeting %+v", m)
	}
	waitForConnections(t, hub, 1)

	hub.BroadcastEvent(context.Background(), "tx.phase", map[string]string{"phase": "awaiting_confirmation"})
	if m := readMessage(t, c); m.Type != "tx.phase" {
		t.Fatalf("unexpected broadcast %+v", m)
	}
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub("", nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	c := dial(t, srv)
	waitForConnections(t, hub, 1)
	_ = c.Close(websocket.StatusNormalClosure, "bye")
	waitForConnections(t, hub, 0)
}

func TestHubBroadcastNoConnections(t *testing.T) {
	hub := NewHub("", nil)
	hub.Broadcast(context.Background(), Message{Type: "test", Payload: []byte(`{}`)})
	if hub.ConnectionCount() != 0 {
		t.Fatal("expected no connections")
	}
}

func TestHubBroadcastEventMarshalError(t *testing.T) {
	hub := NewHub("", nil)
	// A channel cannot be marshaled to JSON; the event is logged and skipped.
	hub.BroadcastEvent(context.Background(), "bad", make(chan int))
}

func TestNewHubOriginPatterns(t *testing.T) {
	if h := NewHub("http://localhost:5173", nil); len(h.originPatterns) != 1 || h.originPatterns[0] != "localhost:5173" {
		t.Fatalf("unexpected patterns %v", h.originPatterns)
	}
	if h := NewHub("*.example.com", nil); h.originPatterns[0] != "*.example.com" {
		t.Fatalf("unexpected patterns %v", h.originPatterns)
	}
}
