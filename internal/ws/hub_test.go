package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lamoy/api/internal/auth"
	"github.com/lamoy/api/internal/enum"
)

const testSecret = "test-secret"

func newTestClient(hub *Hub) *Client {
	return &Client{id: uuid.New(), hub: hub, send: make(chan []byte, 8)}
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if hub.ClientCount() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c1 := newTestClient(hub)
	c2 := newTestClient(hub)
	hub.register <- c1
	hub.register <- c2
	waitForClients(t, hub, 2)

	hub.BroadcastOrderEvent("order.created", map[string]any{"order_id": 55, "status": "PENDING"})

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			var event Event
			if err := json.Unmarshal(msg, &event); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}
			if event.Type != "order.created" {
				t.Errorf("event type = %q, want order.created", event.Type)
			}
			var payload struct {
				OrderID int64  `json:"order_id"`
				Status  string `json:"status"`
			}
			if err := json.Unmarshal(event.Payload, &payload); err != nil {
				t.Fatalf("unmarshal payload: %v", err)
			}
			if payload.OrderID != 55 || payload.Status != "PENDING" {
				t.Errorf("payload = %+v", payload)
			}
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := newTestClient(hub)
	hub.register <- c
	waitForClients(t, hub, 1)

	hub.unregister <- c
	waitForClients(t, hub, 0)

	// The send channel is closed so WritePump can exit.
	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed send channel")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	slow := &Client{id: uuid.New(), hub: hub, send: make(chan []byte)} // no buffer, never read
	hub.register <- slow
	waitForClients(t, hub, 1)

	hub.BroadcastOrderEvent("order.created", map[string]any{"order_id": 1})
	waitForClients(t, hub, 0)
}

func TestServeWS_Auth(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, testSecret, w, r)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	// Missing token.
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Error("expected dial to fail without token")
	} else if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}

	// Customer token: the feed is admin-only.
	customerToken, err := auth.GenerateToken(testSecret, 10, enum.RoleCustomer)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token="+customerToken, nil); err == nil {
		t.Error("expected dial to fail for customer")
	} else if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}

	// Admin token connects and receives broadcasts.
	adminToken, err := auth.GenerateToken(testSecret, 1, enum.RoleAdmin)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+adminToken, nil)
	if err != nil {
		t.Fatalf("admin dial: %v", err)
	}
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.BroadcastOrderEvent("order.status_changed", map[string]any{"order_id": 7, "status": "READY"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}

	var event Event
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.Type != "order.status_changed" {
		t.Errorf("event type = %q, want order.status_changed", event.Type)
	}
}
