package hub

import (
	"context"
	"testing"
	"time"

	"liveclass/internal/websocket"
)

func TestHubStartStop(t *testing.T) {
	h := NewHub(websocket.NewRegistry())

	if err := h.Stop(); err != ErrHubNotRunning {
		t.Errorf("Stop before Start = %v, want ErrHubNotRunning", err)
	}

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := h.Start(context.Background()); err != ErrHubAlreadyRunning {
		t.Errorf("second Start = %v, want ErrHubAlreadyRunning", err)
	}

	if err := h.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestPublishBeforeStartIsDropped(t *testing.T) {
	h := NewHub(websocket.NewRegistry())

	// Must not panic or block.
	h.Publish("alert_created", "c1", map[string]any{"alert_id": "a1"})
}

func TestRegisterRequiresRunningHub(t *testing.T) {
	h := NewHub(websocket.NewRegistry())

	conn := websocket.NewConnection(nil, "instructor-1", "c1", 0)
	if err := h.RegisterConnection(conn); err != ErrHubNotRunning {
		t.Errorf("RegisterConnection = %v, want ErrHubNotRunning", err)
	}
	if err := h.UnregisterConnection(conn); err != ErrHubNotRunning {
		t.Errorf("UnregisterConnection = %v, want ErrHubNotRunning", err)
	}
}

func TestHubRegistersConnections(t *testing.T) {
	registry := websocket.NewRegistry()
	h := NewHub(registry)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer h.Stop()

	conn := websocket.NewConnection(nil, "instructor-1", "c1", 0)
	if err := h.RegisterConnection(conn); err != nil {
		t.Fatalf("RegisterConnection failed: %v", err)
	}

	// Registration is asynchronous; poll briefly.
	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := registry.GetUserConnection("instructor-1"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("connection never reached the registry")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := h.UnregisterConnection(conn); err != nil {
		t.Fatalf("UnregisterConnection failed: %v", err)
	}
	deadline = time.Now().Add(time.Second)
	for {
		if _, ok := registry.GetUserConnection("instructor-1"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("connection never left the registry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishToEmptyClassroom(t *testing.T) {
	h := NewHub(websocket.NewRegistry())
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer h.Stop()

	// No subscribers: delivery is a no-op, not an error.
	h.Publish("room_closed", "empty-classroom", nil)
	time.Sleep(10 * time.Millisecond)
}
