// Package hub fans coordinator events out to subscribed dashboards.
// Delivery is best effort: the coordinator's stores are the source of truth
// and a dashboard that misses an event recovers by re-reading them.
package hub

import (
	"context"
	"log"
	"sync"
	"time"

	"liveclass/internal/websocket"
)

// Event is one coordinator notification, scoped to a classroom session.
type Event struct {
	Type        string         `json:"type"`
	ClassroomID string         `json:"classroom_id"`
	Timestamp   time.Time      `json:"timestamp"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// Hub coordinates event fan-out and connection lifecycle. A single goroutine
// consumes all channels, so registry updates and event delivery never race.
type Hub struct {
	// Buffered so publishers never block inside or after their critical
	// sections; a full buffer drops the event instead.
	eventCh      chan *Event
	registerCh   chan *websocket.Connection
	unregisterCh chan *websocket.Connection
	shutdownCh   chan struct{}

	registry *websocket.Registry

	running bool
	mu      sync.RWMutex
}

// NewHub creates a hub over the given connection registry.
func NewHub(registry *websocket.Registry) *Hub {
	return &Hub{
		eventCh:      make(chan *Event, 1000),
		registerCh:   make(chan *websocket.Connection, 100),
		unregisterCh: make(chan *websocket.Connection, 100),
		shutdownCh:   make(chan struct{}),
		registry:     registry,
	}
}

// Start begins hub processing.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.mu.Unlock()

	log.Println("Starting event hub...")
	go h.run(ctx)
	return nil
}

// Stop shuts the hub down. Safe to call once after Start.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return ErrHubNotRunning
	}
	h.running = false

	log.Println("Stopping event hub...")
	select {
	case <-h.shutdownCh:
	default:
		close(h.shutdownCh)
	}
	return nil
}

// Publish queues an event for fan-out to the classroom's subscribers.
// Never blocks: when the hub is stopped or the buffer is full the event is
// dropped and logged, which keeps lock hold times in the services bounded.
func (h *Hub) Publish(eventType, classroomID string, payload map[string]any) {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		return
	}

	event := &Event{
		Type:        eventType,
		ClassroomID: classroomID,
		Timestamp:   time.Now(),
		Payload:     payload,
	}

	select {
	case h.eventCh <- event:
	default:
		log.Printf("Dropped event, hub buffer full: type=%s classroom=%s", eventType, classroomID)
	}
}

// RegisterConnection queues a connection for registration.
func (h *Hub) RegisterConnection(conn *websocket.Connection) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.running {
		return ErrHubNotRunning
	}

	select {
	case h.registerCh <- conn:
		return nil
	default:
		return ErrRegisterChannelFull
	}
}

// UnregisterConnection queues a connection for removal.
func (h *Hub) UnregisterConnection(conn *websocket.Connection) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.running {
		return ErrHubNotRunning
	}

	select {
	case h.unregisterCh <- conn:
		return nil
	default:
		return ErrUnregisterChannelFull
	}
}

func (h *Hub) run(ctx context.Context) {
	defer log.Println("Event hub stopped")

	for {
		select {
		case event := <-h.eventCh:
			h.deliver(event)

		case conn := <-h.registerCh:
			if conn == nil {
				continue
			}
			if err := h.registry.RegisterConnection(conn); err != nil {
				log.Printf("Connection registration failed: user=%s err=%v", conn.GetUserID(), err)
				if closeErr := conn.Close(); closeErr != nil {
					log.Printf("Failed to close rejected connection: %v", closeErr)
				}
				continue
			}
			log.Printf("Dashboard connected: user=%s classroom=%s", conn.GetUserID(), conn.GetClassroomID())

		case conn := <-h.unregisterCh:
			if conn == nil {
				continue
			}
			h.registry.UnregisterConnection(conn)
			log.Printf("Dashboard disconnected: user=%s", conn.GetUserID())

		case <-h.shutdownCh:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) deliver(event *Event) {
	for _, conn := range h.registry.GetClassroomConnections(event.ClassroomID) {
		if err := conn.WriteJSON(event); err != nil {
			// A dead subscriber is cleaned up by its read loop; delivery to
			// the rest continues.
			log.Printf("Event delivery failed: user=%s type=%s err=%v", conn.GetUserID(), event.Type, err)
		}
	}
}
