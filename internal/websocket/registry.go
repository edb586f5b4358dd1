package websocket

import (
	"log"
	"sync"
)

// Registry tracks dashboard connections with thread-safe operations.
// Pure connection bookkeeping; it knows nothing about alerts or rooms.
type Registry struct {
	mu                sync.RWMutex
	globalConnections map[string]*Connection            // userID -> Connection
	byClassroom       map[string]map[string]*Connection // classroomID -> userID -> Connection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		globalConnections: make(map[string]*Connection),
		byClassroom:       make(map[string]map[string]*Connection),
	}
}

// RegisterConnection adds a connection to both maps atomically. A user
// reconnecting replaces their previous connection; the old one is closed
// asynchronously to avoid holding the registry lock across Close.
func (r *Registry) RegisterConnection(conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}

	userID := conn.GetUserID()
	classroomID := conn.GetClassroomID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.globalConnections[userID]; ok {
		go func() {
			if err := existing.Close(); err != nil {
				log.Printf("Failed to close replaced connection: user=%s err=%v", userID, err)
			}
		}()
	}

	r.globalConnections[userID] = conn
	if r.byClassroom[classroomID] == nil {
		r.byClassroom[classroomID] = make(map[string]*Connection)
	}
	r.byClassroom[classroomID][userID] = conn

	return nil
}

// UnregisterConnection removes the connection if it is still the registered
// one for its user. Idempotent; a stale connection never evicts its
// replacement.
func (r *Registry) UnregisterConnection(conn *Connection) {
	if conn == nil {
		return
	}

	userID := conn.GetUserID()

	r.mu.Lock()
	defer r.mu.Unlock()

	registered, ok := r.globalConnections[userID]
	if !ok || registered != conn {
		return
	}

	delete(r.globalConnections, userID)

	classroomID := conn.GetClassroomID()
	if members, ok := r.byClassroom[classroomID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.byClassroom, classroomID)
		}
	}
}

// GetUserConnection returns the current connection for a user.
func (r *Registry) GetUserConnection(userID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.globalConnections[userID]
	return conn, ok
}

// GetClassroomConnections returns every subscriber of a classroom session.
func (r *Registry) GetClassroomConnections(classroomID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Connection
	for _, conn := range r.byClassroom[classroomID] {
		out = append(out, conn)
	}
	return out
}

// GetStats reports connection counts for the health endpoint.
func (r *Registry) GetStats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"total_connections": len(r.globalConnections),
		"classrooms":        len(r.byClassroom),
	}
}
