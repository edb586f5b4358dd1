package websocket

import (
	"testing"
)

// Registry tests use connections with no underlying socket; nothing here
// writes to the wire.
func testConnection(userID, classroomID string) *Connection {
	return NewConnection(nil, userID, classroomID, 0)
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	conn := testConnection("instructor-1", "c1")
	if err := r.RegisterConnection(conn); err != nil {
		t.Fatalf("RegisterConnection failed: %v", err)
	}

	got, ok := r.GetUserConnection("instructor-1")
	if !ok || got != conn {
		t.Error("registered connection not found by user ID")
	}

	members := r.GetClassroomConnections("c1")
	if len(members) != 1 || members[0] != conn {
		t.Errorf("GetClassroomConnections returned %d connections, want 1", len(members))
	}

	if _, ok := r.GetUserConnection("nobody"); ok {
		t.Error("lookup of unknown user should fail")
	}
}

func TestRegistryRejectsNil(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterConnection(nil); err != ErrNilConnection {
		t.Errorf("RegisterConnection(nil) = %v, want ErrNilConnection", err)
	}
}

func TestRegistryReplacement(t *testing.T) {
	r := NewRegistry()

	first := testConnection("instructor-1", "c1")
	second := testConnection("instructor-1", "c1")

	if err := r.RegisterConnection(first); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := r.RegisterConnection(second); err != nil {
		t.Fatalf("second registration failed: %v", err)
	}

	got, ok := r.GetUserConnection("instructor-1")
	if !ok || got != second {
		t.Error("reconnection should replace the previous connection")
	}

	// Unregistering the stale connection must not evict the replacement.
	r.UnregisterConnection(first)
	if _, ok := r.GetUserConnection("instructor-1"); !ok {
		t.Error("stale unregister removed the active connection")
	}

	r.UnregisterConnection(second)
	if _, ok := r.GetUserConnection("instructor-1"); ok {
		t.Error("connection still registered after unregister")
	}
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()

	conn := testConnection("instructor-1", "c1")
	if err := r.RegisterConnection(conn); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	r.UnregisterConnection(conn)
	r.UnregisterConnection(conn) // second call is a no-op
	r.UnregisterConnection(nil)  // nil is ignored

	stats := r.GetStats()
	if stats["total_connections"] != 0 {
		t.Errorf("total_connections = %d, want 0", stats["total_connections"])
	}
	if stats["classrooms"] != 0 {
		t.Errorf("classrooms = %d, want 0 (empty classroom maps must be cleaned up)", stats["classrooms"])
	}
}

func TestRegistryClassroomIsolation(t *testing.T) {
	r := NewRegistry()

	c1 := testConnection("instructor-1", "c1")
	c2 := testConnection("instructor-2", "c2")
	if err := r.RegisterConnection(c1); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterConnection(c2); err != nil {
		t.Fatal(err)
	}

	if got := r.GetClassroomConnections("c1"); len(got) != 1 || got[0] != c1 {
		t.Error("c1 subscribers should contain only instructor-1")
	}
	if got := r.GetClassroomConnections("c2"); len(got) != 1 || got[0] != c2 {
		t.Error("c2 subscribers should contain only instructor-2")
	}

	stats := r.GetStats()
	if stats["total_connections"] != 2 || stats["classrooms"] != 2 {
		t.Errorf("unexpected stats: %v", stats)
	}
}
