// Package interfaces declares the contracts between the coordinator core
// and its callers. The HTTP layer and any future transport depend on these
// rather than on concrete service types.
package interfaces

import (
	"context"

	"liveclass/pkg/types"
)

// AlertCoordinator is the help-alert lifecycle entry point. It is the only
// writer of alert status; external producers (transcript analysis) call
// CreateAlert and never touch the collection directly.
type AlertCoordinator interface {
	// CreateAlert assigns ID and initial state and appends the alert to
	// its classroom's collection.
	CreateAlert(ctx context.Context, params types.CreateAlertParams) (*types.HelpAlert, error)

	// GetAlerts returns alerts passing the optional conjunctive filters,
	// ordered by urgency descending then detection time descending.
	GetAlerts(ctx context.Context, classroomID string, filter types.AlertFilter) ([]*types.HelpAlert, error)

	// GetAlertCounts returns per-status tallies for the classroom.
	GetAlertCounts(ctx context.Context, classroomID string) (types.AlertCounts, error)

	AcknowledgeAlert(ctx context.Context, alertID, actorID string) (*types.HelpAlert, error)
	ResolveAlert(ctx context.Context, alertID, actorID string) (*types.HelpAlert, error)
	DismissAlert(ctx context.Context, alertID, actorID string) (*types.HelpAlert, error)

	// ClearSession discards every alert owned by the classroom session.
	ClearSession(ctx context.Context, classroomID string) error
}

// RoomCoordinator is the breakout-room entry point, enforcing the capacity
// and single-active-room invariants behind per-key locking.
type RoomCoordinator interface {
	// CreateRooms creates a batch of rooms atomically, all or nothing.
	CreateRooms(ctx context.Context, classroomID string, specs []types.RoomSpec) ([]*types.BreakoutRoom, error)

	// AssignParticipant moves the participant into the target room as one
	// observable step.
	AssignParticipant(ctx context.Context, classroomID, participantID, targetRoomID string) (*types.BreakoutRoom, error)

	// CloseRoom marks the room closed; closing twice is a no-op success.
	CloseRoom(ctx context.Context, roomID string) (*types.BreakoutRoom, error)

	// JoinRoom and LeaveRoom serialize on the (room, participant) key.
	// Leave is idempotent: "already left" is not a failure.
	JoinRoom(ctx context.Context, roomID, participantID string) error
	LeaveRoom(ctx context.Context, roomID, participantID string) error

	// Derived views, recomputed from the room collection on every call.
	ActiveRooms(classroomID string) []*types.BreakoutRoom
	ParticipantAssignments(classroomID string) map[string]string

	// ClearSession discards every room owned by the classroom session.
	ClearSession(ctx context.Context, classroomID string) error
}
