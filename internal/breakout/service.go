package breakout

import (
	"context"
	"log"

	"liveclass/internal/keyedmutex"
	"liveclass/pkg/types"
)

// Event types published to the notification hub.
const (
	eventRoomsCreated      = "rooms_created"
	eventRoomClosed        = "room_closed"
	eventParticipantJoined = "participant_joined"
	eventParticipantLeft   = "participant_left"
	eventRoomsCleared      = "rooms_cleared"
)

// EventPublisher receives coordinator events for best-effort fan-out.
// Publication happens strictly after the critical section.
type EventPublisher interface {
	Publish(eventType, classroomID string, payload map[string]any)
}

// Service applies per-key locking around breakout-room mutations.
// Classroom-level operations (create, assign, close, clear) serialize on the
// classroom key; join and leave serialize on the (room, participant) pair so
// concurrent duplicate requests collapse into one logical operation.
type Service struct {
	store  *Store
	locks  *keyedmutex.KeyedMutex
	events EventPublisher
}

// NewService creates a breakout-room service. events may be nil.
func NewService(store *Store, locks *keyedmutex.KeyedMutex, events EventPublisher) *Service {
	return &Service{
		store:  store,
		locks:  locks,
		events: events,
	}
}

// CreateRooms creates a batch of rooms for the classroom, all or nothing.
func (s *Service) CreateRooms(ctx context.Context, classroomID string, specs []types.RoomSpec) ([]*types.BreakoutRoom, error) {
	var created []*types.BreakoutRoom
	err := s.locks.Do(ctx, classroomKey(classroomID), func() error {
		var err error
		created, err = s.store.CreateRooms(classroomID, specs)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Created breakout rooms: classroom=%s count=%d", classroomID, len(created))
	s.publish(eventRoomsCreated, classroomID, map[string]any{"rooms": created})
	return created, nil
}

// AssignParticipant moves the participant into the target room, implicitly
// removing it from any other active room of the classroom.
func (s *Service) AssignParticipant(ctx context.Context, classroomID, participantID, targetRoomID string) (*types.BreakoutRoom, error) {
	var room *types.BreakoutRoom
	err := s.locks.Do(ctx, classroomKey(classroomID), func() error {
		var err error
		room, err = s.store.AssignParticipant(classroomID, participantID, targetRoomID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Assigned participant: classroom=%s participant=%s room=%s", classroomID, participantID, targetRoomID)
	s.publish(eventParticipantJoined, classroomID, map[string]any{
		"participant_id": participantID,
		"room_id":        targetRoomID,
	})
	return room, nil
}

// CloseRoom marks the room closed. Idempotent.
func (s *Service) CloseRoom(ctx context.Context, roomID string) (*types.BreakoutRoom, error) {
	classroomID, err := s.store.ClassroomOf(roomID)
	if err != nil {
		return nil, err
	}

	var room *types.BreakoutRoom
	var alreadyClosed bool
	err = s.locks.Do(ctx, classroomKey(classroomID), func() error {
		current, err := s.store.GetRoom(roomID)
		if err != nil {
			return err
		}
		alreadyClosed = current.Status == types.RoomStatusClosed

		room, err = s.store.CloseRoom(roomID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !alreadyClosed {
		log.Printf("Closed breakout room: classroom=%s room=%s", classroomID, roomID)
		s.publish(eventRoomClosed, classroomID, map[string]any{"room_id": roomID})
	}
	return room, nil
}

// JoinRoom adds the participant to the room behind the (room, participant)
// keyed lock, so capacity and uniqueness checks inside the critical section
// are race-free.
func (s *Service) JoinRoom(ctx context.Context, roomID, participantID string) error {
	var joined bool
	var classroomID string

	err := s.withParticipantLock(ctx, roomID, participantID, func() error {
		var err error
		classroomID, err = s.store.ClassroomOf(roomID)
		if err != nil {
			return err
		}
		joined, err = s.store.AddParticipant(roomID, participantID)
		return err
	})
	if err != nil {
		return err
	}

	if joined {
		log.Printf("Participant joined: room=%s participant=%s", roomID, participantID)
		s.publish(eventParticipantJoined, classroomID, map[string]any{
			"participant_id": participantID,
			"room_id":        roomID,
		})
	}
	return nil
}

// LeaveRoom removes the participant from the room behind the keyed lock.
// The first concurrent leave performs the removal; every later call observes
// the participant already absent and succeeds identically.
func (s *Service) LeaveRoom(ctx context.Context, roomID, participantID string) error {
	var removed bool
	var classroomID string

	err := s.withParticipantLock(ctx, roomID, participantID, func() error {
		var err error
		classroomID, err = s.store.ClassroomOf(roomID)
		if err != nil {
			return err
		}
		removed, err = s.store.RemoveParticipant(roomID, participantID)
		return err
	})
	if err != nil {
		return err
	}

	if removed {
		log.Printf("Participant left: room=%s participant=%s", roomID, participantID)
		s.publish(eventParticipantLeft, classroomID, map[string]any{
			"participant_id": participantID,
			"room_id":        roomID,
		})
	}
	return nil
}

// ActiveRooms lists the classroom's active rooms.
func (s *Service) ActiveRooms(classroomID string) []*types.BreakoutRoom {
	return s.store.ActiveRooms(classroomID)
}

// ParticipantAssignments maps participants to their active room.
func (s *Service) ParticipantAssignments(classroomID string) map[string]string {
	return s.store.ParticipantAssignments(classroomID)
}

// ClearSession discards every room of the classroom session. Teardown takes
// the classroom key like any other write.
func (s *Service) ClearSession(ctx context.Context, classroomID string) error {
	var dropped int
	err := s.locks.Do(ctx, classroomKey(classroomID), func() error {
		dropped = s.store.ClearClassroom(classroomID)
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Cleared breakout rooms: classroom=%s dropped=%d", classroomID, dropped)
	s.publish(eventRoomsCleared, classroomID, map[string]any{"dropped": dropped})
	return nil
}

// withParticipantLock serializes an operation on a (room, participant) pair.
// The lock entry exists only while an operation is in flight; it is removed
// unconditionally when the operation finishes, success or failure.
func (s *Service) withParticipantLock(ctx context.Context, roomID, participantID string, op func() error) error {
	return s.locks.Do(ctx, participantKey(roomID, participantID), op)
}

func (s *Service) publish(eventType, classroomID string, payload map[string]any) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventType, classroomID, payload)
}

func classroomKey(classroomID string) string { return "rooms/" + classroomID }

func participantKey(roomID, participantID string) string {
	return "participant/" + roomID + "/" + participantID
}
