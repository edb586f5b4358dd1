package breakout

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"liveclass/pkg/types"
)

// VideoRoomURLFunc builds the external video resource reference for a new
// room. The reference is opaque to the coordinator; any provisioning call to
// a real provider happens outside the store's critical sections.
type VideoRoomURLFunc func(roomID string) string

func defaultVideoRoomURL(roomID string) string {
	return fmt.Sprintf("liveclass://rooms/%s", roomID)
}

// Store owns the breakout-room collections, scoped by classroom session.
// It enforces the capacity and assignment invariants:
//
//   - at most types.MaxActiveRooms active rooms per classroom
//   - a participant is in at most one active room per classroom
//   - names are unique among currently active rooms of a classroom
//
// Derived views (counts, assignments) are recomputed from the authoritative
// room collection on every call. All returned rooms are copies.
type Store struct {
	mu          sync.RWMutex
	byClassroom map[string]map[string]*types.BreakoutRoom // classroomID -> roomID -> room
	classroomOf map[string]string                         // roomID -> classroomID
	videoURL    VideoRoomURLFunc
}

// NewStore creates an empty room store. urlFn may be nil to use the default
// opaque reference scheme.
func NewStore(urlFn VideoRoomURLFunc) *Store {
	if urlFn == nil {
		urlFn = defaultVideoRoomURL
	}
	return &Store{
		byClassroom: make(map[string]map[string]*types.BreakoutRoom),
		classroomOf: make(map[string]string),
		videoURL:    urlFn,
	}
}

// CreateRooms creates a batch of rooms atomically: every spec is validated
// against the capacity ceiling and name uniqueness before anything is
// written, so either all rooms are created or none are.
func (s *Store) CreateRooms(classroomID string, specs []types.RoomSpec) ([]*types.BreakoutRoom, error) {
	if !types.IsValidID(classroomID) {
		return nil, types.ErrInvalidClassroomID
	}
	if len(specs) == 0 {
		return nil, types.ErrEmptyRoomSpecs
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := s.byClassroom[classroomID]

	if s.activeCountLocked(classroomID)+len(specs) > types.MaxActiveRooms {
		return nil, types.ErrCapacityExceeded
	}

	seen := make(map[string]bool, len(specs))
	for i := range specs {
		if err := specs[i].Validate(); err != nil {
			return nil, err
		}
		if seen[specs[i].Name] {
			return nil, &types.DuplicateNameError{Name: specs[i].Name}
		}
		seen[specs[i].Name] = true
		for _, room := range rooms {
			if room.Status == types.RoomStatusActive && room.Name == specs[i].Name {
				return nil, &types.DuplicateNameError{Name: specs[i].Name}
			}
		}
	}

	if rooms == nil {
		rooms = make(map[string]*types.BreakoutRoom)
		s.byClassroom[classroomID] = rooms
	}

	now := time.Now()
	created := make([]*types.BreakoutRoom, 0, len(specs))
	for i := range specs {
		id := uuid.NewString()
		room := &types.BreakoutRoom{
			ID:           id,
			ClassroomID:  classroomID,
			Name:         specs[i].Name,
			VideoRoomURL: s.videoURL(id),
			Status:       types.RoomStatusActive,
			CreatedAt:    now,
		}
		rooms[id] = room
		s.classroomOf[id] = classroomID
		created = append(created, room)
	}

	// Initial assignments obey the single-active-room invariant, including
	// across specs inside the same batch: the last spec naming a
	// participant wins.
	for i := range specs {
		for _, pid := range specs[i].InitialParticipantIDs {
			s.moveParticipantLocked(classroomID, pid, created[i].ID)
		}
	}

	out := make([]*types.BreakoutRoom, len(created))
	for i, room := range created {
		out[i] = room.Clone()
	}
	return out, nil
}

// AssignParticipant moves the participant into the target room as a single
// logical step: removal from the previous room and addition to the target
// happen under one lock, so no observer sees the participant roomless.
func (s *Store) AssignParticipant(classroomID, participantID, targetRoomID string) (*types.BreakoutRoom, error) {
	if !types.IsValidID(participantID) {
		return nil, types.ErrInvalidParticipantID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.byClassroom[classroomID][targetRoomID]
	if !ok || target.Status != types.RoomStatusActive {
		return nil, types.ErrRoomNotFound
	}

	s.moveParticipantLocked(classroomID, participantID, targetRoomID)
	return target.Clone(), nil
}

// RemoveParticipant takes the participant out of the room if present.
// An absent participant is a no-op success: "the user already left" is not
// a failure. Returns whether a removal actually happened.
func (s *Store) RemoveParticipant(roomID, participantID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	classroomID, ok := s.classroomOf[roomID]
	if !ok {
		return false, types.ErrRoomNotFound
	}

	room := s.byClassroom[classroomID][roomID]
	if room.Status != types.RoomStatusActive {
		// Closed rooms keep their membership for the historical record.
		return false, nil
	}

	for i, pid := range room.ParticipantIDs {
		if pid == participantID {
			room.ParticipantIDs = append(room.ParticipantIDs[:i], room.ParticipantIDs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// AddParticipant puts the participant into the room, moving it out of any
// other active room of the same classroom. Adding a participant already in
// the room is a no-op success. Returns whether membership actually changed.
func (s *Store) AddParticipant(roomID, participantID string) (bool, error) {
	if !types.IsValidID(participantID) {
		return false, types.ErrInvalidParticipantID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	classroomID, ok := s.classroomOf[roomID]
	if !ok {
		return false, types.ErrRoomNotFound
	}
	room := s.byClassroom[classroomID][roomID]
	if room.Status != types.RoomStatusActive {
		return false, types.ErrRoomNotFound
	}

	for _, pid := range room.ParticipantIDs {
		if pid == participantID {
			return false, nil
		}
	}

	s.moveParticipantLocked(classroomID, participantID, roomID)
	return true, nil
}

// CloseRoom marks the room closed. Closing an already-closed room is a
// no-op success, so a double-close from a flaky client never surfaces as a
// failure. Participants stay in ParticipantIDs for the historical record.
func (s *Store) CloseRoom(roomID string) (*types.BreakoutRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	classroomID, ok := s.classroomOf[roomID]
	if !ok {
		return nil, types.ErrRoomNotFound
	}

	room := s.byClassroom[classroomID][roomID]
	if room.Status == types.RoomStatusClosed {
		return room.Clone(), nil
	}

	now := time.Now()
	room.Status = types.RoomStatusClosed
	room.ClosedAt = &now
	return room.Clone(), nil
}

// GetRoom returns a copy of the room, or ErrRoomNotFound.
func (s *Store) GetRoom(roomID string) (*types.BreakoutRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	classroomID, ok := s.classroomOf[roomID]
	if !ok {
		return nil, types.ErrRoomNotFound
	}
	return s.byClassroom[classroomID][roomID].Clone(), nil
}

// ClassroomOf resolves the owning classroom session of a room.
func (s *Store) ClassroomOf(roomID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	classroomID, ok := s.classroomOf[roomID]
	if !ok {
		return "", types.ErrRoomNotFound
	}
	return classroomID, nil
}

// ActiveRooms returns copies of the classroom's active rooms, oldest first
// with name as the tie-break.
func (s *Store) ActiveRooms(classroomID string) []*types.BreakoutRoom {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.BreakoutRoom, 0)
	for _, room := range s.byClassroom[classroomID] {
		if room.Status == types.RoomStatusActive {
			out = append(out, room.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ActiveRoomCount recomputes the number of active rooms from the room
// collection.
func (s *Store) ActiveRoomCount(classroomID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeCountLocked(classroomID)
}

// ParticipantAssignments recomputes the participant -> active-room mapping
// for the classroom.
func (s *Store) ParticipantAssignments(classroomID string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assignments := make(map[string]string)
	for id, room := range s.byClassroom[classroomID] {
		if room.Status != types.RoomStatusActive {
			continue
		}
		for _, pid := range room.ParticipantIDs {
			assignments[pid] = id
		}
	}
	return assignments
}

// ClearClassroom discards every room of the classroom session and returns
// how many were dropped.
func (s *Store) ClearClassroom(classroomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := s.byClassroom[classroomID]
	for id := range rooms {
		delete(s.classroomOf, id)
	}
	delete(s.byClassroom, classroomID)
	return len(rooms)
}

func (s *Store) activeCountLocked(classroomID string) int {
	count := 0
	for _, room := range s.byClassroom[classroomID] {
		if room.Status == types.RoomStatusActive {
			count++
		}
	}
	return count
}

// moveParticipantLocked removes the participant from every other active room
// of the classroom and adds it to the target. Callers hold the write lock,
// which is what makes the move a single observable step.
func (s *Store) moveParticipantLocked(classroomID, participantID, targetRoomID string) {
	for id, room := range s.byClassroom[classroomID] {
		if room.Status != types.RoomStatusActive {
			continue
		}
		if id == targetRoomID {
			continue
		}
		for i, pid := range room.ParticipantIDs {
			if pid == participantID {
				room.ParticipantIDs = append(room.ParticipantIDs[:i], room.ParticipantIDs[i+1:]...)
				break
			}
		}
	}

	target := s.byClassroom[classroomID][targetRoomID]
	for _, pid := range target.ParticipantIDs {
		if pid == participantID {
			return
		}
	}
	target.ParticipantIDs = append(target.ParticipantIDs, participantID)
}
