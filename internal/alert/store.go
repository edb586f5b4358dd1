package alert

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"liveclass/pkg/types"
)

// Store owns the help-alert collections, scoped by classroom session.
// Nothing outside this package mutates an alert directly; every write goes
// through Insert or Update under the store's lock. All returned alerts are
// copies, so callers can hold them without racing against later writes.
type Store struct {
	mu          sync.RWMutex
	byClassroom map[string][]*types.HelpAlert
	byID        map[string]*types.HelpAlert
}

// NewStore creates an empty alert store.
func NewStore() *Store {
	return &Store{
		byClassroom: make(map[string][]*types.HelpAlert),
		byID:        make(map[string]*types.HelpAlert),
	}
}

// NewAlertID builds a time-prefixed identifier. The zero-padded nanosecond
// prefix makes lexicographic order follow creation order; the uuid suffix
// keeps IDs unique when two alerts land on the same nanosecond.
func NewAlertID(at time.Time) string {
	return fmt.Sprintf("%020d-%s", at.UnixNano(), uuid.NewString()[:8])
}

// Insert appends an alert to its classroom's collection.
func (s *Store) Insert(a *types.HelpAlert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byClassroom[a.ClassroomSessionID] = append(s.byClassroom[a.ClassroomSessionID], a)
	s.byID[a.ID] = a
}

// Get returns a copy of the alert, or ErrAlertNotFound.
func (s *Store) Get(alertID string) (*types.HelpAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[alertID]
	if !ok {
		return nil, types.ErrAlertNotFound
	}
	return a.Clone(), nil
}

// Update applies fn to the alert under the write lock and returns a copy of
// the result. If fn fails the alert is left exactly as it was; fn must only
// mutate the record after all its checks have passed.
func (s *Store) Update(alertID string, fn func(*types.HelpAlert) error) (*types.HelpAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[alertID]
	if !ok {
		return nil, types.ErrAlertNotFound
	}
	if err := fn(a); err != nil {
		return nil, err
	}
	return a.Clone(), nil
}

// List returns the classroom's alerts that pass the filter, ordered by
// urgency descending then DetectedAt descending. The ordering is a contract:
// instructors always see the most urgent, most recent alert first.
func (s *Store) List(classroomID string, filter types.AlertFilter) []*types.HelpAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*types.HelpAlert, 0)
	for _, a := range s.byClassroom[classroomID] {
		if filter.Matches(a) {
			results = append(results, a.Clone())
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Urgency.Rank() != results[j].Urgency.Rank() {
			return results[i].Urgency.Rank() > results[j].Urgency.Rank()
		}
		if !results[i].DetectedAt.Equal(results[j].DetectedAt) {
			return results[i].DetectedAt.After(results[j].DetectedAt)
		}
		// IDs are time-prefixed, so this keeps same-timestamp alerts in a
		// stable newest-first order.
		return results[i].ID > results[j].ID
	})

	return results
}

// Counts recomputes the status tallies from the authoritative collection on
// every call; there is no cached derived state to drift out of sync.
func (s *Store) Counts(classroomID string) types.AlertCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c types.AlertCounts
	for _, a := range s.byClassroom[classroomID] {
		switch a.Status {
		case types.AlertStatusPending:
			c.Pending++
		case types.AlertStatusAcknowledged:
			c.Acknowledged++
		case types.AlertStatusResolved:
			c.Resolved++
		case types.AlertStatusDismissed:
			c.Dismissed++
		}
		c.Total++
	}
	return c
}

// ClearClassroom discards every alert owned by the classroom session and
// returns how many were dropped.
func (s *Store) ClearClassroom(classroomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	alerts := s.byClassroom[classroomID]
	for _, a := range alerts {
		delete(s.byID, a.ID)
	}
	delete(s.byClassroom, classroomID)
	return len(alerts)
}
