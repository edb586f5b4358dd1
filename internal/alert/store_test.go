package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveclass/pkg/types"
)

func seedAlert(t *testing.T, s *Store, classroomID string, urgency types.Urgency, detectedAt time.Time) *types.HelpAlert {
	t.Helper()
	a := &types.HelpAlert{
		ID:                 NewAlertID(detectedAt),
		ClassroomSessionID: classroomID,
		DetectedAt:         detectedAt,
		Topic:              "topic",
		Urgency:            urgency,
		TriggerKeywords:    []string{"stuck"},
		Status:             types.AlertStatusPending,
	}
	s.Insert(a)
	return a
}

func TestListOrdering(t *testing.T) {
	s := NewStore()
	base := time.Now()

	// Inserted deliberately out of order.
	lowNew := seedAlert(t, s, "c1", types.UrgencyLow, base.Add(3*time.Minute))
	highOld := seedAlert(t, s, "c1", types.UrgencyHigh, base)
	medNew := seedAlert(t, s, "c1", types.UrgencyMedium, base.Add(2*time.Minute))
	highNew := seedAlert(t, s, "c1", types.UrgencyHigh, base.Add(1*time.Minute))

	got := s.List("c1", types.AlertFilter{})
	require.Len(t, got, 4)

	wantOrder := []string{highNew.ID, highOld.ID, medNew.ID, lowNew.ID}
	for i, want := range wantOrder {
		assert.Equal(t, want, got[i].ID, "position %d", i)
	}

	// Stable under repeated calls with no mutation in between.
	again := s.List("c1", types.AlertFilter{})
	for i := range got {
		assert.Equal(t, got[i].ID, again[i].ID)
	}
}

func TestListFilters(t *testing.T) {
	s := NewStore()
	base := time.Now()

	high := seedAlert(t, s, "c1", types.UrgencyHigh, base)
	low := seedAlert(t, s, "c1", types.UrgencyLow, base.Add(time.Minute))
	low.BreakoutRoomName = "Room A"
	seedAlert(t, s, "other-classroom", types.UrgencyHigh, base)

	assert.Len(t, s.List("c1", types.AlertFilter{}), 2)
	assert.Len(t, s.List("c1", types.AlertFilter{Urgency: types.UrgencyHigh}), 1)
	assert.Len(t, s.List("c1", types.AlertFilter{BreakoutRoom: "Room A"}), 1)
	assert.Empty(t, s.List("c1", types.AlertFilter{Urgency: types.UrgencyMedium}))

	got := s.List("c1", types.AlertFilter{Urgency: types.UrgencyHigh})
	assert.Equal(t, high.ID, got[0].ID)
}

func TestListReturnsCopies(t *testing.T) {
	s := NewStore()
	a := seedAlert(t, s, "c1", types.UrgencyHigh, time.Now())

	got := s.List("c1", types.AlertFilter{})
	require.Len(t, got, 1)
	got[0].Status = types.AlertStatusResolved

	stored, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AlertStatusPending, stored.Status, "caller mutation must not reach the store")
}

func TestUpdateFailureLeavesAlertUntouched(t *testing.T) {
	s := NewStore()
	a := seedAlert(t, s, "c1", types.UrgencyHigh, time.Now())

	_, err := s.Update(a.ID, func(al *types.HelpAlert) error {
		return types.ErrInvalidTransition
	})
	require.Error(t, err)

	stored, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AlertStatusPending, stored.Status)
}

func TestCounts(t *testing.T) {
	s := NewStore()
	base := time.Now()

	seedAlert(t, s, "c1", types.UrgencyHigh, base)
	b := seedAlert(t, s, "c1", types.UrgencyLow, base)
	c := seedAlert(t, s, "c1", types.UrgencyMedium, base)

	_, err := s.Update(b.ID, func(a *types.HelpAlert) error {
		a.Status = types.AlertStatusResolved
		return nil
	})
	require.NoError(t, err)
	_, err = s.Update(c.ID, func(a *types.HelpAlert) error {
		a.Status = types.AlertStatusDismissed
		return nil
	})
	require.NoError(t, err)

	counts := s.Counts("c1")
	assert.Equal(t, types.AlertCounts{Pending: 1, Resolved: 1, Dismissed: 1, Total: 3}, counts)

	assert.Equal(t, types.AlertCounts{}, s.Counts("empty-classroom"))
}

func TestClearClassroom(t *testing.T) {
	s := NewStore()
	base := time.Now()

	a := seedAlert(t, s, "c1", types.UrgencyHigh, base)
	seedAlert(t, s, "c1", types.UrgencyLow, base)
	other := seedAlert(t, s, "c2", types.UrgencyLow, base)

	dropped := s.ClearClassroom("c1")
	assert.Equal(t, 2, dropped)
	assert.Empty(t, s.List("c1", types.AlertFilter{}))

	_, err := s.Get(a.ID)
	assert.ErrorIs(t, err, types.ErrAlertNotFound)

	// Other classrooms are untouched.
	_, err = s.Get(other.ID)
	assert.NoError(t, err)
}

func TestNewAlertIDOrdering(t *testing.T) {
	base := time.Now()
	earlier := NewAlertID(base)
	later := NewAlertID(base.Add(time.Millisecond))

	assert.Less(t, earlier, later, "ID order must correlate with creation time")
	assert.NotEqual(t, NewAlertID(base), NewAlertID(base), "same-instant IDs must still be unique")
}
