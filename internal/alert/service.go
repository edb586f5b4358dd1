package alert

import (
	"context"
	"log"
	"time"

	"liveclass/internal/keyedmutex"
	"liveclass/pkg/types"
)

// Event types published to the notification hub.
const (
	eventAlertCreated       = "alert_created"
	eventAlertStatusChanged = "alert_status_changed"
	eventAlertsCleared      = "alerts_cleared"
)

// EventPublisher receives coordinator events for best-effort fan-out to
// connected dashboards. Publication always happens after the critical
// section, never inside it.
type EventPublisher interface {
	Publish(eventType, classroomID string, payload map[string]any)
}

// Service enforces the alert state machine on top of the store. It is the
// only writer of alert status.
//
// Transition table:
//
//	pending      -> acknowledged | resolved | dismissed
//	acknowledged -> resolved | dismissed
//	resolved     -> dismissed
//	dismissed    -> (terminal)
var transitions = map[types.AlertStatus]map[types.AlertStatus]bool{
	types.AlertStatusPending: {
		types.AlertStatusAcknowledged: true,
		types.AlertStatusResolved:     true,
		types.AlertStatusDismissed:    true,
	},
	types.AlertStatusAcknowledged: {
		types.AlertStatusResolved:  true,
		types.AlertStatusDismissed: true,
	},
	types.AlertStatusResolved: {
		types.AlertStatusDismissed: true,
	},
	types.AlertStatusDismissed: {},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to types.AlertStatus) bool {
	return transitions[from][to]
}

// Service coordinates alert creation, retrieval and status transitions.
type Service struct {
	store  *Store
	locks  *keyedmutex.KeyedMutex
	events EventPublisher
}

// NewService creates an alert service. events may be nil when no realtime
// fan-out is wired, e.g. in tests.
func NewService(store *Store, locks *keyedmutex.KeyedMutex, events EventPublisher) *Service {
	return &Service{
		store:  store,
		locks:  locks,
		events: events,
	}
}

// CreateAlert validates the submission, assigns ID and initial state, and
// appends the alert to its classroom's collection. This is the only entry
// point used by the transcript-analysis collaborator.
func (s *Service) CreateAlert(ctx context.Context, params types.CreateAlertParams) (*types.HelpAlert, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	a := &types.HelpAlert{
		ID:                    NewAlertID(now),
		ClassroomSessionID:    params.ClassroomSessionID,
		BreakoutRoomSessionID: params.BreakoutRoomSessionID,
		BreakoutRoomName:      params.BreakoutRoomName,
		DetectedAt:            now,
		Topic:                 params.Topic,
		Urgency:               params.Urgency,
		TriggerKeywords:       append([]string(nil), params.TriggerKeywords...),
		ContextSnippet:        params.ContextSnippet,
		SourceTranscriptIDs:   append([]string(nil), params.SourceTranscriptIDs...),
		Status:                types.AlertStatusPending,
	}

	err := s.locks.Do(ctx, classroomKey(params.ClassroomSessionID), func() error {
		s.store.Insert(a)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Created alert: id=%s classroom=%s urgency=%s topic=%q",
		a.ID, a.ClassroomSessionID, a.Urgency, a.Topic)
	s.publish(eventAlertCreated, a.ClassroomSessionID, map[string]any{"alert": a.Clone()})

	return a.Clone(), nil
}

// GetAlerts returns the classroom's alerts passing the optional filters,
// ordered by urgency descending then detection time descending.
func (s *Service) GetAlerts(ctx context.Context, classroomID string, filter types.AlertFilter) ([]*types.HelpAlert, error) {
	if filter.Status != "" && !types.IsValidAlertStatus(filter.Status) {
		return nil, types.ErrInvalidStatus
	}
	if filter.Urgency != "" && !types.IsValidUrgency(filter.Urgency) {
		return nil, types.ErrInvalidUrgency
	}
	return s.store.List(classroomID, filter), nil
}

// GetAlertCounts returns per-status tallies for the classroom.
func (s *Service) GetAlertCounts(ctx context.Context, classroomID string) (types.AlertCounts, error) {
	return s.store.Counts(classroomID), nil
}

// AcknowledgeAlert moves a pending alert to acknowledged.
func (s *Service) AcknowledgeAlert(ctx context.Context, alertID, actorID string) (*types.HelpAlert, error) {
	return s.transition(ctx, alertID, actorID, types.AlertStatusAcknowledged)
}

// ResolveAlert moves a pending or acknowledged alert to resolved.
func (s *Service) ResolveAlert(ctx context.Context, alertID, actorID string) (*types.HelpAlert, error) {
	return s.transition(ctx, alertID, actorID, types.AlertStatusResolved)
}

// DismissAlert moves an alert to dismissed. Dismiss is legal from every
// state and never fails for state reasons; dismissing an already-dismissed
// alert is a no-op success, mirroring idempotent room close. The only
// failure is a missing alert.
func (s *Service) DismissAlert(ctx context.Context, alertID, actorID string) (*types.HelpAlert, error) {
	return s.transition(ctx, alertID, actorID, types.AlertStatusDismissed)
}

// ClearSession discards every alert owned by the classroom session.
func (s *Service) ClearSession(ctx context.Context, classroomID string) error {
	var dropped int
	err := s.locks.Do(ctx, classroomKey(classroomID), func() error {
		dropped = s.store.ClearClassroom(classroomID)
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Cleared alerts: classroom=%s dropped=%d", classroomID, dropped)
	s.publish(eventAlertsCleared, classroomID, map[string]any{"dropped": dropped})
	return nil
}

// transition applies the state machine under the alert's keyed lock.
// Concurrent transitions on the same alert serialize here, so the check and
// the write are a single atomic step.
func (s *Service) transition(ctx context.Context, alertID, actorID string, to types.AlertStatus) (*types.HelpAlert, error) {
	var from types.AlertStatus
	var updated *types.HelpAlert
	var noop bool

	err := s.locks.Do(ctx, alertKey(alertID), func() error {
		var err error
		updated, err = s.store.Update(alertID, func(a *types.HelpAlert) error {
			// Redundant dismiss from a flaky client is a no-op success,
			// not an error.
			if to == types.AlertStatusDismissed && a.Status == types.AlertStatusDismissed {
				noop = true
				return nil
			}
			if !CanTransition(a.Status, to) {
				return &types.StateTransitionError{AlertID: alertID, From: a.Status, Requested: to}
			}

			// First transition away from pending that carries an actor
			// records who picked the alert up. Written at most once.
			if a.Status == types.AlertStatusPending && actorID != "" && a.AcknowledgedBy == "" {
				now := time.Now()
				a.AcknowledgedBy = actorID
				a.AcknowledgedAt = &now
			}

			from = a.Status
			a.Status = to
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return updated, nil
	}

	log.Printf("Alert transition: id=%s from=%s to=%s actor=%s", alertID, from, to, actorID)
	s.publish(eventAlertStatusChanged, updated.ClassroomSessionID, map[string]any{
		"alert_id": alertID,
		"from":     from,
		"to":       to,
		"actor_id": actorID,
	})

	return updated, nil
}

func (s *Service) publish(eventType, classroomID string, payload map[string]any) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventType, classroomID, payload)
}

func classroomKey(classroomID string) string { return "classroom/" + classroomID }
func alertKey(alertID string) string         { return "alert/" + alertID }
