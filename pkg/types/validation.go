package types

import (
	"regexp"
)

// Compiled once at package initialization; identifier validation runs on
// every inbound request.
var identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidID checks classroom, participant and actor identifiers.
// 1-50 characters, alphanumeric plus underscore and hyphen.
func IsValidID(id string) bool {
	if len(id) < 1 || len(id) > 50 {
		return false
	}
	return identifierRegex.MatchString(id)
}

// IsValidUrgency checks that u is one of the three defined urgency levels.
func IsValidUrgency(u Urgency) bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	default:
		return false
	}
}

// IsValidAlertStatus checks that s is one of the four lifecycle states.
func IsValidAlertStatus(s AlertStatus) bool {
	switch s {
	case AlertStatusPending, AlertStatusAcknowledged, AlertStatusResolved, AlertStatusDismissed:
		return true
	default:
		return false
	}
}

// Validate ensures a new-alert submission meets all field requirements.
// Validation happens before any store mutation so a rejected alert leaves
// no trace.
func (p *CreateAlertParams) Validate() error {
	if !IsValidID(p.ClassroomSessionID) {
		return ErrInvalidClassroomID
	}
	if len(p.Topic) < 1 || len(p.Topic) > MaxTopicLength {
		return ErrInvalidTopic
	}
	if !IsValidUrgency(p.Urgency) {
		return ErrInvalidUrgency
	}
	if len(p.TriggerKeywords) == 0 {
		return ErrEmptyTriggerKeywords
	}
	if len(p.ContextSnippet) > MaxContextSnippetLength {
		return ErrInvalidSnippet
	}
	return nil
}

// Validate ensures a room spec meets all field requirements.
func (s *RoomSpec) Validate() error {
	if len(s.Name) < 1 || len(s.Name) > 200 {
		return ErrInvalidRoomName
	}
	for _, id := range s.InitialParticipantIDs {
		if !IsValidID(id) {
			return ErrInvalidParticipantID
		}
	}
	return nil
}

// Matches reports whether the alert passes every populated filter field.
func (f AlertFilter) Matches(a *HelpAlert) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Urgency != "" && a.Urgency != f.Urgency {
		return false
	}
	if f.BreakoutRoom != "" && a.BreakoutRoomName != f.BreakoutRoom {
		return false
	}
	return true
}
