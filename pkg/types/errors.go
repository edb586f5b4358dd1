package types

import (
	"errors"
	"fmt"
)

// Shared error taxonomy. Every failure here is local and synchronous; a
// failed operation leaves the stores exactly as they were before the attempt.
var (
	ErrAlertNotFound     = errors.New("alert not found")
	ErrRoomNotFound      = errors.New("breakout room not found")
	ErrCapacityExceeded  = errors.New("active breakout room limit reached")
	ErrDuplicateName     = errors.New("breakout room name already in use")
	ErrInvalidTransition = errors.New("invalid alert status transition")
	ErrLockTimeout       = errors.New("lock not acquired within deadline")
)

// Validation errors surfaced to callers as client errors.
var (
	ErrInvalidClassroomID   = errors.New("classroom session ID must be 1-50 characters, alphanumeric + underscore/hyphen")
	ErrInvalidParticipantID = errors.New("participant ID must be 1-50 characters, alphanumeric + underscore/hyphen")
	ErrInvalidTopic         = errors.New("alert topic must be 1-100 characters")
	ErrInvalidUrgency       = errors.New("urgency must be low, medium or high")
	ErrEmptyTriggerKeywords = errors.New("trigger keywords cannot be empty")
	ErrInvalidSnippet       = errors.New("context snippet exceeds 300 characters")
	ErrInvalidStatus        = errors.New("invalid alert status")
	ErrInvalidRoomName      = errors.New("room name must be 1-200 characters")
	ErrEmptyRoomSpecs       = errors.New("room creation batch cannot be empty")
)

// StateTransitionError reports an alert status transition that is not
// reachable from the alert's current status.
type StateTransitionError struct {
	AlertID   string
	From      AlertStatus
	Requested AlertStatus
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("alert %s: cannot transition from %s to %s", e.AlertID, e.From, e.Requested)
}

// Is makes errors.Is(err, ErrInvalidTransition) match.
func (e *StateTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// DuplicateNameError reports a breakout room name collision, either with an
// existing active room or within the same creation batch.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("breakout room name %q already in use", e.Name)
}

// Is makes errors.Is(err, ErrDuplicateName) match.
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

// IsValidationError reports whether err is one of the input validation
// sentinels, so HTTP handlers can map it to a 400 response.
func IsValidationError(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidClassroomID,
		ErrInvalidParticipantID,
		ErrInvalidTopic,
		ErrInvalidUrgency,
		ErrEmptyTriggerKeywords,
		ErrInvalidSnippet,
		ErrInvalidStatus,
		ErrInvalidRoomName,
		ErrEmptyRoomSpecs,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
