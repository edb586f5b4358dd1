package types

import (
	"time"
)

// AlertStatus is the lifecycle state of a help alert.
type AlertStatus string

const (
	AlertStatusPending      AlertStatus = "pending"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
	AlertStatusDismissed    AlertStatus = "dismissed"
)

// Urgency is the ordinal severity of a help alert: high > medium > low.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Rank maps urgency to a sortable ordinal. Higher means more urgent.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyHigh:
		return 3
	case UrgencyMedium:
		return 2
	case UrgencyLow:
		return 1
	default:
		return 0
	}
}

// RoomStatus is the lifecycle state of a breakout room.
type RoomStatus string

const (
	RoomStatusActive RoomStatus = "active"
	RoomStatusClosed RoomStatus = "closed"
)

// MaxActiveRooms caps the number of simultaneously active breakout rooms
// per classroom session.
const MaxActiveRooms = 10

// Field limits for help alerts.
const (
	MaxTopicLength          = 100
	MaxContextSnippetLength = 300
)

// HelpAlert is a detected help request inside a classroom session.
// All fields except Status, AcknowledgedBy and AcknowledgedAt are immutable
// after creation. AcknowledgedBy/AcknowledgedAt are written at most once and
// never reverted.
type HelpAlert struct {
	ID                    string      `json:"id"`
	ClassroomSessionID    string      `json:"classroom_session_id"`
	BreakoutRoomSessionID string      `json:"breakout_room_session_id,omitempty"`
	BreakoutRoomName      string      `json:"breakout_room_name,omitempty"` // empty means the main room
	DetectedAt            time.Time   `json:"detected_at"`
	Topic                 string      `json:"topic"`
	Urgency               Urgency     `json:"urgency"`
	TriggerKeywords       []string    `json:"trigger_keywords"`
	ContextSnippet        string      `json:"context_snippet,omitempty"`
	SourceTranscriptIDs   []string    `json:"source_transcript_ids,omitempty"`
	Status                AlertStatus `json:"status"`
	AcknowledgedBy        string      `json:"acknowledged_by,omitempty"`
	AcknowledgedAt        *time.Time  `json:"acknowledged_at,omitempty"`
}

// Clone returns a deep copy so callers can hold alert snapshots without
// racing against store mutations.
func (a *HelpAlert) Clone() *HelpAlert {
	c := *a
	c.TriggerKeywords = append([]string(nil), a.TriggerKeywords...)
	c.SourceTranscriptIDs = append([]string(nil), a.SourceTranscriptIDs...)
	if a.AcknowledgedAt != nil {
		at := *a.AcknowledgedAt
		c.AcknowledgedAt = &at
	}
	return &c
}

// CreateAlertParams carries the immutable fields of a new help alert.
// The store assigns ID, DetectedAt and the initial status.
type CreateAlertParams struct {
	ClassroomSessionID    string   `json:"classroom_session_id"`
	BreakoutRoomSessionID string   `json:"breakout_room_session_id"`
	BreakoutRoomName      string   `json:"breakout_room_name"`
	Topic                 string   `json:"topic"`
	Urgency               Urgency  `json:"urgency"`
	TriggerKeywords       []string `json:"trigger_keywords"`
	ContextSnippet        string   `json:"context_snippet"`
	SourceTranscriptIDs   []string `json:"source_transcript_ids"`
}

// AlertFilter narrows alert retrieval. Zero values mean "no filter";
// populated fields are conjunctive.
type AlertFilter struct {
	Status       AlertStatus
	Urgency      Urgency
	BreakoutRoom string
}

// AlertCounts summarizes alert statuses for a classroom session.
type AlertCounts struct {
	Pending      int `json:"pending"`
	Acknowledged int `json:"acknowledged"`
	Resolved     int `json:"resolved"`
	Dismissed    int `json:"dismissed"`
	Total        int `json:"total"`
}

// BreakoutRoom is a sub-session with its own participant subset and an
// opaque reference to an external video resource.
type BreakoutRoom struct {
	ID             string     `json:"id"`
	ClassroomID    string     `json:"classroom_id"`
	Name           string     `json:"name"`
	VideoRoomURL   string     `json:"video_room_url"`
	ParticipantIDs []string   `json:"participant_ids"`
	Status         RoomStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}

// Clone returns a deep copy of the room record.
func (r *BreakoutRoom) Clone() *BreakoutRoom {
	c := *r
	c.ParticipantIDs = append([]string(nil), r.ParticipantIDs...)
	if r.ClosedAt != nil {
		at := *r.ClosedAt
		c.ClosedAt = &at
	}
	return &c
}

// RoomSpec describes one breakout room inside a creation batch.
type RoomSpec struct {
	Name                  string   `json:"name"`
	InitialParticipantIDs []string `json:"participant_ids"`
}
