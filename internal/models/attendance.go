package models

import "time"

// EventType distinguishes the two halves of an attendance cycle.
type EventType string

const (
	EventEntry EventType = "ENTRY"
	EventExit  EventType = "EXIT"
)

// Valid returns true when the event type is supported.
func (t EventType) Valid() bool {
	return t == EventEntry || t == EventExit
}

// Observations are health flags noted at drop-off or pick-up.
type Observations struct {
	Fever     bool    `db:"obs_fever" json:"fever"`
	Bites     bool    `db:"obs_bites" json:"bites"`
	Scratches bool    `db:"obs_scratches" json:"scratches"`
	Bruises   bool    `db:"obs_bruises" json:"bruises"`
	Other     bool    `db:"obs_other" json:"other"`
	OtherText *string `db:"obs_other_text" json:"otherText,omitempty"`
}

// Normalize drops the free text unless the "other" flag is set.
func (o Observations) Normalize() Observations {
	if !o.Other || o.OtherText == nil || *o.OtherText == "" {
		o.OtherText = nil
	}
	return o
}

// Any reports whether at least one flag is raised.
func (o Observations) Any() bool {
	return o.Fever || o.Bites || o.Scratches || o.Bruises || o.Other
}

// AttendanceEvent is one check-in or check-out row. Rows are append-only.
type AttendanceEvent struct {
	ID           string    `db:"id" json:"id"`
	Date         Date      `db:"event_date" json:"date"`
	Time         ClockTime `db:"event_time" json:"time"`
	EventType    EventType `db:"event_type" json:"eventType"`
	ChildID      string    `db:"child_id" json:"childId"`
	GuardianID   *string   `db:"guardian_id" json:"guardianId,omitempty"`
	ThirdPartyID *string   `db:"third_party_id" json:"thirdPartyId,omitempty"`
	RecordedBy   string    `db:"recorded_by" json:"recordedBy"`
	FacilityID   *string   `db:"facility_id" json:"facilityId,omitempty"`
	ClassroomID  *string   `db:"classroom_id" json:"classroomId,omitempty"`
	Notes        *string   `db:"notes" json:"notes,omitempty"`
	Observations `json:"observations"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// RequesterID returns whichever requester reference is set.
func (e AttendanceEvent) RequesterID() string {
	if e.GuardianID != nil {
		return *e.GuardianID
	}
	if e.ThirdPartyID != nil {
		return *e.ThirdPartyID
	}
	return ""
}

// AttendanceEventDraft carries the caller supplied fields of a new event.
type AttendanceEventDraft struct {
	Date         Date
	Time         ClockTime
	EventType    EventType
	ChildID      string
	GuardianID   *string
	ThirdPartyID *string
	RecordedBy   string
	FacilityID   *string
	ClassroomID  *string
	Notes        *string
	Observations Observations
}

// AttendanceEventView joins an event with display names for history listings.
type AttendanceEventView struct {
	AttendanceEvent
	ChildName      string  `db:"child_name" json:"childName"`
	GuardianName   *string `db:"guardian_name" json:"guardianName,omitempty"`
	ThirdPartyName *string `db:"third_party_name" json:"thirdPartyName,omitempty"`
	RecordedByName *string `db:"recorded_by_name" json:"recordedByName,omitempty"`
	ClassroomName  *string `db:"classroom_name" json:"classroomName,omitempty"`
}

// OpenEntry is an ENTRY with no EXIT on the same date, as found by reconciliation.
type OpenEntry struct {
	EntryID      string    `db:"entry_id"`
	ChildID      string    `db:"child_id"`
	Date         Date      `db:"event_date"`
	Time         ClockTime `db:"event_time"`
	GuardianID   *string   `db:"guardian_id"`
	ThirdPartyID *string   `db:"third_party_id"`
	FacilityID   *string   `db:"facility_id"`
	ClassroomID  *string   `db:"classroom_id"`
}

// HistoryFilter selects events for the history listing.
type HistoryFilter struct {
	ChildID    string
	RecordedBy string
	FacilityID string
	From       Date
	To         Date
	Limit      int
}
