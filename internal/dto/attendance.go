package dto

import "github.com/noah-isme/guarderia-api/internal/models"

// TodayStatus is the existence-based status of one child on one date.
type TodayStatus struct {
	ChildID    string            `json:"childId"`
	Date       models.Date       `json:"date"`
	HasEntry   bool              `json:"hasEntry"`
	HasExit    bool              `json:"hasExit"`
	NextAction *models.EventType `json:"nextAction"`
	Completed  bool              `json:"completed"`
	EntryTime  *models.ClockTime `json:"entryTime,omitempty"`
	ExitTime   *models.ClockTime `json:"exitTime,omitempty"`
}

// Allows reports whether eventType is the permitted next action.
func (s TodayStatus) Allows(eventType models.EventType) bool {
	return s.NextAction != nil && *s.NextAction == eventType
}

// RequesterKind tells guardians and third parties apart in presence listings.
type RequesterKind string

const (
	RequesterGuardian   RequesterKind = "guardian"
	RequesterThirdParty RequesterKind = "third_party"
	RequesterUnknown    RequesterKind = "unknown"
)

// PresentChild is a child whose latest event today is an ENTRY.
type PresentChild struct {
	ChildID        string           `json:"childId"`
	ChildName      string           `json:"childName"`
	DocumentNumber string           `json:"documentNumber"`
	ClassroomID    *string          `json:"classroomId,omitempty"`
	ClassroomName  *string          `json:"classroomName,omitempty"`
	EntryTime      models.ClockTime `json:"entryTime"`
	RequesterName  string           `json:"requesterName"`
	RequesterKind  RequesterKind    `json:"requesterKind"`
}

// AbsentRosterQuery selects one page of the absent roster.
type AbsentRosterQuery struct {
	FacilityID string
	Date       models.Date
	Page       int
	PageSize   int
}

// IdentifyRequest resolves a guardian from a typed or scanned document number.
type IdentifyRequest struct {
	Document   string `json:"document" validate:"required,document_number"`
	FacilityID string `json:"facilityId,omitempty"`
}

// IdentifiedChild is a guardian's child with its status for today.
type IdentifiedChild struct {
	models.GuardianChild
	Status TodayStatus `json:"status"`
}

// IdentifyResponse bundles the guardian with the children they can pick up.
type IdentifyResponse struct {
	Guardian models.Guardian   `json:"guardian"`
	Children []IdentifiedChild `json:"children"`
}

// RegisterEventRequest is a check-in or check-out performed at the door.
type RegisterEventRequest struct {
	ChildID      string              `json:"childId" validate:"required"`
	EventType    models.EventType    `json:"eventType" validate:"required,event_type"`
	GuardianID   *string             `json:"guardianId,omitempty" validate:"required_without=ThirdPartyID,excluded_with=ThirdPartyID"`
	ThirdPartyID *string             `json:"thirdPartyId,omitempty" validate:"required_without=GuardianID"`
	Notes        *string             `json:"notes,omitempty" validate:"omitempty,max=500"`
	Observations models.Observations `json:"observations"`
}

// ThirdPartyRequest registers an ad hoc pickup person and one event for a child.
type ThirdPartyRequest struct {
	FirstName      string              `json:"firstName" validate:"required,max=100"`
	LastName       string              `json:"lastName" validate:"required,max=100"`
	DocumentType   string              `json:"documentType" validate:"required,oneof=CC TI CE"`
	DocumentNumber string              `json:"documentNumber" validate:"required,document_number"`
	Phone          *string             `json:"phone,omitempty" validate:"omitempty,max=30"`
	Email          *string             `json:"email,omitempty" validate:"omitempty,email"`
	Address        *string             `json:"address,omitempty" validate:"omitempty,max=200"`
	Relationship   *string             `json:"relationship,omitempty" validate:"omitempty,max=50"`
	IDFrontPath    *string             `json:"idFrontPath,omitempty"`
	IDBackPath     *string             `json:"idBackPath,omitempty"`
	ChildID        string              `json:"childId" validate:"required"`
	EventType      models.EventType    `json:"eventType" validate:"required,event_type"`
	Notes          *string             `json:"notes,omitempty" validate:"omitempty,max=500"`
	Observations   models.Observations `json:"observations"`
}

// ThirdPartyEventResponse returns both rows created for a third party pickup.
type ThirdPartyEventResponse struct {
	ThirdParty models.ThirdParty      `json:"thirdParty"`
	Event      models.AttendanceEvent `json:"event"`
}

// BackfillRequest records a full past day for a child that has no events.
type BackfillRequest struct {
	ChildID    string `json:"childId" validate:"required"`
	GuardianID string `json:"guardianId" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
}

// HistoryQuery selects past events for a child or a staff member.
type HistoryQuery struct {
	ChildID    string
	RecordedBy string
	Days       int
}

// HistoryEntry is one row of the attendance history.
type HistoryEntry struct {
	ID             string              `json:"id"`
	Date           models.Date         `json:"date"`
	Time           models.ClockTime    `json:"time"`
	EventType      models.EventType    `json:"eventType"`
	ChildID        string              `json:"childId"`
	ChildName      string              `json:"childName"`
	RequesterName  string              `json:"requesterName"`
	RecordedBy     string              `json:"recordedBy"`
	RecordedByName string              `json:"recordedByName,omitempty"`
	ClassroomName  *string             `json:"classroomName,omitempty"`
	Notes          *string             `json:"notes,omitempty"`
	Observations   models.Observations `json:"observations"`
}
