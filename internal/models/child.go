package models

import "time"

// Child is a roster entry. Attendance code only reads it.
type Child struct {
	ID             string    `db:"id" json:"id"`
	FirstName      string    `db:"first_name" json:"firstName"`
	LastName       string    `db:"last_name" json:"lastName"`
	DocumentNumber string    `db:"document_number" json:"documentNumber"`
	Active         bool      `db:"active" json:"active"`
	FacilityID     *string   `db:"facility_id" json:"facilityId,omitempty"`
	ClassroomID    *string   `db:"classroom_id" json:"classroomId,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// FullName joins first and last names.
func (c Child) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// ChildSummary is a roster row with its classroom name resolved.
type ChildSummary struct {
	ID             string  `db:"id" json:"id"`
	FirstName      string  `db:"first_name" json:"firstName"`
	LastName       string  `db:"last_name" json:"lastName"`
	DocumentNumber string  `db:"document_number" json:"documentNumber"`
	FacilityID     *string `db:"facility_id" json:"facilityId,omitempty"`
	ClassroomID    *string `db:"classroom_id" json:"classroomId,omitempty"`
	ClassroomName  *string `db:"classroom_name" json:"classroomName,omitempty"`
}

// FullName joins first and last names.
func (c ChildSummary) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
