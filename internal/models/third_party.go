package models

import "time"

// ThirdParty (tercero) is an ad hoc pickup person captured at the door.
type ThirdParty struct {
	ID             string    `db:"id" json:"id"`
	FirstName      string    `db:"first_name" json:"firstName"`
	LastName       string    `db:"last_name" json:"lastName"`
	DocumentType   string    `db:"document_type" json:"documentType"`
	DocumentNumber string    `db:"document_number" json:"documentNumber"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Email          *string   `db:"email" json:"email,omitempty"`
	Address        *string   `db:"address" json:"address,omitempty"`
	Relationship   *string   `db:"relationship" json:"relationship,omitempty"`
	IDFrontPath    *string   `db:"id_front_path" json:"idFrontPath,omitempty"`
	IDBackPath     *string   `db:"id_back_path" json:"idBackPath,omitempty"`
	FacilityID     string    `db:"facility_id" json:"facilityId"`
	CreatedBy      string    `db:"created_by" json:"createdBy"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// FullName joins first and last names.
func (t ThirdParty) FullName() string {
	if t.LastName == "" {
		return t.FirstName
	}
	return t.FirstName + " " + t.LastName
}

// ThirdPartyFilter narrows third party listings.
type ThirdPartyFilter struct {
	FacilityID string
	Search     string
	Page       int
	PageSize   int
}
