package models

// Guardian (acudiente) is a person authorised to drop off or pick up children.
type Guardian struct {
	ID             string  `db:"id" json:"id"`
	FirstName      string  `db:"first_name" json:"firstName"`
	LastName       string  `db:"last_name" json:"lastName"`
	DocumentNumber string  `db:"document_number" json:"documentNumber"`
	Phone          *string `db:"phone" json:"phone,omitempty"`
	FacilityID     string  `db:"facility_id" json:"facilityId"`
}

// FullName joins first and last names.
func (g Guardian) FullName() string {
	if g.LastName == "" {
		return g.FirstName
	}
	return g.FirstName + " " + g.LastName
}

// GuardianChild is a child linked to a guardian together with the kinship.
type GuardianChild struct {
	ChildSummary
	Relationship *string `db:"relationship" json:"relationship,omitempty"`
}
