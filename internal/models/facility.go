package models

// Facility (guardería) is a daycare site and the tenant boundary.
type Facility struct {
	ID      string  `db:"id" json:"id"`
	Name    string  `db:"name" json:"name"`
	Address *string `db:"address" json:"address,omitempty"`
	Active  bool    `db:"active" json:"active"`
}

// Classroom (aula) groups children inside a facility.
type Classroom struct {
	ID         string  `db:"id" json:"id"`
	FacilityID string  `db:"facility_id" json:"facilityId"`
	Name       string  `db:"name" json:"name"`
	Level      *string `db:"level" json:"level,omitempty"`
}
