package dto

import "github.com/noah-isme/guarderia-api/internal/models"

// FacilitySummary aggregates today's attendance counters for one facility.
type FacilitySummary struct {
	FacilityID       string      `json:"facilityId"`
	FacilityName     string      `json:"facilityName,omitempty"`
	Date             models.Date `json:"date"`
	TotalChildren    int         `json:"totalChildren"`
	ActiveChildren   int         `json:"activeChildren"`
	EntriesToday     int         `json:"entriesToday"`
	ExitsToday       int         `json:"exitsToday"`
	Absences         int         `json:"absences"`
	CurrentlyPresent int         `json:"currentlyPresent"`
}

// CoordinatorDashboard lists every facility's summary plus network totals.
type CoordinatorDashboard struct {
	Date       models.Date       `json:"date"`
	Facilities []FacilitySummary `json:"facilities"`
	Totals     FacilitySummary   `json:"totals"`
}
