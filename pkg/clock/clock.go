// Package clock resolves "today" on the facility civil calendar, independent
// of the host's local timezone.
package clock

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// DateLayout is the ISO date format used for attendance dates.
const DateLayout = "2006-01-02"

// DefaultTimezone is the facility calendar used when none is configured.
const DefaultTimezone = "America/Bogota"

// Calendar converts instants to facility-local dates and wall-clock times.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// New loads the named zone. Bogota has no DST, so a fixed UTC-5 zone is
// used when the tz database is unavailable.
func New(tz string) (*Calendar, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		if tz != DefaultTimezone {
			return nil, fmt.Errorf("load timezone %s: %w", tz, err)
		}
		loc = time.FixedZone("COT", -5*60*60)
	}
	return &Calendar{loc: loc, now: time.Now}, nil
}

// MustNew is New for static configuration.
func MustNew(tz string) *Calendar {
	cal, err := New(tz)
	if err != nil {
		panic(err)
	}
	return cal
}

// WithNow returns a copy of the calendar driven by the provided clock.
func (c *Calendar) WithNow(now func() time.Time) *Calendar {
	clone := *c
	clone.now = now
	return &clone
}

// Location exposes the facility zone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Now returns the current instant in the facility zone.
func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the facility civil date as midnight UTC.
func (c *Calendar) Today() time.Time {
	return c.DateOf(c.now())
}

// DateOf truncates an instant to its facility civil date (midnight UTC).
func (c *Calendar) DateOf(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a yyyy-MM-dd date. An empty string yields today.
func (c *Calendar) ParseDate(raw string) (time.Time, error) {
	if raw == "" {
		return c.Today(), nil
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return d, nil
}

// FormatDate renders a civil date as yyyy-MM-dd.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}
