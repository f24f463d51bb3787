package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	clockLayout = "15:04:05"
	dateLayout  = "2006-01-02"
)

// ClockTime is a wall-clock time of day stored in a TIME column. Values are
// normalised on parse so that "9:00" and "09:00:00" compare equal.
type ClockTime struct {
	seconds int
}

// NewClockTime builds a time of day from its components.
func NewClockTime(hour, minute, second int) ClockTime {
	return ClockTime{seconds: hour*3600 + minute*60 + second}
}

// ClockOr returns *t, or def when t is nil. Midnight is a valid setting, so
// optional times are carried as pointers rather than zero values.
func ClockOr(t *ClockTime, def ClockTime) ClockTime {
	if t == nil {
		return def
	}
	return *t
}

// ClockOf extracts the wall-clock part of t in its own location.
func ClockOf(t time.Time) ClockTime {
	return NewClockTime(t.Hour(), t.Minute(), t.Second())
}

// ParseClockTime accepts H:MM, HH:MM or HH:MM:SS with an optional fractional second.
func ParseClockTime(raw string) (ClockTime, error) {
	raw = strings.TrimSpace(raw)
	if idx := strings.IndexByte(raw, '.'); idx >= 0 {
		raw = raw[:idx]
	}
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ClockTime{}, fmt.Errorf("clock time %q: expected HH:MM[:SS]", raw)
	}
	vals := [3]int{}
	limits := [3]int{24, 60, 60}
	for i, p := range parts {
		if p == "" || len(p) > 2 {
			return ClockTime{}, fmt.Errorf("clock time %q: bad component %q", raw, p)
		}
		n := 0
		for _, r := range p {
			if r < '0' || r > '9' {
				return ClockTime{}, fmt.Errorf("clock time %q: bad component %q", raw, p)
			}
			n = n*10 + int(r-'0')
		}
		if n >= limits[i] {
			return ClockTime{}, fmt.Errorf("clock time %q: component %q out of range", raw, p)
		}
		vals[i] = n
	}
	return NewClockTime(vals[0], vals[1], vals[2]), nil
}

// MustClockTime is ParseClockTime for constants.
func MustClockTime(raw string) ClockTime {
	ct, err := ParseClockTime(raw)
	if err != nil {
		panic(err)
	}
	return ct
}

func (c ClockTime) Hour() int   { return c.seconds / 3600 }
func (c ClockTime) Minute() int { return c.seconds % 3600 / 60 }
func (c ClockTime) Second() int { return c.seconds % 60 }

// Before reports whether c is earlier in the day than o.
func (c ClockTime) Before(o ClockTime) bool { return c.seconds < o.seconds }

// After reports whether c is later in the day than o.
func (c ClockTime) After(o ClockTime) bool { return c.seconds > o.seconds }

// String renders HH:MM:SS.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second())
}

// Short renders HH:MM.
func (c ClockTime) Short() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Scan accepts the representations lib/pq produces for TIME columns.
func (c *ClockTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*c = ClockTime{}
		return nil
	case time.Time:
		*c = ClockOf(v)
		return nil
	case []byte:
		return c.parse(string(v))
	case string:
		return c.parse(v)
	default:
		return fmt.Errorf("unsupported type %T for ClockTime", value)
	}
}

func (c *ClockTime) parse(raw string) error {
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value writes HH:MM:SS.
func (c ClockTime) Value() (driver.Value, error) {
	return c.String(), nil
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return c.parse(s)
}

// Date is a civil calendar date stored in a DATE column.
type Date struct {
	time.Time
}

// DateFrom truncates t to its calendar date in t's own location.
func DateFrom(t time.Time) Date {
	return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses yyyy-MM-dd.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("date %q: expected YYYY-MM-DD", raw)
	}
	return Date{Time: t}, nil
}

// String renders yyyy-MM-dd.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// AddDays shifts the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Equal compares calendar dates.
func (d Date) Equal(o Date) bool {
	return d.String() == o.String()
}

func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateFrom(v)
		return nil
	case []byte:
		return d.parse(string(v))
	case string:
		return d.parse(v)
	default:
		return fmt.Errorf("unsupported type %T for Date", value)
	}
}

func (d *Date) parse(raw string) error {
	if len(raw) > len(dateLayout) {
		raw = raw[:len(dateLayout)]
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.parse(s)
}
