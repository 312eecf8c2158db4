package ledger

import (
	"encoding/json"
	"strings"
	"time"
)

// Date layouts accepted by ParseDate, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006", // DD/MM/YYYY
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// ParseDate normalizes heterogeneous date representations into a calendar
// date (midnight, local time). The boolean reports whether the input was
// usable; invalid input is not an error.
func ParseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return atMidnight(x), true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return atMidnight(*x), true
	case string:
		return parseDateString(x)
	default:
		return time.Time{}, false
	}
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	// ISO 8601 with a time suffix: the time part is discarded.
	if len(s) > 10 && (s[10] == 'T' || s[10] == ' ') {
		if t, err := time.ParseInLocation("2006-01-02", s[:10], time.Local); err == nil {
			return t, true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return atMidnight(t), true
		}
	}
	return time.Time{}, false
}

func atMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DueDate adds the credit term (calendar days) to the issue date.
func DueDate(issue time.Time, creditTermDays int) time.Time {
	return atMidnight(issue).AddDate(0, 0, creditTermDays)
}

// DaysOverdue computes the signed day difference between the due date and
// today, both truncated to midnight. Positive means days remaining until
// due; zero or negative means days overdue. A non-positive raw difference
// is adjusted by +1: the due day itself already counts as one day overdue.
// Returns nil when the status is paid (or anything other than pending or
// overdue).
func DaysOverdue(due time.Time, status Status, today time.Time) *int {
	if status != StatusPending && status != StatusOverdue {
		return nil
	}
	// Rounding absorbs the odd-length days a DST transition produces.
	diff := int(atMidnight(due).Sub(atMidnight(today)).Round(24*time.Hour).Hours() / 24)
	if diff <= 0 {
		diff++
	}
	return &diff
}

// FlexDate is a calendar date that unmarshals from any of the accepted
// date representations. Invalid input leaves the date unset rather than
// failing the whole document.
type FlexDate struct {
	Time  time.Time
	Valid bool
}

// NewFlexDate wraps a time in a FlexDate
func NewFlexDate(t time.Time) FlexDate {
	return FlexDate{Time: atMidnight(t), Valid: true}
}

// UnmarshalJSON implements json.Unmarshaler
func (d *FlexDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		d.Valid = false
		return nil
	}
	d.Time, d.Valid = parseDateString(s)
	return nil
}

// MarshalJSON implements json.Marshaler
func (d FlexDate) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format("2006-01-02"))
}
