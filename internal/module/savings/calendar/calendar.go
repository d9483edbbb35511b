// Package calendar holds the date/time primitives shared across the savings
// planner: epoch-day deadlines, epoch-millisecond timestamps, and the
// payment-calendar anchor logic used to turn a deadline into a schedule.
package calendar

import "time"

// EpochDay is a calendar date expressed as whole days since 1970-01-01 UTC.
// Goals and plans never store time.Time for dates: epoch days are immune to
// timezone drift when a server or client clock disagrees on local midnight.
type EpochDay int32

// EpochMillis is a UTC instant expressed as milliseconds since the epoch.
type EpochMillis int64

const daySeconds = 24 * 60 * 60

// Now returns the current instant.
func Now() EpochMillis {
	return EpochMillis(time.Now().UTC().UnixMilli())
}

// Today returns the current date.
func Today() EpochDay {
	return ToEpochDay(time.Now().UTC())
}

// ToEpochDay truncates t to its UTC calendar date.
func ToEpochDay(t time.Time) EpochDay {
	u := t.UTC()
	days := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Unix() / daySeconds
	return EpochDay(days)
}

// Time returns the UTC midnight instant for d.
func (d EpochDay) Time() time.Time {
	return time.Unix(int64(d)*daySeconds, 0).UTC()
}

// Millis returns d as an EpochMillis at UTC midnight.
func (d EpochDay) Millis() EpochMillis {
	return EpochMillis(int64(d) * daySeconds * 1000)
}

// ToMillis converts t to EpochMillis.
func ToMillis(t time.Time) EpochMillis {
	return EpochMillis(t.UTC().UnixMilli())
}

// Time returns the UTC instant for ms.
func (ms EpochMillis) Time() time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}

// Day truncates ms to its calendar date.
func (ms EpochMillis) Day() EpochDay {
	return ToEpochDay(ms.Time())
}

// MonthLabel formats ms as a "YYYY-MM" month key, the canonical identifier
// a MonthlyGoalPlan and ExecutionRecord are keyed by.
func MonthLabel(ms EpochMillis) string {
	return ms.Time().Format("2006-01")
}

// MonthLabelForDay formats d as a "YYYY-MM" month key.
func MonthLabelForDay(d EpochDay) string {
	return d.Time().Format("2006-01")
}

// AddDays returns d shifted by n days.
func (d EpochDay) AddDays(n int) EpochDay {
	return d + EpochDay(n)
}

// Before reports whether d is strictly before o.
func (d EpochDay) Before(o EpochDay) bool { return d < o }

// After reports whether d is strictly after o.
func (d EpochDay) After(o EpochDay) bool { return d > o }
