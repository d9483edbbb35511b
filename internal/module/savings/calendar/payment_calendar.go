package calendar

import "time"

// PaymentCalendar generates the recurring monthly anchor dates a fixed-budget
// plan schedules contributions against. Day is clamped to the number of days
// in the target month, so a calendar configured for day 31 lands on the 28th
// or 30th in short months rather than overflowing into the next one.
type PaymentCalendar struct {
	Day int // 1-28 typical; up to 31 accepted and clamped per month
}

// NewPaymentCalendar builds a calendar for the given day-of-month, clamping
// to the 1-31 range.
func NewPaymentCalendar(day int) PaymentCalendar {
	if day < 1 {
		day = 1
	}
	if day > 31 {
		day = 31
	}
	return PaymentCalendar{Day: day}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (pc PaymentCalendar) anchorIn(year int, month time.Month) EpochDay {
	day := pc.Day
	if max := daysIn(year, month); day > max {
		day = max
	}
	return ToEpochDay(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// NextAnchor returns the first payment date strictly after from.
func (pc PaymentCalendar) NextAnchor(from EpochDay) EpochDay {
	t := from.Time()
	anchor := pc.anchorIn(t.Year(), t.Month())
	if anchor.After(from) {
		return anchor
	}
	next := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return pc.anchorIn(next.Year(), next.Month())
}

// AdvanceMonth returns the anchor one calendar month after d's month.
func (pc PaymentCalendar) AdvanceMonth(d EpochDay) EpochDay {
	t := d.Time()
	next := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return pc.anchorIn(next.Year(), next.Month())
}

// AnchorsBetween returns every anchor strictly after `from` and on or before
// `to`, in ascending order. Bounded by the caller's deadline; never unbounded.
func (pc PaymentCalendar) AnchorsBetween(from, to EpochDay) []EpochDay {
	var anchors []EpochDay
	cur := pc.NextAnchor(from)
	for !cur.After(to) {
		anchors = append(anchors, cur)
		cur = pc.AdvanceMonth(cur)
	}
	return anchors
}

// MonthsRemaining counts the payment anchors strictly between from and to,
// with a floor of 1 so a deadline this month still yields one contribution
// period rather than dividing by zero.
func (pc PaymentCalendar) MonthsRemaining(from, to EpochDay) int {
	anchors := pc.AnchorsBetween(from, to)
	n := len(anchors)
	if n > 0 && anchors[n-1] == to {
		// An anchor on to itself is not strictly between.
		n--
	}
	if n < 1 {
		return 1
	}
	return n
}
