package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) EpochDay {
	return ToEpochDay(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func TestPaymentCalendar_NextAnchor(t *testing.T) {
	pc := NewPaymentCalendar(15)

	got := pc.NextAnchor(day(2026, time.January, 1))
	assert.Equal(t, day(2026, time.January, 15), got)

	got = pc.NextAnchor(day(2026, time.January, 15))
	assert.Equal(t, day(2026, time.February, 15), got, "anchor day itself is not strictly after")
}

func TestPaymentCalendar_ClampsToShortMonths(t *testing.T) {
	pc := NewPaymentCalendar(31)

	got := pc.NextAnchor(day(2026, time.January, 31))
	assert.Equal(t, day(2026, time.February, 28), got)
}

func TestPaymentCalendar_MonthsRemaining_FloorsAtOne(t *testing.T) {
	pc := NewPaymentCalendar(15)

	n := pc.MonthsRemaining(day(2026, time.January, 20), day(2026, time.January, 25))
	assert.Equal(t, 1, n)
}

func TestPaymentCalendar_AnchorsBetween(t *testing.T) {
	pc := NewPaymentCalendar(1)

	anchors := pc.AnchorsBetween(day(2026, time.January, 1), day(2026, time.April, 1))
	assert.Equal(t, []EpochDay{
		day(2026, time.February, 1),
		day(2026, time.March, 1),
		day(2026, time.April, 1),
	}, anchors)
}
