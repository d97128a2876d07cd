// Package cycle resolves a user's billing period from their configured
// cycle start day. Periods are derived fresh on every call; nothing is
// persisted.
package cycle

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCycleDay indicates the cycle start day is missing or outside 1..31.
// A zero value means the user never configured a billing cycle.
var ErrInvalidCycleDay = errors.New("cycle start day must be between 1 and 31")

// Cycle is the inclusive billing period containing a reference date.
type Cycle struct {
	StartDay    int
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Resolve computes the billing period containing ref for the given start day.
// If startDay is later than ref's day-of-month, the period began on startDay of
// the previous calendar month; otherwise on startDay of the current month.
// PeriodEnd is always ref truncated to the day. When startDay exceeds the
// number of days in the resolved month (day 31 in February), it is clamped to
// that month's last day so PeriodStart never lands after ref.
func Resolve(startDay int, ref time.Time) (Cycle, error) {
	if startDay < 1 || startDay > 31 {
		return Cycle{}, fmt.Errorf("resolve period for day %d: %w", startDay, ErrInvalidCycleDay)
	}

	today := truncateToDay(ref)
	year, month := today.Year(), today.Month()
	if startDay > today.Day() {
		// time.Date normalizes month 0 into December of the previous year.
		month--
	}

	day := startDay
	if last := daysIn(year, month, today.Location()); day > last {
		day = last
	}

	return Cycle{
		StartDay:    startDay,
		PeriodStart: time.Date(year, month, day, 0, 0, 0, 0, today.Location()),
		PeriodEnd:   today,
	}, nil
}

// Contains reports whether t's calendar date falls inside the period,
// inclusive on both ends. The comparison is by date components, never by
// instant: converting t into the period's zone first would shift its calendar
// date when the two zones disagree.
func (c Cycle) Contains(t time.Time) bool {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.PeriodStart.Location())
	return !d.Before(c.PeriodStart) && !d.After(c.PeriodEnd)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysIn returns the number of days in the given month; day 0 of the next
// month normalizes to the last day of this one.
func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
