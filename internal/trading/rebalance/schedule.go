package rebalance

import (
	"time"

	"github.com/Alias1177/SmartVest/internal/model"
)

// Schedule produces calendar rebalance dates start + k*months. A date
// falling on a non-trading day is served by the next trading day.
type Schedule struct {
	start  time.Time
	months int
	k      int
}

// NewSchedule creates a schedule whose first date is start
func NewSchedule(start time.Time, months int) *Schedule {
	if months <= 0 {
		months = 3
	}
	return &Schedule{start: model.Day(start), months: months}
}

// Due reports whether at least one scheduled date is on or before day and
// not yet consumed. All such dates are consumed.
func (s *Schedule) Due(day time.Time) bool {
	day = model.Day(day)
	due := false
	for !s.Next().After(day) {
		due = true
		s.k++
	}
	return due
}

// Next returns the next unconsumed scheduled date
func (s *Schedule) Next() time.Time {
	return addMonths(s.start, s.k*s.months)
}

// addMonths adds calendar months, clamping the day to the end of the
// target month (Jan 31 + 1 month = Feb 28/29)
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}
