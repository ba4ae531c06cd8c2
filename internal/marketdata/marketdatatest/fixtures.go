// Package marketdatatest builds synthetic price series for tests.
package marketdatatest

import (
	"time"

	"github.com/Alias1177/SmartVest/internal/model"
)

// BusinessDays returns n consecutive weekdays starting on or after start
func BusinessDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := model.Day(start)
	for len(out) < n {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

// Bars zips dates and closes into a bar series
func Bars(dates []time.Time, closes []float64) []model.PriceBar {
	n := len(dates)
	if len(closes) < n {
		n = len(closes)
	}
	out := make([]model.PriceBar, n)
	for i := 0; i < n; i++ {
		out[i] = model.PriceBar{Date: dates[i], Close: closes[i]}
	}
	return out
}
