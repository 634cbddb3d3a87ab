package parking

import (
	"math"
	"time"
)

// BilledMinutes rounds a stay up to whole minutes with a one-minute
// minimum, so a vehicle that leaves immediately still pays for one.
func BilledMinutes(entry, exit time.Time) int {
	secs := exit.Sub(entry).Seconds()
	mins := int(math.Ceil(secs / 60))
	if mins < 1 {
		mins = 1
	}
	return mins
}

// Fee computes the charge for a stay at the given per-minute rate.
func Fee(entry, exit time.Time, ratePerMin float64) (minutes int, amount float64) {
	minutes = BilledMinutes(entry, exit)
	return minutes, float64(minutes) * ratePerMin
}
