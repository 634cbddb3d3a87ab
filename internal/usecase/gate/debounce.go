package gate

import (
	"time"

	"parkd/internal/domain"
)

// Debouncer converts a raw, noisy binary presence signal into a stable
// logical level and emits a one-shot detection token when the stable
// level transitions to occupied (electrically low).
//
// Any raw change restarts the debounce window, even a change arriving
// inside an already-running window. A bounce pattern that never holds
// steady for the full window never commits and never fires.
type Debouncer struct {
	lane       domain.Lane
	lastRaw    bool
	stable     bool
	lastChange time.Time
}

// NewDebouncer returns a debouncer initialized to the idle level
// (high: beam intact, lane unoccupied).
func NewDebouncer(lane domain.Lane, now time.Time) *Debouncer {
	return &Debouncer{
		lane:       lane,
		lastRaw:    true,
		stable:     true,
		lastChange: now,
	}
}

// Poll observes one raw reading at the given instant. It returns the
// lane's detection token exactly once per stabilized idle→occupied
// transition; stabilized occupied→idle transitions commit silently.
func (d *Debouncer) Poll(raw bool, now time.Time) (domain.EventToken, bool) {
	if raw != d.lastRaw {
		d.lastChange = now
		d.lastRaw = raw
	}

	if now.Sub(d.lastChange) > DebounceWindow && raw != d.stable {
		d.stable = raw
		if !d.stable { // active-low: low means occupied
			return domain.DetectedToken(d.lane), true
		}
	}
	return "", false
}

// Stable returns the current debounced level (true = idle).
func (d *Debouncer) Stable() bool { return d.stable }
