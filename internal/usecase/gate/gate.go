// Package gate implements the polling control loop for the two-lane
// barrier: per-lane sensor debouncing, idempotent gate actuation, and the
// line-oriented command protocol spoken with the supervisor.
package gate

import (
	"time"

	"parkd/internal/domain"
)

const (
	// DebounceWindow is how long a raw sensor level must hold constant
	// before it is trusted.
	DebounceWindow = 500 * time.Millisecond

	// TickInterval is the fixed polling quantum of the control loop.
	TickInterval = 50 * time.Millisecond
)

// Position is a gate setpoint.
type Position uint8

const (
	PositionClosed Position = iota
	PositionOpen
)

func (p Position) String() string {
	if p == PositionOpen {
		return "open"
	}
	return "closed"
}

// Backend is the hardware boundary of the control loop. Presence inputs
// are raw electrical levels (true = high = beam intact / lane idle; the
// sensors are active-low). Gate writes are fire-and-forget: there is no
// position feedback loop.
type Backend interface {
	ReadPresence(lane domain.Lane) bool
	DriveGate(lane domain.Lane, pos Position)
}

// LineIO is the controller's end of the line-oriented text channel.
// ReadLine must not block: it returns ("", false) when no complete line
// is buffered. WriteLine appends the terminator itself.
type LineIO interface {
	ReadLine() (string, bool)
	WriteLine(string)
}

// Clock abstracts time so the loop can be driven deterministically in
// tests with synthetic timestamps.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
