package gate

import "parkd/internal/domain"

// Actuator holds one gate's open/closed state and is the only component
// that writes the physical position output. Open and Close are
// idempotent: a request matching the current state performs no driver
// write and emits nothing.
type Actuator struct {
	lane   domain.Lane
	driver Backend
	open   bool
}

// NewActuator returns an actuator for the lane, gate closed.
func NewActuator(lane domain.Lane, driver Backend) *Actuator {
	return &Actuator{lane: lane, driver: driver}
}

// Open drives the gate to the open setpoint if it is closed.
func (a *Actuator) Open() (domain.EventToken, bool) {
	if a.open {
		return "", false
	}
	a.driver.DriveGate(a.lane, PositionOpen)
	a.open = true
	return domain.OpenedToken(a.lane), true
}

// Close drives the gate to the closed setpoint if it is open.
func (a *Actuator) Close() (domain.EventToken, bool) {
	if !a.open {
		return "", false
	}
	a.driver.DriveGate(a.lane, PositionClosed)
	a.open = false
	return domain.ClosedToken(a.lane), true
}

// IsOpen reports the last commanded and applied position.
func (a *Actuator) IsOpen() bool { return a.open }
