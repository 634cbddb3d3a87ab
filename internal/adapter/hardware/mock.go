package hardware

import (
	"sync"

	"parkd/internal/domain"
	"parkd/internal/usecase/gate"
)

var _ gate.Backend = (*MockBackend)(nil)

// MockBackend is an in-memory gate.Backend for hosts without GPIO
// hardware. Sensors default to the idle (high) level.
type MockBackend struct {
	mu       sync.Mutex
	presence map[domain.Lane]bool
	gates    map[domain.Lane]gate.Position
	writes   []GateWrite
}

// GateWrite records one DriveGate call.
type GateWrite struct {
	Lane domain.Lane
	Pos  gate.Position
}

// NewMockBackend returns a mock with both lanes idle and both gates closed.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		presence: map[domain.Lane]bool{domain.LaneEntry: true, domain.LaneExit: true},
		gates:    map[domain.Lane]gate.Position{domain.LaneEntry: gate.PositionClosed, domain.LaneExit: gate.PositionClosed},
	}
}

// SetPresence sets the raw sensor level for a lane: true for idle
// (high), false for a vehicle on the sensor (low).
func (m *MockBackend) SetPresence(lane domain.Lane, level bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presence[lane] = level
}

func (m *MockBackend) ReadPresence(lane domain.Lane) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.presence[lane]
}

func (m *MockBackend) DriveGate(lane domain.Lane, pos gate.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gates[lane] = pos
	m.writes = append(m.writes, GateWrite{Lane: lane, Pos: pos})
}

// GatePosition reports the last driven position for a lane.
func (m *MockBackend) GatePosition(lane domain.Lane) gate.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gates[lane]
}

// Writes returns a copy of all DriveGate calls in order.
func (m *MockBackend) Writes() []GateWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GateWrite, len(m.writes))
	copy(out, m.writes)
	return out
}
