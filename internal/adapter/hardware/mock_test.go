package hardware

import (
	"testing"

	"parkd/internal/domain"
	"parkd/internal/usecase/gate"
)

func TestMockBackendDefaults(t *testing.T) {
	m := NewMockBackend()
	for _, lane := range domain.Lanes {
		if !m.ReadPresence(lane) {
			t.Errorf("lane %s: expected idle (high) by default", lane)
		}
		if m.GatePosition(lane) != gate.PositionClosed {
			t.Errorf("lane %s: expected gate closed by default", lane)
		}
	}
}

func TestMockBackendSetPresence(t *testing.T) {
	m := NewMockBackend()
	m.SetPresence(domain.LaneEntry, false)
	if m.ReadPresence(domain.LaneEntry) {
		t.Error("entry lane should read low after SetPresence(false)")
	}
	if !m.ReadPresence(domain.LaneExit) {
		t.Error("exit lane should be unaffected")
	}
}

func TestMockBackendRecordsWrites(t *testing.T) {
	m := NewMockBackend()
	m.DriveGate(domain.LaneEntry, gate.PositionOpen)
	m.DriveGate(domain.LaneEntry, gate.PositionClosed)
	m.DriveGate(domain.LaneExit, gate.PositionOpen)

	writes := m.Writes()
	if len(writes) != 3 {
		t.Fatalf("expected 3 writes, got %d", len(writes))
	}
	want := []GateWrite{
		{domain.LaneEntry, gate.PositionOpen},
		{domain.LaneEntry, gate.PositionClosed},
		{domain.LaneExit, gate.PositionOpen},
	}
	for i, w := range want {
		if writes[i] != w {
			t.Errorf("write %d: got %+v, want %+v", i, writes[i], w)
		}
	}
	if m.GatePosition(domain.LaneExit) != gate.PositionOpen {
		t.Error("exit gate should report open")
	}
}
