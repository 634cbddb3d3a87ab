package gate

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"parkd/internal/domain"
)

// tickN runs n ticks, advancing the clock one quantum between ticks, the
// way Run would.
func tickN(c *Controller, clock *manualClock, n int) {
	for i := 0; i < n; i++ {
		c.Tick()
		clock.advance(TickInterval)
	}
}

func newTestController() (*Controller, *fakeBackend, *scriptIO, *manualClock) {
	backend := newFakeBackend()
	io := &scriptIO{}
	clock := &manualClock{now: t0}
	ctrl := NewController(backend, io, clock, slog.Default())
	return ctrl, backend, io, clock
}

func TestEndToEndScenario(t *testing.T) {
	ctrl, backend, io, clock := newTestController()

	// Vehicle at entry: raw goes low and holds for 600ms.
	backend.setPresence(domain.LaneEntry, false)
	tickN(ctrl, clock, 12) // 600ms of polling

	if len(io.out) != 1 || io.out[0] != "ENTRY_DETECTED" {
		t.Fatalf("after 600ms low: out = %v, want exactly [ENTRY_DETECTED]", io.out)
	}

	// Supervisor opens the entry gate.
	io.push("OPEN_ENTRY")
	tickN(ctrl, clock, 1)
	if len(io.out) != 2 || io.out[1] != "ENTRY_GATE_OPENED" {
		t.Fatalf("after OPEN_ENTRY: out = %v", io.out)
	}

	// Redundant open: no further output.
	io.push("OPEN_ENTRY")
	tickN(ctrl, clock, 1)
	if len(io.out) != 2 {
		t.Fatalf("redundant OPEN_ENTRY produced output: %v", io.out)
	}

	io.push("CLOSE_ENTRY")
	tickN(ctrl, clock, 1)
	if len(io.out) != 3 || io.out[2] != "ENTRY_GATE_CLOSED" {
		t.Fatalf("after CLOSE_ENTRY: out = %v", io.out)
	}
}

func TestDetectionLatency(t *testing.T) {
	ctrl, backend, io, clock := newTestController()

	backend.setPresence(domain.LaneExit, false)

	// Through 500ms of polling the signal is still inside the window
	// (commit requires strictly more than 500ms).
	tickN(ctrl, clock, 11)
	if len(io.out) != 0 {
		t.Fatalf("detection before the window elapsed: %v", io.out)
	}
	// The next tick sees 550ms elapsed and commits.
	tickN(ctrl, clock, 1)
	if len(io.out) != 1 || io.out[0] != "EXIT_DETECTED" {
		t.Fatalf("out = %v, want [EXIT_DETECTED]", io.out)
	}
}

func TestCommandDispatchAndDetectionSequencing(t *testing.T) {
	ctrl, backend, io, clock := newTestController()

	// A waiting command is dispatched on the same tick the exit signal
	// starts debouncing; the detection trails it by one full window.
	io.push("OPEN_EXIT")
	backend.setPresence(domain.LaneExit, false)
	tickN(ctrl, clock, 13)

	want := []string{"EXIT_GATE_OPENED", "EXIT_DETECTED"}
	if len(io.out) != len(want) {
		t.Fatalf("out = %v, want %v", io.out, want)
	}
	for i := range want {
		if io.out[i] != want[i] {
			t.Fatalf("out = %v, want %v", io.out, want)
		}
	}
}

func TestLaneIndependence(t *testing.T) {
	ctrl, backend, io, clock := newTestController()

	// A full entry-lane session must never touch the exit lane.
	backend.setPresence(domain.LaneEntry, false)
	tickN(ctrl, clock, 12)
	io.push("OPEN_ENTRY")
	tickN(ctrl, clock, 1)
	io.push("CLOSE_ENTRY")
	tickN(ctrl, clock, 1)
	backend.setPresence(domain.LaneEntry, true)
	tickN(ctrl, clock, 12)

	for _, line := range io.out {
		tok, ok := domain.ParseEventToken(line)
		if !ok {
			t.Fatalf("non-protocol output %q", line)
		}
		if tok.Lane() != domain.LaneEntry {
			t.Fatalf("entry-lane session emitted exit-lane event %s", tok)
		}
	}
	for _, w := range backend.writes {
		if w.lane != domain.LaneEntry {
			t.Fatalf("entry-lane session drove the %s gate", w.lane)
		}
	}
}

func TestOneCommandPerTick(t *testing.T) {
	ctrl, _, io, clock := newTestController()

	io.push("OPEN_ENTRY", "OPEN_EXIT")
	tickN(ctrl, clock, 1)
	if len(io.out) != 1 {
		t.Fatalf("one tick consumed more than one command: %v", io.out)
	}
	tickN(ctrl, clock, 1)
	if len(io.out) != 2 {
		t.Fatalf("second command not consumed on second tick: %v", io.out)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	backend := newFakeBackend()
	io := &scriptIO{}
	ctrl := NewController(backend, io, SystemClock{}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	time.Sleep(3 * TickInterval)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
