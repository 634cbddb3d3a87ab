package gate

import (
	"context"
	"log/slog"

	"parkd/internal/domain"
)

// Controller owns all per-lane state and runs the fixed-period polling
// loop. One tick, in fixed order: poll the entry sensor, poll the exit
// sensor, read and dispatch at most one command, sleep one quantum.
// Everything inside a tick is non-blocking and bounded.
type Controller struct {
	backend    Backend
	io         LineIO
	clock      Clock
	logger     *slog.Logger
	sensors    map[domain.Lane]*Debouncer
	dispatcher *Dispatcher
}

// NewController builds a controller with both gates closed and both
// sensors at the idle stable level.
func NewController(backend Backend, io LineIO, clock Clock, logger *slog.Logger) *Controller {
	now := clock.Now()
	entry := NewActuator(domain.LaneEntry, backend)
	exit := NewActuator(domain.LaneExit, backend)
	return &Controller{
		backend: backend,
		io:      io,
		clock:   clock,
		logger:  logger,
		sensors: map[domain.Lane]*Debouncer{
			domain.LaneEntry: NewDebouncer(domain.LaneEntry, now),
			domain.LaneExit:  NewDebouncer(domain.LaneExit, now),
		},
		dispatcher: NewDispatcher(io, entry, exit),
	}
}

// Run executes ticks until the context is cancelled. The sleep is pure
// pacing; it carries no ordering obligation.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("gate controller started",
		"tick", TickInterval, "debounce", DebounceWindow)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("gate controller stopped")
			return ctx.Err()
		default:
		}
		c.Tick()
		c.clock.Sleep(TickInterval)
	}
}

// Tick runs one polling iteration. Exported so tests can drive the loop
// with synthetic timestamps instead of real delays.
func (c *Controller) Tick() {
	now := c.clock.Now()
	for _, lane := range domain.Lanes {
		raw := c.backend.ReadPresence(lane)
		if tok, ok := c.sensors[lane].Poll(raw, now); ok {
			c.emit(tok)
		}
	}
	if cmd, ok := c.dispatcher.TryReadCommand(); ok {
		if tok, ok := c.dispatcher.Dispatch(cmd); ok {
			c.emit(tok)
		}
	}
}

func (c *Controller) emit(tok domain.EventToken) {
	c.io.WriteLine(string(tok))
}
