// Package pipelink joins an in-process gate controller to the supervisor
// with an in-memory line channel speaking the same protocol as the
// serial transport.
package pipelink

import (
	"log/slog"
	"sync"

	"parkd/internal/domain"
)

const (
	commandDepth = 16
	eventDepth   = 64
)

// ControllerEnd is handed to the gate controller as its LineIO.
type ControllerEnd struct {
	in     <-chan string
	out    chan<- string
	logger *slog.Logger
}

// SupervisorEnd implements domain.ControllerLink for the supervisor.
type SupervisorEnd struct {
	events    <-chan string
	cmds      chan<- string
	closeOnce sync.Once
	done      chan struct{}
}

// New creates both ends of a line pipe.
func New(logger *slog.Logger) (*ControllerEnd, *SupervisorEnd) {
	cmds := make(chan string, commandDepth)
	events := make(chan string, eventDepth)
	ctrl := &ControllerEnd{in: cmds, out: events, logger: logger}
	sup := &SupervisorEnd{events: events, cmds: cmds, done: make(chan struct{})}
	return ctrl, sup
}

// ReadLine returns one buffered command line without blocking.
func (e *ControllerEnd) ReadLine() (string, bool) {
	select {
	case line := <-e.in:
		return line, true
	default:
		return "", false
	}
}

// WriteLine queues an outbound event line. A full buffer means the
// supervisor has stalled badly; the line is dropped rather than blocking
// the control loop.
func (e *ControllerEnd) WriteLine(line string) {
	select {
	case e.out <- line:
	default:
		e.logger.Warn("pipe: dropped event for stalled supervisor", "line", line)
	}
}

// Lines returns the inbound event stream.
func (s *SupervisorEnd) Lines() <-chan string { return s.events }

// Send queues one command line for the controller.
func (s *SupervisorEnd) Send(cmd domain.GateCommand) error {
	select {
	case <-s.done:
		return domain.ErrLinkDown
	default:
	}
	select {
	case s.cmds <- cmd.Token():
		return nil
	default:
		return domain.WrapOp("pipe", domain.ErrLinkDown)
	}
}

// Close shuts the supervisor end. The controller keeps running; its
// writes simply start dropping once the buffer fills.
func (s *SupervisorEnd) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
