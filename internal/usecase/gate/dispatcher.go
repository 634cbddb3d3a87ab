package gate

import (
	"strings"

	"parkd/internal/domain"
)

// Dispatcher reads at most one command per tick from the line channel
// and routes it to the matching actuator. Unrecognized tokens are
// dropped without a reply; the absence of an event on the outbound
// channel is itself the "this had no effect" signal.
type Dispatcher struct {
	in    LineIO
	gates map[domain.Lane]*Actuator
}

// NewDispatcher wires the dispatcher to its channel and actuators.
func NewDispatcher(in LineIO, entry, exit *Actuator) *Dispatcher {
	return &Dispatcher{
		in: in,
		gates: map[domain.Lane]*Actuator{
			domain.LaneEntry: entry,
			domain.LaneExit:  exit,
		},
	}
}

// TryReadCommand consumes one complete line from the channel if one is
// buffered, trims surrounding whitespace, and parses it. A missing line
// and an unknown token are indistinguishable to the caller.
func (d *Dispatcher) TryReadCommand() (domain.GateCommand, bool) {
	line, ok := d.in.ReadLine()
	if !ok {
		return domain.CommandInvalid, false
	}
	return domain.ParseGateCommand(strings.TrimSpace(line))
}

// Dispatch invokes the actuator operation for the command.
func (d *Dispatcher) Dispatch(cmd domain.GateCommand) (domain.EventToken, bool) {
	gate, ok := d.gates[cmd.Lane()]
	if !ok {
		return "", false
	}
	if cmd.Opens() {
		return gate.Open()
	}
	return gate.Close()
}
