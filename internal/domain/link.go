package domain

// ControllerLink is the supervisor's end of the controller's line
// channel. Lines delivers inbound channel lines (untrimmed); Send writes
// one command line. Implementations: the in-process pipe and the serial
// port.
type ControllerLink interface {
	Lines() <-chan string
	Send(cmd GateCommand) error
	Close() error
}
