package domain

// GateCommand is the closed set of commands accepted on the controller's
// inbound line channel. Commands are parsed once at the channel boundary;
// everything past the boundary works with this type, never raw text.
type GateCommand uint8

const (
	CommandInvalid GateCommand = iota
	CommandOpenEntry
	CommandCloseEntry
	CommandOpenExit
	CommandCloseExit
)

// Wire tokens for the inbound line channel. Matching is exact and
// case-sensitive after surrounding whitespace is stripped.
const (
	wireOpenEntry  = "OPEN_ENTRY"
	wireCloseEntry = "CLOSE_ENTRY"
	wireOpenExit   = "OPEN_EXIT"
	wireCloseExit  = "CLOSE_EXIT"
)

// ParseGateCommand maps a trimmed line token to a command.
// Unrecognized tokens return (CommandInvalid, false); the caller is
// expected to drop them without a diagnostic.
func ParseGateCommand(token string) (GateCommand, bool) {
	switch token {
	case wireOpenEntry:
		return CommandOpenEntry, true
	case wireCloseEntry:
		return CommandCloseEntry, true
	case wireOpenExit:
		return CommandOpenExit, true
	case wireCloseExit:
		return CommandCloseExit, true
	}
	return CommandInvalid, false
}

// Token returns the wire form of the command.
func (c GateCommand) Token() string {
	switch c {
	case CommandOpenEntry:
		return wireOpenEntry
	case CommandCloseEntry:
		return wireCloseEntry
	case CommandOpenExit:
		return wireOpenExit
	case CommandCloseExit:
		return wireCloseExit
	}
	return ""
}

// Lane returns the lane the command acts on.
func (c GateCommand) Lane() Lane {
	switch c {
	case CommandOpenEntry, CommandCloseEntry:
		return LaneEntry
	case CommandOpenExit, CommandCloseExit:
		return LaneExit
	}
	return ""
}

// Opens reports whether the command requests the open position.
func (c GateCommand) Opens() bool {
	return c == CommandOpenEntry || c == CommandOpenExit
}

// OpenCommand returns the open command for a lane.
func OpenCommand(lane Lane) GateCommand {
	if lane == LaneExit {
		return CommandOpenExit
	}
	return CommandOpenEntry
}

// CloseCommand returns the close command for a lane.
func CloseCommand(lane Lane) GateCommand {
	if lane == LaneExit {
		return CommandCloseExit
	}
	return CommandCloseEntry
}
