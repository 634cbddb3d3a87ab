package domain

// EventToken is an outbound token on the controller's line channel.
// Exactly six tokens exist; the channel carries nothing else — no
// acknowledgments, no error replies.
type EventToken string

const (
	TokenEntryDetected   EventToken = "ENTRY_DETECTED"
	TokenExitDetected    EventToken = "EXIT_DETECTED"
	TokenEntryGateOpened EventToken = "ENTRY_GATE_OPENED"
	TokenEntryGateClosed EventToken = "ENTRY_GATE_CLOSED"
	TokenExitGateOpened  EventToken = "EXIT_GATE_OPENED"
	TokenExitGateClosed  EventToken = "EXIT_GATE_CLOSED"
)

// DetectedToken returns the detection token for a lane.
func DetectedToken(lane Lane) EventToken {
	if lane == LaneExit {
		return TokenExitDetected
	}
	return TokenEntryDetected
}

// OpenedToken returns the gate-opened token for a lane.
func OpenedToken(lane Lane) EventToken {
	if lane == LaneExit {
		return TokenExitGateOpened
	}
	return TokenEntryGateOpened
}

// ClosedToken returns the gate-closed token for a lane.
func ClosedToken(lane Lane) EventToken {
	if lane == LaneExit {
		return TokenExitGateClosed
	}
	return TokenEntryGateClosed
}

// ParseEventToken maps a trimmed inbound line from a controller back to an
// event token. Used by the supervisor side of the channel.
func ParseEventToken(line string) (EventToken, bool) {
	switch EventToken(line) {
	case TokenEntryDetected, TokenExitDetected,
		TokenEntryGateOpened, TokenEntryGateClosed,
		TokenExitGateOpened, TokenExitGateClosed:
		return EventToken(line), true
	}
	return "", false
}

// Lane returns the lane a token refers to.
func (t EventToken) Lane() Lane {
	switch t {
	case TokenExitDetected, TokenExitGateOpened, TokenExitGateClosed:
		return LaneExit
	}
	return LaneEntry
}
