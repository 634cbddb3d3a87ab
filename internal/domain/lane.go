package domain

// Lane identifies one of the two independent sensor+gate pairs.
// Entry and exit lanes never interact.
type Lane string

const (
	LaneEntry Lane = "entry"
	LaneExit  Lane = "exit"
)

// Lanes lists all lanes in polling order. The controller polls the entry
// lane before the exit lane on every tick.
var Lanes = []Lane{LaneEntry, LaneExit}

// Valid reports whether l is a known lane.
func (l Lane) Valid() bool {
	return l == LaneEntry || l == LaneExit
}

func (l Lane) String() string { return string(l) }
