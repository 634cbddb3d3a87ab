package gate

import (
	"sync"
	"time"

	"parkd/internal/domain"
)

// fakeBackend records gate writes and lets tests script sensor levels.
type fakeBackend struct {
	mu       sync.Mutex
	presence map[domain.Lane]bool
	writes   []gateWrite
}

type gateWrite struct {
	lane domain.Lane
	pos  Position
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		presence: map[domain.Lane]bool{
			domain.LaneEntry: true, // idle (high)
			domain.LaneExit:  true,
		},
	}
}

func (b *fakeBackend) ReadPresence(lane domain.Lane) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presence[lane]
}

func (b *fakeBackend) DriveGate(lane domain.Lane, pos Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes = append(b.writes, gateWrite{lane, pos})
}

func (b *fakeBackend) setPresence(lane domain.Lane, level bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presence[lane] = level
}

func (b *fakeBackend) writeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.writes)
}

// scriptIO is a scripted, non-blocking line channel.
type scriptIO struct {
	in  []string
	out []string
}

func (s *scriptIO) ReadLine() (string, bool) {
	if len(s.in) == 0 {
		return "", false
	}
	line := s.in[0]
	s.in = s.in[1:]
	return line, true
}

func (s *scriptIO) WriteLine(line string) { s.out = append(s.out, line) }

func (s *scriptIO) push(lines ...string) { s.in = append(s.in, lines...) }

// manualClock advances only when told to, so loop tests need no real
// delays.
type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time        { return c.now }
func (c *manualClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }
func (c *manualClock) advance(d time.Duration) { c.now = c.now.Add(d) }
