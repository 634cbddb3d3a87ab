package serialport

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.bug.st/serial"

	"parkd/internal/domain"
)

// stubPort scripts a serial.Port: reads drain a fixed payload, writes
// are recorded or fail on demand.
type stubPort struct {
	mu       sync.Mutex
	readBuf  []byte
	written  []byte
	writeErr error
	closed   bool
}

func (p *stubPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.readBuf) == 0 || p.closed {
		return 0, io.EOF
	}
	n := copy(b, p.readBuf)
	p.readBuf = p.readBuf[n:]
	return n, nil
}

func (p *stubPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *stubPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *stubPort) writtenBytes() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.written)
}

func (p *stubPort) SetMode(*serial.Mode) error { return nil }
func (p *stubPort) Drain() error { return nil }
func (p *stubPort) ResetInputBuffer() error { return nil }
func (p *stubPort) ResetOutputBuffer() error { return nil }
func (p *stubPort) SetDTR(bool) error { return nil }
func (p *stubPort) SetRTS(bool) error { return nil }
func (p *stubPort) GetModemStatusBits() (*serial.ModemStatusBits, error) { return nil, nil }
func (p *stubPort) SetReadTimeout(time.Duration) error { return nil }
func (p *stubPort) Break(time.Duration) error { return nil }

func newTestLink(port serial.Port) *Link {
	l := newLink("stub", &serial.Mode{BaudRate: 9600}, slog.Default())
	l.port = port
	return l
}

func TestReadLoopDeliversLines(t *testing.T) {
	port := &stubPort{readBuf: []byte("ENTRY_DETECTED\nEXIT_GATE_CLOSED\n")}
	l := newTestLink(port)
	go l.readLoop()
	defer l.Close()

	for _, want := range []string{"ENTRY_DETECTED", "EXIT_GATE_CLOSED"} {
		select {
		case got := <-l.Lines():
			if got != want {
				t.Errorf("got line %q, want %q", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("line %q never delivered", want)
		}
	}
}

func TestSendWritesCommandLine(t *testing.T) {
	port := &stubPort{}
	l := newTestLink(port)
	defer l.Close()

	if err := l.Send(domain.CommandOpenEntry); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := l.Send(domain.CommandCloseExit); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got, want := port.writtenBytes(), "OPEN_ENTRY\nCLOSE_EXIT\n"; got != want {
		t.Errorf("port received %q, want %q", got, want)
	}
}

func TestSendFailsFastWithoutPort(t *testing.T) {
	l := newTestLink(nil)
	defer l.Close()

	if err := l.Send(domain.CommandOpenEntry); !errors.Is(err, domain.ErrLinkDown) {
		t.Fatalf("expected ErrLinkDown, got %v", err)
	}
}

func TestBreakerOpensAfterConsecutiveWriteFailures(t *testing.T) {
	port := &stubPort{writeErr: errors.New("device gone")}
	l := newTestLink(port)
	defer l.Close()

	for i := 0; i < 3; i++ {
		if err := l.Send(domain.CommandOpenEntry); err == nil {
			t.Fatalf("send %d: expected an error", i)
		}
	}
	if got := l.breaker.State(); got != gobreaker.StateOpen {
		t.Fatalf("breaker state after 3 failures: %v, want open", got)
	}

	// While open, sends fail fast as link-down without touching the port.
	if err := l.Send(domain.CommandCloseEntry); !errors.Is(err, domain.ErrLinkDown) {
		t.Errorf("open breaker: expected ErrLinkDown, got %v", err)
	}
}

func TestBreakerRecoversAfterTimeout(t *testing.T) {
	port := &stubPort{writeErr: errors.New("device gone")}
	l := newTestLink(port)
	defer l.Close()

	for i := 0; i < 3; i++ {
		_ = l.Send(domain.CommandOpenEntry)
	}
	if l.breaker.State() != gobreaker.StateOpen {
		t.Fatal("breaker should be open")
	}

	// The port comes back; once the breaker half-opens, a successful
	// probe write closes it again. Failed writes dropped the port, so
	// reattach it the way a reconnect would.
	port.mu.Lock()
	port.writeErr = nil
	port.mu.Unlock()
	l.mu.Lock()
	l.port = port
	l.mu.Unlock()

	deadline := time.Now().Add(2*reconnectDelay + time.Second)
	for time.Now().Before(deadline) {
		if err := l.Send(domain.CommandOpenEntry); err == nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("breaker never recovered after the port came back")
}
