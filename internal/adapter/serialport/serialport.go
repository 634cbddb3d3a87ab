// Package serialport drives an external gate controller board over a
// serial line. The board speaks the same protocol as the in-process
// controller: one command or event token per line at 9600 baud by
// default.
package serialport

import (
	"bufio"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.bug.st/serial"

	"parkd/internal/domain"
	"parkd/internal/infra/config"
)

const (
	lineDepth      = 64
	reconnectDelay = 2 * time.Second
	resetSettle    = 2 * time.Second // boards reset when the port opens
)

// Link implements domain.ControllerLink over a serial port. The write
// path runs through a circuit breaker: while the link is down, commands
// fail fast instead of stacking up behind a dead port.
type Link struct {
	portName string
	mode     *serial.Mode
	logger   *slog.Logger
	breaker  *gobreaker.CircuitBreaker[struct{}]

	mu   sync.Mutex
	port serial.Port

	lines     chan string
	done      chan struct{}
	closeOnce sync.Once
}

// Open connects to the configured port (auto-detecting it when asked),
// waits out the board reset, and starts the reader.
func Open(cfg config.SerialConfig, logger *slog.Logger) (*Link, error) {
	name := cfg.Port
	if cfg.AutoDetect {
		if detected, err := DetectPort(); err == nil {
			name = detected
			logger.Info("auto-detected controller board", "port", name)
		} else if name == "" {
			return nil, fmt.Errorf("serial auto-detect: %w", err)
		}
	}

	l := newLink(name, &serial.Mode{BaudRate: cfg.BaudRate}, logger)
	if err := l.connect(); err != nil {
		return nil, err
	}
	go l.readLoop()
	return l, nil
}

func newLink(name string, mode *serial.Mode, logger *slog.Logger) *Link {
	l := &Link{
		portName: name,
		mode:     mode,
		logger:   logger,
		lines:    make(chan string, lineDepth),
		done:     make(chan struct{}),
	}
	l.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "serial:" + name,
		MaxRequests: 1, // allow 1 probe in half-open state
		Timeout:     reconnectDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("serial breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return l
}

// DetectPort scans serial ports for a USB description matching common
// controller boards (Arduino, CH340, generic USB-serial bridges).
func DetectPort() (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}
	for _, name := range ports {
		upper := strings.ToUpper(name)
		if strings.Contains(upper, "USB") || strings.Contains(upper, "ACM") {
			return name, nil
		}
	}
	return "", fmt.Errorf("no controller board found among %d ports", len(ports))
}

func (l *Link) connect() error {
	port, err := serial.Open(l.portName, l.mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", l.portName, err)
	}
	// Opening the port resets the board; give its sketch time to boot.
	time.Sleep(resetSettle)

	l.mu.Lock()
	l.port = port
	l.mu.Unlock()
	l.logger.Info("serial link up", "port", l.portName, "baud", l.mode.BaudRate)
	return nil
}

// readLoop scans lines from the port, reconnecting on errors.
func (l *Link) readLoop() {
	for {
		select {
		case <-l.done:
			return
		default:
		}

		l.mu.Lock()
		port := l.port
		l.mu.Unlock()
		if port == nil {
			if err := l.connect(); err != nil {
				l.logger.Warn("serial reconnect failed", "error", err)
				select {
				case <-l.done:
					return
				case <-time.After(reconnectDelay):
				}
			}
			continue
		}

		scanner := bufio.NewScanner(port)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			select {
			case l.lines <- line:
			default:
				l.logger.Warn("serial: dropped line for stalled supervisor", "line", line)
			}
			select {
			case <-l.done:
				return
			default:
			}
		}

		if err := scanner.Err(); err != nil {
			l.logger.Warn("serial read failed, reconnecting", "error", err)
		}
		l.dropPort()
	}
}

func (l *Link) dropPort() {
	l.mu.Lock()
	if l.port != nil {
		l.port.Close()
		l.port = nil
	}
	l.mu.Unlock()
}

// Lines returns the inbound event stream.
func (l *Link) Lines() <-chan string { return l.lines }

// Send writes one command line through the breaker.
func (l *Link) Send(cmd domain.GateCommand) error {
	_, err := l.breaker.Execute(func() (struct{}, error) {
		l.mu.Lock()
		port := l.port
		l.mu.Unlock()
		if port == nil {
			return struct{}{}, domain.ErrLinkDown
		}
		if _, err := port.Write([]byte(cmd.Token() + "\n")); err != nil {
			l.dropPort()
			return struct{}{}, fmt.Errorf("write %s: %w", cmd.Token(), err)
		}
		return struct{}{}, nil
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return domain.WrapOp("serial", domain.ErrLinkDown)
	}
	return err
}

// Close stops the reader and closes the port.
func (l *Link) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	l.dropPort()
	return nil
}
