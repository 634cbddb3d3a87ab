package hardware

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"parkd/internal/domain"
	"parkd/internal/infra/config"
	"parkd/internal/usecase/gate"
)

// Standard hobby-servo timing on a 50Hz PWM signal: a ~1ms pulse holds
// the closed position, ~2ms the open position. Duty is expressed as a
// fraction of the 20ms period.
const (
	servoFreq  = 50 * physic.Hertz
	closedDuty = gpio.DutyMax / 20
	openDuty   = gpio.DutyMax / 10
)

var _ gate.Backend = (*PeriphBackend)(nil)

// PeriphBackend reads IR break-beam sensors and drives gate servos
// through periph.io. Sensors are active-low with the internal pull-up
// enabled, so an unbroken beam reads high.
type PeriphBackend struct {
	mu     sync.Mutex
	pins   map[int]gpio.PinIO
	sensor map[domain.Lane]int
	servo  map[domain.Lane]int
}

// NewPeriphBackend initializes the periph.io host and configures the
// sensor pins as pulled-up inputs.
func NewPeriphBackend(pins config.PinConfig) (*PeriphBackend, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	b := &PeriphBackend{
		pins: make(map[int]gpio.PinIO),
		sensor: map[domain.Lane]int{
			domain.LaneEntry: pins.EntrySensor,
			domain.LaneExit:  pins.ExitSensor,
		},
		servo: map[domain.Lane]int{
			domain.LaneEntry: pins.EntryServo,
			domain.LaneExit:  pins.ExitServo,
		},
	}
	for _, n := range b.sensor {
		p, err := b.resolvePin(n)
		if err != nil {
			return nil, err
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("set pin %d to input: %w", n, err)
		}
	}
	return b, nil
}

// resolvePin looks up a GPIO pin by number, caching the result.
func (b *PeriphBackend) resolvePin(pin int) (gpio.PinIO, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.pins[pin]; ok {
		return p, nil
	}
	name := fmt.Sprintf("GPIO%d", pin)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pin %d (%s) not found in hardware", pin, name)
	}
	b.pins[pin] = p
	return p, nil
}

// ReadPresence returns the electrical level of the lane's sensor pin:
// true for high (beam unbroken, lane idle), false for low (vehicle
// present). A pin lookup failure reads as idle.
func (b *PeriphBackend) ReadPresence(lane domain.Lane) bool {
	p, err := b.resolvePin(b.sensor[lane])
	if err != nil {
		return true
	}
	return p.Read() == gpio.High
}

// DriveGate moves the lane's servo to the requested position.
func (b *PeriphBackend) DriveGate(lane domain.Lane, pos gate.Position) {
	p, err := b.resolvePin(b.servo[lane])
	if err != nil {
		return
	}
	duty := closedDuty
	if pos == gate.PositionOpen {
		duty = openDuty
	}
	// PWM failure leaves the gate where it was; the loop retries on
	// the next command for the lane.
	_ = p.PWM(duty, servoFreq)
}
