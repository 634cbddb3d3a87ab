// Package hardware provides gate.Backend implementations: a periph.io
// backend driving real GPIO sensors and servos, and an in-memory mock
// for development hosts without hardware.
package hardware

import (
	"log/slog"

	"parkd/internal/infra/config"
	"parkd/internal/usecase/gate"
)

// NewBackend returns a periph.io backend when the GPIO host initializes,
// falling back to the mock backend otherwise.
func NewBackend(pins config.PinConfig, log *slog.Logger) gate.Backend {
	backend, err := NewPeriphBackend(pins)
	if err != nil {
		log.Warn("periph.io init failed, using mock hardware backend", "error", err)
		return NewMockBackend()
	}
	log.Info("hardware backend ready (periph.io)",
		"entry_sensor", pins.EntrySensor, "exit_sensor", pins.ExitSensor,
		"entry_servo", pins.EntryServo, "exit_servo", pins.ExitServo)
	return backend
}
