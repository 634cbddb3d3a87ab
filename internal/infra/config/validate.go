package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a
// *ValidationError listing every problem found.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateController(cfg, ve)
	validateParking(cfg, ve)
	validateGateway(cfg, ve)
	validateReport(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateController(cfg *Config, ve *ValidationError) {
	switch cfg.Controller.Transport {
	case "pipe", "serial", "mock":
	default:
		ve.Add("controller.transport must be pipe, serial, or mock (got %q)", cfg.Controller.Transport)
	}
	if cfg.Controller.Transport == "serial" {
		if cfg.Controller.Serial.Port == "" && !cfg.Controller.Serial.AutoDetect {
			ve.Add("controller.serial.port is required unless auto_detect is set")
		}
		if cfg.Controller.Serial.BaudRate <= 0 {
			ve.Add("controller.serial.baud_rate must be > 0")
		}
	}
	if cfg.Controller.Transport == "pipe" {
		pins := []int{
			cfg.Controller.Pins.EntrySensor,
			cfg.Controller.Pins.ExitSensor,
			cfg.Controller.Pins.EntryServo,
			cfg.Controller.Pins.ExitServo,
		}
		seen := map[int]bool{}
		for _, p := range pins {
			if p < 0 {
				ve.Add("controller.pins entries must be >= 0")
			}
			if seen[p] {
				ve.Add("controller.pins entries must be distinct (pin %d repeats)", p)
			}
			seen[p] = true
		}
	}
}

func validateParking(cfg *Config, ve *ValidationError) {
	if cfg.Parking.DBPath == "" {
		ve.Add("parking.db_path is required")
	}
	if cfg.Parking.TotalSlots <= 0 {
		ve.Add("parking.total_slots must be > 0")
	}
	if cfg.Parking.RatePerMin < 0 {
		ve.Add("parking.rate_per_min must be >= 0")
	}
	if cfg.Parking.GateHold != "" {
		if d, err := time.ParseDuration(cfg.Parking.GateHold); err != nil || d <= 0 {
			ve.Add("parking.gate_hold %q is not a positive duration", cfg.Parking.GateHold)
		}
	}
}

func validateGateway(cfg *Config, ve *ValidationError) {
	if !cfg.Gateway.Enabled {
		return
	}
	if _, _, err := net.SplitHostPort(cfg.Gateway.Addr); err != nil {
		ve.Add("gateway.addr %q is not host:port", cfg.Gateway.Addr)
	}
	if cfg.Gateway.RequestsPerMin <= 0 {
		ve.Add("gateway.requests_per_min must be > 0")
	}
	if cfg.Gateway.Burst <= 0 {
		ve.Add("gateway.burst must be > 0")
	}
}

func validateReport(cfg *Config, ve *ValidationError) {
	if cfg.Report.Enabled && cfg.Report.Schedule == "" {
		ve.Add("report.schedule is required when reports are enabled")
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch cfg.Logger.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q is not a known level", cfg.Logger.Level)
	}
	switch cfg.Logger.Format {
	case "text", "json":
	default:
		ve.Add("logger.format must be text or json")
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q is not supported", cfg.Tracer.Exporter)
	}
}
