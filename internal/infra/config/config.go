// Package config loads and validates the parkd YAML configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ControllerConfig selects how the gate controller is reached.
type ControllerConfig struct {
	// Transport is one of "pipe" (in-process controller on real GPIO),
	// "serial" (external controller board on a serial port), or "mock"
	// (in-process controller on recorded hardware).
	Transport string       `yaml:"transport"`
	Serial    SerialConfig `yaml:"serial"`
	Pins      PinConfig    `yaml:"pins"`
}

// SerialConfig holds serial transport settings.
type SerialConfig struct {
	Port       string `yaml:"port"`        // e.g. /dev/ttyUSB0
	BaudRate   int    `yaml:"baud_rate"`   // must match the board sketch
	AutoDetect bool   `yaml:"auto_detect"` // scan USB descriptions for the board
}

// PinConfig assigns GPIO pins for the pipe transport.
type PinConfig struct {
	EntrySensor int `yaml:"entry_sensor"`
	ExitSensor  int `yaml:"exit_sensor"`
	EntryServo  int `yaml:"entry_servo"`
	ExitServo   int `yaml:"exit_servo"`
}

// ParkingConfig holds lot bookkeeping settings.
type ParkingConfig struct {
	DBPath     string    `yaml:"db_path"`
	TotalSlots int       `yaml:"total_slots"`
	RatePerMin float64   `yaml:"rate_per_min"`
	GateHold   string    `yaml:"gate_hold"` // duration string, how long an opened gate stays open
	ImagesDir  string    `yaml:"images_dir"`
	UPI        UPIConfig `yaml:"upi"`
}

// HoldDuration parses GateHold, falling back to 5s on a bad value.
func (p ParkingConfig) HoldDuration() time.Duration {
	d, err := time.ParseDuration(p.GateHold)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// UPIConfig identifies the payee for payment QR codes.
type UPIConfig struct {
	ID    string `yaml:"id"`
	Payee string `yaml:"payee"`
}

// GatewayConfig holds the dashboard gateway settings.
type GatewayConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Addr           string `yaml:"addr"`
	AuthToken      string `yaml:"auth_token"` // may be "enc:..." (see secrets.go)
	RequestsPerMin int    `yaml:"requests_per_min"`
	Burst          int    `yaml:"burst"`
}

// ReportConfig holds the summary report schedule.
type ReportConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron expression
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
	Output string `yaml:"output"` // stdout | stderr | file path
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout | noop
}

// Config is the top-level application configuration.
type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Parking    ParkingConfig    `yaml:"parking"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Report     ReportConfig     `yaml:"report"`
	Logger     LoggerConfig     `yaml:"logger"`
	Tracer     TracerConfig     `yaml:"tracer"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		Controller: ControllerConfig{
			Transport: "mock",
			Serial:    SerialConfig{Port: "/dev/ttyUSB0", BaudRate: 9600},
			Pins: PinConfig{
				EntrySensor: 17,
				ExitSensor:  27,
				EntryServo:  12,
				ExitServo:   13,
			},
		},
		Parking: ParkingConfig{
			DBPath:     "parking.db",
			TotalSlots: 15,
			RatePerMin: 1,
			GateHold:   "5s",
			ImagesDir:  "images",
			UPI:        UPIConfig{Payee: "ParkingLot"},
		},
		Gateway: GatewayConfig{
			Enabled:        true,
			Addr:           "127.0.0.1:5000",
			RequestsPerMin: 60,
			Burst:          10,
		},
		Report: ReportConfig{
			Enabled:  true,
			Schedule: "0 0 * * *",
		},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer: TracerConfig{Exporter: "noop"},
	}
}

// Load reads the config file at path, applies environment overrides,
// decrypts secrets, and validates. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if passphrase := os.Getenv("PARKD_CONFIG_KEY"); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets PARKD_* variables override the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PARKD_TRANSPORT"); v != "" {
		cfg.Controller.Transport = v
	}
	if v := os.Getenv("PARKD_SERIAL_PORT"); v != "" {
		cfg.Controller.Serial.Port = v
	}
	if v := os.Getenv("PARKD_DB_PATH"); v != "" {
		cfg.Parking.DBPath = v
	}
	if v := os.Getenv("PARKD_GATEWAY_ADDR"); v != "" {
		cfg.Gateway.Addr = v
	}
	if v := os.Getenv("PARKD_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("PARKD_TRACER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tracer.Enabled = b
		}
	}
}
