package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.bug.st/serial"
	"periph.io/x/host/v3"

	"parkd/internal/adapter/serialport"
	"parkd/internal/adapter/store"
	"parkd/internal/infra/config"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

// runDoctor executes all health checks and reports results.
func runDoctor() error {
	cfgPath := configPath()
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Database", Fn: checkDatabase},
		{Name: "Serial port", Fn: checkSerialPort},
		{Name: "GPIO", Fn: checkGPIO},
		{Name: "Images directory", Fn: checkImagesDir},
	}

	fmt.Println("parkd doctor")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println()

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Printf("  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Printf("      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		fmt.Println("\nFix the FAIL issues above before running parkd.")
		return fmt.Errorf("%d check(s) failed", fail)
	}
	if warn > 0 {
		fmt.Println("\nparkd should work, but consider addressing the warnings.")
	} else {
		fmt.Println("\nAll checks passed! parkd is ready to run.")
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

// checkConfigFile returns a check that verifies the config file exists
// and parses correctly. A missing file is only a warning: parkd runs
// with built-in defaults.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config file at %s, using defaults", cfgPath),
				Fix:     "Create config.yaml to customize transport, slots, and gateway",
			}
		}
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     "Check config.yaml syntax and values",
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

// checkDatabase opens the parking log database and runs migrations.
func checkDatabase(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check: config not loaded"}
	}
	db, err := store.NewSQLiteStore(cfg.Parking.DBPath)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot open %s: %v", cfg.Parking.DBPath, err),
			Fix:     "Check the path is writable and not held by another process",
		}
	}
	db.Close()
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("database OK at %s", cfg.Parking.DBPath),
	}
}

// checkSerialPort verifies a usable port when the serial transport is
// configured; otherwise it just reports what is visible.
func checkSerialPort(cfg *config.Config) CheckResult {
	ports, err := serial.GetPortsList()
	if err != nil {
		return CheckResult{Status: StatusWarn, Message: fmt.Sprintf("cannot list serial ports: %v", err)}
	}

	serialTransport := cfg != nil && cfg.Controller.Transport == "serial"
	if len(ports) == 0 {
		if serialTransport {
			return CheckResult{
				Status:  StatusFail,
				Message: "transport is serial but no serial ports found",
				Fix:     "Plug in the gate controller board or switch transport to pipe/mock",
			}
		}
		return CheckResult{Status: StatusPass, Message: "no serial ports (not needed for this transport)"}
	}

	if serialTransport && cfg.Controller.Serial.AutoDetect {
		port, err := serialport.DetectPort()
		if err != nil {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("ports visible (%s) but auto-detect found no controller", strings.Join(ports, ", ")),
				Fix:     "Set controller.serial.port explicitly and disable auto_detect",
			}
		}
		return CheckResult{Status: StatusPass, Message: fmt.Sprintf("controller detected on %s", port)}
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("serial ports: %s", strings.Join(ports, ", "))}
}

// checkGPIO reports whether periph.io can initialize the host. Failure
// is a warning: the pipe transport falls back to the mock backend.
func checkGPIO(_ *config.Config) CheckResult {
	if _, err := host.Init(); err != nil {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("GPIO host init failed: %v (mock backend will be used)", err),
		}
	}
	return CheckResult{Status: StatusPass, Message: "GPIO host initialized"}
}

// checkImagesDir verifies the payment QR directory is writable.
func checkImagesDir(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check: config not loaded"}
	}
	dir := cfg.Parking.ImagesDir
	if dir == "" {
		return CheckResult{Status: StatusPass, Message: "images directory disabled"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot create %s: %v", dir, err),
		}
	}
	probe := filepath.Join(dir, ".doctor")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s is not writable: %v", dir, err),
		}
	}
	os.Remove(probe)
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("images directory OK at %s", dir)}
}
