package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"parkd/internal/adapter/gateway"
	"parkd/internal/adapter/hardware"
	"parkd/internal/adapter/pipelink"
	"parkd/internal/adapter/serialport"
	"parkd/internal/adapter/store"
	"parkd/internal/domain"
	"parkd/internal/infra/config"
	"parkd/internal/infra/logger"
	"parkd/internal/infra/tracer"
	"parkd/internal/usecase/eventbus"
	"parkd/internal/usecase/gate"
	"parkd/internal/usecase/parking"
	"parkd/internal/usecase/report"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		return
	}

	switch os.Args[1] {
	case "doctor":
		if err := runDoctor(); err != nil {
			fmt.Fprintf(os.Stderr, "doctor: %v\n", err)
			os.Exit(1)
		}
	case "encrypt":
		if err := runEncrypt(); err != nil {
			fmt.Fprintf(os.Stderr, "encrypt: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'parkd --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`parkd - smart parking gate supervisor

USAGE:
    parkd [COMMAND] [FLAGS]

COMMANDS:
    doctor      Run health checks (config, database, serial port, GPIO)
    encrypt     Encrypt a config secret for use as an "enc:" value

    (no command) - Run the supervisor with existing config

FLAGS:
    -h, --help         Show this help message
    --config PATH      Config file path (default: ./config.yaml)

CONFIGURATION:
    Config file: ./config.yaml
    Environment: PARKD_* variables override config
    Secrets:     values starting with "enc:" are decrypted with PARKD_CONFIG_KEY

EXAMPLES:
    parkd                          # Run with config.yaml (or defaults)
    parkd --config /etc/parkd.yaml
    parkd doctor                   # Check config, DB, serial, GPIO
    PARKD_TRANSPORT=serial parkd   # Talk to an external gate controller`)
}

func configPath() string {
	for i := 1; i < len(os.Args); i++ {
		if os.Args[i] == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(os.Args[i], "--config=") {
			return strings.TrimPrefix(os.Args[i], "--config=")
		}
	}
	return "config.yaml"
}

func run() error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	bus := eventbus.New(log)
	defer bus.Close()

	db, err := store.NewSQLiteStore(cfg.Parking.DBPath)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	link, err := buildLink(ctx, g, cfg, log)
	if err != nil {
		return err
	}
	defer link.Close()

	svc := parking.New(db, link, bus, cfg.Parking, log)
	g.Go(func() error {
		if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("parking: %w", err)
		}
		return nil
	})

	if cfg.Report.Enabled {
		rep, err := report.New(db, bus, cfg.Report.Schedule, log)
		if err != nil {
			return err
		}
		rep.Start(ctx)
		defer rep.Stop()
	}

	if cfg.Gateway.Enabled {
		gw := gateway.NewServer(svc, bus, cfg.Gateway, cfg.Parking.ImagesDir, log)
		g.Go(func() error {
			if err := gw.Start(ctx); err != nil {
				return fmt.Errorf("gateway: %w", err)
			}
			return nil
		})
	}

	log.Info("parkd started",
		"transport", cfg.Controller.Transport,
		"db", cfg.Parking.DBPath,
		"slots", cfg.Parking.TotalSlots,
		"gateway", cfg.Gateway.Enabled)

	err = g.Wait()
	if err != nil {
		return err
	}
	log.Info("parkd stopped")
	return nil
}

// buildLink constructs the controller link for the configured transport.
// For "pipe" and "mock" an in-process gate controller runs on the other
// end; "serial" talks to an external board.
func buildLink(ctx context.Context, g *errgroup.Group, cfg *config.Config, log *slog.Logger) (domain.ControllerLink, error) {
	switch cfg.Controller.Transport {
	case "serial":
		link, err := serialport.Open(cfg.Controller.Serial, log)
		if err != nil {
			return nil, fmt.Errorf("serial: %w", err)
		}
		return link, nil

	case "pipe", "mock":
		var backend gate.Backend
		if cfg.Controller.Transport == "pipe" {
			backend = hardware.NewBackend(cfg.Controller.Pins, log)
		} else {
			backend = hardware.NewMockBackend()
		}
		ctrlEnd, supEnd := pipelink.New(log)
		ctrl := gate.NewController(backend, ctrlEnd, gate.SystemClock{}, log)
		g.Go(func() error {
			if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("controller: %w", err)
			}
			return nil
		})
		return supEnd, nil

	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Controller.Transport)
	}
}

// runEncrypt encrypts a secret for embedding in config.yaml.
func runEncrypt() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: parkd encrypt <value>")
	}
	key := os.Getenv("PARKD_CONFIG_KEY")
	if key == "" {
		return fmt.Errorf("PARKD_CONFIG_KEY must be set")
	}
	enc, err := config.EncryptValue(os.Args[2], key)
	if err != nil {
		return err
	}
	fmt.Println("enc:" + enc)
	return nil
}
