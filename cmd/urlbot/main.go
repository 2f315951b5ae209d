package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/enzyme/urlbot/internal/app"
	"github.com/enzyme/urlbot/internal/config"
	"github.com/enzyme/urlbot/internal/logging"
	"github.com/enzyme/urlbot/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "get":
			os.Exit(runGet(os.Args[2:]))
		case "console":
			os.Exit(runConsole(os.Args[2:]))
		}
	}

	cfg, shutdownTelemetry := setup(os.Args[1:])
	defer flushTelemetry(shutdownTelemetry)

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("error creating application", "error", err)
		flushTelemetry(shutdownTelemetry)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- application.Start(ctx) }()

	failed := false
	select {
	case <-ctx.Done():
		slog.Info("received shutdown signal")
	case err := <-errc:
		if err != nil {
			slog.Error("relay error", "error", err)
			failed = true
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "error", err)
	}

	slog.Info("urlbot stopped")
	if failed {
		flushTelemetry(shutdownTelemetry)
		os.Exit(1)
	}
}

// setup parses flags, loads configuration and configures telemetry and
// logging. It exits the process on error.
func setup(args []string) (*config.Config, telemetry.ShutdownFunc) {
	cfg, _ := loadConfig(args)
	return cfg, setupObservability(cfg)
}

func loadConfig(args []string) (*config.Config, *pflag.FlagSet) {
	flags := config.SetupFlags()
	if err := flags.Parse(args); err != nil {
		slog.Error("error parsing flags", "error", err)
		os.Exit(2)
	}

	configPath, _ := flags.GetString("config")

	cfg, err := config.Load(configPath, flags)
	if err != nil {
		slog.Error("error loading config", "error", err)
		os.Exit(1)
	}
	return cfg, flags
}

func setupObservability(cfg *config.Config) telemetry.ShutdownFunc {
	providers, err := telemetry.Setup(context.Background(), cfg.Telemetry)
	if err != nil {
		slog.Error("error setting up telemetry", "error", err)
		os.Exit(1)
	}

	if providers.LogHandler != nil {
		logging.Setup(cfg.Log, providers.LogHandler)
	} else {
		logging.Setup(cfg.Log)
	}
	return providers.Shutdown
}

func flushTelemetry(shutdown telemetry.ShutdownFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err)
	}
}
