package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/csvtools/internal/cli"
	"github.com/JonMunkholm/csvtools/internal/config"
	"github.com/JonMunkholm/csvtools/internal/logging"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	envErr := godotenv.Overload()

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid configuration: %v\n", err)
		os.Exit(cli.ExitFailure)
	}

	// Logs go to stderr; stdout carries command output
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if envErr != nil {
		logger.Debug("no .env file found, using environment variables")
	} else {
		logger.Debug("loaded .env file (overwriting existing env vars)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, runID := logging.NewRun(ctx)

	env := cli.NewEnv(cfg, os.Stdout, os.Stderr, logger.With("run_id", runID.String()), runID)
	code := cli.Run(ctx, env, os.Args[1:])
	stop()
	os.Exit(code)
}
