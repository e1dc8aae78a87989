// Package main runs the pubspy HTTP API with configuration from the
// environment and config/pubspy.yaml. It is the container entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pubspy/internal/app"
	"pubspy/internal/config"
	"pubspy/pkg/log"
)

func main() {
	if err := serve(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve() error {
	configPath := os.Getenv("PUBSPY_CONFIG")
	if configPath == "" {
		configPath = config.DefaultPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := app.SetupLogging(cfg.Log.Level, cfg.Log.Format)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, configPath)
	if err != nil {
		log.GlobalError("failed to initialize", "error", err)
		return err
	}
	defer a.Close()

	return a.Serve(ctx)
}
