package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fare-pipeline/internal/infrastructure/config"
	"fare-pipeline/pkg/logger"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "farepipe",
		Short:        "Competitor fare extraction and scrape scheduling",
		SilenceUsage: true,
	}

	root.AddCommand(
		newExtractCommand(),
		newScheduleCommand(),
		newServeCommand(),
	)
	return root
}

// bootstrap loads configuration and builds the process logger
func bootstrap(needsServers bool) (*config.Config, *logger.ZapLogger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewLogger(cfg.LogLevel)
	if err := cfg.Validate(needsServers); err != nil {
		log.Error("Invalid configuration", "error", err)
		return nil, nil, err
	}
	return cfg, log, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
