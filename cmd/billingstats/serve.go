package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gyeh/billingstats/internal/exitcode"
	"github.com/gyeh/billingstats/internal/logging"
	"github.com/gyeh/billingstats/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis endpoints over HTTP",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&cfg.Listen, "listen", cfg.Listen, "Listen address")
	f.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Per-request time limit (0 = none)")
	f.StringVar(&cfg.MaxBodyBytes, "max-body", cfg.MaxBodyBytes, "Maximum request body size, e.g. 64M")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.ValidateAnalysis(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	if err := server.New(&cfg, log).Run(ctx, cfg.Listen); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(exitcode.UsageError)
	}
	return nil
}
