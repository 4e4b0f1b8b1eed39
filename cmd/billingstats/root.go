package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gyeh/billingstats/internal/config"
	"github.com/gyeh/billingstats/internal/exitcode"
	"github.com/gyeh/billingstats/internal/logging"
)

var (
	cfg        = config.Defaults()
	configPath string
)

var rootCmd = &cobra.Command{
	Use:               "billingstats",
	Short:             "Medical billing episode statistics",
	Long:              "Loads billing episodes (JSON file or Postgres query) and runs descriptive, correlation and inference analyses over them.",
	PersistentPreRunE: loadConfigFile,
	SilenceUsage:      true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML file with analysis settings")
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("BILLINGSTATS_DB_URL"), "Postgres connection string (or set BILLINGSTATS_DB_URL)")
	pf.StringVar(&cfg.Query, "query", "", "SQL returning one JSON/JSONB episode document per row (with --dsn)")
	pf.IntVar(&cfg.MaxRows, "max-rows", cfg.MaxRows, "Maximum episodes per run or request (0 = unlimited)")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
}

// loadConfigFile merges --config into cfg. Flags set on the command line win
// over the file: their values are saved before the file is loaded and set
// again afterwards.
func loadConfigFile(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return nil
	}
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)

	changed := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	if err := cfg.LoadFromFile(configPath); err != nil {
		log.Error().Err(err).Str("config", configPath).Msg("config load failed")
		os.Exit(exitcode.UsageError)
	}

	for name, v := range changed {
		if err := cmd.Flags().Set(name, v); err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
	}
	return nil
}
