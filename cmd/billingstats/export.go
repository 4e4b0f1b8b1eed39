package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/gyeh/billingstats/internal/exitcode"
	"github.com/gyeh/billingstats/internal/export"
	"github.com/gyeh/billingstats/internal/logging"
)

var exportTable string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the episode or service table to CSV, XLSX or Parquet",
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to episode JSON file (.json or .json.gz)")
	f.StringVar(&cfg.OutPath, "out", "", "Output path (required)")
	f.StringVar(&cfg.Format, "format", cfg.Format, "Output format: csv, xlsx or parquet")
	f.StringVar(&exportTable, "table", "services", "Table to export: episodes or services")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cfg.ValidateExport(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	if exportTable != "episodes" && exportTable != "services" {
		log.Error().Str("table", exportTable).Msg("--table must be episodes or services")
		os.Exit(exitcode.UsageError)
	}
	if exportTable == "episodes" && cfg.Format == export.FormatParquet {
		log.Error().Msg("parquet export holds flattened services; use --table services")
		os.Exit(exitcode.UsageError)
	}

	ds := loadDataset(ctx, log)
	t := ds.Services
	if exportTable == "episodes" {
		t = ds.Episodes
	}

	n, err := export.ToFile(cfg.OutPath, cfg.Format, t)
	if err != nil {
		log.Error().Err(err).Msg("export failed")
		os.Exit(exitcode.ExportError)
	}
	log.Info().Str("out", cfg.OutPath).Str("format", cfg.Format).Int("rows", n).Msg("export complete")
	fmt.Printf("Exported %d %s rows to %s\n", n, exportTable, cfg.OutPath)

	exitRejected(log, ds)
	return nil
}
