package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/gyeh/billingstats/internal/analysis"
	"github.com/gyeh/billingstats/internal/exitcode"
	"github.com/gyeh/billingstats/internal/logging"
)

var jsonOutput bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full episode report",
	RunE:  runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to episode JSON file (.json or .json.gz)")
	f.BoolVar(&jsonOutput, "json", false, "Print the report as JSON instead of text")
	f.StringVar(&cfg.ImputeStrategy, "impute", cfg.ImputeStrategy, "Imputation strategy: mean, median or mode")
	f.Float64Var(&cfg.ConfidenceLevel, "confidence", cfg.ConfidenceLevel, "Confidence level of the mean interval")
	f.Float64Var(&cfg.OutlierThreshold, "iqr-factor", cfg.OutlierThreshold, "IQR fence factor for outlier trimming")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	ds := loadDataset(ctx, log)

	report, err := analysis.Build(ctx, log, ds, &cfg)
	if err != nil {
		log.Error().Err(err).Msg("analysis failed")
		os.Exit(exitcode.AnalysisError)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Error().Err(err).Msg("write report failed")
			os.Exit(exitcode.AnalysisError)
		}
	} else {
		report.WriteText(os.Stdout)
	}

	exitRejected(log, ds)
	return nil
}
