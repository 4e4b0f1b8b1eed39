package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/billingstats/internal/exitcode"
	"github.com/gyeh/billingstats/internal/ingest"
	"github.com/gyeh/billingstats/internal/logging"
	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/normalize"
	"github.com/gyeh/billingstats/internal/parquetread"
	"github.com/gyeh/billingstats/internal/stats"
)

// planSample is the number of Parquet rows inspected by plan.
const planSample = 1000

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run validation and input stats (no analysis)",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&cfg.FilePath, "file", "", "Episode JSON file or exported service Parquet file (required)")
	_ = planCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)

	if _, err := os.Stat(cfg.FilePath); err != nil {
		log.Error().Err(err).Msg("file not accessible")
		os.Exit(exitcode.UsageError)
	}
	if strings.HasSuffix(strings.ToLower(cfg.FilePath), ".parquet") {
		planParquet(log)
		return nil
	}

	ds, err := ingest.Run(context.Background(), log, cfg.FilePath, 0)
	if err != nil {
		exitLoad(log, err)
	}
	sum := ds.Summary

	fmt.Println("=== billingstats plan ===")
	fmt.Printf("File:          %s\n", cfg.FilePath)
	fmt.Printf("SHA-256:       %s\n", sum.SourceSHA256)
	fmt.Printf("Records:       %d read, %d accepted, %d rejected\n", sum.RecordsRead, sum.RecordsAccepted, sum.RecordsRejected)
	fmt.Printf("Services:      %d rows (%d episodes without services)\n", sum.ServiceRows, sum.RecordsNoService)
	if cfg.MaxRows > 0 && sum.RecordsRead > int64(cfg.MaxRows) {
		fmt.Printf("Warning:       %d records exceed --max-rows %d; analyze will refuse this file\n", sum.RecordsRead, cfg.MaxRows)
	}
	for _, re := range ds.Rejected {
		fmt.Printf("  rejected #%d: %s\n", re.Index, re.Reason)
	}

	fmt.Println()
	fmt.Println("Known fields:")
	for _, f := range model.EpisodeFields {
		kind := ds.Episodes.Kind(f.Name)
		missing := 0
		if c, ok := ds.Episodes.Column(f.Name); ok {
			for _, v := range c {
				if v == nil {
					missing++
				}
			}
		}
		fmt.Printf("  %-20s %-20s %-12s %d missing\n", f.Name, f.Label, kind, missing)
	}
	fmt.Println("Schema validation: OK")
	return nil
}

func planParquet(log zerolog.Logger) {
	sha, size, err := normalize.FileHash(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash file")
		os.Exit(exitcode.ValidationError)
	}

	reader, err := parquetread.Open(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to open or validate parquet file")
		os.Exit(exitcode.ValidationError)
	}
	defer reader.Close()

	rows, err := reader.ReadAll(planSample)
	if err != nil {
		log.Error().Err(err).Msg("failed to read sample rows")
		os.Exit(exitcode.ValidationError)
	}
	t := parquetread.Table(rows)
	amounts := t.NonMissing(model.FieldNetAmountNum)

	fmt.Println("=== billingstats plan ===")
	fmt.Printf("File:       %s\n", cfg.FilePath)
	fmt.Printf("SHA-256:    %s\n", sha)
	fmt.Printf("Size:       %d bytes\n", size)
	fmt.Printf("Total rows: %d in %d row groups\n", reader.NumRows(), reader.RowGroups())
	fmt.Printf("Sampled:    %d rows, %d with a net amount\n", t.Len(), len(amounts))
	if len(amounts) > 0 {
		fmt.Printf("Net amount: mean %.2f, median %.2f\n", stats.Mean(amounts), stats.Median(amounts))
	}
	fmt.Println()
	fmt.Println("Service types (sampled):")
	for _, f := range stats.Frequencies(t, model.FieldServiceType, nil) {
		fmt.Printf("  %-30v %6d\n", f.Value, f.Count)
	}
	fmt.Println("Schema validation: OK")
}
