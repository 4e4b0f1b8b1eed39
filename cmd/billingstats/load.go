package main

import (
	"context"
	"errors"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/billingstats/internal/db"
	"github.com/gyeh/billingstats/internal/exitcode"
	"github.com/gyeh/billingstats/internal/ingest"
	"github.com/gyeh/billingstats/internal/model"
)

// loadDataset reads episodes from --file or from the --dsn query and
// flattens them. Failures are logged and exit the process.
func loadDataset(ctx context.Context, log zerolog.Logger) *ingest.Dataset {
	if cfg.FilePath != "" {
		ds, err := ingest.Run(ctx, log, cfg.FilePath, cfg.MaxRows)
		if err != nil {
			exitLoad(log, err)
		}
		return ds
	}

	pool, err := db.NewPool(ctx, cfg.DSN, 0)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	records, rejected, err := db.LoadEpisodes(ctx, pool, log, cfg.Query, cfg.MaxRows)
	if err != nil {
		exitLoad(log, err)
	}
	summary := &model.RunSummary{
		RunID:  uuid.NewString(),
		Source: "postgres",
	}
	ds, err := ingest.Build(ctx, log, records, rejected, summary)
	if err != nil {
		exitLoad(log, err)
	}
	return ds
}

func exitLoad(log zerolog.Logger, err error) {
	ev := log.Error().Err(err)
	var pe *ingest.PipelineError
	if errors.As(err, &pe) {
		ev = ev.Str("phase", pe.Phase)
	}
	ev.Msg("load failed")
	if errors.Is(err, ingest.ErrTooManyRecords) {
		os.Exit(exitcode.UsageError)
	}
	os.Exit(exitcode.ValidationError)
}

// exitRejected ends a run that skipped records with PartialSuccess.
func exitRejected(log zerolog.Logger, ds *ingest.Dataset) {
	if len(ds.Rejected) == 0 {
		return
	}
	log.Warn().Int("rejected", len(ds.Rejected)).Msg("some records were rejected")
	os.Exit(exitcode.PartialSuccess)
}
