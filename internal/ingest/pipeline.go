package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/table"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Dataset is the materialized input of one analysis run.
type Dataset struct {
	Records  []model.Record
	Episodes *table.Table // one row per record
	Services *table.Table // one row per service
	Rejected []RecordError
	Summary  *model.RunSummary
}

// Run executes the file pipeline: preflight → decode → flatten.
// maxRows caps the number of records; 0 disables the cap.
func Run(ctx context.Context, log zerolog.Logger, filePath string, maxRows int) (*Dataset, error) {
	totalStart := time.Now()

	// Phase 1: Preflight
	log.Info().Str("file", filePath).Msg("starting preflight")
	pf, err := Preflight(log, filePath)
	if err != nil {
		return nil, &PipelineError{Phase: "preflight", Err: err}
	}

	// Phase 2: Decode
	log.Info().Msg("starting decode")
	decodeStart := time.Now()
	rc, err := Open(filePath)
	if err != nil {
		return nil, &PipelineError{Phase: "decode", Err: err}
	}
	records, rejected, err := Decode(rc, maxRows)
	rc.Close()
	if err != nil {
		return nil, &PipelineError{Phase: "decode", Err: err}
	}
	for _, re := range rejected {
		log.Warn().Int("record", re.Index).Str("reason", re.Reason).Msg("record rejected")
	}
	if err := ctx.Err(); err != nil {
		return nil, &PipelineError{Phase: "decode", Err: err}
	}
	decodeDur := time.Since(decodeStart)

	summary := &model.RunSummary{
		RunID:          pf.RunID.String(),
		Source:         pf.FilePath,
		SourceSHA256:   pf.FileSHA256,
		DurationDecode: decodeDur,
	}
	ds, err := Build(ctx, log, records, rejected, summary)
	if err != nil {
		return nil, err
	}
	ds.Summary.DurationTotal = time.Since(totalStart)

	log.Info().
		Int64("records_read", summary.RecordsRead).
		Int64("records_accepted", summary.RecordsAccepted).
		Int64("records_rejected", summary.RecordsRejected).
		Int64("service_rows", summary.ServiceRows).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("ingest pipeline complete")

	return ds, nil
}

// Build runs the flatten phase over already decoded records. A nil summary
// starts a fresh one with a new run id.
func Build(ctx context.Context, log zerolog.Logger, records []model.Record, rejected []RecordError, summary *model.RunSummary) (*Dataset, error) {
	if summary == nil {
		summary = &model.RunSummary{RunID: uuid.NewString()}
	}
	if err := ctx.Err(); err != nil {
		return nil, &PipelineError{Phase: "flatten", Err: err}
	}

	start := time.Now()
	episodes := EpisodeTable(records)
	services := Flatten(records)

	var noService int64
	for i := range records {
		if len(records[i].Services) == 0 {
			noService++
		}
	}
	summary.RecordsRead = int64(len(records) + len(rejected))
	summary.RecordsAccepted = int64(len(records))
	summary.RecordsRejected = int64(len(rejected))
	summary.RecordsNoService = noService
	summary.ServiceRows = int64(services.Len())
	summary.DurationFlatten = time.Since(start)

	log.Info().
		Int("episodes", episodes.Len()).
		Int("services", services.Len()).
		Int64("records_without_services", noService).
		Dur("duration", summary.DurationFlatten).
		Msg("flatten complete")

	return &Dataset{
		Records:  records,
		Episodes: episodes,
		Services: services,
		Rejected: rejected,
		Summary:  summary,
	}, nil
}
