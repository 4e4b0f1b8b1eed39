// Package db reads episode documents from Postgres.
package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/gyeh/billingstats/internal/ingest"
	"github.com/gyeh/billingstats/internal/model"
)

var errRowCap = errors.New("row cap reached")

// Querier is the subset of pgxpool.Pool used by LoadEpisodes.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LoadEpisodes runs query, which must return a single json, jsonb or text
// column holding one episode document per row, and decodes the documents in
// row order. A NULL document is rejected like any other non-object entry.
// maxRows caps the number of accepted records; 0 disables the cap.
func LoadEpisodes(ctx context.Context, q Querier, log zerolog.Logger, query string, maxRows int) ([]model.Record, []ingest.RecordError, error) {
	start := time.Now()

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query episodes: %w", err)
	}
	if n := len(rows.FieldDescriptions()); n != 1 {
		rows.Close()
		return nil, nil, fmt.Errorf("episode query must return 1 column, got %d", n)
	}
	// One row past the cap is enough for DecodeRecords to report
	// ErrTooManyRecords, so scanning stops there.
	var (
		docs [][]byte
		doc  []byte
	)
	_, err = pgx.ForEachRow(rows, []any{&doc}, func() error {
		docs = append(docs, doc)
		doc = nil
		if maxRows > 0 && len(docs) > maxRows {
			return errRowCap
		}
		return nil
	})
	if err != nil && !errors.Is(err, errRowCap) {
		return nil, nil, fmt.Errorf("scan episodes: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, d := range docs {
		if i > 0 {
			buf.WriteByte(',')
		}
		if d == nil {
			buf.WriteString("null")
			continue
		}
		buf.Write(d)
	}
	buf.WriteByte(']')

	records, rejected, err := ingest.DecodeRecords(buf.Bytes(), maxRows)
	if err != nil {
		return nil, nil, fmt.Errorf("decode episodes: %w", err)
	}

	log.Info().
		Int("rows", len(docs)).
		Int("accepted", len(records)).
		Int("rejected", len(rejected)).
		Dur("duration", time.Since(start)).
		Msg("episode query complete")
	return records, rejected, nil
}
