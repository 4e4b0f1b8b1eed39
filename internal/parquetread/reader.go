// Package parquetread streams the service Parquet files written by export.
package parquetread

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/billingstats/internal/model"
)

// readBatch is the buffer size used by ReadAll.
const readBatch = 256

// Reader streams ServiceRow records from one file.
type Reader struct {
	file   *os.File
	pf     *parquet.File
	reader *parquet.GenericReader[model.ServiceRow]
}

// Open opens a service Parquet file and checks its schema before any row is
// read.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	if err := ValidateSchema(pf.Schema()); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Reader{
		file:   f,
		pf:     pf,
		reader: parquet.NewGenericReader[model.ServiceRow](pf),
	}, nil
}

// NumRows returns the total number of rows in the file.
func (r *Reader) NumRows() int64 {
	return r.pf.NumRows()
}

// RowGroups returns the number of row groups in the file.
func (r *Reader) RowGroups() int {
	return len(r.pf.RowGroups())
}

// Read reads up to len(rows) records and returns io.EOF when done.
func (r *Reader) Read(rows []model.ServiceRow) (int, error) {
	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("read parquet rows: %w", err)
	}
	return n, err
}

// ReadAll reads every remaining row, stopping after max rows when max > 0.
func (r *Reader) ReadAll(max int) ([]model.ServiceRow, error) {
	var out []model.ServiceRow
	buf := make([]model.ServiceRow, readBatch)
	for max <= 0 || len(out) < max {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, err
		}
		clear(buf)
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out, nil
}

// Schema returns the file schema.
func (r *Reader) Schema() *parquet.Schema {
	return r.pf.Schema()
}

// Close releases all resources.
func (r *Reader) Close() error {
	err := r.reader.Close()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}
