// Package export writes tables to CSV, XLSX and Parquet files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"

	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/normalize"
	"github.com/gyeh/billingstats/internal/table"
)

// SheetName is the worksheet WriteXLSX writes to.
const SheetName = "Datos"

// Supported formats.
const (
	FormatCSV     = "csv"
	FormatXLSX    = "xlsx"
	FormatParquet = "parquet"
)

// parquetBatch is the number of rows buffered per parquet Write call.
const parquetBatch = 1024

var writers = map[string]func(io.Writer, *table.Table) (int, error){
	FormatCSV:     WriteCSV,
	FormatXLSX:    WriteXLSX,
	FormatParquet: WriteParquet,
}

// ToFile writes t to path in the given format and returns the number of data
// rows written.
func ToFile(path, format string, t *table.Table) (int, error) {
	write, ok := writers[format]
	if !ok {
		return 0, fmt.Errorf("unknown export format %q", format)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := write(f, t)
	if err != nil {
		f.Close()
		return n, err
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", path, err)
	}
	return n, nil
}

// WriteCSV writes a header of column names followed by one line per row.
// Missing cells are empty.
func WriteCSV(w io.Writer, t *table.Table) (int, error) {
	cw := csv.NewWriter(w)
	cols := t.Columns()
	if err := cw.Write(cols); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	data := columns(t, cols)
	record := make([]string, len(cols))
	for i := 0; i < t.Len(); i++ {
		for j := range cols {
			record[j] = table.Format(data[j][i])
		}
		if err := cw.Write(record); err != nil {
			return i, fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return t.Len(), fmt.Errorf("flush csv: %w", err)
	}
	return t.Len(), nil
}

// WriteXLSX writes t to a workbook with a single SheetName worksheet.
// Numbers stay numeric; missing cells are left blank.
func WriteXLSX(w io.Writer, t *table.Table) (int, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return 0, fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return 0, fmt.Errorf("open sheet writer: %w", err)
	}

	cols := t.Columns()
	header := make([]interface{}, len(cols))
	for j, c := range cols {
		header[j] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, fmt.Errorf("write xlsx header: %w", err)
	}
	data := columns(t, cols)
	for i := 0; i < t.Len(); i++ {
		row := make([]interface{}, len(cols))
		for j := range cols {
			row[j] = data[j][i]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return i, err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return i, fmt.Errorf("write xlsx row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return t.Len(), fmt.Errorf("flush xlsx: %w", err)
	}
	if err := f.Write(w); err != nil {
		return t.Len(), fmt.Errorf("write xlsx: %w", err)
	}
	return t.Len(), nil
}

// WriteParquet writes a flattened service table as model.ServiceRow records.
// Columns the schema does not know are dropped. Amount-like columns are
// coerced with normalize.Amount and invoice dates are rewritten as
// YYYY-MM-DD when they parse.
func WriteParquet(w io.Writer, t *table.Table) (int, error) {
	pw := parquet.NewGenericWriter[model.ServiceRow](w)
	batch := make([]model.ServiceRow, 0, parquetBatch)
	written := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := pw.Write(batch)
		written += n
		batch = batch[:0]
		return err
	}

	for i := 0; i < t.Len(); i++ {
		batch = append(batch, serviceRow(t, i))
		if len(batch) == parquetBatch {
			if err := flush(); err != nil {
				return written, fmt.Errorf("write parquet rows: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return written, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return written, fmt.Errorf("close parquet writer: %w", err)
	}
	return written, nil
}

func serviceRow(t *table.Table, i int) model.ServiceRow {
	var r model.ServiceRow
	for name, dst := range r.TextColumns() {
		if c, ok := t.Column(name); ok && c[i] != nil {
			s := table.Format(c[i])
			if name == model.FieldInvoiceDate {
				if d := normalize.ParseDate(s); d != nil {
					s = d.Format("2006-01-02")
				}
			}
			*dst = &s
		}
	}
	for name, dst := range r.NumberColumns() {
		if c, ok := t.Column(name); ok {
			*dst = normalize.Amount(c[i])
		}
	}
	return r
}

func columns(t *table.Table, names []string) [][]table.Value {
	out := make([][]table.Value, len(names))
	for j, name := range names {
		out[j], _ = t.Column(name)
	}
	return out
}
