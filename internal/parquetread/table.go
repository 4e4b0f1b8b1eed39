package parquetread

import (
	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/table"
)

// columnOrder is the table column order of a converted service file.
var columnOrder = []string{
	model.FieldEpisode,
	model.FieldInvoiceNumber,
	model.FieldInvoiceDate,
	model.FieldHealthCenter,
	model.FieldInsurer,
	model.FieldEpisodeClass,
	model.FieldInvoiceStatus,
	model.FieldPatientAge,
	model.FieldDuration,
	model.FieldTotalAmount,
	model.FieldServiceName,
	model.FieldServiceType,
	model.FieldNetAmount,
	model.FieldNetAmountNum,
}

// Table converts service rows into a table keyed by the source field names.
// Null columns become missing cells.
func Table(rows []model.ServiceRow) *table.Table {
	maps := make([]map[string]table.Value, len(rows))
	for i := range rows {
		r := &rows[i]
		m := make(map[string]table.Value, len(columnOrder))
		for name, p := range r.TextColumns() {
			if *p != nil {
				m[name] = **p
			}
		}
		for name, p := range r.NumberColumns() {
			if *p != nil {
				m[name] = **p
			}
		}
		maps[i] = m
	}
	return table.FromRows(maps, columnOrder)
}
