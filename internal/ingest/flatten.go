package ingest

import (
	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/normalize"
	"github.com/gyeh/billingstats/internal/table"
)

// Columns copied from each invoice onto its services by FlattenInvoices,
// renamed to the lower-case form the web client expects.
const (
	InvoiceEpisode = "episodio"
	InvoiceNumber  = "nro_factura"
	InvoiceDate    = "fecha_factura"
	InvoiceCenter  = "centro_sanitario"
)

var invoiceColumns = []struct{ out, src string }{
	{InvoiceEpisode, model.FieldEpisode},
	{InvoiceNumber, model.FieldInvoiceNumber},
	{InvoiceDate, model.FieldInvoiceDate},
	{InvoiceCenter, model.FieldHealthCenter},
}

// Flatten produces one row per (record, service) pair. Every record field is
// copied onto each of its service rows and a service field overrides a
// record field of the same name. Records without services add no rows.
// When any service carries valoR_NETO, the coerced amount is added as
// valor_neto_num.
func Flatten(records []model.Record) *table.Table {
	order := newColumnOrder()
	for i := range records {
		for _, f := range records[i].Fields {
			order.add(f.Name)
		}
	}
	rows := make([]map[string]table.Value, 0, model.ServiceCount(records))
	for i := range records {
		rec := &records[i]
		for _, svc := range rec.Services {
			row := make(map[string]table.Value, len(rec.Fields)+len(svc.Fields)+1)
			for _, f := range rec.Fields {
				row[f.Name] = f.Value
			}
			for _, f := range svc.Fields {
				order.add(f.Name)
				row[f.Name] = f.Value
			}
			rows = append(rows, row)
		}
	}
	return withNetAmount(rows, order)
}

// FlattenInvoices is the invoice view of Flatten: only the episode, invoice
// number, invoice date and health center are copied from each record, under
// lower-case names, followed by the service fields.
func FlattenInvoices(records []model.Record) *table.Table {
	order := newColumnOrder()
	for _, c := range invoiceColumns {
		order.add(c.out)
	}
	rows := make([]map[string]table.Value, 0, model.ServiceCount(records))
	for i := range records {
		rec := &records[i]
		for _, svc := range rec.Services {
			row := make(map[string]table.Value, len(invoiceColumns)+len(svc.Fields)+1)
			for _, c := range invoiceColumns {
				v, _ := rec.Get(c.src)
				row[c.out] = v
			}
			for _, f := range svc.Fields {
				order.add(f.Name)
				row[f.Name] = f.Value
			}
			rows = append(rows, row)
		}
	}
	return withNetAmount(rows, order)
}

func withNetAmount(rows []map[string]table.Value, order *columnOrder) *table.Table {
	if order.has(model.FieldNetAmount) {
		order.add(model.FieldNetAmountNum)
		for _, row := range rows {
			row[model.FieldNetAmountNum] = normalize.AmountValue(row[model.FieldNetAmount])
		}
	}
	return table.FromRows(rows, order.names)
}

// EpisodeTable builds the un-flattened table: one row per record, services
// excluded. Known amount and number fields are coerced, with unparseable
// values becoming missing, and n_prestaciones holds each record's service
// count.
func EpisodeTable(records []model.Record) *table.Table {
	order := newColumnOrder()
	rows := make([]map[string]table.Value, len(records))
	for i := range records {
		rec := &records[i]
		row := make(map[string]table.Value, len(rec.Fields)+1)
		for _, f := range rec.Fields {
			order.add(f.Name)
			row[f.Name] = coerce(f.Name, f.Value)
		}
		row[model.FieldServiceCount] = float64(len(rec.Services))
		rows[i] = row
	}
	order.add(model.FieldServiceCount)
	return table.FromRows(rows, order.names)
}

// coerce applies the known field's numeric parser to v. Text and unknown
// fields pass through unchanged.
func coerce(name string, v table.Value) table.Value {
	kf, ok := model.FieldByName(name)
	if !ok {
		return v
	}
	switch kf.Kind {
	case model.KindAmount:
		return normalize.AmountValue(v)
	case model.KindNumber:
		return normalize.NumberValue(v)
	default:
		return v
	}
}

type columnOrder struct {
	names []string
	seen  map[string]bool
}

func newColumnOrder() *columnOrder {
	return &columnOrder{seen: make(map[string]bool)}
}

func (o *columnOrder) add(name string) {
	if !o.seen[name] {
		o.seen[name] = true
		o.names = append(o.names, name)
	}
}

func (o *columnOrder) has(name string) bool { return o.seen[name] }
