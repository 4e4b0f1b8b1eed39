package ingest

import (
	"reflect"
	"testing"

	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/table"
)

func rec(fields []model.Field, services ...[]model.Field) model.Record {
	r := model.Record{Fields: fields}
	for _, s := range services {
		r.Services = append(r.Services, model.Service{Fields: s})
	}
	return r
}

func f(name string, v any) model.Field { return model.Field{Name: name, Value: v} }

func sampleRecords() []model.Record {
	return []model.Record{
		rec([]model.Field{f("episodio", "E1"), f("aseguradora", "SURA"), f("tipO_PRESTACION", "episode-level")},
			[]model.Field{f("noM_PRESTACION", "A"), f("tipO_PRESTACION", "Examen"), f("valoR_NETO", "1,500")},
			[]model.Field{f("noM_PRESTACION", "B"), f("valoR_NETO", 200.0)},
		),
		rec([]model.Field{f("episodio", "E2"), f("aseguradora", "SANITAS")}),
		rec([]model.Field{f("episodio", "E3"), f("montO_TOTAL", "90000")},
			[]model.Field{f("noM_PRESTACION", "C"), f("valoR_NETO", "n/a")},
		),
	}
}

func TestFlatten_RowCountMatchesServices(t *testing.T) {
	recs := sampleRecords()
	tb := Flatten(recs)
	if got, want := tb.Len(), model.ServiceCount(recs); got != want {
		t.Fatalf("rows: got %d, want %d", got, want)
	}
	ep, _ := tb.Column("episodio")
	if !reflect.DeepEqual(ep, []table.Value{"E1", "E1", "E3"}) {
		t.Errorf("episodio: got %v", ep)
	}
}

func TestFlatten_ServiceFieldWins(t *testing.T) {
	tb := Flatten(sampleRecords())
	typ, _ := tb.Column("tipO_PRESTACION")
	if typ[0] != "Examen" {
		t.Errorf("row 0 tipO_PRESTACION: got %v, want Examen", typ[0])
	}
	if typ[1] != "episode-level" {
		t.Errorf("row 1 tipO_PRESTACION: got %v, want episode-level", typ[1])
	}
}

func TestFlatten_NetAmountCoercion(t *testing.T) {
	tb := Flatten(sampleRecords())
	got, _ := tb.Column(model.FieldNetAmountNum)
	want := []table.Value{1500.0, 200.0, nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("valor_neto_num: got %v, want %v", got, want)
	}
	raw, _ := tb.Column(model.FieldNetAmount)
	if raw[0] != "1,500" {
		t.Errorf("raw valoR_NETO: got %v, want 1,500", raw[0])
	}
	cols := tb.Columns()
	if cols[len(cols)-1] != model.FieldNetAmountNum {
		t.Errorf("last column: got %s, want %s", cols[len(cols)-1], model.FieldNetAmountNum)
	}
}

func TestFlatten_NoServices(t *testing.T) {
	tb := Flatten([]model.Record{rec([]model.Field{f("episodio", "E1")})})
	if tb.Len() != 0 {
		t.Errorf("rows: got %d, want 0", tb.Len())
	}
	if tb.Has(model.FieldNetAmountNum) {
		t.Error("valor_neto_num added without valoR_NETO")
	}
}

func TestFlattenInvoices(t *testing.T) {
	recs := []model.Record{
		rec([]model.Field{f(model.FieldEpisode, "E1"), f(model.FieldInvoiceNumber, "F1"), f(model.FieldInsurer, "SURA")},
			[]model.Field{f(model.FieldServiceName, "A"), f(model.FieldNetAmount, 10.0)},
		),
	}
	tb := FlattenInvoices(recs)
	want := []string{InvoiceEpisode, InvoiceNumber, InvoiceDate, InvoiceCenter, model.FieldServiceName, model.FieldNetAmount, model.FieldNetAmountNum}
	if got := tb.Columns(); !reflect.DeepEqual(got, want) {
		t.Errorf("columns: got %v, want %v", got, want)
	}
	row := tb.Row(0)
	if row[InvoiceNumber] != "F1" || row[InvoiceDate] != nil {
		t.Errorf("row: got %v", row)
	}
}

func TestEpisodeTable(t *testing.T) {
	tb := EpisodeTable(sampleRecords())
	if tb.Len() != 3 {
		t.Fatalf("rows: got %d, want 3", tb.Len())
	}
	n, _ := tb.Column(model.FieldServiceCount)
	if !reflect.DeepEqual(n, []table.Value{2.0, 0.0, 1.0}) {
		t.Errorf("n_prestaciones: got %v", n)
	}
	total, _ := tb.Column(model.FieldTotalAmount)
	if total[2] != 90000.0 {
		t.Errorf("montO_TOTAL coerced: got %#v, want 90000.0", total[2])
	}
	if tb.Kind(model.FieldTotalAmount) != table.Numeric {
		t.Errorf("montO_TOTAL kind: got %v, want numeric", tb.Kind(model.FieldTotalAmount))
	}
	if tb.Has(model.FieldServices) {
		t.Error("prestaciones must not be a column")
	}
}

func TestEpisodeTable_MixedNumberColumn(t *testing.T) {
	tb := EpisodeTable([]model.Record{
		rec([]model.Field{f("edaD_PACIENTE", 30.0), f("duracioN_MINUTOS", "120")}),
		rec([]model.Field{f("edaD_PACIENTE", "45"), f("duracioN_MINUTOS", 60.0)}),
		rec([]model.Field{f("edaD_PACIENTE", 50.0), f("duracioN_MINUTOS", "sin dato")}),
		rec([]model.Field{f("edaD_PACIENTE", " 55 "), f("noM_PACIENTE", "123")}),
	})
	age, _ := tb.Column(model.FieldPatientAge)
	if !reflect.DeepEqual(age, []table.Value{30.0, 45.0, 50.0, 55.0}) {
		t.Errorf("edaD_PACIENTE: got %#v", age)
	}
	if tb.Kind(model.FieldPatientAge) != table.Numeric {
		t.Errorf("edaD_PACIENTE kind: got %v, want numeric", tb.Kind(model.FieldPatientAge))
	}
	dur, _ := tb.Column(model.FieldDuration)
	if !reflect.DeepEqual(dur, []table.Value{120.0, 60.0, nil, nil}) {
		t.Errorf("duracioN_MINUTOS: got %#v", dur)
	}
	name, _ := tb.Column(model.FieldPatientName)
	if name[3] != "123" {
		t.Errorf("noM_PACIENTE: got %#v, want text kept", name[3])
	}
}
