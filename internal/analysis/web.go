// Package analysis assembles the engines into the payloads served over HTTP
// and the sectioned report printed by the CLI.
package analysis

import (
	"encoding/json"
	"math"

	"github.com/gyeh/billingstats/internal/filter"
	"github.com/gyeh/billingstats/internal/ingest"
	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/normalize"
	"github.com/gyeh/billingstats/internal/stats"
	"github.com/gyeh/billingstats/internal/table"
)

// topServices is how many services the invoice analysis lists by amount.
const topServices = 10

// AmountStats summarizes the net amounts of an invoice table. CV is null when
// the mean is zero.
type AmountStats struct {
	Mean   model.Float  `json:"mean"`
	Median model.Float  `json:"median"`
	Std    model.Float  `json:"std"`
	Min    model.Float  `json:"min"`
	Max    model.Float  `json:"max"`
	Q1     model.Float  `json:"q1"`
	Q3     model.Float  `json:"q3"`
	CV     *model.Float `json:"cv"`
}

// InvoiceAnalysis is the "facturas" section of the web payload.
type InvoiceAnalysis struct {
	Exists            bool                     `json:"exists"`
	Total             int                      `json:"total"`
	TotalPrestaciones int                      `json:"totalPrestaciones"`
	MontoTotal        float64                  `json:"montoTotal"`
	MontoPromedio     model.Float              `json:"montoPromedio"`
	Estadisticas      *AmountStats             `json:"estadisticas"`
	PorTipo           map[string]int           `json:"prestacionesPorTipo"`
	TopPrestaciones   []map[string]table.Value `json:"topPrestaciones"`
	Montos            []float64                `json:"montos"`
}

// MarshalJSON reduces a missing section to {"exists": false}.
func (a InvoiceAnalysis) MarshalJSON() ([]byte, error) {
	if !a.Exists {
		return []byte(`{"exists":false}`), nil
	}
	type plain InvoiceAnalysis
	return json.Marshal(plain(a))
}

// Invoices analyzes a table built by ingest.FlattenInvoices. A table without
// rows or without valor_neto_num yields Exists == false.
func Invoices(services *table.Table) InvoiceAnalysis {
	if services.Len() == 0 || !services.Has(model.FieldNetAmountNum) {
		return InvoiceAnalysis{Exists: false}
	}
	montos := services.NonMissing(model.FieldNetAmountNum)
	a := InvoiceAnalysis{
		Exists:            true,
		Total:             services.Len(),
		TotalPrestaciones: services.Len(),
		PorTipo:           counts(services, model.FieldServiceType),
		Montos:            montos,
		Estadisticas:      amountStats(montos),
		MontoPromedio:     model.Float(stats.Mean(montos)),
	}
	for _, m := range montos {
		a.MontoTotal += m
	}
	top, _ := filter.TopN(services, model.FieldNetAmountNum, topServices, false)
	a.TopPrestaciones = project(top, []string{model.FieldServiceName, model.FieldServiceType, model.FieldNetAmount}, topServices)
	return a
}

func amountStats(vals []float64) *AmountStats {
	s := stats.Sorted(vals)
	nan := model.Float(math.NaN())
	out := &AmountStats{Mean: nan, Median: nan, Std: nan, Min: nan, Max: nan, Q1: nan, Q3: nan}
	if len(s) == 0 {
		return out
	}
	mean, std := stats.Mean(s), stats.Std(s)
	out.Mean = model.Float(mean)
	out.Median = model.Float(stats.Quantile(s, 0.5))
	out.Std = model.Float(std)
	out.Min = model.Float(s[0])
	out.Max = model.Float(s[len(s)-1])
	out.Q1 = model.Float(stats.Quantile(s, 0.25))
	out.Q3 = model.Float(stats.Quantile(s, 0.75))
	if mean != 0 {
		cv := model.Float(std / mean * 100)
		out.CV = &cv
	}
	return out
}

// AdmissionAnalysis is the "admisiones" section of the web payload.
type AdmissionAnalysis struct {
	Exists         bool           `json:"exists"`
	Total          int            `json:"total"`
	PorAseguradora map[string]int `json:"porAseguradora"`
	PorClase       map[string]int `json:"porClase"`
	PorEstado      map[string]int `json:"porEstado"`
}

// MarshalJSON reduces a missing section to {"exists": false}.
func (a AdmissionAnalysis) MarshalJSON() ([]byte, error) {
	if !a.Exists {
		return []byte(`{"exists":false}`), nil
	}
	type plain AdmissionAnalysis
	return json.Marshal(plain(a))
}

// Admissions counts episodes by insurer, episode class and invoice status.
// Absent columns produce empty counts.
func Admissions(episodes *table.Table) AdmissionAnalysis {
	if episodes.Len() == 0 {
		return AdmissionAnalysis{Exists: false}
	}
	return AdmissionAnalysis{
		Exists:         true,
		Total:          episodes.Len(),
		PorAseguradora: counts(episodes, model.FieldInsurer),
		PorClase:       counts(episodes, model.FieldEpisodeClass),
		PorEstado:      counts(episodes, model.FieldInvoiceStatus),
	}
}

// Overview is the combined headline of the web payload.
type Overview struct {
	TotalEpisodios    int     `json:"totalEpisodios"`
	TotalFacturas     int     `json:"totalFacturas"`
	TotalPrestaciones int     `json:"totalPrestaciones"`
	MontoTotal        float64 `json:"montoTotal"`
}

// OverviewOf combines the admission and invoice sections. invoices is the
// number of invoice documents received.
func OverviewOf(adm AdmissionAnalysis, inv InvoiceAnalysis, invoices int) Overview {
	return Overview{
		TotalEpisodios:    adm.Total,
		TotalFacturas:     invoices,
		TotalPrestaciones: inv.TotalPrestaciones,
		MontoTotal:        inv.MontoTotal,
	}
}

// Dashboard is the full response of the episode dashboard endpoint.
type Dashboard struct {
	Success    bool              `json:"success"`
	Overview   Overview          `json:"overview"`
	Facturas   InvoiceAnalysis   `json:"facturas"`
	Admisiones AdmissionAnalysis `json:"admisiones"`
}

// DashboardOf analyzes invoice records (flattened to one row per service) and
// admission records (one row per episode). Either slice may be empty.
func DashboardOf(invoices, admissions []model.Record) Dashboard {
	inv := Invoices(ingest.FlattenInvoices(invoices))
	adm := Admissions(ingest.EpisodeTable(admissions))
	return Dashboard{
		Success:    true,
		Overview:   OverviewOf(adm, inv, len(invoices)),
		Facturas:   inv,
		Admisiones: adm,
	}
}

// counts maps each distinct value of col, in text form, to its frequency.
// An absent column yields an empty map.
func counts(t *table.Table, col string) map[string]int {
	out := map[string]int{}
	for _, f := range stats.Frequencies(t, col, label) {
		out[table.Format(f.Value)] = f.Count
	}
	return out
}

// label collapses whitespace in text categories and drops blank ones.
func label(v table.Value) table.Value {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if s = normalize.CleanCategory(s); s == "" {
		return nil
	}
	return s
}

// project returns up to limit rows restricted to the present columns of cols.
func project(t *table.Table, cols []string, limit int) []map[string]table.Value {
	var present []string
	for _, c := range cols {
		if t.Has(c) {
			present = append(present, c)
		}
	}
	n := t.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	rows := make([]map[string]table.Value, n)
	for i := 0; i < n; i++ {
		row := make(map[string]table.Value, len(present))
		for _, c := range present {
			col, _ := t.Column(c)
			row[c] = col[i]
		}
		rows[i] = row
	}
	return rows
}
