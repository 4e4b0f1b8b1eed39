package model

import (
	"encoding/json"
	"math"
)

// Status reports whether an analysis produced a value.
type Status string

const (
	StatusOK               Status = "ok"
	StatusNotApplicable    Status = "not_applicable"    // absent or non-numeric column, degenerate input
	StatusInsufficientData Status = "insufficient_data" // too few observations
	StatusNotComputed      Status = "not_computed"      // skipped by policy (e.g. sample too large)
)

// Alpha is the significance level used by every test and correlation.
const Alpha = 0.05

// Significant reports whether p is below Alpha.
func Significant(p float64) bool {
	return p < Alpha
}

// Float is a float64 that serializes NaN and ±Inf as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Matrix is a labelled square matrix of coefficients. Undefined cells are NaN.
type Matrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"-"`
}

// At returns the cell for the named row and column, or NaN when either is unknown.
func (m *Matrix) At(row, col string) float64 {
	i, j := m.index(row), m.index(col)
	if i < 0 || j < 0 {
		return math.NaN()
	}
	return m.Values[i][j]
}

func (m *Matrix) index(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// MarshalJSON implements json.Marshaler.
func (m Matrix) MarshalJSON() ([]byte, error) {
	vals := make([][]Float, len(m.Values))
	for i, row := range m.Values {
		vals[i] = make([]Float, len(row))
		for j, v := range row {
			vals[i][j] = Float(v)
		}
	}
	return json.Marshal(struct {
		Columns []string  `json:"columns"`
		Values  [][]Float `json:"values"`
	}{m.Columns, vals})
}
