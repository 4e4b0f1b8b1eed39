// Package filter selects table rows. Every filter returns a new table and a
// Report; a filter on an absent column returns the input unchanged.
package filter

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/stats"
	"github.com/gyeh/billingstats/internal/table"
)

// Method selects the outlier rule used by Outliers.
type Method string

const (
	MethodIQR    Method = "iqr"
	MethodZScore Method = "zscore"
)

// DefaultZScore is the |z| threshold used when none is given.
const DefaultZScore = 3.0

// Report describes the outcome of a filter. Skipped means the filter could
// not run and the input was returned unchanged.
type Report struct {
	Column   string   `json:"column,omitempty"`
	Matched  int      `json:"matched"`
	Total    int      `json:"total"`
	Skipped  bool     `json:"skipped"`
	Reason   string   `json:"reason,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func skip(t *table.Table, col, reason string) (*table.Table, Report) {
	return t, Report{Column: col, Total: t.Len(), Skipped: true, Reason: reason}
}

// numericOnly returns a skip reason when col cannot feed a numeric filter.
func numericOnly(t *table.Table, col string) string {
	switch t.Kind(col) {
	case table.Absent:
		return "column not found"
	case table.NonNumeric:
		return "column is not numeric"
	}
	return ""
}

func keep(t *table.Table, col string, match func(i int) bool) (*table.Table, Report) {
	idx := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if match(i) {
			idx = append(idx, i)
		}
	}
	return t.Take(idx), Report{Column: col, Matched: len(idx), Total: t.Len()}
}

// Range keeps rows with lo <= col <= hi. Missing cells never match.
func Range(t *table.Table, col string, lo, hi float64) (*table.Table, Report) {
	if reason := numericOnly(t, col); reason != "" {
		return skip(t, col, reason)
	}
	vals, ok := t.Floats(col)
	return keep(t, col, func(i int) bool {
		return ok[i] && vals[i] >= lo && vals[i] <= hi
	})
}

// Category keeps rows whose value equals one of values.
func Category(t *table.Table, col string, values []table.Value) (*table.Table, Report) {
	c, ok := t.Column(col)
	if !ok {
		return skip(t, col, "column not found")
	}
	return keep(t, col, func(i int) bool { return member(c[i], values) })
}

func member(v table.Value, set []table.Value) bool {
	for _, s := range set {
		if table.Equal(v, s) {
			return true
		}
	}
	return false
}

// TextSearch keeps rows whose text form contains needle. Missing cells are
// excluded.
func TextSearch(t *table.Table, col, needle string, caseSensitive bool) (*table.Table, Report) {
	c, ok := t.Column(col)
	if !ok {
		return skip(t, col, "column not found")
	}
	if !caseSensitive {
		needle = strings.ToLower(needle)
	}
	return keep(t, col, func(i int) bool {
		if c[i] == nil {
			return false
		}
		s := table.Format(c[i])
		if !caseSensitive {
			s = strings.ToLower(s)
		}
		return strings.Contains(s, needle)
	})
}

// TopN returns the n rows with the largest (or, if ascending, smallest)
// values of col. Ties keep their original row order and missing cells are
// excluded. n <= 0 yields an empty table.
func TopN(t *table.Table, col string, n int, ascending bool) (*table.Table, Report) {
	if reason := numericOnly(t, col); reason != "" {
		return skip(t, col, reason)
	}
	vals, ok := t.Floats(col)
	idx := make([]int, 0, t.Len())
	for i := range vals {
		if ok[i] {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if ascending {
			return vals[idx[a]] < vals[idx[b]]
		}
		return vals[idx[a]] > vals[idx[b]]
	})
	if n < 0 {
		n = 0
	}
	if n < len(idx) {
		idx = idx[:n]
	}
	return t.Take(idx), Report{Column: col, Matched: len(idx), Total: t.Len()}
}

// Outliers removes outlying rows. MethodIQR keeps Q1−k·IQR <= x <= Q3+k·IQR
// (k defaults to 1.5); MethodZScore keeps |z| < threshold (default 3) with
// the sample standard deviation. Rows with a missing value are removed too.
func Outliers(t *table.Table, col string, method Method, threshold float64) (*table.Table, Report) {
	if reason := numericOnly(t, col); reason != "" {
		return skip(t, col, reason)
	}
	sample, _, status, reason := stats.Numeric(t, col)
	if status != model.StatusOK {
		return skip(t, col, reason)
	}
	vals, ok := t.Floats(col)
	switch method {
	case MethodIQR:
		if threshold <= 0 {
			threshold = stats.DefaultIQRFactor
		}
		lower, upper := stats.IQRBounds(sample, threshold)
		return keep(t, col, func(i int) bool {
			return ok[i] && vals[i] >= lower && vals[i] <= upper
		})
	case MethodZScore:
		if threshold <= 0 {
			threshold = DefaultZScore
		}
		mean, sd := stats.Mean(sample), stats.Std(sample)
		return keep(t, col, func(i int) bool {
			if !ok[i] {
				return false
			}
			if sd == 0 {
				return true
			}
			return math.Abs((vals[i]-mean)/sd) < threshold
		})
	}
	return skip(t, col, fmt.Sprintf("unknown method %q", method))
}

// Condition is one predicate of MultiCondition. A range applies when Min or
// Max is set, else membership when In is non-nil, else equality with Equals.
type Condition struct {
	Column string        `json:"column"`
	Min    *float64      `json:"min,omitempty"`
	Max    *float64      `json:"max,omitempty"`
	In     []table.Value `json:"in,omitempty"`
	Equals table.Value   `json:"equals,omitempty"`
}

func (c Condition) match(v table.Value) bool {
	if c.Min != nil || c.Max != nil {
		f, ok := table.AsFloat(v)
		if !ok {
			return false
		}
		return (c.Min == nil || f >= *c.Min) && (c.Max == nil || f <= *c.Max)
	}
	if c.In != nil {
		return member(v, c.In)
	}
	return table.Equal(v, c.Equals)
}

// MultiCondition keeps rows matching every condition. Conditions on unknown
// columns are skipped with a warning.
func MultiCondition(t *table.Table, conds []Condition) (*table.Table, Report) {
	var (
		active   []Condition
		cols     [][]table.Value
		warnings []string
	)
	for _, c := range conds {
		col, ok := t.Column(c.Column)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("column %q not found", c.Column))
			continue
		}
		active = append(active, c)
		cols = append(cols, col)
	}
	out, rep := keep(t, "", func(i int) bool {
		for j, c := range active {
			if !c.match(cols[j][i]) {
				return false
			}
		}
		return true
	})
	rep.Warnings = warnings
	return out, rep
}

// GroupSummary counts the rows of a table, optionally per group value.
type GroupSummary struct {
	Total  int               `json:"total"`
	Column string            `json:"column,omitempty"`
	Groups []stats.Frequency `json:"groups,omitempty"`
}

// Summarize counts rows and, when groupCol is present, rows per group.
func Summarize(t *table.Table, groupCol string) GroupSummary {
	s := GroupSummary{Total: t.Len()}
	if groupCol != "" && t.Has(groupCol) {
		s.Column = groupCol
		s.Groups = stats.Frequencies(t, groupCol, nil)
	}
	return s
}
