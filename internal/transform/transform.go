// Package transform derives new tables from existing ones: imputation,
// rescaling and cyclic encoding. Inputs are never modified.
package transform

import (
	"fmt"
	"math"

	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/stats"
	"github.com/gyeh/billingstats/internal/table"
)

// Strategy selects the statistic used to fill missing values.
type Strategy string

const (
	StrategyMean   Strategy = "mean"
	StrategyMedian Strategy = "median"
	StrategyMode   Strategy = "mode"
)

// ParseStrategy maps a config string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyMean, StrategyMedian, StrategyMode:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown impute strategy %q", s)
}

// Outcome reports what an operation did to one column.
type Outcome struct {
	Column     string      `json:"column"`
	Applied    bool        `json:"applied"`
	Filled     int         `json:"filled,omitempty"`
	Value      table.Value `json:"value,omitempty"`
	Categories int         `json:"categories,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// Suffixes of the columns added by Normalize, Standardize and CyclicEncode.
const (
	SuffixNormalized   = "_normalized"
	SuffixStandardized = "_standardized"
	SuffixIndex        = "_index"
	SuffixSin          = "_sin"
	SuffixCos          = "_cos"
)

// Impute replaces missing cells of each column with the column's mean,
// median or mode over its non-missing values. Columns that cannot be imputed
// are reported and left as they are.
func Impute(t *table.Table, cols []string, strategy Strategy) (*table.Table, []Outcome) {
	out := t
	outcomes := make([]Outcome, 0, len(cols))
	for _, col := range cols {
		fill, reason := imputeValue(t, col, strategy)
		if reason != "" {
			outcomes = append(outcomes, Outcome{Column: col, Reason: reason})
			continue
		}
		src, _ := out.Column(col)
		vals := make([]table.Value, len(src))
		filled := 0
		for i, v := range src {
			if isMissing(v) {
				vals[i] = fill
				filled++
			} else {
				vals[i] = v
			}
		}
		next, err := out.WithColumn(col, vals)
		if err != nil {
			outcomes = append(outcomes, Outcome{Column: col, Reason: err.Error()})
			continue
		}
		out = next
		outcomes = append(outcomes, Outcome{Column: col, Applied: true, Filled: filled, Value: fill})
	}
	return out, outcomes
}

func imputeValue(t *table.Table, col string, strategy Strategy) (table.Value, string) {
	switch strategy {
	case StrategyMean, StrategyMedian:
		vals, _, status, reason := stats.Numeric(t, col)
		if status != model.StatusOK {
			return nil, reason
		}
		if strategy == StrategyMean {
			return stats.Mean(vals), ""
		}
		return stats.Median(vals), ""
	case StrategyMode:
		c, ok := t.Column(col)
		if !ok {
			return nil, "column not found"
		}
		m := modeOf(c)
		if m == nil {
			return nil, "column has no values"
		}
		return m, ""
	}
	return nil, fmt.Sprintf("unknown strategy %q", strategy)
}

// modeOf returns the most frequent non-missing cell; ties go to the value
// that sorts first under table.Less.
func modeOf(c []table.Value) table.Value {
	counts := make(map[table.Value]int)
	for _, v := range c {
		if !isMissing(v) {
			counts[v]++
		}
	}
	var best table.Value
	bestN := 0
	for v, n := range counts {
		if n > bestN || (n == bestN && table.Less(v, best)) {
			best, bestN = v, n
		}
	}
	return best
}

// Normalize adds <col>_normalized = (x−min)/(max−min) for each column.
// Constant columns are skipped.
func Normalize(t *table.Table, cols []string) (*table.Table, []Outcome) {
	return rescale(t, cols, SuffixNormalized, func(vals []float64) (float64, float64, string) {
		s := stats.Sorted(vals)
		lo, hi := s[0], s[len(s)-1]
		if hi == lo {
			return 0, 0, "column is constant"
		}
		return lo, hi - lo, ""
	})
}

// Standardize adds <col>_standardized = (x−mean)/std using the sample
// standard deviation. Columns with zero deviation are skipped.
func Standardize(t *table.Table, cols []string) (*table.Table, []Outcome) {
	return rescale(t, cols, SuffixStandardized, func(vals []float64) (float64, float64, string) {
		sd := stats.Std(vals)
		if sd == 0 {
			return 0, 0, "standard deviation is zero"
		}
		return stats.Mean(vals), sd, ""
	})
}

// rescale adds (x−shift)/scale for every numeric column, keeping missing
// cells missing. params returns a non-empty reason to skip a column.
func rescale(t *table.Table, cols []string, suffix string, params func([]float64) (shift, scale float64, reason string)) (*table.Table, []Outcome) {
	out := t
	outcomes := make([]Outcome, 0, len(cols))
	for _, col := range cols {
		vals, _, status, reason := stats.Numeric(t, col)
		if status != model.StatusOK {
			outcomes = append(outcomes, Outcome{Column: col, Reason: reason})
			continue
		}
		shift, scale, reason := params(vals)
		if reason != "" {
			outcomes = append(outcomes, Outcome{Column: col, Reason: reason})
			continue
		}
		f, ok := t.Floats(col)
		derived := make([]table.Value, t.Len())
		for i := range f {
			if ok[i] {
				derived[i] = (f[i] - shift) / scale
			}
		}
		name := col + suffix
		next, err := out.WithColumn(name, derived)
		if err != nil {
			outcomes = append(outcomes, Outcome{Column: col, Reason: err.Error()})
			continue
		}
		out = next
		outcomes = append(outcomes, Outcome{Column: col, Applied: true})
	}
	return out, outcomes
}

// CyclicEncode maps the distinct values of col, in first-seen order, to
// indices 0..n−1 and adds <col>_index, <col>_sin = sin(2π·i/n) and
// <col>_cos = cos(2π·i/n). Missing cells stay missing. The first-seen order
// defines the cycle.
func CyclicEncode(t *table.Table, col string) (*table.Table, Outcome) {
	c, ok := t.Column(col)
	if !ok {
		return t, Outcome{Column: col, Reason: "column not found"}
	}
	index := make(map[table.Value]int)
	for _, v := range c {
		if isMissing(v) {
			continue
		}
		if _, seen := index[v]; !seen {
			index[v] = len(index)
		}
	}
	n := len(index)
	if n == 0 {
		return t, Outcome{Column: col, Reason: "column has no values"}
	}

	idx := make([]table.Value, len(c))
	sin := make([]table.Value, len(c))
	cos := make([]table.Value, len(c))
	for i, v := range c {
		if isMissing(v) {
			continue
		}
		k := index[v]
		angle := 2 * math.Pi * float64(k) / float64(n)
		idx[i] = float64(k)
		sin[i] = math.Sin(angle)
		cos[i] = math.Cos(angle)
	}

	out := t
	for _, add := range []struct {
		suffix string
		vals   []table.Value
	}{{SuffixIndex, idx}, {SuffixSin, sin}, {SuffixCos, cos}} {
		next, err := out.WithColumn(col+add.suffix, add.vals)
		if err != nil {
			return t, Outcome{Column: col, Reason: err.Error()}
		}
		out = next
	}
	return out, Outcome{Column: col, Applied: true, Categories: n}
}

// ProcessingSummary compares a table before and after processing.
type ProcessingSummary struct {
	ColumnsBefore int `json:"columns_before"`
	ColumnsAfter  int `json:"columns_after"`
	NewColumns    int `json:"new_columns"`
	MissingBefore int `json:"missing_before"`
	MissingAfter  int `json:"missing_after"`
}

// Summarize reports column and missing-cell counts before and after.
func Summarize(before, after *table.Table) ProcessingSummary {
	b, a := len(before.Columns()), len(after.Columns())
	return ProcessingSummary{
		ColumnsBefore: b,
		ColumnsAfter:  a,
		NewColumns:    a - b,
		MissingBefore: before.MissingCount(),
		MissingAfter:  after.MissingCount(),
	}
}

func isMissing(v table.Value) bool {
	if v == nil {
		return true
	}
	f, ok := v.(float64)
	return ok && (math.IsNaN(f) || math.IsInf(f, 0))
}
