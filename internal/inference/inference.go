// Package inference runs hypothesis tests and interval estimates over table
// columns. Every test uses the same convention: p < model.Alpha rejects the
// null hypothesis. Degenerate input is reported through a Status, never an
// error.
package inference

import (
	"math"

	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/stats"
	"github.com/gyeh/billingstats/internal/table"
)

// GroupStats describes one group of a comparison.
type GroupStats struct {
	Name   string  `json:"name,omitempty"`
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
}

func describe(name string, vals []float64) GroupStats {
	return GroupStats{
		Name:   name,
		N:      len(vals),
		Mean:   stats.Mean(vals),
		Median: stats.Median(vals),
		Std:    stats.Std(vals),
	}
}

// masked returns the non-missing numeric values of col on rows where mask is
// true. A mask shorter than the table leaves the remaining rows out.
func masked(t *table.Table, col string, mask []bool) []float64 {
	vals, ok := t.Floats(col)
	var out []float64
	for i := range vals {
		if i < len(mask) && mask[i] && ok[i] {
			out = append(out, vals[i])
		}
	}
	return out
}

// grouped splits the values of col by the value of groupCol, keeping groups
// in first-seen order. Rows missing either value are dropped, so every
// returned group is non-empty.
func grouped(t *table.Table, col, groupCol string) (names []string, groups [][]float64) {
	vals, ok := t.Floats(col)
	keys, _ := t.Column(groupCol)
	index := map[string]int{}
	for i := range vals {
		if !ok[i] || keys[i] == nil {
			continue
		}
		name := table.Format(keys[i])
		j, seen := index[name]
		if !seen {
			j = len(names)
			index[name] = j
			names = append(names, name)
			groups = append(groups, nil)
		}
		groups[j] = append(groups[j], vals[i])
	}
	return names, groups
}

// checkGroupColumns validates the measured and grouping columns of a k-group
// test.
func checkGroupColumns(t *table.Table, col, groupCol string) (model.Status, string) {
	if _, _, status, reason := stats.Numeric(t, col); status != model.StatusOK {
		return status, col + ": " + reason
	}
	if !t.Has(groupCol) {
		return model.StatusNotApplicable, groupCol + ": column not found"
	}
	return model.StatusOK, ""
}

func nan() model.Float { return model.Float(math.NaN()) }

func differenceText(p float64, between string) string {
	if model.Significant(p) {
		return "significant difference" + between
	}
	return "no significant difference" + between
}
