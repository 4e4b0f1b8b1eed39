package stats

import (
	"sort"

	"github.com/gyeh/billingstats/internal/table"
)

// Frequency is one distinct value of a column and how often it occurs.
type Frequency struct {
	Value table.Value `json:"value"`
	Count int         `json:"count"`
}

// Frequencies counts the distinct non-missing values of a column, most
// frequent first; equal counts are ordered by value. An absent column
// yields nil. A non-nil clean function rewrites each value before counting
// and may return nil to drop it.
func Frequencies(t *table.Table, col string, clean func(table.Value) table.Value) []Frequency {
	c, ok := t.Column(col)
	if !ok {
		return nil
	}
	counts := make(map[table.Value]int)
	for _, v := range c {
		if clean != nil {
			v = clean(v)
		}
		if missing(v) {
			continue
		}
		counts[v]++
	}
	out := make([]Frequency, 0, len(counts))
	for v, n := range counts {
		out = append(out, Frequency{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return table.Less(out[i].Value, out[j].Value)
	})
	return out
}

// missing reports nil, NaN and ±Inf cells.
func missing(v table.Value) bool {
	if v == nil {
		return true
	}
	if _, isFloat := v.(float64); isFloat {
		_, ok := table.AsFloat(v)
		return !ok
	}
	return false
}
