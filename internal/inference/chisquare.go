package inference

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/table"
)

// Contingency is a cross-tabulation of two categorical columns.
type Contingency struct {
	Rows     []string `json:"rows"`
	Columns  []string `json:"columns"`
	Observed [][]int  `json:"observed"`
}

// ChiSquareResult is a chi-square test of independence.
type ChiSquareResult struct {
	A              string       `json:"a"`
	B              string       `json:"b"`
	Status         model.Status `json:"status"`
	Reason         string       `json:"reason,omitempty"`
	N              int          `json:"n"`
	Statistic      model.Float  `json:"statistic"`
	DF             int          `json:"df"`
	PValue         model.Float  `json:"p_value"`
	Yates          bool         `json:"yates"`
	Dependent      bool         `json:"dependent"`
	Table          Contingency  `json:"table"`
	Interpretation string       `json:"interpretation,omitempty"`
}

// ChiSquare tests independence of columns a and b over rows where both are
// present. Labels are sorted; a 2×2 table gets Yates' continuity correction.
func ChiSquare(t *table.Table, a, b string) ChiSquareResult {
	r := ChiSquareResult{A: a, B: b, Statistic: nan(), PValue: nan()}
	ca, okA := t.Column(a)
	cb, okB := t.Column(b)
	switch {
	case !okA:
		r.Status, r.Reason = model.StatusNotApplicable, a+": column not found"
		return r
	case !okB:
		r.Status, r.Reason = model.StatusNotApplicable, b+": column not found"
		return r
	}

	var xs, ys []table.Value
	for i := range ca {
		if ca[i] != nil && cb[i] != nil {
			xs = append(xs, ca[i])
			ys = append(ys, cb[i])
		}
	}
	r.N = len(xs)
	rows, rowIdx := labels(xs)
	cols, colIdx := labels(ys)
	obs := make([][]int, len(rows))
	for i := range obs {
		obs[i] = make([]int, len(cols))
	}
	for i := range xs {
		obs[rowIdx[table.Format(xs[i])]][colIdx[table.Format(ys[i])]]++
	}
	r.Table = Contingency{Rows: rows, Columns: cols, Observed: obs}
	if len(rows) < 2 || len(cols) < 2 {
		r.Status, r.Reason = model.StatusInsufficientData, "each column needs at least 2 categories"
		return r
	}

	r.DF = (len(rows) - 1) * (len(cols) - 1)
	r.Yates = r.DF == 1
	rowSum := make([]float64, len(rows))
	colSum := make([]float64, len(cols))
	for i := range obs {
		for j, o := range obs[i] {
			rowSum[i] += float64(o)
			colSum[j] += float64(o)
		}
	}
	n := float64(r.N)
	var chi2 float64
	for i := range obs {
		for j, o := range obs[i] {
			e := rowSum[i] * colSum[j] / n
			diff := math.Abs(float64(o) - e)
			if r.Yates {
				diff -= math.Min(0.5, diff)
			}
			chi2 += diff * diff / e
		}
	}
	p := distuv.ChiSquared{K: float64(r.DF)}.Survival(chi2)
	r.Status = model.StatusOK
	r.Statistic, r.PValue = model.Float(chi2), model.Float(p)
	r.Dependent = model.Significant(p)
	if r.Dependent {
		r.Interpretation = "variables are dependent"
	} else {
		r.Interpretation = "variables are independent"
	}
	return r
}

// labels returns the distinct values in sorted order and each label's index.
func labels(vals []table.Value) ([]string, map[string]int) {
	seen := map[string]table.Value{}
	for _, v := range vals {
		seen[table.Format(v)] = v
	}
	distinct := make([]table.Value, 0, len(seen))
	for _, v := range seen {
		distinct = append(distinct, v)
	}
	sort.Slice(distinct, func(i, j int) bool { return table.Less(distinct[i], distinct[j]) })
	names := make([]string, len(distinct))
	idx := make(map[string]int, len(distinct))
	for i, v := range distinct {
		names[i] = table.Format(v)
		idx[names[i]] = i
	}
	return names, idx
}
