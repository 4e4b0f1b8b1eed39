package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/table"
)

// Numeric extracts the non-missing values of a numeric column together with
// their row indices. A non-OK status means the column cannot be analyzed;
// reason says why.
func Numeric(t *table.Table, col string) (vals []float64, rows []int, status model.Status, reason string) {
	switch t.Kind(col) {
	case table.Absent:
		return nil, nil, model.StatusNotApplicable, "column not found"
	case table.NonNumeric:
		c, _ := t.Column(col)
		for _, v := range c {
			if v != nil {
				return nil, nil, model.StatusNotApplicable, "column is not numeric"
			}
		}
		return nil, nil, model.StatusInsufficientData, "column has no values"
	}
	f, ok := t.Floats(col)
	for i := range f {
		if ok[i] {
			vals = append(vals, f[i])
			rows = append(rows, i)
		}
	}
	if len(vals) == 0 {
		return nil, nil, model.StatusInsufficientData, "column has no finite values"
	}
	return vals, rows, model.StatusOK, ""
}

// Mean returns the arithmetic mean, or NaN for an empty sample.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// Variance returns the sample variance (divisor n−1). A single observation
// has variance 0; an empty sample NaN.
func Variance(x []float64) float64 {
	switch len(x) {
	case 0:
		return math.NaN()
	case 1:
		return 0
	}
	return math.Max(0, stat.Variance(x, nil))
}

// Std returns the sample standard deviation.
func Std(x []float64) float64 {
	return math.Sqrt(Variance(x))
}

// Sorted returns a sorted copy of x.
func Sorted(x []float64) []float64 {
	s := make([]float64, len(x))
	copy(s, x)
	sort.Float64s(s)
	return s
}

// Quantile returns the p-quantile of an ascending sample by linear
// interpolation between order statistics at position p·(n−1).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := p * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	if lo < 0 {
		return sorted[0]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// Median returns the median of x.
func Median(x []float64) float64 {
	return Quantile(Sorted(x), 0.5)
}

// Mode returns the most frequent value; ties go to the smallest value.
func Mode(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	s := Sorted(x)
	best, bestN := s[0], 0
	for i := 0; i < len(s); {
		j := i
		for j < len(s) && s[j] == s[i] {
			j++
		}
		if j-i > bestN {
			best, bestN = s[i], j-i
		}
		i = j
	}
	return best
}
