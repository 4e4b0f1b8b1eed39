// Package correlation computes Pearson and Spearman coefficients and
// covariance over table columns.
//
// Pairwise functions drop rows missing either value. Matrix functions drop
// rows missing any of the requested columns before computing, so their
// sample can be smaller than the pairwise one.
package correlation

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/stats"
	"github.com/gyeh/billingstats/internal/table"
)

// Method names a correlation coefficient.
type Method string

const (
	MethodPearson  Method = "pearson"
	MethodSpearman Method = "spearman"
)

// Strength bands |r|.
type Strength string

const (
	Weak     Strength = "weak"
	Moderate Strength = "moderate"
	Strong   Strength = "strong"
)

// StrengthOf classifies a coefficient: |r| < 0.3 weak, < 0.7 moderate,
// otherwise strong.
func StrengthOf(r float64) Strength {
	switch a := math.Abs(r); {
	case a < 0.3:
		return Weak
	case a < 0.7:
		return Moderate
	}
	return Strong
}

// topPairs is how many pairs FullAnalysis ranks.
const topPairs = 5

// Pair is the correlation of two columns over their pairwise-complete rows.
type Pair struct {
	A              string       `json:"a"`
	B              string       `json:"b"`
	Method         Method       `json:"method"`
	Status         model.Status `json:"status"`
	Reason         string       `json:"reason,omitempty"`
	N              int          `json:"n"`
	Coefficient    model.Float  `json:"coefficient"`
	PValue         model.Float  `json:"p_value"`
	Strength       Strength     `json:"strength,omitempty"`
	Significant    bool         `json:"significant"`
	Interpretation string       `json:"interpretation,omitempty"`
}

// Pearson computes the Pearson coefficient of a and b and its two-sided
// p-value from the t distribution with n−2 degrees of freedom.
func Pearson(t *table.Table, a, b string) Pair {
	return pair(t, a, b, MethodPearson)
}

// Spearman computes the rank correlation of a and b.
func Spearman(t *table.Table, a, b string) Pair {
	return pair(t, a, b, MethodSpearman)
}

func pair(t *table.Table, a, b string, method Method) Pair {
	p := Pair{A: a, B: b, Method: method, Coefficient: model.Float(math.NaN()), PValue: model.Float(math.NaN())}
	for _, col := range []string{a, b} {
		if _, _, status, reason := stats.Numeric(t, col); status != model.StatusOK {
			p.Status, p.Reason = status, col+": "+reason
			return p
		}
	}
	xs, ys := stats.PairwiseComplete(t, a, b)
	p.N = len(xs)
	if p.N < 2 {
		p.Status, p.Reason = model.StatusInsufficientData, "fewer than 2 complete rows"
		return p
	}
	if method == MethodSpearman {
		xs, ys = stats.Ranks(xs), stats.Ranks(ys)
	}
	r := coefficient(xs, ys)
	if math.IsNaN(r) {
		p.Status, p.Reason = model.StatusNotApplicable, "a column is constant"
		return p
	}
	pv := pValue(r, p.N)
	p.Status = model.StatusOK
	p.Coefficient = model.Float(r)
	p.PValue = model.Float(pv)
	p.Strength = StrengthOf(r)
	p.Significant = model.Significant(pv)
	p.Interpretation = interpret(r, pv)
	return p
}

// coefficient returns the Pearson coefficient, NaN when either sample has
// zero variance.
func coefficient(xs, ys []float64) float64 {
	if stats.Variance(xs) == 0 || stats.Variance(ys) == 0 {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	return math.Max(-1, math.Min(1, r))
}

// pValue is the two-sided p-value of H0: ρ = 0.
func pValue(r float64, n int) float64 {
	if n <= 2 {
		return 1
	}
	if math.Abs(r) == 1 {
		return 0
	}
	df := float64(n - 2)
	tstat := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return math.Min(1, 2*dist.Survival(math.Abs(tstat)))
}

func interpret(r, p float64) string {
	dir := "positive"
	if r < 0 {
		dir = "negative"
	}
	sig := "not significant"
	if model.Significant(p) {
		sig = "significant"
	}
	return fmt.Sprintf("%s %s correlation, %s at α=%.2f", StrengthOf(r), dir, sig, model.Alpha)
}

// MatrixResult is a coefficient or covariance matrix over row-wise complete
// data. Columns lists the columns used; Excluded those dropped as absent,
// non-numeric or empty.
type MatrixResult struct {
	Method   string       `json:"method"`
	Status   model.Status `json:"status"`
	Reason   string       `json:"reason,omitempty"`
	Rows     int          `json:"rows"`
	Excluded []string     `json:"excluded,omitempty"`
	Matrix   model.Matrix `json:"matrix"`
}

// completeRows selects the usable columns and returns, per column, the
// values from rows where every usable column is present.
func completeRows(t *table.Table, cols []string) (used, excluded []string, data [][]float64) {
	for _, col := range cols {
		if _, _, status, _ := stats.Numeric(t, col); status != model.StatusOK {
			excluded = append(excluded, col)
			continue
		}
		used = append(used, col)
	}
	vals := make([][]float64, len(used))
	oks := make([][]bool, len(used))
	for j, col := range used {
		vals[j], oks[j] = t.Floats(col)
	}
	data = make([][]float64, len(used))
rows:
	for i := 0; i < t.Len(); i++ {
		for j := range used {
			if !oks[j][i] {
				continue rows
			}
		}
		for j := range used {
			data[j] = append(data[j], vals[j][i])
		}
	}
	return used, excluded, data
}

// Matrix computes all pairwise coefficients after dropping rows with any
// missing value. Undefined coefficients are NaN.
func Matrix(t *table.Table, cols []string, method Method) MatrixResult {
	res := MatrixResult{Method: string(method)}
	if method != MethodPearson && method != MethodSpearman {
		res.Status, res.Reason = model.StatusNotApplicable, fmt.Sprintf("unknown method %q", method)
		return res
	}
	used, excluded, data := completeRows(t, cols)
	res.Excluded = excluded
	if !checkShape(&res, used, data) {
		return res
	}
	if method == MethodSpearman {
		for j := range data {
			data[j] = stats.Ranks(data[j])
		}
	}
	res.Matrix = square(used, func(i, j int) float64 {
		if i == j {
			if stats.Variance(data[i]) == 0 {
				return math.NaN()
			}
			return 1
		}
		return coefficient(data[i], data[j])
	})
	return res
}

// CovarianceMatrix computes sample covariances after dropping rows with any
// missing value.
func CovarianceMatrix(t *table.Table, cols []string) MatrixResult {
	res := MatrixResult{Method: "covariance"}
	used, excluded, data := completeRows(t, cols)
	res.Excluded = excluded
	if !checkShape(&res, used, data) {
		return res
	}
	res.Matrix = square(used, func(i, j int) float64 {
		return stat.Covariance(data[i], data[j], nil)
	})
	return res
}

func checkShape(res *MatrixResult, used []string, data [][]float64) bool {
	if len(used) < 2 {
		res.Status, res.Reason = model.StatusInsufficientData, "fewer than 2 usable numeric columns"
		return false
	}
	res.Rows = len(data[0])
	if res.Rows < 2 {
		res.Status, res.Reason = model.StatusInsufficientData, "fewer than 2 complete rows"
		return false
	}
	res.Status = model.StatusOK
	return true
}

func square(cols []string, cell func(i, j int) float64) model.Matrix {
	m := model.Matrix{Columns: cols, Values: make([][]float64, len(cols))}
	for i := range cols {
		m.Values[i] = make([]float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			v := cell(i, j)
			m.Values[i][j], m.Values[j][i] = v, v
		}
	}
	return m
}

// RankedPair is one entry of the strongest-correlation ranking.
type RankedPair struct {
	A           string      `json:"a"`
	B           string      `json:"b"`
	Coefficient model.Float `json:"coefficient"`
	Strength    Strength    `json:"strength"`
}

// Analysis bundles the Pearson, Spearman and covariance matrices of a set of
// columns and the strongest Pearson pairs.
type Analysis struct {
	Status     model.Status `json:"status"`
	Reason     string       `json:"reason,omitempty"`
	Pearson    MatrixResult `json:"pearson"`
	Spearman   MatrixResult `json:"spearman"`
	Covariance MatrixResult `json:"covariance"`
	Top        []RankedPair `json:"top"`
}

// FullAnalysis computes all three matrices and ranks the unordered column
// pairs by |Pearson r|, keeping the top five.
func FullAnalysis(t *table.Table, cols []string) Analysis {
	a := Analysis{
		Pearson:    Matrix(t, cols, MethodPearson),
		Spearman:   Matrix(t, cols, MethodSpearman),
		Covariance: CovarianceMatrix(t, cols),
		Top:        []RankedPair{},
	}
	a.Status, a.Reason = a.Pearson.Status, a.Pearson.Reason
	if a.Status != model.StatusOK {
		return a
	}
	m := a.Pearson.Matrix
	var ranked []RankedPair
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			r := m.Values[i][j]
			if math.IsNaN(r) {
				continue
			}
			ranked = append(ranked, RankedPair{A: m.Columns[i], B: m.Columns[j], Coefficient: model.Float(r), Strength: StrengthOf(r)})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(float64(ranked[i].Coefficient)) > math.Abs(float64(ranked[j].Coefficient))
	})
	if len(ranked) > topPairs {
		ranked = ranked[:topPairs]
	}
	a.Top = append(a.Top, ranked...)
	return a
}
