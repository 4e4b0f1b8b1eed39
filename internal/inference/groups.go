package inference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/stats"
	"github.com/gyeh/billingstats/internal/table"
)

// Test names a two-group test.
type Test string

const (
	TestStudent     Test = "student_t"
	TestWelch       Test = "welch_t"
	TestMannWhitney Test = "mann_whitney"
)

// exactMannWhitneyN bounds the group sizes for the exact U distribution.
const exactMannWhitneyN = 8

// Options selects the two-group test. The zero value runs Student's t with
// pooled variance.
type Options struct {
	NonParametric bool
	Welch         bool
}

// TwoGroupResult compares one column between two row subsets.
type TwoGroupResult struct {
	Column         string       `json:"column"`
	Test           Test         `json:"test"`
	Status         model.Status `json:"status"`
	Reason         string       `json:"reason,omitempty"`
	Group1         GroupStats   `json:"group1"`
	Group2         GroupStats   `json:"group2"`
	Statistic      model.Float  `json:"statistic"`
	DF             model.Float  `json:"df,omitempty"`
	PValue         model.Float  `json:"p_value"`
	Exact          bool         `json:"exact,omitempty"`
	Significant    bool         `json:"significant"`
	Interpretation string       `json:"interpretation,omitempty"`
}

// TwoGroup compares col between the rows selected by g1 and g2. Each group
// needs at least 2 non-missing values.
func TwoGroup(t *table.Table, col string, g1, g2 []bool, opts Options) TwoGroupResult {
	r := TwoGroupResult{Column: col, Test: TestStudent, Statistic: nan(), PValue: nan()}
	switch {
	case opts.NonParametric:
		r.Test = TestMannWhitney
	case opts.Welch:
		r.Test = TestWelch
	}
	if _, _, status, reason := stats.Numeric(t, col); status != model.StatusOK {
		r.Status, r.Reason = status, reason
		return r
	}
	a, b := masked(t, col, g1), masked(t, col, g2)
	r.Group1, r.Group2 = describe("", a), describe("", b)
	if len(a) < 2 || len(b) < 2 {
		r.Status, r.Reason = model.StatusInsufficientData, "each group needs at least 2 values"
		return r
	}

	var stat, df, p float64
	var reason string
	if opts.NonParametric {
		stat, p, r.Exact, reason = mannWhitney(a, b)
	} else {
		stat, df, p, reason = tTest(a, b, opts.Welch)
		r.DF = model.Float(df)
	}
	if reason != "" {
		r.Status, r.Reason = model.StatusNotApplicable, reason
		return r
	}
	r.Status = model.StatusOK
	r.Statistic, r.PValue = model.Float(stat), model.Float(p)
	r.Significant = model.Significant(p)
	r.Interpretation = differenceText(p, " between groups")
	return r
}

func tTest(a, b []float64, welch bool) (tstat, df, p float64, reason string) {
	n1, n2 := float64(len(a)), float64(len(b))
	v1, v2 := stats.Variance(a), stats.Variance(b)
	var se float64
	if welch {
		q1, q2 := v1/n1, v2/n2
		se = math.Sqrt(q1 + q2)
		df = (q1 + q2) * (q1 + q2) / (q1*q1/(n1-1) + q2*q2/(n2-1))
	} else {
		df = n1 + n2 - 2
		pooled := ((n1-1)*v1 + (n2-1)*v2) / df
		se = math.Sqrt(pooled * (1/n1 + 1/n2))
	}
	if se == 0 {
		return 0, 0, 0, "both groups are constant"
	}
	tstat = (stats.Mean(a) - stats.Mean(b)) / se
	p = 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(tstat))
	return tstat, df, math.Min(1, p), ""
}

// mannWhitney returns U for the first sample and the two-sided p-value.
func mannWhitney(a, b []float64) (u1, p float64, exact bool, reason string) {
	n1, n2 := len(a), len(b)
	all := append(append([]float64{}, a...), b...)
	ranks := stats.Ranks(all)
	var r1 float64
	for _, rk := range ranks[:n1] {
		r1 += rk
	}
	u1 = r1 - float64(n1*(n1+1))/2
	u2 := float64(n1*n2) - u1
	u := math.Max(u1, u2)
	ties := stats.TieTerm(all)

	if n1 < exactMannWhitneyN && n2 < exactMannWhitneyN && ties == 0 {
		counts := exactUCounts(n1, n2)
		var total, tail float64
		for k, c := range counts {
			total += c
			if float64(k) >= u {
				tail += c
			}
		}
		return u1, math.Min(1, 2*tail/total), true, ""
	}

	n := float64(n1 + n2)
	mu := float64(n1*n2) / 2
	sigma := math.Sqrt(float64(n1*n2) / 12 * ((n + 1) - ties/(n*(n-1))))
	if sigma == 0 {
		return 0, 0, false, "all values are tied"
	}
	z := (u - mu - 0.5) / sigma
	p = 2 * distuv.Normal{Mu: 0, Sigma: 1}.Survival(z)
	return u1, math.Min(1, p), false, ""
}

// exactUCounts returns, for each u, the number of orderings of n1+n2
// distinct values whose U statistic for the first sample equals u.
func exactUCounts(n1, n2 int) []float64 {
	memo := map[[2]int][]float64{}
	var dist func(m, n int) []float64
	dist = func(m, n int) []float64 {
		if m == 0 || n == 0 {
			return []float64{1}
		}
		key := [2]int{m, n}
		if d, ok := memo[key]; ok {
			return d
		}
		d := make([]float64, m*n+1)
		for u, c := range dist(m-1, n) {
			d[u+n] += c
		}
		for u, c := range dist(m, n-1) {
			d[u] += c
		}
		memo[key] = d
		return d
	}
	return dist(n1, n2)
}

// KGroupResult is a one-way comparison of a column across the groups of
// another column.
type KGroupResult struct {
	Column         string       `json:"column"`
	GroupColumn    string       `json:"group_column"`
	Test           string       `json:"test"`
	Status         model.Status `json:"status"`
	Reason         string       `json:"reason,omitempty"`
	Groups         []GroupStats `json:"groups"`
	Statistic      model.Float  `json:"statistic"`
	PValue         model.Float  `json:"p_value"`
	Significant    bool         `json:"significant"`
	Interpretation string       `json:"interpretation,omitempty"`
}

func kGroups(t *table.Table, col, groupCol, test string) (KGroupResult, [][]float64) {
	r := KGroupResult{Column: col, GroupColumn: groupCol, Test: test, Statistic: nan(), PValue: nan(), Groups: []GroupStats{}}
	if status, reason := checkGroupColumns(t, col, groupCol); status != model.StatusOK {
		r.Status, r.Reason = status, reason
		return r, nil
	}
	names, groups := grouped(t, col, groupCol)
	for i, g := range groups {
		r.Groups = append(r.Groups, describe(names[i], g))
	}
	if len(groups) < 2 {
		r.Status, r.Reason = model.StatusInsufficientData, fmt.Sprintf("need at least 2 groups, got %d", len(groups))
		return r, nil
	}
	return r, groups
}

func (r *KGroupResult) finish(stat, p float64) {
	r.Status = model.StatusOK
	r.Statistic, r.PValue = model.Float(stat), model.Float(p)
	r.Significant = model.Significant(p)
	r.Interpretation = differenceText(p, " among groups")
}

// ANOVA runs a one-way analysis of variance of col grouped by groupCol.
func ANOVA(t *table.Table, col, groupCol string) KGroupResult {
	r, groups := kGroups(t, col, groupCol, "anova")
	if groups == nil {
		return r
	}
	var all []float64
	for _, g := range groups {
		all = append(all, g...)
	}
	k, n := float64(len(groups)), float64(len(all))
	if n-k < 1 {
		r.Status, r.Reason = model.StatusInsufficientData, "not enough values for the within-group variance"
		return r
	}
	grand := stats.Mean(all)
	var ssb, ssw float64
	for _, g := range groups {
		m := stats.Mean(g)
		ssb += float64(len(g)) * (m - grand) * (m - grand)
		for _, x := range g {
			ssw += (x - m) * (x - m)
		}
	}
	if ssw == 0 {
		r.Status, r.Reason = model.StatusNotApplicable, "within-group variance is zero"
		return r
	}
	f := (ssb / (k - 1)) / (ssw / (n - k))
	r.finish(f, distuv.F{D1: k - 1, D2: n - k}.Survival(f))
	return r
}

// KruskalWallis runs the tie-corrected Kruskal-Wallis H test of col grouped
// by groupCol.
func KruskalWallis(t *table.Table, col, groupCol string) KGroupResult {
	r, groups := kGroups(t, col, groupCol, "kruskal_wallis")
	if groups == nil {
		return r
	}
	var all []float64
	for _, g := range groups {
		all = append(all, g...)
	}
	n := float64(len(all))
	ranks := stats.Ranks(all)
	var h float64
	off := 0
	for _, g := range groups {
		var sum float64
		for _, rk := range ranks[off : off+len(g)] {
			sum += rk
		}
		h += sum * sum / float64(len(g))
		off += len(g)
	}
	h = 12/(n*(n+1))*h - 3*(n+1)
	c := 1 - stats.TieTerm(all)/(n*n*n-n)
	if c == 0 {
		r.Status, r.Reason = model.StatusNotApplicable, "all values are tied"
		return r
	}
	h /= c
	r.finish(h, distuv.ChiSquared{K: float64(len(groups) - 1)}.Survival(h))
	return r
}
