package inference

import (
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/table"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) < tol }

func column(name string, vals ...float64) *table.Table {
	rows := make([]map[string]table.Value, len(vals))
	for i, v := range vals {
		rows[i] = map[string]table.Value{name: v}
	}
	return table.FromRows(rows, []string{name})
}

// groupsAB builds monto values for groups A=[10,12,11,13] and B=[20,22,21,23].
func groupsAB() *table.Table {
	var rows []map[string]table.Value
	for _, v := range []float64{10, 12, 11, 13} {
		rows = append(rows, map[string]table.Value{"monto": v, "grupo": "A"})
	}
	for _, v := range []float64{20, 22, 21, 23} {
		rows = append(rows, map[string]table.Value{"monto": v, "grupo": "B"})
	}
	rows = append(rows, map[string]table.Value{"monto": nil, "grupo": "A"})
	return table.FromRows(rows, []string{"monto", "grupo"})
}

func TestTwoGroup_StudentT(t *testing.T) {
	tb := groupsAB()
	r := TwoGroup(tb, "monto", tb.MaskEquals("grupo", "A"), tb.MaskEquals("grupo", "B"), Options{})
	if r.Status != model.StatusOK {
		t.Fatalf("Status: got %s (%s)", r.Status, r.Reason)
	}
	if r.Test != TestStudent || r.Group1.N != 4 || r.Group2.N != 4 {
		t.Errorf("got %+v", r)
	}
	if !near(float64(r.Statistic), -10/math.Sqrt(5.0/6), 1e-9) {
		t.Errorf("Statistic: got %v", r.Statistic)
	}
	if r.DF != 6 {
		t.Errorf("DF: got %v, want 6", r.DF)
	}
	if !r.Significant || r.PValue >= 0.001 {
		t.Errorf("PValue: got %v, want < 0.001", r.PValue)
	}
}

func TestTwoGroup_Welch(t *testing.T) {
	tb := groupsAB()
	r := TwoGroup(tb, "monto", tb.MaskEquals("grupo", "A"), tb.MaskEquals("grupo", "B"), Options{Welch: true})
	if r.Test != TestWelch || !near(float64(r.DF), 6, 1e-9) || !r.Significant {
		t.Errorf("got %+v", r)
	}
}

func TestTwoGroup_MannWhitneyExact(t *testing.T) {
	tb := groupsAB()
	r := TwoGroup(tb, "monto", tb.MaskEquals("grupo", "A"), tb.MaskEquals("grupo", "B"), Options{NonParametric: true})
	if r.Status != model.StatusOK || r.Test != TestMannWhitney {
		t.Fatalf("got %+v", r)
	}
	if !r.Exact {
		t.Error("Exact: got false, want true")
	}
	if r.Statistic != 0 {
		t.Errorf("U: got %v, want 0", r.Statistic)
	}
	if !near(float64(r.PValue), 2.0/70, 1e-12) || !r.Significant {
		t.Errorf("PValue: got %v, want %v", r.PValue, 2.0/70)
	}
}

func TestTwoGroup_MannWhitneyAsymptotic(t *testing.T) {
	var rows []map[string]table.Value
	for i := 0; i < 10; i++ {
		rows = append(rows, map[string]table.Value{"v": float64(i % 4), "g": "a"})
		rows = append(rows, map[string]table.Value{"v": float64(i%4 + 2), "g": "b"})
	}
	tb := table.FromRows(rows, nil)
	r := TwoGroup(tb, "v", tb.MaskEquals("g", "a"), tb.MaskEquals("g", "b"), Options{NonParametric: true})
	if r.Status != model.StatusOK || r.Exact {
		t.Fatalf("got %+v", r)
	}
	if r.PValue <= 0 || r.PValue > 1 || !r.Significant {
		t.Errorf("PValue: got %v", r.PValue)
	}
}

func TestTwoGroup_Degenerate(t *testing.T) {
	tb := groupsAB()
	one := make([]bool, tb.Len())
	one[0] = true
	if got := TwoGroup(tb, "monto", one, tb.MaskEquals("grupo", "B"), Options{}).Status; got != model.StatusInsufficientData {
		t.Errorf("single-value group: got %s", got)
	}
	if got := TwoGroup(tb, "grupo", one, one, Options{}).Status; got != model.StatusNotApplicable {
		t.Errorf("text column: got %s", got)
	}
	flat := column("x", 5, 5, 5, 5)
	mask := []bool{true, true, false, false}
	other := []bool{false, false, true, true}
	if got := TwoGroup(flat, "x", mask, other, Options{}).Status; got != model.StatusNotApplicable {
		t.Errorf("constant groups: got %s", got)
	}
}

func TestExactUCounts(t *testing.T) {
	if got, want := exactUCounts(2, 2), []float64{1, 1, 2, 1, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("exactUCounts(2, 2): got %v, want %v", got, want)
	}
	var total float64
	for _, c := range exactUCounts(4, 4) {
		total += c
	}
	if total != 70 {
		t.Errorf("exactUCounts(4, 4) total: got %v, want 70", total)
	}
}

func threeGroups() *table.Table {
	rows := []map[string]table.Value{
		{"monto": 1.0, "clase": "X"}, {"monto": 4.0, "clase": "Y"}, {"monto": 7.0, "clase": "Z"},
		{"monto": 2.0, "clase": "X"}, {"monto": 5.0, "clase": "Y"}, {"monto": 8.0, "clase": "Z"},
		{"monto": 3.0, "clase": "X"}, {"monto": 6.0, "clase": "Y"}, {"monto": 9.0, "clase": "Z"},
		{"monto": 100.0, "clase": nil},
		{"monto": nil, "clase": "W"},
	}
	return table.FromRows(rows, []string{"monto", "clase"})
}

func TestANOVA(t *testing.T) {
	r := ANOVA(threeGroups(), "monto", "clase")
	if r.Status != model.StatusOK {
		t.Fatalf("Status: got %s (%s)", r.Status, r.Reason)
	}
	if len(r.Groups) != 3 || r.Groups[0].Name != "X" || r.Groups[2].Name != "Z" {
		t.Errorf("Groups: got %+v", r.Groups)
	}
	if !near(float64(r.Statistic), 27, 1e-9) {
		t.Errorf("F: got %v, want 27", r.Statistic)
	}
	want := distuv.F{D1: 2, D2: 6}.Survival(27)
	if !near(float64(r.PValue), want, 1e-12) || !r.Significant {
		t.Errorf("PValue: got %v, want %v", r.PValue, want)
	}
}

func TestKruskalWallis(t *testing.T) {
	r := KruskalWallis(threeGroups(), "monto", "clase")
	if r.Status != model.StatusOK {
		t.Fatalf("Status: got %s (%s)", r.Status, r.Reason)
	}
	if !near(float64(r.Statistic), 7.2, 1e-9) {
		t.Errorf("H: got %v, want 7.2", r.Statistic)
	}
	if !near(float64(r.PValue), math.Exp(-3.6), 1e-9) {
		t.Errorf("PValue: got %v, want %v", r.PValue, math.Exp(-3.6))
	}
}

func TestKGroups_Degenerate(t *testing.T) {
	tb := table.FromRows([]map[string]table.Value{
		{"monto": 1.0, "clase": "X"}, {"monto": 2.0, "clase": "X"},
	}, nil)
	cases := map[string]struct {
		run  func() KGroupResult
		want model.Status
	}{
		"one_group":     {func() KGroupResult { return ANOVA(tb, "monto", "clase") }, model.StatusInsufficientData},
		"absent_group":  {func() KGroupResult { return KruskalWallis(tb, "monto", "nope") }, model.StatusNotApplicable},
		"absent_values": {func() KGroupResult { return ANOVA(tb, "nope", "clase") }, model.StatusNotApplicable},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			if got := c.run().Status; got != c.want {
				t.Errorf("Status: got %s, want %s", got, c.want)
			}
		})
	}
}

func TestChiSquare_IdenticalColumnsDependent(t *testing.T) {
	var rows []map[string]table.Value
	for i := 0; i < 20; i++ {
		v := "A"
		if i%2 == 1 {
			v = "B"
		}
		rows = append(rows, map[string]table.Value{"clase": v, "copia": v})
	}
	r := ChiSquare(table.FromRows(rows, nil), "clase", "copia")
	if r.Status != model.StatusOK {
		t.Fatalf("Status: got %s (%s)", r.Status, r.Reason)
	}
	if !r.Dependent || r.DF != 1 || !r.Yates {
		t.Errorf("got %+v", r)
	}
	if !near(float64(r.Statistic), 16.2, 1e-9) {
		t.Errorf("Statistic: got %v, want 16.2", r.Statistic)
	}
	if !reflect.DeepEqual(r.Table.Observed, [][]int{{10, 0}, {0, 10}}) {
		t.Errorf("Observed: got %v", r.Table.Observed)
	}
}

func TestChiSquare_Independent(t *testing.T) {
	var rows []map[string]table.Value
	for i := 0; i < 5; i++ {
		rows = append(rows,
			map[string]table.Value{"a": "A", "b": "X"},
			map[string]table.Value{"a": "A", "b": "Y"},
			map[string]table.Value{"a": "B", "b": "X"},
			map[string]table.Value{"a": "B", "b": "Y"},
			map[string]table.Value{"a": nil, "b": "Y"},
		)
	}
	r := ChiSquare(table.FromRows(rows, nil), "a", "b")
	if r.Status != model.StatusOK || r.Dependent || r.N != 20 {
		t.Errorf("got %+v", r)
	}
	if !near(float64(r.PValue), 1, 1e-12) {
		t.Errorf("PValue: got %v, want 1", r.PValue)
	}
	if got := ChiSquare(table.FromRows(rows, nil), "a", "nope").Status; got != model.StatusNotApplicable {
		t.Errorf("absent column: got %s", got)
	}
}

func TestConfidenceInterval(t *testing.T) {
	r := ConfidenceInterval(column("x", 1, 2, 3, 4, 5), "x", 0)
	if r.Status != model.StatusOK || r.Level != DefaultLevel {
		t.Fatalf("got %+v", r)
	}
	if !near(r.Mean, 3, 1e-12) || !near(r.StdError, math.Sqrt(0.5), 1e-12) {
		t.Errorf("mean/se: got %v / %v", r.Mean, r.StdError)
	}
	if !near(r.Lower, 1.0367568, 1e-5) || !near(r.Upper, 4.9632432, 1e-5) {
		t.Errorf("interval: got [%v, %v]", r.Lower, r.Upper)
	}
	if !(r.Lower <= r.Mean && r.Mean <= r.Upper) {
		t.Error("mean outside interval")
	}

	wide := ConfidenceInterval(column("x", 1, 2, 3, 4, 5), "x", 0.99)
	if wide.Upper-wide.Lower <= r.Upper-r.Lower {
		t.Errorf("99%% interval not wider than 95%%: %+v", wide)
	}
	if got := ConfidenceInterval(column("x", 1, 2), "x", 1.5).Status; got != model.StatusNotApplicable {
		t.Errorf("bad level: got %s", got)
	}
	if got := ConfidenceInterval(column("x", 1), "x", 0.9).Status; got != model.StatusInsufficientData {
		t.Errorf("single value: got %s", got)
	}
}

func TestNormalityOf_NormalSample(t *testing.T) {
	std := distuv.Normal{Mu: 0, Sigma: 1}
	vals := make([]float64, 50)
	for i := range vals {
		vals[i] = 1000 + 50*std.Quantile((float64(i)+0.5)/50)
	}
	r := NormalityOf(column("x", vals...), "x")
	if r.Status != model.StatusOK || r.ShapiroStatus != model.StatusOK {
		t.Fatalf("got %+v", r)
	}
	if !r.Normal || r.ShapiroP <= 0.05 || r.KSP <= 0.05 {
		t.Errorf("expected normal: %+v", r)
	}
	if r.ShapiroW < 0.95 || r.ShapiroW > 1 {
		t.Errorf("W: got %v", r.ShapiroW)
	}
}

func TestNormalityOf_SkewedSample(t *testing.T) {
	vals := make([]float64, 30)
	for i := range vals {
		vals[i] = math.Exp(float64(i) / 2)
	}
	r := NormalityOf(column("x", vals...), "x")
	if r.Status != model.StatusOK || r.Normal || r.ShapiroP >= 0.05 {
		t.Errorf("expected non-normal: %+v", r)
	}
}

func TestNormalityOf_Edges(t *testing.T) {
	if r := NormalityOf(column("x", 1, 2, 3), "x"); r.Status != model.StatusOK || !near(float64(r.ShapiroP), 1, 1e-9) {
		t.Errorf("n=3 evenly spaced: got %+v", r)
	}
	if got := NormalityOf(column("x", 1, 2), "x").Status; got != model.StatusInsufficientData {
		t.Errorf("n=2: got %s", got)
	}
	if got := NormalityOf(column("x", 4, 4, 4, 4), "x").Status; got != model.StatusNotApplicable {
		t.Errorf("constant: got %s", got)
	}

	big := make([]float64, MaxShapiroN+1)
	for i := range big {
		big[i] = float64(i % 97)
	}
	r := NormalityOf(column("x", big...), "x")
	if r.ShapiroStatus != model.StatusNotComputed || r.Status != model.StatusOK {
		t.Errorf("large sample: got status=%s shapiro=%s", r.Status, r.ShapiroStatus)
	}
	if math.IsNaN(float64(r.KSP)) {
		t.Error("KS p-value missing for large sample")
	}
}

func TestKSCDF_SmallSamples(t *testing.T) {
	cases := []struct {
		n    int
		d    float64
		want float64
	}{
		{1, 0.75, 0.5}, // 2d - 1
		{2, 0.4, 0.18}, // 2(2d - 1/2)^2
		{2, 0.6, 0.68}, // 1 - 2(1 - d)^2
		{5, 0.05, 0},   // below 1/(2n)
		{5, 1, 1},
	}
	for _, c := range cases {
		if got := ksCDF(c.n, c.d); !near(got, c.want, 1e-9) {
			t.Errorf("ksCDF(%d, %v): got %v, want %v", c.n, c.d, got, c.want)
		}
	}
}

func TestKolmogorovSmirnov_ExactSmallSample(t *testing.T) {
	s := []float64{-1.5, -0.5, 0, 0.5, 1.5}
	d, p := KolmogorovSmirnov(s, 0, 1)
	if !near(p, 1-ksCDF(len(s), d), 1e-12) {
		t.Errorf("p: got %v, want exact %v", p, 1-ksCDF(len(s), d))
	}
	if p <= 0.05 || p > 1 {
		t.Errorf("p: got %v, want a non-significant value", p)
	}
}
