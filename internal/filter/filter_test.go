package filter

import (
	"reflect"
	"testing"

	"github.com/gyeh/billingstats/internal/table"
)

func episodes() *table.Table {
	return table.FromRows([]map[string]table.Value{
		{"episodio": "E1", "monto": 100.0, "aseguradora": "SURA", "paciente": "Ana Perez"},
		{"episodio": "E2", "monto": 2500000.0, "aseguradora": "NUEVA EPS SA SUBSIDIADO", "paciente": "Luis Gomez"},
		{"episodio": "E3", "monto": nil, "aseguradora": "SURA", "paciente": nil},
		{"episodio": "E4", "monto": 300.0, "aseguradora": "SANITAS", "paciente": "ana maria"},
		{"episodio": "E5", "monto": 2500000.0, "aseguradora": "SANITAS", "paciente": "Pedro"},
		{"episodio": "E6", "monto": 400.0, "aseguradora": "SURA", "paciente": "Sofia"},
	}, []string{"episodio", "monto", "aseguradora", "paciente"})
}

func ids(t *testing.T, tb *table.Table) []table.Value {
	t.Helper()
	c, ok := tb.Column("episodio")
	if !ok {
		t.Fatal("episodio column missing")
	}
	return c
}

func TestRange_Inclusive(t *testing.T) {
	in := episodes()
	out, rep := Range(in, "monto", 300, 2500000)
	if got, want := ids(t, out), []table.Value{"E2", "E4", "E5", "E6"}; !reflect.DeepEqual(got, want) {
		t.Errorf("rows: got %v, want %v", got, want)
	}
	if rep.Matched != 4 || rep.Total != 6 || rep.Skipped {
		t.Errorf("report: got %+v", rep)
	}
	if in.Len() != 6 {
		t.Error("input table was modified")
	}
}

func TestAbsentColumnIsNoOp(t *testing.T) {
	in := episodes()
	checks := map[string]func() (*table.Table, Report){
		"range":    func() (*table.Table, Report) { return Range(in, "nope", 0, 1) },
		"category": func() (*table.Table, Report) { return Category(in, "nope", []table.Value{"x"}) },
		"text":     func() (*table.Table, Report) { return TextSearch(in, "nope", "x", false) },
		"top_n":    func() (*table.Table, Report) { return TopN(in, "nope", 3, false) },
		"outliers": func() (*table.Table, Report) { return Outliers(in, "nope", MethodIQR, 0) },
	}
	for name, run := range checks {
		out, rep := run()
		if out != in {
			t.Errorf("%s: expected the input table back", name)
		}
		if rep.Matched != 0 || !rep.Skipped {
			t.Errorf("%s: report got %+v", name, rep)
		}
	}
}

func TestNumericFilterOnTextColumn(t *testing.T) {
	in := episodes()
	out, rep := Range(in, "aseguradora", 0, 1)
	if out != in || !rep.Skipped || rep.Reason == "" {
		t.Errorf("got report %+v", rep)
	}
}

func TestCategory(t *testing.T) {
	out, rep := Category(episodes(), "aseguradora", []table.Value{"NUEVA EPS SA SUBSIDIADO", "SANITAS"})
	if got, want := ids(t, out), []table.Value{"E2", "E4", "E5"}; !reflect.DeepEqual(got, want) {
		t.Errorf("rows: got %v, want %v", got, want)
	}
	if rep.Matched != 3 {
		t.Errorf("Matched: got %d, want 3", rep.Matched)
	}
}

func TestTextSearch(t *testing.T) {
	out, _ := TextSearch(episodes(), "paciente", "ana", false)
	if got, want := ids(t, out), []table.Value{"E1", "E4"}; !reflect.DeepEqual(got, want) {
		t.Errorf("case-insensitive: got %v, want %v", got, want)
	}
	out, _ = TextSearch(episodes(), "paciente", "ana", true)
	if got, want := ids(t, out), []table.Value{"E4"}; !reflect.DeepEqual(got, want) {
		t.Errorf("case-sensitive: got %v, want %v", got, want)
	}
	out, _ = TextSearch(episodes(), "monto", "25", false)
	if got, want := ids(t, out), []table.Value{"E2", "E5"}; !reflect.DeepEqual(got, want) {
		t.Errorf("numeric text form: got %v, want %v", got, want)
	}
}

func TestTopN(t *testing.T) {
	in := episodes()
	out, rep := TopN(in, "monto", 3, false)
	if got, want := ids(t, out), []table.Value{"E2", "E5", "E6"}; !reflect.DeepEqual(got, want) {
		t.Errorf("descending: got %v, want %v", got, want)
	}
	if rep.Matched != 3 {
		t.Errorf("Matched: got %d", rep.Matched)
	}
	vals := out.NonMissing("monto")
	for i := 1; i < len(vals); i++ {
		if vals[i] > vals[i-1] {
			t.Errorf("not sorted descending: %v", vals)
		}
	}

	out, _ = TopN(in, "monto", 5, true)
	if got, want := ids(t, out), []table.Value{"E1", "E4", "E6", "E2", "E5"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ascending: got %v, want %v", got, want)
	}

	out, _ = TopN(in, "monto", 10, false)
	if out.Len() != 5 {
		t.Errorf("n larger than table: got %d rows, want 5", out.Len())
	}

	out, rep = TopN(in, "monto", 0, false)
	if out.Len() != 0 || rep.Skipped {
		t.Errorf("n=0: got %d rows, report %+v", out.Len(), rep)
	}
}

func TestOutliers(t *testing.T) {
	tb := table.FromRows([]map[string]table.Value{
		{"v": 100.0}, {"v": 200.0}, {"v": 300.0}, {"v": 400.0}, {"v": 1000000.0}, {"v": nil},
	}, nil)
	out, rep := Outliers(tb, "v", MethodIQR, 0)
	if got := out.NonMissing("v"); !reflect.DeepEqual(got, []float64{100, 200, 300, 400}) {
		t.Errorf("iqr: got %v", got)
	}
	if rep.Matched != 4 || rep.Total != 6 {
		t.Errorf("iqr report: got %+v", rep)
	}

	out, _ = Outliers(tb, "v", MethodZScore, 1.5)
	if got := out.NonMissing("v"); !reflect.DeepEqual(got, []float64{100, 200, 300, 400}) {
		t.Errorf("zscore: got %v", got)
	}

	flat := table.FromRows([]map[string]table.Value{{"v": 5.0}, {"v": 5.0}, {"v": nil}}, nil)
	out, _ = Outliers(flat, "v", MethodZScore, 0)
	if out.Len() != 2 {
		t.Errorf("zero std: got %d rows, want 2", out.Len())
	}

	if _, rep := Outliers(tb, "v", Method("mad"), 0); !rep.Skipped {
		t.Error("unknown method must be skipped")
	}
}

func TestMultiCondition(t *testing.T) {
	lo := 300.0
	out, rep := MultiCondition(episodes(), []Condition{
		{Column: "monto", Min: &lo},
		{Column: "aseguradora", In: []table.Value{"SURA", "SANITAS"}},
		{Column: "ghost", Equals: "x"},
	})
	if got, want := ids(t, out), []table.Value{"E4", "E5", "E6"}; !reflect.DeepEqual(got, want) {
		t.Errorf("rows: got %v, want %v", got, want)
	}
	if len(rep.Warnings) != 1 {
		t.Errorf("Warnings: got %v, want 1 entry", rep.Warnings)
	}

	out, _ = MultiCondition(episodes(), []Condition{{Column: "episodio", Equals: "E3"}})
	if got := ids(t, out); !reflect.DeepEqual(got, []table.Value{"E3"}) {
		t.Errorf("equals: got %v", got)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(episodes(), "aseguradora")
	if s.Total != 6 || len(s.Groups) != 3 || s.Groups[0].Value != "SURA" || s.Groups[0].Count != 3 {
		t.Errorf("got %+v", s)
	}
	if s := Summarize(episodes(), "nope"); s.Groups != nil {
		t.Errorf("absent group column: got %+v", s)
	}
}
