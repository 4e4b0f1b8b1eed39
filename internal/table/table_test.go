package table

import (
	"math"
	"reflect"
	"testing"
)

func sample() *Table {
	return FromRows([]map[string]Value{
		{"a": 1.0, "b": "x", "c": nil},
		{"a": 2.0, "b": "y"},
		{"a": nil, "b": 3.0, "c": nil},
	}, []string{"a", "b"})
}

func TestFromRowsOrderAndPadding(t *testing.T) {
	tb := sample()
	if got, want := tb.Columns(), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Columns: got %v, want %v", got, want)
	}
	if tb.Len() != 3 {
		t.Errorf("Len: got %d, want 3", tb.Len())
	}
	c, _ := tb.Column("c")
	for i, v := range c {
		if v != nil {
			t.Errorf("c[%d]: got %v, want nil", i, v)
		}
	}
}

func TestKind(t *testing.T) {
	tb := sample()
	cases := map[string]Kind{
		"a":       Numeric,
		"b":       NonNumeric,
		"c":       NonNumeric,
		"missing": Absent,
	}
	for name, want := range cases {
		if got := tb.Kind(name); got != want {
			t.Errorf("Kind(%s): got %v, want %v", name, got, want)
		}
	}
}

func TestFloatsTreatsNaNAsMissing(t *testing.T) {
	tb := FromRows([]map[string]Value{{"v": 1.5}, {"v": math.NaN()}, {"v": "7"}}, nil)
	vals, ok := tb.Floats("v")
	if !ok[0] || vals[0] != 1.5 {
		t.Errorf("row 0: got (%v, %v), want (1.5, true)", vals[0], ok[0])
	}
	if ok[1] || ok[2] {
		t.Errorf("rows 1,2: got ok=%v,%v, want false,false", ok[1], ok[2])
	}
	if got := tb.NonMissing("v"); !reflect.DeepEqual(got, []float64{1.5}) {
		t.Errorf("NonMissing: got %v, want [1.5]", got)
	}
}

func TestWithColumnDoesNotMutate(t *testing.T) {
	tb := sample()
	out, err := tb.WithColumn("d", []Value{1.0, 2.0, 3.0})
	if err != nil {
		t.Fatalf("WithColumn: %v", err)
	}
	if tb.Has("d") {
		t.Error("input table gained column d")
	}
	if !out.Has("d") || out.Kind("d") != Numeric {
		t.Error("output table missing numeric column d")
	}
	if _, err := tb.WithColumn("e", []Value{1.0}); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestTake(t *testing.T) {
	tb := sample()
	out := tb.Take([]int{2, 0})
	if out.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", out.Len())
	}
	b, _ := out.Column("b")
	if !reflect.DeepEqual(b, []Value{3.0, "x"}) {
		t.Errorf("b: got %v, want [3 x]", b)
	}
}

func TestMissingCountAndMask(t *testing.T) {
	tb := sample()
	if got := tb.MissingCount(); got != 4 {
		t.Errorf("MissingCount: got %d, want 4", got)
	}
	if got := tb.MaskEquals("b", "y"); !reflect.DeepEqual(got, []bool{false, true, false}) {
		t.Errorf("MaskEquals: got %v", got)
	}
}

func TestHelpers(t *testing.T) {
	if Equal(nil, nil) {
		t.Error("Equal(nil, nil): got true, want false")
	}
	if Equal(1.0, "1") {
		t.Error("Equal(1.0, \"1\"): got true, want false")
	}
	if got := Format(2500000.0); got != "2500000" {
		t.Errorf("Format: got %q, want %q", got, "2500000")
	}
	if !Less(5.0, "a") || Less("a", 5.0) {
		t.Error("Less: numbers must sort before text")
	}
}
