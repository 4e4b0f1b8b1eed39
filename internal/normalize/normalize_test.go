package normalize

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestAmount(t *testing.T) {
	cases := []struct {
		in   any
		want *float64
	}{
		{nil, nil},
		{1500.0, ptr(1500)},
		{int64(42), ptr(42)},
		{json.Number("2500000"), ptr(2500000)},
		{"  35000 ", ptr(35000)},
		{"$ 1,250,000.50", ptr(1250000.5)},
		{"-12.5", ptr(-12.5)},
		{"1,25", nil},
		{"abc", nil},
		{"", nil},
		{math.NaN(), nil},
		{math.Inf(1), nil},
		{true, nil},
	}
	for _, c := range cases {
		got := Amount(c.in)
		switch {
		case got == nil && c.want == nil:
		case got == nil || c.want == nil:
			t.Errorf("Amount(%#v): got %v, want %v", c.in, deref(got), deref(c.want))
		case *got != *c.want:
			t.Errorf("Amount(%#v): got %v, want %v", c.in, *got, *c.want)
		}
	}
}

func TestAmountValue(t *testing.T) {
	if got := AmountValue("x"); got != nil {
		t.Errorf("AmountValue(x): got %v, want nil", got)
	}
	if got := AmountValue("10"); got != 10.0 {
		t.Errorf("AmountValue(10): got %v, want 10", got)
	}
}

func TestNumber(t *testing.T) {
	cases := []struct {
		in   any
		want any
	}{
		{45.0, 45.0},
		{" 45 ", 45.0},
		{"12.5", 12.5},
		{"sin dato", nil},
		{"$45", nil},
		{"1,200", nil},
		{"", nil},
		{nil, nil},
		{true, nil},
	}
	for _, c := range cases {
		if got := NumberValue(c.in); got != c.want {
			t.Errorf("NumberValue(%#v): got %#v, want %#v", c.in, got, c.want)
		}
	}
}

func TestCleanCategory(t *testing.T) {
	cases := map[string]string{
		"  NUEVA  EPS\tSA ": "NUEVA EPS SA",
		"":                  "",
		"   ":               "",
		"Ambulatorio":       "Ambulatorio",
	}
	for in, want := range cases {
		if got := CleanCategory(in); got != want {
			t.Errorf("CleanCategory(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	d := ParseDate("15/03/2024")
	if d == nil {
		t.Fatal("ParseDate(15/03/2024): got nil")
	}
	if d.Day() != 15 || d.Month() != 3 || d.Year() != 2024 {
		t.Errorf("ParseDate(15/03/2024): got %v", d)
	}
	if ParseDate("2024-03-15T10:20:00") == nil {
		t.Error("ParseDate(ISO timestamp): got nil")
	}
	if ParseDate("yesterday") != nil {
		t.Error("ParseDate(yesterday): want nil")
	}
}

func TestFileHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.json")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	digest, size, err := FileHash(path)
	if err != nil {
		t.Fatalf("FileHash: %v", err)
	}
	if want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"; digest != want {
		t.Errorf("digest: got %s, want %s", digest, want)
	}
	if size != 3 {
		t.Errorf("size: got %d, want 3", size)
	}
	if _, _, err := FileHash(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func ptr(f float64) *float64 { return &f }

func deref(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
