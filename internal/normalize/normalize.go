// Package normalize coerces raw billing values into the forms the analysis
// engines accept. Every function maps unparseable input to nil rather than
// returning an error.
package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// thousands matches amounts written with comma group separators, e.g. 1,250,000.50.
var thousands = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)

// Amount converts a net-amount value to float64. Numbers pass through;
// strings are trimmed, stripped of currency signs and grouping commas, then
// parsed as decimals. Returns nil for missing, non-finite or unparseable values.
func Amount(v any) *float64 {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return finite(float64(x))
	case int64:
		return finite(float64(x))
	case json.Number:
		return parseAmount(string(x))
	case string:
		return parseAmount(x)
	default:
		return nil
	}
}

func parseAmount(s string) *float64 {
	s = strings.ReplaceAll(s, "$", "")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil
	}
	if thousands.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	f, _ := d.Float64()
	return finite(f)
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// AmountValue is Amount for table cells: it returns a float64 or nil.
func AmountValue(v any) any {
	if f := Amount(v); f != nil {
		return *f
	}
	return nil
}

// Number converts a plain numeric field such as an age or a duration.
// Strings are trimmed and parsed as decimals; currency signs and grouping
// commas are not accepted. Returns nil for missing or unparseable values.
func Number(v any) *float64 {
	switch x := v.(type) {
	case string:
		return parseNumber(x)
	case json.Number:
		return parseNumber(string(x))
	default:
		return Amount(v)
	}
}

func parseNumber(s string) *float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	f, _ := d.Float64()
	return finite(f)
}

// NumberValue is Number for table cells: it returns a float64 or nil.
func NumberValue(v any) any {
	if f := Number(v); f != nil {
		return *f
	}
	return nil
}
