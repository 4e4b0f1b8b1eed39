// Package table implements the in-memory column store every analysis runs on.
// A Table is never mutated after construction; operations that add columns or
// select rows return a new Table.
package table

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Value is one cell: nil (missing), float64, string or bool.
type Value = any

// Kind classifies a column for numeric operations.
type Kind int

const (
	Absent     Kind = iota // no such column
	Numeric                // every non-missing cell is a float64, at least one present
	NonNumeric             // text, mixed, or entirely missing
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case NonNumeric:
		return "non-numeric"
	default:
		return "absent"
	}
}

// Table maps column names to equally long value slices.
type Table struct {
	names []string
	cols  map[string][]Value
	rows  int
}

// New returns an empty table with the given number of rows and no columns.
func New(rows int) *Table {
	return &Table{cols: make(map[string][]Value), rows: rows}
}

// FromRows builds a table from row maps. Columns named in order come first;
// other keys follow as they are first met, sorted within a row. Keys missing
// from a row become nil.
func FromRows(rows []map[string]Value, order []string) *Table {
	t := New(len(rows))
	seen := make(map[string]bool)
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		t.names = append(t.names, name)
		t.cols[name] = make([]Value, len(rows))
	}
	for _, name := range order {
		add(name)
	}
	for i, row := range rows {
		var extra []string
		for k := range row {
			if !seen[k] {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		for _, k := range extra {
			add(k)
		}
		for k, v := range row {
			t.cols[k][i] = v
		}
	}
	return t
}

// Len returns the row count.
func (t *Table) Len() int { return t.rows }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the column's values. The slice must not be modified.
func (t *Table) Column(name string) ([]Value, bool) {
	c, ok := t.cols[name]
	return c, ok
}

// Kind classifies the named column.
func (t *Table) Kind(name string) Kind {
	c, ok := t.cols[name]
	if !ok {
		return Absent
	}
	numeric := false
	for _, v := range c {
		if v == nil {
			continue
		}
		if _, ok := v.(float64); !ok {
			return NonNumeric
		}
		numeric = true
	}
	if !numeric {
		return NonNumeric
	}
	return Numeric
}

// Floats returns the numeric view of a column: vals[i] is valid only when
// ok[i] is true. Non-numeric cells are reported as missing.
func (t *Table) Floats(name string) (vals []float64, ok []bool) {
	c := t.cols[name]
	vals = make([]float64, t.rows)
	ok = make([]bool, t.rows)
	for i := 0; i < len(c) && i < t.rows; i++ {
		if f, isNum := AsFloat(c[i]); isNum {
			vals[i] = f
			ok[i] = true
		}
	}
	return vals, ok
}

// NonMissing returns the non-missing numeric values of a column in row order.
func (t *Table) NonMissing(name string) []float64 {
	vals, ok := t.Floats(name)
	out := make([]float64, 0, len(vals))
	for i, v := range vals {
		if ok[i] {
			out = append(out, v)
		}
	}
	return out
}

// Row returns row i as a map.
func (t *Table) Row(i int) map[string]Value {
	row := make(map[string]Value, len(t.names))
	for _, name := range t.names {
		row[name] = t.cols[name][i]
	}
	return row
}

// WithColumn returns a copy of t with the column added or replaced.
func (t *Table) WithColumn(name string, vals []Value) (*Table, error) {
	if len(vals) != t.rows {
		return nil, fmt.Errorf("column %q has %d values, table has %d rows", name, len(vals), t.rows)
	}
	out := t.shallow()
	if _, exists := out.cols[name]; !exists {
		out.names = append(out.names, name)
	}
	c := make([]Value, len(vals))
	copy(c, vals)
	out.cols[name] = c
	return out, nil
}

// Take returns a new table holding rows idx in the given order.
func (t *Table) Take(idx []int) *Table {
	out := New(len(idx))
	out.names = t.Columns()
	for _, name := range t.names {
		src := t.cols[name]
		dst := make([]Value, len(idx))
		for j, i := range idx {
			dst[j] = src[i]
		}
		out.cols[name] = dst
	}
	return out
}

// MissingCount returns the number of nil cells across all columns.
func (t *Table) MissingCount() int {
	n := 0
	for _, c := range t.cols {
		for _, v := range c {
			if v == nil {
				n++
			}
		}
	}
	return n
}

// MaskEquals returns a row mask selecting rows whose column equals v.
func (t *Table) MaskEquals(name string, v Value) []bool {
	mask := make([]bool, t.rows)
	c, ok := t.cols[name]
	if !ok {
		return mask
	}
	for i, cell := range c {
		mask[i] = Equal(cell, v)
	}
	return mask
}

// shallow copies the column index but shares column slices, which is safe
// because columns are never written after construction.
func (t *Table) shallow() *Table {
	out := New(t.rows)
	out.names = t.Columns()
	for name, c := range t.cols {
		out.cols[name] = c
	}
	return out
}

// AsFloat reports the numeric value of a cell. NaN and ±Inf are treated as missing.
func AsFloat(v Value) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Equal compares two cells. Missing never equals anything.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return false
	}
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	}
	return false
}

// Format renders a cell as text. Missing cells render as "".
func Format(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// Less orders two non-missing cells: numbers before text, numbers
// numerically, text lexically.
func Less(a, b Value) bool {
	fa, aNum := a.(float64)
	fb, bNum := b.(float64)
	switch {
	case aNum && bNum:
		return fa < fb
	case aNum != bNum:
		return aNum
	}
	return Format(a) < Format(b)
}
