// Package stats computes descriptive statistics over table columns. Every
// function reports absent, non-numeric or empty columns through a Status
// instead of failing.
package stats

import (
	"math"

	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/table"
)

// DefaultIQRFactor is the multiplier k for the Q1−k·IQR, Q3+k·IQR fences.
const DefaultIQRFactor = 1.5

// maxOutlierExamples bounds the example rows surfaced by FullSummary.
const maxOutlierExamples = 5

// Centrality holds the location measures of a column.
type Centrality struct {
	Column string       `json:"column"`
	Status model.Status `json:"status"`
	Reason string       `json:"reason,omitempty"`
	N      int          `json:"n"`
	Mean   float64      `json:"mean"`
	Median float64      `json:"median"`
	Mode   float64      `json:"mode"`
}

// Dispersion holds the spread measures of a column. CV is nil when the mean
// is zero and the coefficient is undefined.
type Dispersion struct {
	Column    string       `json:"column"`
	Status    model.Status `json:"status"`
	Reason    string       `json:"reason,omitempty"`
	N         int          `json:"n"`
	Variance  float64      `json:"variance"`
	Std       float64      `json:"std"`
	Range     float64      `json:"range"`
	IQR       float64      `json:"iqr"`
	CV        *float64     `json:"cv"`
	CVDefined bool         `json:"cv_defined"`
}

// Quartiles holds order statistics of a column.
type Quartiles struct {
	Column string       `json:"column"`
	Status model.Status `json:"status"`
	Reason string       `json:"reason,omitempty"`
	Min    float64      `json:"min"`
	Q1     float64      `json:"q1"`
	Median float64      `json:"median"`
	Q3     float64      `json:"q3"`
	Max    float64      `json:"max"`
	P10    float64      `json:"p10"`
	P90    float64      `json:"p90"`
}

// Outliers is the result of IQR outlier detection. Rows are table row
// indices of the flagged values; Total counts non-missing values.
type Outliers struct {
	Column string       `json:"column"`
	Status model.Status `json:"status"`
	Reason string       `json:"reason,omitempty"`
	K      float64      `json:"k"`
	Lower  float64      `json:"lower"`
	Upper  float64      `json:"upper"`
	Rows   []int        `json:"rows"`
	Count  int          `json:"count"`
	Total  int          `json:"total"`
	Rate   float64      `json:"rate"`
	// TableRows counts every row, missing values included. RowRate is
	// Count over TableRows.
	TableRows int     `json:"table_rows"`
	RowRate   float64 `json:"row_rate"`
}

// OutlierExample is one flagged value and the row it came from.
type OutlierExample struct {
	Row   int     `json:"row"`
	Value float64 `json:"value"`
}

// Summary bundles every descriptive measure of one column.
type Summary struct {
	Column     string           `json:"column"`
	Status     model.Status     `json:"status"`
	Reason     string           `json:"reason,omitempty"`
	Centrality Centrality       `json:"centrality"`
	Dispersion Dispersion       `json:"dispersion"`
	Quartiles  Quartiles        `json:"quartiles"`
	Outliers   Outliers         `json:"outliers"`
	Examples   []OutlierExample `json:"examples"`
}

// PairDispersion describes two columns over their pairwise-complete rows.
type PairDispersion struct {
	X      string       `json:"x"`
	Y      string       `json:"y"`
	Status model.Status `json:"status"`
	Reason string       `json:"reason,omitempty"`
	N      int          `json:"n"`
	MeanX  float64      `json:"mean_x"`
	MeanY  float64      `json:"mean_y"`
	StdX   float64      `json:"std_x"`
	StdY   float64      `json:"std_y"`
	RangeX float64      `json:"range_x"`
	RangeY float64      `json:"range_y"`
}

// CentralityOf computes mean, median and mode of a column.
func CentralityOf(t *table.Table, col string) Centrality {
	vals, _, status, reason := Numeric(t, col)
	if status != model.StatusOK {
		return Centrality{Column: col, Status: status, Reason: reason}
	}
	return Centrality{
		Column: col,
		Status: model.StatusOK,
		N:      len(vals),
		Mean:   Mean(vals),
		Median: Median(vals),
		Mode:   Mode(vals),
	}
}

// DispersionOf computes variance, standard deviation, range, IQR and CV.
func DispersionOf(t *table.Table, col string) Dispersion {
	vals, _, status, reason := Numeric(t, col)
	if status != model.StatusOK {
		return Dispersion{Column: col, Status: status, Reason: reason}
	}
	s := Sorted(vals)
	v := Variance(vals)
	d := Dispersion{
		Column:   col,
		Status:   model.StatusOK,
		N:        len(vals),
		Variance: v,
		Std:      math.Sqrt(v),
		Range:    s[len(s)-1] - s[0],
		IQR:      Quantile(s, 0.75) - Quantile(s, 0.25),
	}
	if m := Mean(vals); m != 0 {
		cv := d.Std / m * 100
		d.CV = &cv
		d.CVDefined = true
	}
	return d
}

// QuartilesOf computes min, Q1, median, Q3, max, P10 and P90.
func QuartilesOf(t *table.Table, col string) Quartiles {
	vals, _, status, reason := Numeric(t, col)
	if status != model.StatusOK {
		return Quartiles{Column: col, Status: status, Reason: reason}
	}
	s := Sorted(vals)
	return Quartiles{
		Column: col,
		Status: model.StatusOK,
		Min:    s[0],
		Q1:     Quantile(s, 0.25),
		Median: Quantile(s, 0.5),
		Q3:     Quantile(s, 0.75),
		Max:    s[len(s)-1],
		P10:    Quantile(s, 0.10),
		P90:    Quantile(s, 0.90),
	}
}

// IQRBounds returns the outlier fences Q1−k·IQR and Q3+k·IQR of a sample.
func IQRBounds(vals []float64, k float64) (lower, upper float64) {
	s := Sorted(vals)
	q1, q3 := Quantile(s, 0.25), Quantile(s, 0.75)
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr
}

// DetectOutliers flags values strictly outside the IQR fences. k <= 0 uses
// DefaultIQRFactor.
func DetectOutliers(t *table.Table, col string, k float64) Outliers {
	if k <= 0 {
		k = DefaultIQRFactor
	}
	vals, rows, status, reason := Numeric(t, col)
	if status != model.StatusOK {
		return Outliers{Column: col, Status: status, Reason: reason, K: k}
	}
	lower, upper := IQRBounds(vals, k)
	o := Outliers{
		Column: col,
		Status: model.StatusOK,
		K:      k,
		Lower:  lower,
		Upper:  upper,
		Rows:   []int{},
		Total:  len(vals),
	}
	for i, v := range vals {
		if v < lower || v > upper {
			o.Rows = append(o.Rows, rows[i])
		}
	}
	o.Count = len(o.Rows)
	o.Rate = float64(o.Count) / float64(o.Total)
	o.TableRows = t.Len()
	o.RowRate = float64(o.Count) / float64(o.TableRows)
	return o
}

// FullSummary runs every descriptive measure over each column and adds up
// to five example outlier values per column.
func FullSummary(t *table.Table, cols []string) []Summary {
	out := make([]Summary, 0, len(cols))
	for _, col := range cols {
		s := Summary{
			Column:     col,
			Centrality: CentralityOf(t, col),
			Dispersion: DispersionOf(t, col),
			Quartiles:  QuartilesOf(t, col),
			Outliers:   DetectOutliers(t, col, DefaultIQRFactor),
			Examples:   []OutlierExample{},
		}
		s.Status, s.Reason = s.Centrality.Status, s.Centrality.Reason
		if s.Status == model.StatusOK {
			vals, _ := t.Floats(col)
			for _, row := range s.Outliers.Rows {
				if len(s.Examples) == maxOutlierExamples {
					break
				}
				s.Examples = append(s.Examples, OutlierExample{Row: row, Value: vals[row]})
			}
		}
		out = append(out, s)
	}
	return out
}

// PairDispersionOf compares the spread of two columns over the rows where
// both are present.
func PairDispersionOf(t *table.Table, x, y string) PairDispersion {
	p := PairDispersion{X: x, Y: y}
	for _, col := range []string{x, y} {
		if _, _, status, reason := Numeric(t, col); status != model.StatusOK {
			p.Status, p.Reason = status, col+": "+reason
			return p
		}
	}
	xs, ys := PairwiseComplete(t, x, y)
	if len(xs) == 0 {
		p.Status, p.Reason = model.StatusInsufficientData, "no rows with both values"
		return p
	}
	sx, sy := Sorted(xs), Sorted(ys)
	p.Status = model.StatusOK
	p.N = len(xs)
	p.MeanX, p.MeanY = Mean(xs), Mean(ys)
	p.StdX, p.StdY = Std(xs), Std(ys)
	p.RangeX = sx[len(sx)-1] - sx[0]
	p.RangeY = sy[len(sy)-1] - sy[0]
	return p
}

// PairwiseComplete returns the values of a and b from rows where both are
// present and numeric.
func PairwiseComplete(t *table.Table, a, b string) (xs, ys []float64) {
	av, aok := t.Floats(a)
	bv, bok := t.Floats(b)
	for i := range av {
		if aok[i] && bok[i] {
			xs = append(xs, av[i])
			ys = append(ys, bv[i])
		}
	}
	return xs, ys
}
