package inference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/stats"
	"github.com/gyeh/billingstats/internal/table"
)

// DefaultLevel is the confidence level used when none is given.
const DefaultLevel = 0.95

// Interval is a t-based confidence interval for a column mean.
type Interval struct {
	Column         string       `json:"column"`
	Status         model.Status `json:"status"`
	Reason         string       `json:"reason,omitempty"`
	Level          float64      `json:"level"`
	N              int          `json:"n"`
	Mean           float64      `json:"mean"`
	StdError       float64      `json:"std_error"`
	Lower          float64      `json:"lower"`
	Upper          float64      `json:"upper"`
	Interpretation string       `json:"interpretation,omitempty"`
}

// ConfidenceInterval computes mean ± t(n−1)·SE at the given level. A zero
// level uses DefaultLevel.
func ConfidenceInterval(t *table.Table, col string, level float64) Interval {
	if level == 0 {
		level = DefaultLevel
	}
	r := Interval{Column: col, Level: level}
	if level <= 0 || level >= 1 {
		r.Status, r.Reason = model.StatusNotApplicable, fmt.Sprintf("level %v outside (0, 1)", level)
		return r
	}
	vals, _, status, reason := stats.Numeric(t, col)
	if status != model.StatusOK {
		r.Status, r.Reason = status, reason
		return r
	}
	r.N = len(vals)
	if r.N < 2 {
		r.Status, r.Reason = model.StatusInsufficientData, "fewer than 2 values"
		return r
	}
	r.Mean = stats.Mean(vals)
	r.StdError = stats.Std(vals) / math.Sqrt(float64(r.N))
	crit := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(r.N - 1)}.Quantile((1 + level) / 2)
	r.Lower = r.Mean - crit*r.StdError
	r.Upper = r.Mean + crit*r.StdError
	r.Status = model.StatusOK
	r.Interpretation = fmt.Sprintf("%.0f%% confidence that the mean lies in [%.2f, %.2f]", level*100, r.Lower, r.Upper)
	return r
}
