package inference

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/stats"
	"github.com/gyeh/billingstats/internal/table"
)

// MaxShapiroN is the largest sample Shapiro-Wilk is run on.
const MaxShapiroN = 5000

// Normality holds the Shapiro-Wilk and Kolmogorov-Smirnov results for one
// column. Normal is decided on Shapiro-Wilk when it ran, else on KS.
type Normality struct {
	Column         string       `json:"column"`
	Status         model.Status `json:"status"`
	Reason         string       `json:"reason,omitempty"`
	N              int          `json:"n"`
	ShapiroStatus  model.Status `json:"shapiro_status"`
	ShapiroW       model.Float  `json:"shapiro_w"`
	ShapiroP       model.Float  `json:"shapiro_p"`
	KSStatistic    model.Float  `json:"ks_statistic"`
	KSP            model.Float  `json:"ks_p"`
	Normal         bool         `json:"normal"`
	Interpretation string       `json:"interpretation,omitempty"`
}

// NormalityOf tests whether a column looks normally distributed.
func NormalityOf(t *table.Table, col string) Normality {
	r := Normality{Column: col, ShapiroW: nan(), ShapiroP: nan(), KSStatistic: nan(), KSP: nan()}
	vals, _, status, reason := stats.Numeric(t, col)
	if status != model.StatusOK {
		r.Status, r.Reason, r.ShapiroStatus = status, reason, status
		return r
	}
	r.N = len(vals)
	if r.N < 3 {
		r.Status, r.Reason, r.ShapiroStatus = model.StatusInsufficientData, "fewer than 3 values", model.StatusInsufficientData
		return r
	}
	s := stats.Sorted(vals)
	if s[0] == s[len(s)-1] {
		r.Status, r.Reason, r.ShapiroStatus = model.StatusNotApplicable, "column is constant", model.StatusNotApplicable
		return r
	}

	p := math.NaN()
	if r.N <= MaxShapiroN {
		w, pw := ShapiroWilk(s)
		r.ShapiroStatus, r.ShapiroW, r.ShapiroP = model.StatusOK, model.Float(w), model.Float(pw)
		p = pw
	} else {
		r.ShapiroStatus = model.StatusNotComputed
	}
	d, pks := KolmogorovSmirnov(s, stats.Mean(s), stats.Std(s))
	r.KSStatistic, r.KSP = model.Float(d), model.Float(pks)
	if math.IsNaN(p) {
		p = pks
	}
	r.Status = model.StatusOK
	r.Normal = p > model.Alpha
	if r.Normal {
		r.Interpretation = "distribution is consistent with normal"
	} else {
		r.Interpretation = "distribution is not normal"
	}
	return r
}

// Royston (1995) polynomial coefficients, algorithm AS R94.
var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.071190, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.544, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

func poly(c []float64, x float64) float64 {
	var r float64
	for i := len(c) - 1; i >= 0; i-- {
		r = r*x + c[i]
	}
	return r
}

// ShapiroWilk returns the W statistic and p-value of an ascending sample
// of 3 to MaxShapiroN non-constant values.
func ShapiroWilk(sorted []float64) (w, p float64) {
	n := len(sorted)
	half := n / 2
	a := make([]float64, half)
	std := distuv.Normal{Mu: 0, Sigma: 1}

	if n == 3 {
		a[0] = math.Sqrt(0.5)
	} else {
		m := make([]float64, half)
		var summ2 float64
		for i := range m {
			m[i] = std.Quantile((float64(i+1) - 0.375) / (float64(n) + 0.25))
			summ2 += m[i] * m[i]
		}
		summ2 *= 2
		ssumm2 := math.Sqrt(summ2)
		rsn := 1 / math.Sqrt(float64(n))
		a1 := poly(swC1, rsn) - m[0]/ssumm2

		first := 1
		var fac float64
		if n > 5 {
			first = 2
			a2 := -m[1]/ssumm2 + poly(swC2, rsn)
			fac = math.Sqrt((summ2 - 2*m[0]*m[0] - 2*m[1]*m[1]) / (1 - 2*a1*a1 - 2*a2*a2))
			a[1] = a2
		} else {
			fac = math.Sqrt((summ2 - 2*m[0]*m[0]) / (1 - 2*a1*a1))
		}
		a[0] = a1
		for i := first; i < half; i++ {
			a[i] = -m[i] / fac
		}
	}

	mean := stats.Mean(sorted)
	var num, ss float64
	for i := 0; i < half; i++ {
		num += a[i] * (sorted[n-1-i] - sorted[i])
	}
	for _, x := range sorted {
		ss += (x - mean) * (x - mean)
	}
	w = math.Min(1, num*num/ss)

	if n == 3 {
		w = math.Max(w, 0.75)
		p = 6 / math.Pi * (math.Asin(math.Sqrt(w)) - math.Pi/3)
		return w, math.Max(0, math.Min(1, p))
	}

	if w == 1 {
		return w, 1
	}
	y := math.Log(1 - w)
	nf := float64(n)
	var mu, sigma float64
	if n <= 11 {
		gamma := poly(swG, nf)
		if y >= gamma {
			return w, 0
		}
		y = -math.Log(gamma - y)
		mu = poly(swC3, nf)
		sigma = math.Exp(poly(swC4, nf))
	} else {
		ln := math.Log(nf)
		mu = poly(swC5, ln)
		sigma = math.Exp(poly(swC6, ln))
	}
	p = distuv.Normal{Mu: mu, Sigma: sigma}.Survival(y)
	return w, p
}

// ksExactMaxN is the largest sample whose KS p-value comes from the exact
// distribution. Larger samples use the asymptotic series.
const ksExactMaxN = 100

// KolmogorovSmirnov compares an ascending sample with N(mu, sigma) and
// returns the D statistic and its two-sided p-value.
func KolmogorovSmirnov(sorted []float64, mu, sigma float64) (d, p float64) {
	n := float64(len(sorted))
	dist := distuv.Normal{Mu: mu, Sigma: sigma}
	for i, x := range sorted {
		f := dist.CDF(x)
		d = math.Max(d, math.Max(float64(i+1)/n-f, f-float64(i)/n))
	}
	if len(sorted) <= ksExactMaxN {
		return d, math.Max(0, math.Min(1, 1-ksCDF(len(sorted), d)))
	}
	sq := math.Sqrt(n)
	return d, ksQ((sq + 0.12 + 0.11/sq) * d)
}

// ksCDF is P(D_n < d) for the one-sample two-sided statistic, computed with
// the Marsaglia-Tsang-Wang matrix method.
func ksCDF(n int, d float64) float64 {
	nf := float64(n)
	if d <= 0.5/nf {
		return 0
	}
	if d >= 1 {
		return 1
	}
	k := int(nf*d) + 1
	m := 2*k - 1
	h := float64(k) - nf*d

	H := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			if i-j+1 >= 0 {
				H.Set(i, j, 1)
			}
		}
	}
	for i := 0; i < m; i++ {
		H.Set(i, 0, H.At(i, 0)-math.Pow(h, float64(i+1)))
		H.Set(m-1, i, H.At(m-1, i)-math.Pow(h, float64(m-i)))
	}
	if 2*h-1 > 0 {
		H.Set(m-1, 0, H.At(m-1, 0)+math.Pow(2*h-1, float64(m)))
	}
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			if g := i - j + 1; g > 1 {
				H.Set(i, j, H.At(i, j)/math.Gamma(float64(g+1)))
			}
		}
	}

	var q mat.Dense
	q.Pow(H, n)
	s := q.At(k-1, k-1)
	for i := 1; i <= n; i++ {
		s *= float64(i) / nf
	}
	return math.Max(0, math.Min(1, s))
}

// ksQ is the Kolmogorov survival function Q(λ) = 2 Σ (−1)^(j−1) exp(−2j²λ²).
func ksQ(lambda float64) float64 {
	if lambda < 0.2 {
		return 1
	}
	var sum, prev float64
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := sign * 2 * math.Exp(-2*float64(j*j)*lambda*lambda)
		sum += term
		if math.Abs(term) <= 1e-10*math.Abs(sum) || math.Abs(term) <= 1e-12*prev {
			return math.Max(0, math.Min(1, sum))
		}
		sign = -sign
		prev = math.Abs(term)
	}
	return 1
}
