package analysis

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/gyeh/billingstats/internal/correlation"
	"github.com/gyeh/billingstats/internal/inference"
	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/stats"
	"github.com/gyeh/billingstats/internal/table"
)

// WriteText prints the report as plain text, one block per section.
func (r *Report) WriteText(w io.Writer) {
	p := &printer{w: w}

	p.section("1. Episodes")
	p.f("Total episodes: %d\n", r.Episodes.Total)
	p.f("Columns:        %d\n", len(r.Episodes.Columns))
	for _, col := range r.Episodes.Columns {
		if n := r.Episodes.Missing[col]; n > 0 {
			p.f("  %-22s %-20s %d missing\n", col, fieldLabel(col), n)
		}
	}
	p.counts("By insurer", r.Episodes.ByInsurer)
	p.counts("By episode class", r.Episodes.ByClass)
	p.counts("By invoice status", r.Episodes.ByStatus)

	p.section("2. Statistics")
	for _, o := range r.Statistics.Imputation {
		if o.Applied {
			p.f("Imputed %s: %d cells with %s\n", o.Column, o.Filled, table.Format(o.Value))
		} else {
			p.f("Imputation skipped for %s: %s\n", o.Column, o.Reason)
		}
	}
	for _, s := range r.Statistics.Summaries {
		p.summary(s)
	}
	if pd := r.Statistics.AgeVsTotal; pd.Status == model.StatusOK {
		p.f("\n%s vs %s (n=%d): mean %.2f / %.2f, std %.2f / %.2f\n", pd.X, pd.Y, pd.N, pd.MeanX, pd.MeanY, pd.StdX, pd.StdY)
	}

	p.section("3. Correlations")
	c := r.Correlations
	if c.Status != model.StatusOK || c.Analysis == nil {
		p.f("Not computed: %s\n", c.Reason)
	} else {
		p.matrix("Pearson", c.Analysis.Pearson.Matrix)
		p.matrix("Spearman", c.Analysis.Spearman.Matrix)
		p.f("\nStrongest pairs:\n")
		for _, tp := range c.Analysis.Top {
			p.f("  %-20s %-20s %7.3f %s\n", tp.A, tp.B, float64(tp.Coefficient), tp.Strength)
		}
		for _, sp := range c.Spearman {
			p.pair(sp)
		}
	}

	p.section("4. Filters")
	f := r.Filters
	p.f("Episodes with %s >= %d: %d of %d\n", model.FieldTotalAmount, HighCostThreshold, f.HighCost.Report.Matched, f.HighCost.Report.Total)
	p.rows(f.HighCost.Rows)
	p.f("Top %d episodes by %s:\n", topEpisodes, model.FieldTotalAmount)
	p.rows(f.Top.Rows)
	p.f("Episodes for %s: %d\n", FocusInsurer, f.Insurer.Matched)
	p.counts("  by episode class", f.ByClass.Groups)
	if !f.Trimmed.Skipped {
		p.f("Episodes kept after IQR trimming of %s: %d of %d\n", model.FieldTotalAmount, f.Trimmed.Matched, f.Trimmed.Total)
	}

	p.section("5. Inference")
	for _, n := range r.Inference.Normality {
		p.normality(n)
	}
	if ci := r.Inference.Interval; ci.Status == model.StatusOK {
		p.f("Confidence interval (%.0f%%) for %s: mean %.2f, SE %.2f, [%.2f, %.2f]\n",
			ci.Level*100, ci.Column, ci.Mean, ci.StdError, ci.Lower, ci.Upper)
	} else {
		p.f("Confidence interval for %s: %s (%s)\n", ci.Column, ci.Status, ci.Reason)
	}
	for _, g := range append(append([]inference.KGroupResult{}, r.Inference.ANOVA...), r.Inference.Kruskal...) {
		p.groups(g)
	}

	p.section("6. Services")
	p.f("Total services: %d\n", r.Services.Total)
	p.counts("Most frequent", r.Services.TopByCount)
	if len(r.Services.TopByAmount) > 0 {
		p.f("Highest net amount:\n")
		p.rows(r.Services.TopByAmount)
	}
	p.counts("By service type", r.Services.ByType)
}

type printer struct {
	w io.Writer
}

func (p *printer) f(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) section(title string) {
	p.f("\n%s\n%s\n", title, strings.Repeat("=", len(title)))
}

func (p *printer) counts(title string, freqs []stats.Frequency) {
	if len(freqs) == 0 {
		return
	}
	p.f("%s:\n", title)
	for _, fr := range freqs {
		p.f("  %-40s %d\n", table.Format(fr.Value), fr.Count)
	}
}

func (p *printer) rows(rows []map[string]table.Value) {
	for _, row := range rows {
		parts := make([]string, 0, len(row))
		for _, k := range orderedKeys(row) {
			parts = append(parts, k+"="+table.Format(row[k]))
		}
		p.f("  %s\n", strings.Join(parts, "  "))
	}
}

// fieldLabel is the display label of a known field, or "" for other columns.
func fieldLabel(col string) string {
	if kf, ok := model.FieldByName(col); ok {
		return kf.Label
	}
	return ""
}

// orderedKeys lists the known report columns present in row, in field order.
func orderedKeys(row map[string]table.Value) []string {
	var keys []string
	for _, f := range append(append([]model.KnownField{}, model.EpisodeFields...), model.ServiceFields...) {
		if _, ok := row[f.Name]; ok {
			keys = append(keys, f.Name)
		}
	}
	return keys
}

func (p *printer) summary(s stats.Summary) {
	p.f("\n%s\n", s.Column)
	if s.Status != model.StatusOK {
		p.f("  %s: %s\n", s.Status, s.Reason)
		return
	}
	c, d, q, o := s.Centrality, s.Dispersion, s.Quartiles, s.Outliers
	p.f("  n=%d mean=%.2f median=%.2f mode=%.2f\n", c.N, c.Mean, c.Median, c.Mode)
	cv := "undefined"
	if d.CV != nil {
		cv = fmt.Sprintf("%.2f%%", *d.CV)
	}
	p.f("  std=%.2f variance=%.2f range=%.2f iqr=%.2f cv=%s\n", d.Std, d.Variance, d.Range, d.IQR, cv)
	p.f("  min=%.2f p10=%.2f q1=%.2f q3=%.2f p90=%.2f max=%.2f\n", q.Min, q.P10, q.Q1, q.Q3, q.P90, q.Max)
	p.f("  outliers: %d of %d (%.1f%%) outside [%.2f, %.2f]\n", o.Count, o.Total, o.Rate*100, o.Lower, o.Upper)
}

func (p *printer) matrix(title string, m model.Matrix) {
	p.f("\n%s:\n%22s", title, "")
	for _, c := range m.Columns {
		p.f(" %10.10s", c)
	}
	p.f("\n")
	for i, c := range m.Columns {
		p.f("%22.22s", c)
		for _, v := range m.Values[i] {
			if math.IsNaN(v) {
				p.f(" %10s", "-")
			} else {
				p.f(" %10.3f", v)
			}
		}
		p.f("\n")
	}
}

func (p *printer) pair(c correlation.Pair) {
	if c.Status != model.StatusOK {
		p.f("Spearman %s vs %s: %s (%s)\n", c.A, c.B, c.Status, c.Reason)
		return
	}
	p.f("Spearman %s vs %s: rho=%.4f p=%.4f n=%d, %s\n", c.A, c.B, float64(c.Coefficient), float64(c.PValue), c.N, c.Interpretation)
}

func (p *printer) normality(n inference.Normality) {
	if n.Status != model.StatusOK {
		p.f("Normality of %s: %s (%s)\n", n.Column, n.Status, n.Reason)
		return
	}
	p.f("Normality of %s (n=%d):\n", n.Column, n.N)
	if n.ShapiroStatus == model.StatusOK {
		p.f("  Shapiro-Wilk W=%.4f p=%.4f\n", float64(n.ShapiroW), float64(n.ShapiroP))
	} else {
		p.f("  Shapiro-Wilk %s\n", n.ShapiroStatus)
	}
	p.f("  Kolmogorov-Smirnov D=%.4f p=%.4f\n", float64(n.KSStatistic), float64(n.KSP))
	p.f("  %s\n", n.Interpretation)
}

func (p *printer) groups(g inference.KGroupResult) {
	if g.Status != model.StatusOK {
		p.f("%s of %s by %s: %s (%s)\n", g.Test, g.Column, g.GroupColumn, g.Status, g.Reason)
		return
	}
	p.f("%s of %s by %s: statistic=%.4f p=%.4f, %s\n", g.Test, g.Column, g.GroupColumn, float64(g.Statistic), float64(g.PValue), g.Interpretation)
	for _, gs := range g.Groups {
		p.f("  %-30s n=%d mean=%.2f median=%.2f std=%.2f\n", gs.Name, gs.N, gs.Mean, gs.Median, gs.Std)
	}
}
