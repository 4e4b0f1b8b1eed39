package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/billingstats/internal/config"
	"github.com/gyeh/billingstats/internal/correlation"
	"github.com/gyeh/billingstats/internal/filter"
	"github.com/gyeh/billingstats/internal/inference"
	"github.com/gyeh/billingstats/internal/ingest"
	"github.com/gyeh/billingstats/internal/model"
	"github.com/gyeh/billingstats/internal/stats"
	"github.com/gyeh/billingstats/internal/table"
	"github.com/gyeh/billingstats/internal/transform"
)

const (
	// HighCostThreshold is the montO_TOTAL lower bound of the high-cost filter.
	HighCostThreshold = 2000000
	// FocusInsurer is the insurer singled out by the filter section.
	FocusInsurer = "NUEVA EPS SA SUBSIDIADO"

	topEpisodes  = 10
	topInsurers  = 10
	previewRows  = 5
	topFrequency = 10
)

// Report is the sectioned output of one CLI analysis run.
type Report struct {
	RunID        string                   `json:"run_id"`
	Episodes     EpisodeSection           `json:"episodes"`
	Statistics   StatisticsSection        `json:"statistics"`
	Correlations CorrelationSection       `json:"correlations"`
	Filters      FilterSection            `json:"filters"`
	Inference    InferenceSection         `json:"inference"`
	Services     ServiceSection           `json:"services"`
	Durations    map[string]time.Duration `json:"-"`
}

// EpisodeSection describes the episode table and its main distributions.
type EpisodeSection struct {
	Total     int               `json:"total"`
	Columns   []string          `json:"columns"`
	Missing   map[string]int    `json:"missing"`
	ByInsurer []stats.Frequency `json:"by_insurer"`
	ByClass   []stats.Frequency `json:"by_class"`
	ByStatus  []stats.Frequency `json:"by_status"`
}

// StatisticsSection holds the imputation outcome and descriptive summaries.
type StatisticsSection struct {
	Imputation []transform.Outcome         `json:"imputation"`
	Processing transform.ProcessingSummary `json:"processing"`
	Summaries  []stats.Summary             `json:"summaries"`
	AgeVsTotal stats.PairDispersion        `json:"age_vs_total"`
}

// CorrelationSection holds the correlation matrices and the detailed
// Spearman pairs against the total amount.
type CorrelationSection struct {
	Status   model.Status          `json:"status"`
	Reason   string                `json:"reason,omitempty"`
	Analysis *correlation.Analysis `json:"analysis,omitempty"`
	Spearman []correlation.Pair    `json:"spearman"`
}

// FilteredRows is a filter result with a preview of its rows.
type FilteredRows struct {
	Report filter.Report            `json:"report"`
	Rows   []map[string]table.Value `json:"rows"`
}

// FilterSection holds the canned filters of the report.
type FilterSection struct {
	HighCost FilteredRows        `json:"high_cost"`
	Top      FilteredRows        `json:"top"`
	Insurer  filter.Report       `json:"insurer"`
	ByClass  filter.GroupSummary `json:"insurer_by_class"`
	Trimmed  filter.Report       `json:"iqr_trimmed"`
}

// InferenceSection holds normality tests, the mean interval and the group
// comparisons of the total amount.
type InferenceSection struct {
	Normality []inference.Normality    `json:"normality"`
	Interval  inference.Interval       `json:"interval"`
	ANOVA     []inference.KGroupResult `json:"anova"`
	Kruskal   []inference.KGroupResult `json:"kruskal"`
}

// ServiceSection describes the flattened service table.
type ServiceSection struct {
	Total       int                      `json:"total"`
	TopByCount  []stats.Frequency        `json:"top_by_count"`
	TopByAmount []map[string]table.Value `json:"top_by_amount"`
	ByType      []stats.Frequency        `json:"by_type"`
}

// Build runs every report section over a dataset. The context is checked
// between sections.
func Build(ctx context.Context, log zerolog.Logger, ds *ingest.Dataset, cfg *config.Config) (*Report, error) {
	r := &Report{Durations: map[string]time.Duration{}}
	if ds.Summary != nil {
		r.RunID = ds.Summary.RunID
	}
	episodes := ds.Episodes

	sections := []struct {
		name string
		run  func() error
	}{
		{"episodes", func() error { r.Episodes = episodeSection(episodes); return nil }},
		{"statistics", func() error {
			sec, imputed, err := statisticsSection(episodes, cfg)
			if err != nil {
				return err
			}
			r.Statistics, episodes = sec, imputed
			return nil
		}},
		{"correlations", func() error { r.Correlations = correlationSection(episodes, cfg.NumericColumns); return nil }},
		{"filters", func() error { r.Filters = filterSection(episodes, cfg.OutlierThreshold); return nil }},
		{"inference", func() error { r.Inference = inferenceSection(episodes, cfg); return nil }},
		{"services", func() error { r.Services = serviceSection(ds.Services); return nil }},
	}
	for _, s := range sections {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		start := time.Now()
		if err := s.run(); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		r.Durations[s.name] = time.Since(start)
		log.Debug().Str("section", s.name).Dur("duration", r.Durations[s.name]).Msg("report section complete")
	}
	return r, nil
}

func episodeSection(t *table.Table) EpisodeSection {
	s := EpisodeSection{
		Total:     t.Len(),
		Columns:   t.Columns(),
		Missing:   map[string]int{},
		ByInsurer: stats.Frequencies(t, model.FieldInsurer, label),
		ByClass:   stats.Frequencies(t, model.FieldEpisodeClass, label),
		ByStatus:  stats.Frequencies(t, model.FieldInvoiceStatus, label),
	}
	if len(s.ByInsurer) > topInsurers {
		s.ByInsurer = s.ByInsurer[:topInsurers]
	}
	for _, col := range s.Columns {
		c, _ := t.Column(col)
		for _, v := range c {
			if v == nil {
				s.Missing[col]++
			}
		}
	}
	return s
}

// statisticsSection imputes the configured columns and summarizes the
// numeric ones. The imputed table feeds the later sections.
func statisticsSection(t *table.Table, cfg *config.Config) (StatisticsSection, *table.Table, error) {
	strategy, err := transform.ParseStrategy(cfg.ImputeStrategy)
	if err != nil {
		return StatisticsSection{}, nil, err
	}
	imputed, outcomes := transform.Impute(t, presentColumns(t, cfg.ImputeColumns), strategy)
	return StatisticsSection{
		Imputation: outcomes,
		Processing: transform.Summarize(t, imputed),
		Summaries:  stats.FullSummary(imputed, presentColumns(imputed, cfg.NumericColumns)),
		AgeVsTotal: stats.PairDispersionOf(imputed, model.FieldPatientAge, model.FieldTotalAmount),
	}, imputed, nil
}

func correlationSection(t *table.Table, numeric []string) CorrelationSection {
	var cols []string
	for _, c := range numeric {
		if len(t.NonMissing(c)) > 0 {
			cols = append(cols, c)
		}
	}
	sec := CorrelationSection{Spearman: []correlation.Pair{}}
	if len(cols) < 2 {
		sec.Status, sec.Reason = model.StatusInsufficientData, "fewer than 2 numeric columns with data"
		return sec
	}
	a := correlation.FullAnalysis(t, cols)
	sec.Status, sec.Reason, sec.Analysis = a.Status, a.Reason, &a
	for _, x := range []string{model.FieldPatientAge, model.FieldDuration} {
		if contains(cols, x) && contains(cols, model.FieldTotalAmount) {
			sec.Spearman = append(sec.Spearman, correlation.Spearman(t, x, model.FieldTotalAmount))
		}
	}
	return sec
}

func filterSection(t *table.Table, iqrFactor float64) FilterSection {
	var sec FilterSection
	high, rep := filter.Range(t, model.FieldTotalAmount, HighCostThreshold, math.Inf(1))
	sec.HighCost = FilteredRows{Report: rep, Rows: project(high,
		[]string{model.FieldEpisode, model.FieldPatientName, model.FieldTotalAmount, model.FieldInsurer}, previewRows)}
	if rep.Skipped {
		sec.HighCost.Rows = nil
	}

	top, rep := filter.TopN(t, model.FieldTotalAmount, topEpisodes, false)
	sec.Top = FilteredRows{Report: rep, Rows: project(top,
		[]string{model.FieldEpisode, model.FieldPatientName, model.FieldTotalAmount, model.FieldEpisodeClass}, topEpisodes)}
	if rep.Skipped {
		sec.Top.Rows = nil
	}

	insurer, rep := filter.Category(t, model.FieldInsurer, []table.Value{FocusInsurer})
	sec.Insurer = rep
	if !rep.Skipped && insurer.Len() > 0 {
		sec.ByClass = filter.Summarize(insurer, model.FieldEpisodeClass)
	}
	_, sec.Trimmed = filter.Outliers(t, model.FieldTotalAmount, filter.MethodIQR, iqrFactor)
	return sec
}

func inferenceSection(t *table.Table, cfg *config.Config) InferenceSection {
	sec := InferenceSection{
		Normality: []inference.Normality{},
		ANOVA:     []inference.KGroupResult{},
		Kruskal:   []inference.KGroupResult{},
	}
	for _, col := range []string{model.FieldTotalAmount, model.FieldPatientAge} {
		if t.Has(col) {
			sec.Normality = append(sec.Normality, inference.NormalityOf(t, col))
		}
	}
	sec.Interval = inference.ConfidenceInterval(t, model.FieldTotalAmount, cfg.ConfidenceLevel)
	if !t.Has(model.FieldTotalAmount) {
		return sec
	}
	for _, g := range cfg.GroupColumns {
		if !t.Has(g) {
			continue
		}
		sec.ANOVA = append(sec.ANOVA, inference.ANOVA(t, model.FieldTotalAmount, g))
		sec.Kruskal = append(sec.Kruskal, inference.KruskalWallis(t, model.FieldTotalAmount, g))
	}
	return sec
}

func serviceSection(t *table.Table) ServiceSection {
	sec := ServiceSection{Total: t.Len()}
	sec.TopByCount = stats.Frequencies(t, model.FieldServiceName, label)
	if len(sec.TopByCount) > topFrequency {
		sec.TopByCount = sec.TopByCount[:topFrequency]
	}
	if t.Has(model.FieldNetAmountNum) {
		top, _ := filter.TopN(t, model.FieldNetAmountNum, topFrequency, false)
		sec.TopByAmount = project(top, []string{model.FieldServiceName, model.FieldNetAmount, model.FieldEpisode}, topFrequency)
	}
	sec.ByType = stats.Frequencies(t, model.FieldServiceType, label)
	return sec
}

func presentColumns(t *table.Table, cols []string) []string {
	var out []string
	for _, c := range cols {
		if t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
