package analysis

import (
	"github.com/gyeh/billingstats/internal/correlation"
	"github.com/gyeh/billingstats/internal/inference"
	"github.com/gyeh/billingstats/internal/stats"
	"github.com/gyeh/billingstats/internal/table"
)

// ColumnSummary is the response of the column summary endpoint.
type ColumnSummary struct {
	Success     bool                     `json:"success"`
	Filas       int                      `json:"filas"`
	Columnas    []string                 `json:"columnas"`
	Ignoradas   []string                 `json:"ignoradas"`
	Resumen     []stats.Summary          `json:"resumen"`
	Correlacion correlation.Analysis     `json:"correlacion"`
	Normalidad  []inference.Normality    `json:"normalidad"`
	Intervalos  []inference.Interval     `json:"intervalos"`
	ANOVA       []inference.KGroupResult `json:"anova,omitempty"`
	Kruskal     []inference.KGroupResult `json:"kruskal,omitempty"`
}

// SummaryOf describes the requested columns of t: descriptive summaries, a
// correlation analysis across them, and a normality test and mean interval
// per column. An empty cols selects every numeric column. Requested columns
// missing from t are listed in Ignoradas. When group names a column of t,
// each column is also compared across its groups with ANOVA and
// Kruskal-Wallis.
func SummaryOf(t *table.Table, cols []string, group string, level float64) ColumnSummary {
	s := ColumnSummary{
		Success:    true,
		Filas:      t.Len(),
		Columnas:   []string{},
		Ignoradas:  []string{},
		Normalidad: []inference.Normality{},
		Intervalos: []inference.Interval{},
	}
	if len(cols) == 0 {
		for _, c := range t.Columns() {
			if t.Kind(c) == table.Numeric {
				s.Columnas = append(s.Columnas, c)
			}
		}
	} else {
		for _, c := range cols {
			if t.Has(c) {
				s.Columnas = append(s.Columnas, c)
			} else {
				s.Ignoradas = append(s.Ignoradas, c)
			}
		}
	}

	s.Resumen = stats.FullSummary(t, s.Columnas)
	s.Correlacion = correlation.FullAnalysis(t, s.Columnas)
	for _, c := range s.Columnas {
		s.Normalidad = append(s.Normalidad, inference.NormalityOf(t, c))
		s.Intervalos = append(s.Intervalos, inference.ConfidenceInterval(t, c, level))
	}
	if group != "" && t.Has(group) {
		for _, c := range s.Columnas {
			if c == group {
				continue
			}
			s.ANOVA = append(s.ANOVA, inference.ANOVA(t, c, group))
			s.Kruskal = append(s.Kruskal, inference.KruskalWallis(t, c, group))
		}
	}
	return s
}
