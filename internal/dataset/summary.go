package dataset

import (
	"math"

	"github.com/JonMunkholm/dataviz/internal/stats"
)

// ColumnSummary is the describe() row of a numeric column. Statistics of a
// column without values are NaN.
type ColumnSummary struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Q1    float64 `json:"p25"`
	Q2    float64 `json:"p50"`
	Q3    float64 `json:"p75"`
	Max   float64 `json:"max"`
}

// SummaryLabels are the statistic names in display order.
var SummaryLabels = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Values returns the statistics in SummaryLabels order.
func (s ColumnSummary) Values() []float64 {
	return []float64{float64(s.Count), s.Mean, s.Std, s.Min, s.Q1, s.Q2, s.Q3, s.Max}
}

// Summarize computes describe() statistics for each numeric column.
// Std is the sample standard deviation.
func Summarize(t *Table, cls Classification) []ColumnSummary {
	out := make([]ColumnSummary, 0, len(cls.Numeric))
	for _, name := range cls.Numeric {
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		out = append(out, summarizeColumn(name, col.Floats()))
	}
	return out
}

func summarizeColumn(name string, xs []float64) ColumnSummary {
	nan := math.NaN()
	s := ColumnSummary{Name: name, Count: len(xs), Mean: nan, Std: nan, Min: nan, Q1: nan, Q2: nan, Q3: nan, Max: nan}
	if len(xs) == 0 {
		return s
	}
	s.Mean, _ = stats.Mean(xs)
	s.Std, _ = stats.StdSample(xs)
	s.Min, s.Max, _ = stats.MinMax(xs)
	s.Q1, s.Q2, s.Q3, _ = stats.Quartiles(xs)
	return s
}
