package chart

import "github.com/JonMunkholm/dataviz/internal/dataset"

// Histogram bucket bounds.
const (
	DefaultBins = 30
	MinBins     = 10
	MaxBins     = 100
)

// Options is everything the side panel lets the user choose. Column choices
// left empty are filled in by the resolver.
type Options struct {
	DropMissing   bool        `json:"drop_missing"`
	Standardize   bool        `json:"standardize"`
	Charts        []ChartType `json:"selected_chart_types"`
	HistogramBins int         `json:"histogram_bins"`
	ScatterX      string      `json:"scatter_x"`
	ScatterY      string      `json:"scatter_y"`
	ScatterColor  string      `json:"scatter_color"`
	BarCategory   string      `json:"bar_category"`
	PieCategory   string      `json:"pie_category"`
	DensityColumn string      `json:"density_column"`
}

// DefaultOptions returns the panel's initial state.
func DefaultOptions() Options {
	return Options{
		Charts:        DefaultSelection(),
		HistogramBins: DefaultBins,
	}
}

// Steps returns the preprocessing toggles.
func (o Options) Steps() dataset.Steps {
	return dataset.Steps{DropMissing: o.DropMissing, Standardize: o.Standardize}
}

// Selected reports whether t is part of the selection.
func (o Options) Selected(t ChartType) bool {
	for _, c := range o.Charts {
		if c == t {
			return true
		}
	}
	return false
}

// Normalize returns a copy with the bucket count defaulted and clamped into
// [MinBins, MaxBins] and the selection de-duplicated, invalid tags dropped.
func (o Options) Normalize() Options {
	switch {
	case o.HistogramBins == 0:
		o.HistogramBins = DefaultBins
	case o.HistogramBins < MinBins:
		o.HistogramBins = MinBins
	case o.HistogramBins > MaxBins:
		o.HistogramBins = MaxBins
	}

	seen := make(map[ChartType]bool, len(o.Charts))
	charts := make([]ChartType, 0, len(o.Charts))
	for _, c := range o.Charts {
		if !c.Valid() || seen[c] {
			continue
		}
		seen[c] = true
		charts = append(charts, c)
	}
	o.Charts = charts
	return o
}
