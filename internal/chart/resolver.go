package chart

import (
	"fmt"

	"github.com/JonMunkholm/dataviz/internal/dataset"
)

// rule is one row of the resolution table: the minimum column counts a
// chart type needs and how its request is built once they are met.
type rule struct {
	minNumeric     int
	minCategorical int
	build          func(r *resolver) ChartRequest
}

var rules = map[ChartType]rule{
	Line:      {minNumeric: 1, build: perNumeric(Line)},
	Area:      {minNumeric: 1, build: perNumeric(Area)},
	Box:       {minNumeric: 1, build: perNumeric(Box)},
	Histogram: {minNumeric: 1, build: buildHistogram},
	Bar:       {minCategorical: 1, build: buildBar},
	Pie:       {minCategorical: 1, build: buildPie},
	Scatter:   {minNumeric: 2, build: buildScatter},
	Heatmap:   {minNumeric: 2, build: perNumeric(Heatmap)},
	PairPlot:  {minNumeric: 2, build: perNumeric(PairPlot)},
	Density:   {minNumeric: 1, build: buildDensity},
	Violin:    {minNumeric: 1, minCategorical: 1, build: buildViolin},
}

type resolver struct {
	cls   dataset.Classification
	opts  Options
	notes []string
}

// Resolve builds one ChartRequest per selected chart type whose column
// preconditions hold, in menu order. Types that fail a precondition are
// listed in Skipped and produce no request; that is not an error.
func Resolve(cls dataset.Classification, opts Options) Resolution {
	opts = opts.Normalize()
	r := &resolver{cls: cls, opts: opts}

	var res Resolution
	for _, t := range AllChartTypes() {
		if !opts.Selected(t) {
			continue
		}
		rl := rules[t]
		if reason := r.unmet(rl); reason != "" {
			res.Skipped = append(res.Skipped, Skip{Type: t, Reason: reason})
			continue
		}
		res.Requests = append(res.Requests, rl.build(r))
	}
	res.Notes = r.notes
	return res
}

func (r *resolver) unmet(rl rule) string {
	n, c := len(r.cls.Numeric), len(r.cls.Categorical)
	switch {
	case n < rl.minNumeric && rl.minNumeric == 1:
		return "no numeric columns"
	case n < rl.minNumeric:
		return fmt.Sprintf("needs at least %d numeric columns, found %d", rl.minNumeric, n)
	case c < rl.minCategorical:
		return "no categorical columns"
	}
	return ""
}

// choose behaves like a select box: the user's choice when it is one of the
// options, otherwise the first option. Replacing a non-empty choice is noted.
func (r *resolver) choose(field, choice string, options []string) string {
	for _, o := range options {
		if o == choice {
			return choice
		}
	}
	if len(options) == 0 {
		return ""
	}
	if choice != "" {
		r.notes = append(r.notes, fmt.Sprintf("%s %q is not available, using %q", field, choice, options[0]))
	}
	return options[0]
}

func perNumeric(t ChartType) func(*resolver) ChartRequest {
	return func(r *resolver) ChartRequest {
		return ChartRequest{Type: t, Columns: clone(r.cls.Numeric)}
	}
}

func buildHistogram(r *resolver) ChartRequest {
	return ChartRequest{Type: Histogram, Columns: clone(r.cls.Numeric), Bins: r.opts.HistogramBins}
}

func buildBar(r *resolver) ChartRequest {
	req := ChartRequest{
		Type:     Bar,
		Category: r.choose("bar_category", r.opts.BarCategory, r.cls.Categorical),
	}
	if len(r.cls.Numeric) > 0 {
		req.Value = r.cls.Numeric[0]
	}
	return req
}

func buildPie(r *resolver) ChartRequest {
	return ChartRequest{
		Type:     Pie,
		Category: r.choose("pie_category", r.opts.PieCategory, r.cls.Categorical),
	}
}

func buildScatter(r *resolver) ChartRequest {
	x := r.choose("scatter_x", r.opts.ScatterX, r.cls.Numeric)

	ys := make([]string, 0, len(r.cls.Numeric)-1)
	for _, n := range r.cls.Numeric {
		if n != x {
			ys = append(ys, n)
		}
	}
	y := r.choose("scatter_y", r.opts.ScatterY, ys)

	var color string
	if r.opts.ScatterColor != "" {
		if r.cls.IsCategorical(r.opts.ScatterColor) {
			color = r.opts.ScatterColor
		} else {
			r.notes = append(r.notes, fmt.Sprintf("scatter_color %q is not categorical, drawing without color", r.opts.ScatterColor))
		}
	}
	return ChartRequest{Type: Scatter, X: x, Y: y, Color: color}
}

func buildDensity(r *resolver) ChartRequest {
	return ChartRequest{
		Type:   Density,
		Column: r.choose("density_column", r.opts.DensityColumn, r.cls.Numeric),
	}
}

func buildViolin(r *resolver) ChartRequest {
	return ChartRequest{Type: Violin, Columns: clone(r.cls.Numeric), GroupBy: r.cls.Categorical[0]}
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
