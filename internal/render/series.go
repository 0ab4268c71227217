package render

// series.go draws the chart types go-chart has a series for.

import (
	"bytes"
	"fmt"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/JonMunkholm/dataviz/internal/chart"
	"github.com/JonMunkholm/dataviz/internal/dataset"
	"github.com/JonMunkholm/dataviz/internal/raster"
	"github.com/JonMunkholm/dataviz/internal/stats"
)

func baseChart(title string) gochart.Chart {
	return gochart.Chart{
		Title:  title,
		Width:  Width,
		Height: Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 30, Bottom: 20},
		},
	}
}

// renderable is implemented by gochart.Chart, BarChart and PieChart.
type renderable interface {
	Render(rp gochart.RendererProvider, w io.Writer) error
}

func draw(r renderable, ct chart.ChartType, title, column string) (chart.Artifact, error) {
	var buf bytes.Buffer
	if err := r.Render(gochart.PNG, &buf); err != nil {
		return chart.Artifact{}, fmt.Errorf("draw %s: %w", ct.Slug(), err)
	}
	return pngArtifact(ct, title, column, buf.Bytes()), nil
}

// span returns a range covering vals with a 5% margin on each side; a
// constant input gets a unit-wide range.
func span(vals []float64) *gochart.ContinuousRange {
	lo, hi, err := stats.MinMax(vals)
	if err != nil {
		return &gochart.ContinuousRange{Min: 0, Max: 1}
	}
	return padRange(lo, hi)
}

func padRange(lo, hi float64) *gochart.ContinuousRange {
	if lo == hi {
		return &gochart.ContinuousRange{Min: lo - 0.5, Max: hi + 0.5}
	}
	m := (hi - lo) * 0.05
	return &gochart.ContinuousRange{Min: lo - m, Max: hi + m}
}

func renderLine(t *dataset.Table, _ chart.ChartRequest, col string) (chart.Artifact, error) {
	xs, ys, err := series(t, col)
	if err != nil {
		return chart.Artifact{}, err
	}
	title := Title(chart.Line, col, "")
	c := baseChart(title)
	c.XAxis = gochart.XAxis{Name: "index", Range: span(xs)}
	c.YAxis = gochart.YAxis{Name: col, Range: span(ys)}
	c.Series = []gochart.Series{
		gochart.ContinuousSeries{
			Name:    col,
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor: palette[0],
				StrokeWidth: 2,
				DotColor:    palette[0],
				DotWidth:    3,
			},
		},
	}
	return draw(c, chart.Line, title, col)
}

func renderArea(t *dataset.Table, _ chart.ChartRequest, col string) (chart.Artifact, error) {
	xs, ys, err := series(t, col)
	if err != nil {
		return chart.Artifact{}, err
	}
	lo, hi, _ := stats.MinMax(ys)
	title := Title(chart.Area, col, "")
	c := baseChart(title)
	c.XAxis = gochart.XAxis{Name: "index", Range: span(xs)}
	c.YAxis = gochart.YAxis{Name: col, Range: padRange(math.Min(0, lo), math.Max(0, hi))}
	c.Series = []gochart.Series{
		gochart.ContinuousSeries{
			Name:    col,
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor: palette[0],
				StrokeWidth: 2,
				FillColor:   palette[0].WithAlpha(96),
			},
		},
	}
	return draw(c, chart.Area, title, col)
}

func renderDensity(t *dataset.Table, req chart.ChartRequest) (chart.Artifact, error) {
	vals, err := values(t, req.Column)
	if err != nil {
		return chart.Artifact{}, err
	}
	lo, hi, _ := stats.MinMax(vals)
	h := stats.Bandwidth(vals)
	xs := stats.Linspace(lo-3*h, hi+3*h, 200)
	ys, err := stats.KDE(vals, xs)
	if err != nil {
		return chart.Artifact{}, err
	}
	_, top, _ := stats.MinMax(ys)

	title := Title(chart.Density, req.Column, "")
	c := baseChart(title)
	c.XAxis = gochart.XAxis{Name: req.Column, Range: &gochart.ContinuousRange{Min: xs[0], Max: xs[len(xs)-1]}}
	c.YAxis = gochart.YAxis{Name: "density", Range: &gochart.ContinuousRange{Min: 0, Max: top * 1.1}}
	c.Series = []gochart.Series{
		gochart.ContinuousSeries{
			Name:    req.Column,
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor: palette[0],
				StrokeWidth: 2,
				FillColor:   palette[0].WithAlpha(64),
			},
		},
	}
	return draw(c, chart.Density, title, req.Column)
}

func renderScatter(t *dataset.Table, req chart.ChartRequest) (chart.Artifact, error) {
	xcol, ok := t.Column(req.X)
	if !ok {
		return chart.Artifact{}, fmt.Errorf("%w: %s", ErrMissingColumn, req.X)
	}
	ycol, ok := t.Column(req.Y)
	if !ok {
		return chart.Artifact{}, fmt.Errorf("%w: %s", ErrMissingColumn, req.Y)
	}
	var ccol *dataset.Column
	if req.Color != "" {
		if ccol, ok = t.Column(req.Color); !ok {
			return chart.Artifact{}, fmt.Errorf("%w: %s", ErrMissingColumn, req.Color)
		}
	}

	type points struct{ xs, ys []float64 }
	byGroup := make(map[string]*points)
	order := []string{}
	var allX, allY []float64
	for i := range xcol.Cells {
		xc, yc := xcol.Cells[i], ycol.Cells[i]
		if xc.Kind != dataset.Number || yc.Kind != dataset.Number {
			continue
		}
		g := req.Y
		if ccol != nil {
			g = categoryLabel(ccol.Cells[i])
		}
		p, seen := byGroup[g]
		if !seen {
			p = &points{}
			byGroup[g] = p
			order = append(order, g)
		}
		p.xs = append(p.xs, xc.Num)
		p.ys = append(p.ys, yc.Num)
		allX = append(allX, xc.Num)
		allY = append(allY, yc.Num)
	}
	if len(allX) == 0 {
		return chart.Artifact{}, fmt.Errorf("%w: no rows with both %s and %s", ErrNoValues, req.X, req.Y)
	}

	title := fmt.Sprintf("%s of %s vs %s", chart.Scatter, req.X, req.Y)
	if req.Color != "" {
		title += " by " + req.Color
	}
	c := baseChart(title)
	c.XAxis = gochart.XAxis{Name: req.X, Range: span(allX)}
	c.YAxis = gochart.YAxis{Name: req.Y, Range: span(allY)}

	for i, g := range order {
		p := byGroup[g]
		col := paletteColor(i)
		pts := gochart.ContinuousSeries{
			Name:    g,
			XValues: p.xs,
			YValues: p.ys,
			Style: gochart.Style{
				StrokeWidth: gochart.Disabled,
				DotColor:    col,
				DotWidth:    4,
			},
		}
		c.Series = append(c.Series, pts)
		if _, _, ok := stats.LinearFit(p.xs, p.ys); ok {
			c.Series = append(c.Series, &gochart.LinearRegressionSeries{
				Name:        g + " trend",
				InnerSeries: pts,
				Style: gochart.Style{
					StrokeColor: col,
					StrokeWidth: 2,
				},
			})
		}
	}
	if ccol != nil {
		c.Elements = []gochart.Renderable{gochart.Legend(&c)}
	}
	return draw(c, chart.Scatter, title, "")
}

func renderHistogram(t *dataset.Table, req chart.ChartRequest, col string) (chart.Artifact, error) {
	vals, err := values(t, col)
	if err != nil {
		return chart.Artifact{}, err
	}
	bins := req.Bins
	if bins <= 0 {
		bins = chart.DefaultBins
	}
	hist, err := stats.Histogram(vals, bins)
	if err != nil {
		return chart.Artifact{}, err
	}

	labelEvery := int(math.Ceil(float64(len(hist)) / 10))
	bars := make([]gochart.Value, len(hist))
	top := 0
	for i, b := range hist {
		label := ""
		if i%labelEvery == 0 {
			label = raster.FormatTick(b.Lo)
		}
		bars[i] = gochart.Value{
			Label: label,
			Value: float64(b.Count),
			Style: gochart.Style{FillColor: palette[0], StrokeColor: palette[0], StrokeWidth: 1},
		}
		if b.Count > top {
			top = b.Count
		}
	}

	title := Title(chart.Histogram, col, "")
	bc := gochart.BarChart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		BarWidth:   barWidth(len(bars)),
		BarSpacing: 1,
		YAxis: gochart.YAxis{
			Name:  "count",
			Range: &gochart.ContinuousRange{Min: 0, Max: float64(top) * 1.1},
		},
		Bars: bars,
	}
	return draw(bc, chart.Histogram, title, col)
}

// barWidth fits n bars into the plot width.
func barWidth(n int) int {
	if n <= 0 {
		return 1
	}
	w := (Width-160)/n - 2
	switch {
	case w < 2:
		return 2
	case w > 80:
		return 80
	}
	return w
}

func renderBar(t *dataset.Table, req chart.ChartRequest) (chart.Artifact, error) {
	cat, ok := t.Column(req.Category)
	if !ok {
		return chart.Artifact{}, fmt.Errorf("%w: %s", ErrMissingColumn, req.Category)
	}
	var val *dataset.Column
	if req.Value != "" {
		if val, ok = t.Column(req.Value); !ok {
			return chart.Artifact{}, fmt.Errorf("%w: %s", ErrMissingColumn, req.Value)
		}
	}

	labels := groups(cat)
	totals := make(map[string]float64, len(labels))
	for i, c := range cat.Cells {
		l := categoryLabel(c)
		if val == nil {
			totals[l]++
			continue
		}
		if v := val.Cells[i]; v.Kind == dataset.Number {
			totals[l] += v.Num
		}
	}

	lo, hi := 0.0, 0.0
	bars := make([]gochart.Value, len(labels))
	for i, l := range labels {
		v := totals[l]
		lo, hi = math.Min(lo, v), math.Max(hi, v)
		bars[i] = gochart.Value{
			Label: l,
			Value: v,
			Style: gochart.Style{FillColor: palette[0], StrokeColor: palette[0], StrokeWidth: 1},
		}
	}
	if lo == hi {
		hi = 1
	}

	title := Title(chart.Bar, req.Category, "")
	yName := "count"
	if val != nil {
		title = Title(chart.Bar, req.Value, req.Category)
		yName = req.Value
	}
	bc := gochart.BarChart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		BarWidth:   barWidth(len(bars)),
		BarSpacing: 2,
		YAxis: gochart.YAxis{
			Name:  yName,
			Range: &gochart.ContinuousRange{Min: lo * 1.1, Max: hi * 1.1},
		},
		Bars: bars,
	}
	return draw(bc, chart.Bar, title, req.Category)
}

func renderPie(t *dataset.Table, req chart.ChartRequest) (chart.Artifact, error) {
	cat, ok := t.Column(req.Category)
	if !ok {
		return chart.Artifact{}, fmt.Errorf("%w: %s", ErrMissingColumn, req.Category)
	}

	labels := groups(cat)
	counts := make(map[string]int, len(labels))
	for _, c := range cat.Cells {
		counts[categoryLabel(c)]++
	}
	if len(labels) == 0 {
		return chart.Artifact{}, fmt.Errorf("%w: %s", ErrNoValues, req.Category)
	}

	slices := make([]gochart.Value, len(labels))
	for i, l := range labels {
		n := counts[l]
		slices[i] = gochart.Value{
			Label: fmt.Sprintf("%s (%.1f%%)", l, 100*float64(n)/float64(len(cat.Cells))),
			Value: float64(n),
			Style: gochart.Style{FillColor: paletteColor(i), StrokeColor: drawing.ColorWhite, StrokeWidth: 2},
		}
	}

	title := Title(chart.Pie, req.Category, "")
	pc := gochart.PieChart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 50, Bottom: 20}},
		Values:     slices,
	}
	return draw(pc, chart.Pie, title, req.Category)
}
