package render

// plots.go draws the statistical charts. Box, heatmap and pair plot go
// through gonum/plot; the violin is drawn on a raster.Canvas.

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	vgdraw "gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/JonMunkholm/dataviz/internal/chart"
	"github.com/JonMunkholm/dataviz/internal/dataset"
	"github.com/JonMunkholm/dataviz/internal/raster"
	"github.com/JonMunkholm/dataviz/internal/stats"
)

// plotArea is the drawing rectangle inside a Width x Height canvas.
var plotArea = image.Rect(80, 60, Width-30, Height-60)

func encode(c *raster.Canvas, ct chart.ChartType, title, column string) (chart.Artifact, error) {
	data, err := c.PNG()
	if err != nil {
		return chart.Artifact{}, fmt.Errorf("encode %s: %w", ct.Slug(), err)
	}
	return pngArtifact(ct, title, column, data), nil
}

// pixels converts an image dimension to a plot length at the default
// canvas resolution, so a w x h request yields a w x h pixel PNG.
func pixels(n int) vg.Length {
	return vg.Length(n) * vg.Inch / vgimg.DefaultDPI
}

// PlotPNG encodes p as a w x h pixel PNG.
func PlotPNG(p *plot.Plot, w, h int) ([]byte, error) {
	wt, err := p.WriterTo(pixels(w), pixels(h), "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GridPNG tiles plots onto one w x h pixel PNG below an optional title.
// Nil cells are left blank.
func GridPNG(title string, plots [][]*plot.Plot, w, h int) ([]byte, error) {
	if len(plots) == 0 || len(plots[0]) == 0 {
		return nil, ErrNoValues
	}
	c := vgimg.New(pixels(w), pixels(h))
	dc := vgdraw.New(c)

	top := vg.Points(4)
	if title != "" {
		sty := titleStyle()
		dc.FillText(sty, vg.Point{X: dc.Center().X, Y: dc.Max.Y - vg.Points(6)}, title)
		top += sty.Height(title) + vg.Points(8)
	}
	tiles := vgdraw.Tiles{
		Rows: len(plots), Cols: len(plots[0]),
		PadTop: top, PadBottom: vg.Points(4),
		PadLeft: vg.Points(4), PadRight: vg.Points(8),
		PadX: vg.Points(6), PadY: vg.Points(6),
	}
	cells := plot.Align(plots, tiles, dc)
	for i, row := range plots {
		for j, p := range row {
			if p != nil {
				p.Draw(cells[i][j])
			}
		}
	}

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func titleStyle() text.Style {
	return text.Style{
		Color:   color.Black,
		Font:    font.From(plot.DefaultFont, 14),
		XAlign:  vgdraw.XCenter,
		YAlign:  vgdraw.YTop,
		Handler: plot.DefaultTextHandler,
	}
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = 14
	p.Title.Padding = vg.Points(8)
	return p
}

func plotPNG(p *plot.Plot, ct chart.ChartType, title, column string, w, h int) (chart.Artifact, error) {
	data, err := PlotPNG(p, w, h)
	if err != nil {
		return chart.Artifact{}, fmt.Errorf("encode %s: %w", ct.Slug(), err)
	}
	return pngArtifact(ct, title, column, data), nil
}

// boxStats holds the five-number summary plus the points past the whiskers.
type boxStats struct {
	q1, median, q3 float64
	lo, hi         float64
	outliers       []float64
}

// tukey computes box statistics with whiskers at 1.5 IQR, clipped to the
// most extreme values still inside the fences.
func tukey(vals []float64) (boxStats, error) {
	q1, q2, q3, err := stats.Quartiles(vals)
	if err != nil {
		return boxStats{}, err
	}
	iqr := q3 - q1
	lf, hf := q1-1.5*iqr, q3+1.5*iqr
	b := boxStats{q1: q1, median: q2, q3: q3, lo: q1, hi: q3}
	for _, v := range vals {
		switch {
		case v < lf || v > hf:
			b.outliers = append(b.outliers, v)
		default:
			b.lo = math.Min(b.lo, v)
			b.hi = math.Max(b.hi, v)
		}
	}
	return b, nil
}

func renderBox(t *dataset.Table, _ chart.ChartRequest, col string) (chart.Artifact, error) {
	vals, err := values(t, col)
	if err != nil {
		return chart.Artifact{}, err
	}
	box, err := plotter.NewBoxPlot(vg.Points(80), 0, plotter.Values(vals))
	if err != nil {
		return chart.Artifact{}, err
	}
	box.FillColor = nrgba(palette[0], 160)
	box.GlyphStyle.Color = nrgba(palette[0], 255)

	title := Title(chart.Box, col, "")
	p := newPlot(title)
	p.Add(plotter.NewGrid(), box)
	p.NominalX(col)
	return plotPNG(p, chart.Box, title, col, Width, Height)
}

// violinGroup is the values of one category, in first-seen order.
type violinGroup struct {
	label string
	vals  []float64
}

func violinGroups(t *dataset.Table, col, groupBy string) ([]violinGroup, error) {
	vc, ok := t.Column(col)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
	}
	if groupBy == "" {
		vals := vc.Floats()
		if len(vals) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoValues, col)
		}
		return []violinGroup{{label: col, vals: vals}}, nil
	}
	gc, ok := t.Column(groupBy)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, groupBy)
	}

	index := make(map[string]int)
	var out []violinGroup
	for i, cell := range vc.Cells {
		if cell.Kind != dataset.Number {
			continue
		}
		l := categoryLabel(gc.Cells[i])
		k, seen := index[l]
		if !seen {
			k = len(out)
			index[l] = k
			out = append(out, violinGroup{label: l})
		}
		out[k].vals = append(out[k].vals, cell.Num)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoValues, col)
	}
	return out, nil
}

func renderViolin(t *dataset.Table, req chart.ChartRequest, col string) (chart.Artifact, error) {
	gs, err := violinGroups(t, col, req.GroupBy)
	if err != nil {
		return chart.Artifact{}, err
	}

	var all []float64
	for _, g := range gs {
		all = append(all, g.vals...)
	}
	lo, hi, _ := stats.MinMax(all)
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 0.5
	}
	s := raster.NewScale(lo-pad, hi+pad, plotArea.Max.Y, plotArea.Min.Y)

	title := Title(chart.Violin, col, req.GroupBy)
	c := raster.New(Width, Height, raster.White)
	c.Title(title)
	c.YAxis(plotArea, s, 6)
	c.Line(plotArea.Min.X, plotArea.Max.Y, plotArea.Max.X, plotArea.Max.Y, raster.Grey)

	slot := plotArea.Dx() / len(gs)
	half := slot * 2 / 5
	for i, g := range gs {
		cx := plotArea.Min.X + slot*i + slot/2
		fill := raster.WithAlpha(rgba(paletteColor(i)), 140)
		drawViolin(c, s, g.vals, cx, half, fill)

		b, err := tukey(g.vals)
		if err != nil {
			return chart.Artifact{}, err
		}
		c.Line(cx, s.Px(b.hi), cx, s.Px(b.lo), raster.Text)
		c.FillRect(image.Rect(cx-3, s.Px(b.q3), cx+4, s.Px(b.q1)+1), raster.Text)
		c.Dot(cx, s.Px(b.median), 2, raster.White)
		c.TextCentered(cx, plotArea.Max.Y+8, g.label, raster.Text)
	}
	return encode(c, chart.Violin, title, col)
}

// drawViolin draws the mirrored kernel density of vals around cx. The
// widest point spans 2*half pixels.
func drawViolin(c *raster.Canvas, s raster.Scale, vals []float64, cx, half int, fill color.RGBA) {
	lo, hi, _ := stats.MinMax(vals)
	h := stats.Bandwidth(vals)
	top, bottom := s.Px(math.Min(hi+2*h, s.Max)), s.Px(math.Max(lo-2*h, s.Min))
	if top > bottom {
		top, bottom = bottom, top
	}

	rows := make([]float64, 0, bottom-top+1)
	for y := top; y <= bottom; y++ {
		rows = append(rows, s.Min+float64(y-s.From)/float64(s.To-s.From)*(s.Max-s.Min))
	}
	dens, err := stats.KDE(vals, rows)
	if err != nil {
		return
	}
	_, peak, _ := stats.MinMax(dens)
	if peak == 0 {
		return
	}
	for i, d := range dens {
		w := int(math.Round(d / peak * float64(half)))
		if w == 0 {
			continue
		}
		c.HSpan(cx-w, cx+w, top+i, fill)
	}
}

// corrGrid lays a correlation matrix out for plotter.HeatMap. Row 0 of
// the matrix is drawn at the top.
type corrGrid [][]float64

func (g corrGrid) Dims() (c, r int)   { return len(g), len(g) }
func (g corrGrid) Z(c, r int) float64 { return g[len(g)-1-r][c] }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }
func (g corrGrid) Min() float64       { return -1 }
func (g corrGrid) Max() float64       { return 1 }

// numericColumns returns each named column with NaN in place of non-numbers.
func numericColumns(t *dataset.Table, names []string) ([][]float64, error) {
	out := make([][]float64, len(names))
	for i, name := range names {
		col, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		vs := make([]float64, len(col.Cells))
		for j, cell := range col.Cells {
			vs[j] = math.NaN()
			if cell.Kind == dataset.Number {
				vs[j] = cell.Num
			}
		}
		out[i] = vs
	}
	return out, nil
}

// heatmapBar is the width in pixels kept for the colour bar.
const heatmapBar = 140

func renderHeatmap(t *dataset.Table, req chart.ChartRequest) (chart.Artifact, error) {
	if len(req.Columns) == 0 {
		return chart.Artifact{}, ErrNoValues
	}
	cols, err := numericColumns(t, req.Columns)
	if err != nil {
		return chart.Artifact{}, err
	}
	m := corrGrid(stats.CorrelationMatrix(cols))
	n := len(m)
	// blue through grey to red over [-1, 1]
	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)

	title := Title(chart.Heatmap, joinColumns(req.Columns), "")
	p := newPlot(title)
	hm := plotter.NewHeatMap(m, cm.Palette(255))
	hm.NaN = color.Gray{Y: 0xdd}
	p.Add(hm)

	var cells plotter.XYLabels
	var ink []color.Color
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			r := m[i][j]
			label := "nan"
			if !math.IsNaN(r) {
				label = fmt.Sprintf("%.2f", r)
			}
			cells.XYs = append(cells.XYs, plotter.XY{X: float64(j), Y: float64(n - 1 - i)})
			cells.Labels = append(cells.Labels, label)
			if math.Abs(r) > 0.6 {
				ink = append(ink, color.White)
			} else {
				ink = append(ink, color.Black)
			}
		}
	}
	labels, err := plotter.NewLabels(cells)
	if err != nil {
		return chart.Artifact{}, err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Color = ink[i]
		labels.TextStyle[i].XAlign = vgdraw.XCenter
		labels.TextStyle[i].YAlign = vgdraw.YCenter
	}
	p.Add(labels)

	rows := make([]string, n)
	for i, name := range req.Columns {
		rows[n-1-i] = name
	}
	p.NominalX(req.Columns...)
	p.NominalY(rows...)

	bar := plot.New()
	bar.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	bar.HideX()
	bar.Y.Padding = 0
	bar.Title.Text = " "
	bar.Title.Padding = p.Title.Padding
	bar.Title.TextStyle.Font.Size = p.Title.TextStyle.Font.Size

	c := vgimg.New(pixels(HeatmapWidth), pixels(HeatmapHeight))
	dc := vgdraw.New(c)
	split := pixels(HeatmapWidth - heatmapBar)
	p.Draw(vgdraw.Crop(dc, 0, split-dc.Max.X, 0, 0))
	bar.Draw(vgdraw.Crop(dc, split+vg.Points(10), -vg.Points(10), vg.Points(30), 0))

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(&buf); err != nil {
		return chart.Artifact{}, fmt.Errorf("encode %s: %w", chart.Heatmap.Slug(), err)
	}
	return pngArtifact(chart.Heatmap, title, "", buf.Bytes()), nil
}

func renderPairPlot(t *dataset.Table, req chart.ChartRequest) (chart.Artifact, error) {
	n := len(req.Columns)
	if n == 0 {
		return chart.Artifact{}, ErrNoValues
	}
	cols, err := numericColumns(t, req.Columns)
	if err != nil {
		return chart.Artifact{}, err
	}
	ranges := make([][2]float64, n)
	for i, vs := range cols {
		lo, hi, err := stats.MinMax(finite(vs))
		if err != nil {
			return chart.Artifact{}, fmt.Errorf("%w: %s", ErrNoValues, req.Columns[i])
		}
		pad := (hi - lo) * 0.05
		ranges[i] = [2]float64{lo - pad, hi + pad}
	}

	fill := nrgba(palette[0], 200)
	dots := nrgba(palette[0], 170)
	grid := make([][]*plot.Plot, n)
	for i := range grid {
		grid[i] = make([]*plot.Plot, n)
		for j := range grid[i] {
			p := plot.New()
			if i == j {
				h, err := plotter.NewHist(plotter.Values(finite(cols[i])), 10)
				if err != nil {
					return chart.Artifact{}, fmt.Errorf("histogram of %s: %w", req.Columns[i], err)
				}
				h.FillColor = fill
				h.LineStyle.Color = color.White
				p.Add(h)
			} else {
				var xys plotter.XYs
				for k := range cols[j] {
					x, y := cols[j][k], cols[i][k]
					if math.IsNaN(x) || math.IsNaN(y) {
						continue
					}
					xys = append(xys, plotter.XY{X: x, Y: y})
				}
				if len(xys) > 0 {
					s, err := plotter.NewScatter(xys)
					if err != nil {
						return chart.Artifact{}, err
					}
					s.GlyphStyle.Color = dots
					s.GlyphStyle.Shape = vgdraw.CircleGlyph{}
					s.GlyphStyle.Radius = vg.Points(1.5)
					p.Add(s)
				}
				p.Y.Min, p.Y.Max = ranges[i][0], ranges[i][1]
			}
			p.X.Min, p.X.Max = ranges[j][0], ranges[j][1]
			if i == n-1 {
				p.X.Label.Text = req.Columns[j]
			}
			if j == 0 {
				p.Y.Label.Text = req.Columns[i]
			}
			grid[i][j] = p
		}
	}

	title := Title(chart.PairPlot, joinColumns(req.Columns), "")
	data, err := GridPNG(title, grid, n*PairCell+60, n*PairCell+70)
	if err != nil {
		return chart.Artifact{}, fmt.Errorf("encode %s: %w", chart.PairPlot.Slug(), err)
	}
	return pngArtifact(chart.PairPlot, title, "", data), nil
}

func finite(vs []float64) []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
