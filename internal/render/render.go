// Package render holds one chart.Renderer per chart type. Everything is
// drawn to PNG: the series charts through go-chart, the statistical plots
// through gonum/plot and the violin on a raster canvas.
package render

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/JonMunkholm/dataviz/internal/chart"
	"github.com/JonMunkholm/dataviz/internal/dataset"
)

// Image sizes.
const (
	Width         = 800
	Height        = 480
	HeatmapWidth  = 900
	HeatmapHeight = 720
	PairCell      = 220
)

const contentTypePNG = "image/png"

var (
	// ErrNoValues means a column had nothing to draw.
	ErrNoValues = errors.New("column has no values")
	// ErrMissingColumn means a requested column is not in the table.
	ErrMissingColumn = errors.New("column not found")
)

// palette is the qualitative colour cycle shared by all charts.
var palette = []drawing.Color{
	drawing.ColorFromHex("636efa"),
	drawing.ColorFromHex("ef553b"),
	drawing.ColorFromHex("00cc96"),
	drawing.ColorFromHex("ab63fa"),
	drawing.ColorFromHex("ffa15a"),
	drawing.ColorFromHex("19d3f3"),
	drawing.ColorFromHex("ff6692"),
	drawing.ColorFromHex("b6e880"),
	drawing.ColorFromHex("ff97ff"),
	drawing.ColorFromHex("fecb52"),
}

func paletteColor(i int) drawing.Color {
	return palette[i%len(palette)]
}

func rgba(c drawing.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

func nrgba(c drawing.Color, alpha uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: alpha}
}

// Default returns a registry holding a renderer for every chart type.
func Default() *chart.Registry {
	reg := chart.NewRegistry()
	reg.Register(chart.Line, perColumn(chart.Line, renderLine))
	reg.Register(chart.Area, perColumn(chart.Area, renderArea))
	reg.Register(chart.Box, perColumn(chart.Box, renderBox))
	reg.Register(chart.Histogram, perColumn(chart.Histogram, renderHistogram))
	reg.Register(chart.Violin, perColumn(chart.Violin, renderViolin))
	reg.Register(chart.Bar, single(renderBar))
	reg.Register(chart.Pie, single(renderPie))
	reg.Register(chart.Scatter, single(renderScatter))
	reg.Register(chart.Density, single(renderDensity))
	reg.Register(chart.Heatmap, single(renderHeatmap))
	reg.Register(chart.PairPlot, single(renderPairPlot))
	return reg
}

// Title formats "<Chart> of <subject>" with an optional " by <group>".
func Title(t chart.ChartType, subject, group string) string {
	s := fmt.Sprintf("%s of %s", t, subject)
	if group != "" {
		s += " by " + group
	}
	return s
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}

func pngArtifact(t chart.ChartType, title, column string, data []byte) chart.Artifact {
	return chart.Artifact{
		Type:        t,
		Title:       title,
		Column:      column,
		ContentType: contentTypePNG,
		Data:        data,
	}
}

// series returns the numeric cells of a column with their row positions.
func series(t *dataset.Table, name string) (xs, ys []float64, err error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	for i, c := range col.Cells {
		if c.Kind == dataset.Number {
			xs = append(xs, float64(i))
			ys = append(ys, c.Num)
		}
	}
	if len(ys) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoValues, name)
	}
	return xs, ys, nil
}

// values returns the numeric cells of a column.
func values(t *dataset.Table, name string) ([]float64, error) {
	_, ys, err := series(t, name)
	return ys, err
}

// categoryLabel renders a grouping cell; nulls group under "(missing)".
func categoryLabel(c dataset.Cell) string {
	if c.IsNull() {
		return "(missing)"
	}
	return c.String()
}

// groups returns the distinct labels of a column in first-seen order.
func groups(col *dataset.Column) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range col.Cells {
		l := categoryLabel(c)
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

type columnFunc func(t *dataset.Table, req chart.ChartRequest, column string) (chart.Artifact, error)

type singleFunc func(t *dataset.Table, req chart.ChartRequest) (chart.Artifact, error)

// perColumn renders one artifact per request column, stopping at the first
// failure and returning the ones already drawn.
func perColumn(ct chart.ChartType, fn columnFunc) chart.Renderer {
	return chart.RendererFunc(func(ctx context.Context, t *dataset.Table, req chart.ChartRequest) ([]chart.Artifact, error) {
		out := make([]chart.Artifact, 0, len(req.Columns))
		for _, col := range req.Columns {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			a, err := fn(t, req, col)
			if err != nil {
				return out, &chart.RenderFailure{Chart: ct, Title: Title(ct, col, req.GroupBy), Err: err}
			}
			out = append(out, a)
		}
		return out, nil
	})
}

// single renders exactly one artifact for the request.
func single(fn singleFunc) chart.Renderer {
	return chart.RendererFunc(func(_ context.Context, t *dataset.Table, req chart.ChartRequest) ([]chart.Artifact, error) {
		a, err := fn(t, req)
		if err != nil {
			return nil, err
		}
		return []chart.Artifact{a}, nil
	})
}
