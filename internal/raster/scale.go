package raster

import (
	"image"
	"image/color"
	"math"
	"strconv"
)

// Scale maps the data interval [Min, Max] onto the pixel interval
// [From, To]. To may be smaller than From for y axes growing upwards.
type Scale struct {
	Min, Max float64
	From, To int
}

// NewScale pads a degenerate interval so that Px stays defined.
func NewScale(min, max float64, from, to int) Scale {
	if max == min || math.IsNaN(max-min) {
		min, max = min-0.5, max+0.5
	}
	return Scale{Min: min, Max: max, From: from, To: to}
}

// Px converts a data value to a pixel coordinate.
func (s Scale) Px(v float64) int {
	t := (v - s.Min) / (s.Max - s.Min)
	return s.From + int(math.Round(t*float64(s.To-s.From)))
}

// Ticks returns up to n evenly spaced round values inside the interval.
func (s Scale) Ticks(n int) []float64 {
	if n < 2 {
		n = 2
	}
	step := niceStep((s.Max - s.Min) / float64(n-1))
	start := math.Ceil(s.Min/step) * step
	var out []float64
	for v := start; v <= s.Max+step*1e-9; v += step {
		out = append(out, v)
	}
	return out
}

func niceStep(raw float64) float64 {
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(raw)))
	f := raw / exp
	switch {
	case f <= 1:
		f = 1
	case f <= 2:
		f = 2
	case f <= 5:
		f = 5
	default:
		f = 10
	}
	return f * exp
}

// FormatTick renders an axis value compactly.
func FormatTick(v float64) string {
	if math.Abs(v) < 1e-12 {
		v = 0
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}

// YAxis draws a vertical axis with tick labels along x within plot.
func (c *Canvas) YAxis(plot image.Rectangle, s Scale, ticks int) {
	c.Line(plot.Min.X, plot.Min.Y, plot.Min.X, plot.Max.Y, Grey)
	for _, v := range s.Ticks(ticks) {
		y := s.Px(v)
		c.Line(plot.Min.X+1, y, plot.Max.X, y, LightGrey)
		c.Line(plot.Min.X-4, y, plot.Min.X, y, Grey)
		_, h := TextSize("0")
		c.TextRight(plot.Min.X-6, y-h/2, FormatTick(v), Text)
	}
}

// WithAlpha returns col with its alpha replaced, premultiplying the channels.
func WithAlpha(col color.RGBA, a uint8) color.RGBA {
	f := float64(a) / 255
	return color.RGBA{
		R: uint8(float64(col.R) * f),
		G: uint8(float64(col.G) * f),
		B: uint8(float64(col.B) * f),
		A: a,
	}
}
