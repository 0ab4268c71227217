// Package raster is a small drawing surface for the violin plot, which
// neither go-chart nor gonum/plot has a plotter for. Text is drawn with the
// x/image bitmap face and scaled with x/image/draw.
package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Common colours.
var (
	White     = color.RGBA{255, 255, 255, 255}
	Black     = color.RGBA{0, 0, 0, 255}
	Grey      = color.RGBA{128, 128, 128, 255}
	LightGrey = color.RGBA{225, 225, 225, 255}
	Text      = color.RGBA{42, 63, 95, 255}
)

var face font.Face = basicfont.Face7x13

// Canvas wraps an RGBA image with simple primitives.
type Canvas struct {
	Img *image.RGBA
}

// New returns a w by h canvas filled with bg.
func New(w, h int, bg color.Color) *Canvas {
	c := &Canvas{Img: image.NewRGBA(image.Rect(0, 0, w, h))}
	xdraw.Draw(c.Img, c.Img.Bounds(), image.NewUniform(bg), image.Point{}, xdraw.Src)
	return c
}

// FillRect paints r, blending when col is translucent.
func (c *Canvas) FillRect(r image.Rectangle, col color.Color) {
	xdraw.Draw(c.Img, r.Canon(), image.NewUniform(col), image.Point{}, xdraw.Over)
}

// Line draws a 1px line between two points.
func (c *Canvas) Line(x0, y0, x1, y1 int, col color.Color) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		c.set(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// Dot fills a circle of radius r centred on (x, y).
func (c *Canvas) Dot(x, y, r int, col color.Color) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				c.blend(x+dx, y+dy, col)
			}
		}
	}
}

// HSpan fills the horizontal run x0..x1 on row y.
func (c *Canvas) HSpan(x0, x1, y int, col color.Color) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	c.FillRect(image.Rect(x0, y, x1+1, y+1), col)
}

func (c *Canvas) set(x, y int, col color.Color) {
	if image.Pt(x, y).In(c.Img.Rect) {
		c.Img.Set(x, y, col)
	}
}

func (c *Canvas) blend(x, y int, col color.Color) {
	if image.Pt(x, y).In(c.Img.Rect) {
		xdraw.Draw(c.Img, image.Rect(x, y, x+1, y+1), image.NewUniform(col), image.Point{}, xdraw.Over)
	}
}

// TextSize returns the unscaled pixel size of s.
func TextSize(s string) (w, h int) {
	return font.MeasureString(face, s).Ceil(), face.Metrics().Height.Ceil()
}

// Text draws s with its top-left corner at (x, y).
func (c *Canvas) Text(x, y int, s string, col color.Color) {
	d := &font.Drawer{
		Dst:  c.Img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

// TextCentered draws s horizontally centred on cx.
func (c *Canvas) TextCentered(cx, y int, s string, col color.Color) {
	w, _ := TextSize(s)
	c.Text(cx-w/2, y, s, col)
}

// TextRight draws s ending at x.
func (c *Canvas) TextRight(x, y int, s string, col color.Color) {
	w, _ := TextSize(s)
	c.Text(x-w, y, s, col)
}

// TextScaled draws s enlarged by scale with its top-left corner at (x, y)
// and returns the drawn size.
func (c *Canvas) TextScaled(x, y int, s string, col color.Color, scale float64) (int, int) {
	w, h := TextSize(s)
	if w == 0 {
		return 0, 0
	}
	src := image.NewRGBA(image.Rect(0, 0, w, h))
	(&Canvas{Img: src}).Text(0, 0, s, col)

	dw, dh := int(math.Round(float64(w)*scale)), int(math.Round(float64(h)*scale))
	xdraw.ApproxBiLinear.Scale(c.Img, image.Rect(x, y, x+dw, y+dh), src, src.Bounds(), xdraw.Over, nil)
	return dw, dh
}

// Title draws a double-size heading centred at the top of the canvas.
func (c *Canvas) Title(s string) {
	w, _ := TextSize(s)
	c.TextScaled((c.Img.Rect.Dx()-2*w)/2, 8, s, Text, 2)
}

// PNG encodes the canvas.
func (c *Canvas) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.Img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
