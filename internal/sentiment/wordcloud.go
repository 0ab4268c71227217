package sentiment

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Word cloud defaults. Font sizes are in pixels.
const (
	CloudWidth  = 400
	CloudHeight = 200
	maxWords    = 80
	maxSize     = 48
	minSize     = 11
)

var cloudFont = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

// ErrNoWords means nothing was left to draw once stopwords were removed.
var ErrNoWords = errors.New("no words to draw")

var cloudColors = []color.RGBA{
	{0x44, 0x01, 0x54, 0xff},
	{0x3b, 0x52, 0x8b, 0xff},
	{0x21, 0x90, 0x8d, 0xff},
	{0x5d, 0xc9, 0x63, 0xff},
	{0x2a, 0x78, 0x8e, 0xff},
	{0x41, 0x44, 0x87, 0xff},
}

var stopwords = map[string]bool{}

func init() {
	for _, w := range []string{
		"a", "about", "after", "all", "also", "am", "an", "and", "any", "are", "as", "at",
		"be", "because", "been", "before", "being", "but", "by", "can", "could", "did", "do",
		"does", "doing", "for", "from", "had", "has", "have", "having", "he", "her", "here",
		"hers", "him", "his", "how", "i", "i'm", "if", "in", "into", "is", "it", "it's", "its",
		"just", "me", "more", "most", "my", "of", "off", "on", "once", "only", "or", "other",
		"our", "ours", "out", "over", "own", "same", "she", "should", "some", "such", "than",
		"that", "the", "their", "them", "then", "there", "these", "they", "this", "those",
		"through", "to", "under", "until", "up", "was", "we", "were", "what", "when", "where",
		"which", "while", "who", "whom", "why", "will", "with", "would", "you", "your", "yours",
	} {
		stopwords[w] = true
	}
}

// WordFreq is a word and how often it occurs.
type WordFreq struct {
	Word  string
	Count int
}

// Frequencies counts the non-stopword tokens of text, most frequent first
// and alphabetical among ties.
func Frequencies(text string) []WordFreq {
	counts := make(map[string]int)
	for _, tok := range Tokenize(text) {
		if len(tok) < 2 || stopwords[tok] {
			continue
		}
		counts[tok]++
	}
	out := make([]WordFreq, 0, len(counts))
	for w, c := range counts {
		out = append(out, WordFreq{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	return out
}

// WordCloud draws the words of text as a PNG, sized by frequency and placed
// outwards from the centre along a spiral. Non-positive dimensions select
// CloudWidth x CloudHeight.
func WordCloud(text string, w, h int) ([]byte, error) {
	if w <= 0 || h <= 0 {
		w, h = CloudWidth, CloudHeight
	}
	freqs := Frequencies(text)
	if len(freqs) == 0 {
		return nil, ErrNoWords
	}
	if len(freqs) > maxWords {
		freqs = freqs[:maxWords]
	}
	ttf, err := cloudFont()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}

	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()

	faces := make(map[int]font.Face)
	face := func(size int) font.Face {
		if f, ok := faces[size]; ok {
			return f
		}
		f := truetype.NewFace(ttf, &truetype.Options{Size: float64(size)})
		faces[size] = f
		return f
	}

	bounds := image.Rect(0, 0, w, h)
	top := float64(freqs[0].Count)
	var placed []image.Rectangle

	for i, f := range freqs {
		size := minSize + int(math.Round((maxSize-minSize)*float64(f.Count)/top))
		var tw, th float64
		for ; size >= minSize; size -= 4 {
			dc.SetFontFace(face(size))
			tw, th = dc.MeasureString(f.Word)
			if int(tw) < w && int(th) < h {
				break
			}
		}
		if size < minSize {
			continue
		}

		r, ok := place(bounds, placed, int(math.Ceil(tw)), int(math.Ceil(th)))
		if !ok {
			continue
		}
		dc.SetColor(cloudColors[i%len(cloudColors)])
		// baseline about a fifth of the line height above the box bottom
		dc.DrawString(f.Word, float64(r.Min.X), float64(r.Max.Y)-th*0.2)
		placed = append(placed, r)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// place walks an Archimedean spiral from the centre until a sw x sh box
// fits inside bounds without touching an earlier word.
func place(bounds image.Rectangle, placed []image.Rectangle, sw, sh int) (image.Rectangle, bool) {
	cx, cy := bounds.Dx()/2, bounds.Dy()/2
	aspect := float64(bounds.Dy()) / float64(bounds.Dx())

	for step := 0; step < 3000; step++ {
		t := float64(step) * 0.1
		x := cx + int(2*t*math.Cos(t)) - sw/2
		y := cy + int(2*t*math.Sin(t)*aspect) - sh/2
		r := image.Rect(x, y, x+sw, y+sh)
		if !r.In(bounds) {
			if 2*t > float64(bounds.Dx()) {
				break
			}
			continue
		}
		if !overlaps(r.Inset(-1), placed) {
			return r, true
		}
	}
	return image.Rectangle{}, false
}

func overlaps(r image.Rectangle, placed []image.Rectangle) bool {
	for _, p := range placed {
		if r.Overlaps(p) {
			return true
		}
	}
	return false
}
