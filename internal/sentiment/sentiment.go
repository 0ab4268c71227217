// Package sentiment scores free text with VADER, keeps a per-session
// history of results and draws word clouds.
package sentiment

import (
	"errors"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/jonreiter/govader"
)

// ErrEmptyText is returned for empty or whitespace-only input.
var ErrEmptyText = errors.New("please enter some text for analysis")

// Labels returned by Label.
const (
	Positive = "Positive"
	Negative = "Negative"
	Neutral  = "Neutral"
)

// Score is the result of Analyze. Polarity runs from -1 (negative) to 1
// (positive); Subjectivity from 0 (objective) to 1 (subjective).
type Score struct {
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
}

// Label classifies the score's polarity.
func (s Score) Label() string { return Label(s.Polarity) }

// Progress maps polarity onto [0,1] for a progress bar.
func (s Score) Progress() float64 { return (s.Polarity + 1) / 2 }

// analyzer loads the VADER lexicon on first use.
var analyzer = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// Analyze scores text with VADER. Polarity is the normalised compound
// score; subjectivity is the share of the text carrying any sentiment,
// so text without sentiment words scores zero on both axes.
func Analyze(text string) (Score, error) {
	if strings.TrimSpace(text) == "" {
		return Score{}, ErrEmptyText
	}
	v := analyzer().PolarityScores(text)
	return Score{
		Polarity:     clamp(v.Compound, -1, 1),
		Subjectivity: clamp(v.Positive+v.Negative, 0, 1),
	}, nil
}

// Tokenize lower-cases text and splits it into words. Apostrophes inside a
// word are kept so contractions stay whole.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '’'
	})
}

// Label returns Positive above 0.1, Negative below -0.1, Neutral otherwise.
func Label(polarity float64) string {
	switch {
	case polarity > 0.1:
		return Positive
	case polarity < -0.1:
		return Negative
	}
	return Neutral
}

// Emoji returns the face shown next to a label.
func Emoji(label string) string {
	switch label {
	case Positive:
		return "😊"
	case Negative:
		return "😞"
	}
	return "😐"
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
