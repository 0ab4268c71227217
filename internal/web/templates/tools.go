package templates

import (
	"github.com/a-h/templ"

	"github.com/JonMunkholm/dataviz/internal/sentiment"
	"github.com/JonMunkholm/dataviz/internal/weather"
)

// SentimentView is the sentiment tool page.
type SentimentView struct {
	Text     string
	Examples []string
	Error    *ErrorView
	Result   *SentimentResult
	History  []sentiment.Record
}

// SentimentResult is the analysis of the submitted text.
type SentimentResult struct {
	Label        string
	Emoji        string
	Polarity     float64
	Subjectivity float64
	Progress     float64
	// CloudURL points at the word cloud image for the text.
	CloudURL string
}

// SentimentPage renders the sentiment tool.
func SentimentPage(v SentimentView) templ.Component {
	return Page("Sentiment Analysis", view("sentiment", v))
}

// WeatherView is the weather panel.
type WeatherView struct {
	City    string
	Enabled bool
	Error   *ErrorView
	Report  *weather.Report
	Advice  string
}

// WeatherPage renders the weather panel.
func WeatherPage(v WeatherView) templ.Component {
	return Page("Weather", view("weather", v))
}
