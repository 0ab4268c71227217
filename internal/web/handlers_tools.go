package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dataviz/internal/logging"
	"github.com/JonMunkholm/dataviz/internal/sentiment"
	"github.com/JonMunkholm/dataviz/internal/session"
	"github.com/JonMunkholm/dataviz/internal/weather"
	"github.com/JonMunkholm/dataviz/internal/web/templates"
)

// iconCode matches OpenWeatherMap icon codes such as "10d".
var iconCode = regexp.MustCompile(`^[0-9]{2}[dn]$`)

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, templates.SentimentPage(sentimentView(sess, "")))
}

// handleSentimentSubmit scores the text and appends it to the session
// history.
func (s *Server) handleSentimentSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", errBadRequest, err), http.StatusBadRequest)
		return
	}
	text := r.PostForm.Get("text")

	score, err := sentiment.Analyze(text)
	if err != nil {
		v := sentimentView(sess, text)
		v.Error = errorView(MapError(err))
		s.render(w, r, statusFor(err), templates.SentimentPage(v))
		return
	}

	rec := recordSentiment(sess, text, score)
	logging.FromContext(r.Context()).Debug("sentiment analysed",
		"session", sess.ID,
		"sentiment", rec.Sentiment,
		"polarity", rec.Polarity,
	)

	v := sentimentView(sess, text)
	label := score.Label()
	v.Result = &templates.SentimentResult{
		Label:        label,
		Emoji:        sentiment.Emoji(label),
		Polarity:     score.Polarity,
		Subjectivity: score.Subjectivity,
		Progress:     score.Progress(),
		CloudURL:     "/sentiment/wordcloud?text=" + url.QueryEscape(text),
	}
	s.render(w, r, http.StatusOK, templates.SentimentPage(v))
}

func recordSentiment(sess *session.Session, text string, score sentiment.Score) sentiment.Record {
	rec := sentiment.NewRecord(text, score)
	sess.Update(func(ss *session.Session) { ss.History.Append(rec) })
	return rec
}

func sentimentView(sess *session.Session, text string) templates.SentimentView {
	v := templates.SentimentView{Text: text, Examples: sentiment.Examples}
	sess.View(func(ss *session.Session) { v.History = ss.History.Records() })
	return v
}

// handleWordCloud draws the word cloud of ?text=.
func (s *Server) handleWordCloud(w http.ResponseWriter, r *http.Request) {
	png, err := sentiment.WordCloud(r.URL.Query().Get("text"), sentiment.CloudWidth, sentiment.CloudHeight)
	if err != nil {
		if errors.Is(err, sentiment.ErrNoWords) {
			err = fmt.Errorf("%w: %w", errBadRequest, err)
		}
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writePNG(w, png, "no-store")
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	v := templates.WeatherView{City: city, Enabled: s.weather != nil}
	if !v.Enabled || city == "" {
		s.render(w, r, http.StatusOK, templates.WeatherPage(v))
		return
	}

	report, err := s.weather.Current(r.Context(), city)
	if err != nil {
		msg := MapError(err)
		logging.FromContext(r.Context()).Warn("weather lookup failed", "city", city, "error", err, "code", msg.Code)
		v.Error = errorView(msg)
		s.render(w, r, statusFor(err), templates.WeatherPage(v))
		return
	}
	v.Report = report
	v.Advice = report.Advice()
	s.render(w, r, http.StatusOK, templates.WeatherPage(v))
}

// handleWeatherIcon proxies the icon so the page stays within the CSP.
func (s *Server) handleWeatherIcon(w http.ResponseWriter, r *http.Request) {
	if s.weather == nil {
		s.respondError(w, r, weather.ErrUnavailable, http.StatusServiceUnavailable)
		return
	}
	code := chi.URLParam(r, "code")
	if !iconCode.MatchString(code) {
		s.respondError(w, r, fmt.Errorf("%w: icon code %q", errBadRequest, code), http.StatusBadRequest)
		return
	}
	png, err := s.weather.Icon(r.Context(), code)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writePNG(w, png, "public, max-age=86400")
}

func writePNG(w http.ResponseWriter, png []byte, cacheControl string) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", cacheControl)
	_, _ = w.Write(png)
}
