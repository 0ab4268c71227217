package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/dataviz/internal/chart"
	"github.com/JonMunkholm/dataviz/internal/dataset"
	"github.com/JonMunkholm/dataviz/internal/logging"
	"github.com/JonMunkholm/dataviz/internal/sentiment"
	"github.com/JonMunkholm/dataviz/internal/weather"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

type healthResponse struct {
	Status      string `json:"status"`
	RenderSlots int    `json:"render_slots"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	slots := 0
	if s.pipeline.Limiter != nil {
		slots = s.pipeline.Limiter.Available()
	}
	writeJSON(w, healthResponse{Status: "ok", RenderSlots: slots})
}

type classifyResponse struct {
	Rows           int                    `json:"rows"`
	Classification dataset.Classification `json:"classification"`
	Columns        []dataset.ColumnInfo   `json:"columns"`
}

// handleAPIClassify loads the uploaded file and reports column kinds.
func (s *Server) handleAPIClassify(w http.ResponseWriter, r *http.Request) {
	upload, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	t, err := dataset.LoadWithOptions(bytes.NewReader(upload.Data), s.pipeline.Load)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, classifyResponse{
		Rows:           t.NumRows(),
		Classification: dataset.Classify(t),
		Columns:        dataset.DescribeColumns(t),
	})
}

// apiArtifact carries the image bytes, base64 encoded by encoding/json.
type apiArtifact struct {
	chart.Artifact
	Data []byte `json:"data"`
}

type chartsResponse struct {
	Options   chart.Options        `json:"options"`
	Requests  []chart.ChartRequest `json:"requests"`
	Skipped   []chart.Skip         `json:"skipped"`
	Notes     []string             `json:"notes"`
	Artifacts []apiArtifact        `json:"artifacts"`
	Error     *ErrorResponse       `json:"error,omitempty"`
}

// handleAPICharts runs the whole pipeline on the uploaded file with the
// options from the "options" form field. A render failure still answers
// 200 with the charts drawn before it and an error object.
func (s *Server) handleAPICharts(w http.ResponseWriter, r *http.Request) {
	upload, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	opts := chart.DefaultOptions()
	if raw := strings.TrimSpace(r.FormValue("options")); raw != "" {
		var sig panelSignals
		if err := json.Unmarshal([]byte(raw), &sig); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: options: %w", errBadRequest, err), http.StatusBadRequest)
			return
		}
		if opts, err = sig.options(); err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
	}
	opts = s.withDefaults(opts)

	res, err := s.pipeline.Run(r.Context(), bytes.NewReader(upload.Data), opts, nil)
	if res == nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	resp := chartsResponse{
		Options:   res.Options,
		Requests:  res.Resolution.Requests,
		Skipped:   res.Resolution.Skipped,
		Notes:     append(append([]string(nil), res.Notes...), res.Resolution.Notes...),
		Artifacts: make([]apiArtifact, len(res.Artifacts)),
	}
	for i, a := range res.Artifacts {
		resp.Artifacts[i] = apiArtifact{Artifact: a, Data: a.Data}
	}
	if err != nil {
		var rf *chart.RenderFailure
		if !errors.As(err, &rf) {
			s.respondError(w, r, err, statusFor(err))
			return
		}
		msg := MapError(err)
		logging.FromContext(r.Context()).Error("render cycle failed", "file", upload.Name, "error", err, "code", msg.Code)
		er := errorResponse(msg)
		resp.Error = &er
	}
	writeJSON(w, resp)
}

type sentimentRequest struct {
	Text string `json:"text"`
}

type sentimentResponse struct {
	sentiment.Record
	Label string `json:"label"`
	Emoji string `json:"emoji"`
}

// handleAPISentiment scores {"text": ...} and appends it to the session
// history.
func (s *Server) handleAPISentiment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var req sentimentRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", errBadRequest, err), http.StatusBadRequest)
		return
	}
	score, err := sentiment.Analyze(req.Text)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	rec := recordSentiment(sess, req.Text, score)
	label := score.Label()
	writeJSON(w, sentimentResponse{Record: rec, Label: label, Emoji: sentiment.Emoji(label)})
}

func (s *Server) handleAPISentimentHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	v := sentimentView(sess, "")
	if v.History == nil {
		v.History = []sentiment.Record{}
	}
	writeJSON(w, v.History)
}

type weatherResponse struct {
	*weather.Report
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`
	Advice  string `json:"advice,omitempty"`
}

func (s *Server) handleAPIWeather(w http.ResponseWriter, r *http.Request) {
	if s.weather == nil {
		s.respondError(w, r, fmt.Errorf("%w: no api key configured", weather.ErrUnavailable), http.StatusServiceUnavailable)
		return
	}
	city := r.URL.Query().Get("city")
	if strings.TrimSpace(city) == "" {
		s.respondError(w, r, fmt.Errorf("%w: city is required", errBadRequest), http.StatusBadRequest)
		return
	}

	report, err := s.weather.Current(r.Context(), city)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, weatherResponse{
		Report:  report,
		Sunrise: report.SunriseClock(),
		Sunset:  report.SunsetClock(),
		Advice:  report.Advice(),
	})
}
