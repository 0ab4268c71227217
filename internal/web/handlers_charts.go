package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/JonMunkholm/dataviz/internal/chart"
	"github.com/JonMunkholm/dataviz/internal/dataset"
	"github.com/JonMunkholm/dataviz/internal/logging"
	"github.com/JonMunkholm/dataviz/internal/session"
	"github.com/JonMunkholm/dataviz/internal/web/templates"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to disk.
const multipartMemory = 32 << 20

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, templates.Home())
}

// handleSessionEnd discards the session: upload, panel and history.
func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.End(w, r); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// loadSession returns the caller's session, answering the request itself on
// failure.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Load(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

// handleCharts renders the visualizer for the session's upload.
func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	v := s.chartsView(r.Context(), sess)
	s.render(w, r, http.StatusOK, templates.ChartsPage(v))
}

// chartsView runs the pipeline without charts to fill the overview and
// the side panel.
func (s *Server) chartsView(ctx context.Context, sess *session.Session) templates.ChartsView {
	upload, opts := sess.Snapshot()
	opts = s.withDefaults(opts)

	v := templates.ChartsView{Panel: panelView(opts, dataset.Classification{})}
	if upload == nil {
		return v
	}
	v.FileName = upload.Name

	overview := opts
	overview.Charts = nil
	res, err := s.pipeline.Run(ctx, bytes.NewReader(upload.Data), overview, nil)
	if err != nil {
		logging.FromContext(ctx).Warn("stored upload unreadable", "file", upload.Name, "error", err)
		v.Error = errorView(MapError(err))
		return v
	}
	v.Overview = overviewView(res)
	v.Panel = panelView(opts, res.Classification)
	v.Signals = signalsJSON(v.Panel)
	return v
}

// handleChartsUpload validates the uploaded file with the loader and keeps
// its bytes in the session.
func (s *Server) handleChartsUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	upload, err := s.readUpload(w, r)
	if err != nil {
		s.uploadFailed(w, r, sess, err)
		return
	}

	sess.Update(func(ss *session.Session) { ss.Upload = upload })
	logging.FromContext(r.Context()).Info("upload stored",
		"session", sess.ID,
		"file", upload.Name,
		"bytes", len(upload.Data),
	)
	http.Redirect(w, r, "/charts", http.StatusSeeOther)
}

// readUpload reads the multipart "file" field and checks it loads.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*session.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, errNoUpload
		}
		return nil, fmt.Errorf("parse form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, dataset.ErrEmpty
	}
	if _, err := dataset.LoadWithOptions(bytes.NewReader(data), s.pipeline.Load); err != nil {
		return nil, err
	}
	return &session.Upload{Name: header.Filename, Data: data}, nil
}

// uploadFailed re-renders the page with the error, or answers in the
// client's format.
func (s *Server) uploadFailed(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	status := statusFor(err)
	if wantsJSON(r) || isDatastar(r) {
		s.respondError(w, r, err, status)
		return
	}
	msg := MapError(err)
	logging.FromContext(r.Context()).Warn("upload rejected", "error", err, "code", msg.Code)

	v := s.chartsView(r.Context(), sess)
	v.Error = errorView(msg)
	s.render(w, r, status, templates.ChartsPage(v))
}

// handleChartsOptions stores the side panel submitted as a plain form.
func (s *Server) handleChartsOptions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", errBadRequest, err), http.StatusBadRequest)
		return
	}
	opts, err := optionsFromForm(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	sess.Update(func(ss *session.Session) { ss.Options = opts })
	http.Redirect(w, r, "/charts", http.StatusSeeOther)
}

// handleChartsStream is the datastar endpoint behind the side panel. It
// stores the panel signals, then runs the pipeline and patches the gallery
// after every chart so images appear as they are drawn.
func (s *Server) handleChartsStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	log := logging.FromContext(r.Context())

	if r.URL.Query().Get("datastar") != "" {
		var sig panelSignals
		if err := datastar.ReadSignals(r, &sig); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: read signals: %w", errBadRequest, err), http.StatusBadRequest)
			return
		}
		opts, err := sig.options()
		if err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
		sess.Update(func(ss *session.Session) { ss.Options = opts })
	}

	upload, opts := sess.Snapshot()
	if upload == nil {
		s.respondError(w, r, errNoUpload, http.StatusBadRequest)
		return
	}
	opts = s.withDefaults(opts)

	sse := datastar.NewSSE(w, r)
	gallery := templates.GalleryView{Pending: true}
	if err := sse.PatchElementTempl(templates.Gallery(gallery)); err != nil {
		log.Debug("client gone", "error", err)
		return
	}

	emit := func(a chart.Artifact) error {
		gallery.Artifacts = append(gallery.Artifacts, artifactView(a))
		return sse.PatchElementTempl(templates.Gallery(gallery))
	}
	res, err := s.pipeline.Run(r.Context(), bytes.NewReader(upload.Data), opts, emit)

	gallery.Pending = false
	if res != nil {
		if perr := sse.PatchElementTempl(templates.Overview(overviewView(res))); perr != nil {
			log.Debug("client gone", "error", perr)
			return
		}
		gallery.Notes = res.Resolution.Notes
		gallery.Warnings = skipWarnings(res.Resolution.Skipped)
	}
	if err != nil {
		msg := MapError(err)
		log.Error("render cycle failed", "session", sess.ID, "error", err, "code", msg.Code)
		gallery.Error = errorView(msg)
	}
	if perr := sse.PatchElementTempl(templates.Gallery(gallery)); perr != nil {
		_ = sse.ConsoleError(perr)
	}
}

// handleChartsClear drops the upload and resets the panel.
func (s *Server) handleChartsClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	sess.Update(func(ss *session.Session) {
		ss.Upload = nil
		ss.Options = chart.DefaultOptions()
	})
	http.Redirect(w, r, "/charts", http.StatusSeeOther)
}

// withDefaults applies the configured bucket count and normalizes.
func (s *Server) withDefaults(opts chart.Options) chart.Options {
	if opts.HistogramBins == 0 {
		opts.HistogramBins = s.cfg.Render.DefaultBins
	}
	return opts.Normalize()
}

// panelSignals mirrors the side panel. Bins arrive as a number or, from
// some inputs, a string.
type panelSignals struct {
	DropMissing   bool        `json:"drop_missing"`
	Standardize   bool        `json:"standardize"`
	Charts        []string    `json:"selected_chart_types"`
	HistogramBins json.Number `json:"histogram_bins"`
	ScatterX      string      `json:"scatter_x"`
	ScatterY      string      `json:"scatter_y"`
	ScatterColor  string      `json:"scatter_color"`
	BarCategory   string      `json:"bar_category"`
	PieCategory   string      `json:"pie_category"`
	DensityColumn string      `json:"density_column"`
}

func (p panelSignals) options() (chart.Options, error) {
	opts := chart.Options{
		DropMissing:   p.DropMissing,
		Standardize:   p.Standardize,
		Charts:        parseSelection(p.Charts),
		ScatterX:      p.ScatterX,
		ScatterY:      p.ScatterY,
		ScatterColor:  p.ScatterColor,
		BarCategory:   p.BarCategory,
		PieCategory:   p.PieCategory,
		DensityColumn: p.DensityColumn,
	}
	if p.HistogramBins != "" {
		bins, err := strconv.ParseFloat(string(p.HistogramBins), 64)
		if err != nil || math.IsNaN(bins) || math.IsInf(bins, 0) {
			return opts, fmt.Errorf("%w: histogram_bins %q", errBadRequest, p.HistogramBins)
		}
		// clamp before converting so huge values cannot wrap
		opts.HistogramBins = int(math.Max(chart.MinBins, math.Min(bins, chart.MaxBins)))
	}
	return opts, nil
}

// optionsFromForm reads the side panel fields from a submitted form.
func optionsFromForm(r *http.Request) (chart.Options, error) {
	sig := panelSignals{
		DropMissing:   formBool(r.PostForm.Get("drop_missing")),
		Standardize:   formBool(r.PostForm.Get("standardize")),
		Charts:        r.PostForm["selected_chart_types"],
		HistogramBins: json.Number(r.PostForm.Get("histogram_bins")),
		ScatterX:      r.PostForm.Get("scatter_x"),
		ScatterY:      r.PostForm.Get("scatter_y"),
		ScatterColor:  r.PostForm.Get("scatter_color"),
		BarCategory:   r.PostForm.Get("bar_category"),
		PieCategory:   r.PostForm.Get("pie_category"),
		DensityColumn: r.PostForm.Get("density_column"),
	}
	return sig.options()
}

func formBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b || v == "on"
}

// parseSelection keeps the recognised chart tags.
func parseSelection(names []string) []chart.ChartType {
	out := make([]chart.ChartType, 0, len(names))
	for _, n := range names {
		if t, err := chart.ParseChartType(n); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// panelView builds the side panel for opts over the classified columns.
// Column selects show the value the resolver will use.
func panelView(opts chart.Options, cls dataset.Classification) templates.PanelView {
	types := make([]templates.TypeOption, 0, len(chart.AllChartTypes()))
	for _, t := range chart.AllChartTypes() {
		types = append(types, templates.TypeOption{Slug: t.Slug(), Name: t.String(), Selected: opts.Selected(t)})
	}

	x := pick(opts.ScatterX, cls.Numeric, "")
	return templates.PanelView{
		DropMissing:  opts.DropMissing,
		Standardize:  opts.Standardize,
		Types:        types,
		Bins:         opts.HistogramBins,
		MinBins:      chart.MinBins,
		MaxBins:      chart.MaxBins,
		Numeric:      choices(cls.Numeric, ""),
		Categorical:  choices(cls.Categorical, ""),
		ScatterX:     choices(cls.Numeric, x),
		ScatterY:     choices(cls.Numeric, pick(opts.ScatterY, cls.Numeric, x)),
		ScatterColor: choices(cls.Categorical, opts.ScatterColor),
		BarCategory:  choices(cls.Categorical, pick(opts.BarCategory, cls.Categorical, "")),
		PieCategory:  choices(cls.Categorical, pick(opts.PieCategory, cls.Categorical, "")),
		Density:      choices(cls.Numeric, pick(opts.DensityColumn, cls.Numeric, "")),
	}
}

// pick returns chosen when it is one of options, else the first option
// other than avoid.
func pick(chosen string, options []string, avoid string) string {
	for _, o := range options {
		if o == chosen {
			return chosen
		}
	}
	for _, o := range options {
		if o != avoid {
			return o
		}
	}
	if len(options) > 0 {
		return options[0]
	}
	return ""
}

func choices(options []string, selected string) []templates.Choice {
	out := make([]templates.Choice, len(options))
	for i, o := range options {
		out[i] = templates.Choice{Value: o, Selected: o == selected}
	}
	return out
}

func selectedValue(cs []templates.Choice) string {
	for _, c := range cs {
		if c.Selected {
			return c.Value
		}
	}
	return ""
}

// signalsJSON seeds the datastar signals from the panel.
func signalsJSON(p templates.PanelView) string {
	slugs := make([]string, 0, len(p.Types))
	for _, t := range p.Types {
		if t.Selected {
			slugs = append(slugs, t.Slug)
		}
	}
	b, err := json.Marshal(map[string]any{
		"drop_missing":         p.DropMissing,
		"standardize":          p.Standardize,
		"selected_chart_types": slugs,
		"histogram_bins":       p.Bins,
		"scatter_x":            selectedValue(p.ScatterX),
		"scatter_y":            selectedValue(p.ScatterY),
		"scatter_color":        selectedValue(p.ScatterColor),
		"bar_category":         selectedValue(p.BarCategory),
		"pie_category":         selectedValue(p.PieCategory),
		"density_column":       selectedValue(p.Density),
	})
	if err != nil {
		return "{}"
	}
	return string(b)
}

// overviewView formats the preview, describe table and column info.
func overviewView(res *chart.Result) templates.OverviewView {
	v := templates.OverviewView{Notes: res.Notes}

	if res.Preview != nil {
		preview := &templates.TableView{Headers: res.Preview.Names()}
		for i := 0; i < res.Preview.NumRows(); i++ {
			row := res.Preview.Row(i)
			cells := make([]string, len(row))
			for j, c := range row {
				cells[j] = c.String()
			}
			preview.Rows = append(preview.Rows, cells)
		}
		v.Preview = preview
	}

	if len(res.Summary) > 0 {
		summary := &templates.TableView{Headers: []string{""}}
		for _, cs := range res.Summary {
			summary.Headers = append(summary.Headers, cs.Name)
		}
		for i, label := range dataset.SummaryLabels {
			row := []string{label}
			for _, cs := range res.Summary {
				row = append(row, templates.FormatNumber(cs.Values()[i]))
			}
			summary.Rows = append(summary.Rows, row)
		}
		v.Summary = summary
	}

	for _, c := range res.Columns {
		v.Columns = append(v.Columns, templates.ColumnView{
			Name:    c.Name,
			Kind:    string(c.Kind),
			NonNull: c.NonNull,
			Rows:    c.Rows,
		})
	}
	return v
}

func artifactView(a chart.Artifact) templates.ArtifactView {
	return templates.ArtifactView{
		ID:    a.ID,
		Title: a.Title,
		// DataURI only ever yields a base64 image URI.
		Src: template.URL(a.DataURI()),
	}
}

func skipWarnings(skips []chart.Skip) []string {
	out := make([]string, len(skips))
	for i, sk := range skips {
		out[i] = sk.String()
	}
	return out
}
