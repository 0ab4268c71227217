package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataviz/internal/chart"
	"github.com/JonMunkholm/dataviz/internal/config"
	"github.com/JonMunkholm/dataviz/internal/dataset"
	"github.com/JonMunkholm/dataviz/internal/iris"
	"github.com/JonMunkholm/dataviz/internal/render"
	"github.com/JonMunkholm/dataviz/internal/session"
	"github.com/JonMunkholm/dataviz/internal/testutil"
	"github.com/JonMunkholm/dataviz/internal/weather"
)

const sampleCSV = "A,B\n1,x\n2,x\n3,y\n4,y\n"

const irisCSV = `Id,SepalLengthCm,SepalWidthCm,PetalLengthCm,PetalWidthCm,Species
1,5.1,3.5,1.4,0.2,Iris-setosa
2,4.9,3.0,1.4,0.2,Iris-setosa
3,7.0,3.2,4.7,1.4,Iris-versicolor
4,6.3,3.3,6.0,2.5,Iris-virginica
`

const londonJSON = `{
  "weather": [{"description": "light rain", "icon": "10d"}],
  "main": {"temp": 11.5, "feels_like": 10.2, "humidity": 81},
  "wind": {"speed": 4.1},
  "sys": {"country": "GB", "sunrise": 1700000000, "sunset": 1700030000}
}`

type testEnv struct {
	t      *testing.T
	srv    *Server
	cookie []*http.Cookie
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) string { return "" })
	require.NoError(t, err)
	cfg.Server.RequestTimeout = 0
	return cfg
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = testConfig(t)
	}

	store := session.NewStore(time.Hour, 0)
	t.Cleanup(store.Close)

	tbl, err := dataset.Load(strings.NewReader(irisCSV))
	require.NoError(t, err)
	irisSvc, err := iris.New(tbl, "Species", t.TempDir())
	require.NoError(t, err)

	srv := NewServer(cfg, Deps{
		Pipeline: chart.NewPipeline(render.Default(), chart.NewLimiter(2, time.Second), dataset.LoadOptions{}),
		Sessions: session.NewManager(store, []byte("test-secret-key-32-bytes-long!!!"), session.CookieOptions{}),
		Weather:  fakeWeather(t),
		Iris:     irisSvc,
		Logger:   testutil.NewTestLogger(t),
	})
	t.Cleanup(func() { _ = srv.Shutdown(testutil.Context(t)) })
	return &testEnv{t: t, srv: srv}
}

func fakeWeather(t *testing.T) *weather.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "london" {
			_, _ = w.Write([]byte(londonJSON))
			return
		}
		http.Error(w, `{"cod":"404"}`, http.StatusNotFound)
	})
	mux.HandleFunc("/img/10d.png", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("png-bytes"))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return &weather.Client{
		BaseURL:  ts.URL + "/weather",
		IconURL:  ts.URL + "/img",
		APIKey:   "key",
		HTTP:     ts.Client(),
		Location: time.UTC,
	}
}

// do serves req, carrying the session cookie between calls.
func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	e.t.Helper()
	for _, c := range e.cookie {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	if cs := rec.Result().Cookies(); len(cs) > 0 {
		e.cookie = cs
	}
	return rec
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func multipartBody(t *testing.T, name, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(path, name, content string, fields map[string]string) *httptest.ResponseRecorder {
	body, ctype := multipartBody(e.t, name, content, fields)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ctype)
	return e.do(req)
}

func TestHome(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.get("/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CSV Visualizer")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "img-src 'self' data:")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestChartsUploadAndStream(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.upload("/charts/upload", "sample.csv", sampleCSV, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/charts", rec.Header().Get("Location"))
	require.NotEmpty(t, e.cookie)

	rec = e.get("/charts")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "sample.csv")
	assert.Contains(t, body, "Summary statistics")
	assert.Contains(t, body, `id="gallery"`)
	assert.Contains(t, body, "categorical")

	req := httptest.NewRequest(http.MethodGet, "/charts/stream", nil)
	req.Header.Set("Datastar-Request", "true")
	rec = e.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
	stream := rec.Body.String()
	assert.Contains(t, stream, "data:image/png;base64,")
	assert.Contains(t, stream, "Line Chart of A")
	assert.Contains(t, stream, "Bar Chart of A by B")
}

func TestChartsStreamReadsSignals(t *testing.T) {
	e := newTestEnv(t, nil)
	require.Equal(t, http.StatusSeeOther, e.upload("/charts/upload", "sample.csv", sampleCSV, nil).Code)

	signals := `{"selected_chart_types":["scatter"],"histogram_bins":25}`
	req := httptest.NewRequest(http.MethodGet, "/charts/stream?datastar="+url.QueryEscape(signals), nil)
	req.Header.Set("Datastar-Request", "true")
	rec := e.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	stream := rec.Body.String()
	assert.Contains(t, stream, "Scatter Plot skipped")
	assert.NotContains(t, stream, "data:image/png;base64,")

	rec = e.get("/charts")
	assert.Contains(t, rec.Body.String(), `histogram_bins&#34;:25`)
}

func TestChartsStreamWithoutUpload(t *testing.T) {
	e := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/charts/stream", nil)
	req.Header.Set("Datastar-Request", "true")
	rec := e.do(req)

	assert.Contains(t, rec.Body.String(), "FILE004")
}

func TestChartsUploadRejected(t *testing.T) {
	tests := []struct {
		name    string
		content string
		status  int
		code    string
	}{
		{"header only", "A,B\n", http.StatusBadRequest, "FILE005"},
		{"empty", "", http.StatusBadRequest, "FILE005"},
		{"ragged rows", "A,B\n1,2\n3,4,5\n", http.StatusBadRequest, "FILE002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t, nil)
			rec := e.upload("/charts/upload", "bad.csv", tt.content, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
		})
	}
}

func TestChartsUploadTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upload.MaxFileSize = 64
	e := newTestEnv(t, cfg)

	rec := e.upload("/charts/upload", "big.csv", "A\n"+strings.Repeat("1\n", 200), nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "FILE001")
}

func TestChartsOptionsAndClear(t *testing.T) {
	e := newTestEnv(t, nil)
	require.Equal(t, http.StatusSeeOther, e.upload("/charts/upload", "sample.csv", sampleCSV, nil).Code)

	form := url.Values{
		"drop_missing":         {"true"},
		"selected_chart_types": {"histogram", "box"},
		"histogram_bins":       {"55"},
	}
	req := httptest.NewRequest(http.MethodPost, "/charts/options", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := e.do(req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	body := e.get("/charts").Body.String()
	assert.Contains(t, body, `histogram_bins&#34;:55`)
	assert.Contains(t, body, `value="histogram" data-bind="selected_chart_types" checked`)

	req = httptest.NewRequest(http.MethodPost, "/charts/clear", nil)
	require.Equal(t, http.StatusSeeOther, e.do(req).Code)
	assert.Contains(t, e.get("/charts").Body.String(), "Upload a CSV file to get started.")
}

func TestChartsOptionsBadBins(t *testing.T) {
	e := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/charts/options", strings.NewReader("histogram_bins=many"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := e.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "REQ003")
}

func TestSentiment(t *testing.T) {
	e := newTestEnv(t, nil)

	post := func(text string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/sentiment", strings.NewReader(url.Values{"text": {text}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return e.do(req)
	}

	rec := post("This is great")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Positive")
	assert.Contains(t, body, "History")
	assert.Contains(t, body, "/sentiment/wordcloud?text=This")

	rec = post("   ")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "SNT001")

	rec = e.get("/sentiment/wordcloud?text=" + url.QueryEscape("great great data"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestAPISentimentHistory(t *testing.T) {
	e := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/sentiment", strings.NewReader(`{"text":"This is terrible"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := e.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Label     string  `json:"label"`
		Sentiment string  `json:"sentiment"`
		Polarity  float64 `json:"polarity"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "Negative", got.Label)
	assert.Less(t, got.Polarity, -0.1)

	rec = e.get("/api/sentiment/history")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	require.Len(t, history, 1)
	assert.Equal(t, "This is terrible", history[0]["text"])
}

func TestAPIHealth(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.get("/api/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","render_slots":2}`, rec.Body.String())
}

func TestAPIClassify(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.upload("/api/classify", "sample.csv", sampleCSV, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got classifyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 4, got.Rows)
	assert.Equal(t, []string{"A"}, got.Classification.Numeric)
	assert.Equal(t, []string{"B"}, got.Classification.Categorical)
	require.Len(t, got.Columns, 2)
	assert.Equal(t, dataset.KindCategorical, got.Columns[1].Kind)
}

func TestAPICharts(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.upload("/api/charts", "sample.csv", sampleCSV, map[string]string{
		"options": `{"selected_chart_types":["Histogram","Bar Chart","Scatter Plot"],"histogram_bins":10}`,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Requests  []chart.ChartRequest `json:"requests"`
		Skipped   []chart.Skip         `json:"skipped"`
		Artifacts []struct {
			Title string `json:"title"`
			Data  []byte `json:"data"`
		} `json:"artifacts"`
		Error *ErrorResponse `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got.Requests, 2)
	assert.Equal(t, chart.Bar, got.Requests[0].Type)
	assert.Equal(t, 10, got.Requests[1].Bins)
	require.Len(t, got.Skipped, 1)
	assert.Equal(t, chart.Scatter, got.Skipped[0].Type)
	require.Len(t, got.Artifacts, 2)
	assert.Equal(t, "Bar Chart of A by B", got.Artifacts[0].Title)
	assert.Equal(t, "Histogram of A", got.Artifacts[1].Title)
	assert.True(t, bytes.HasPrefix(got.Artifacts[1].Data, []byte("\x89PNG")))
	assert.Nil(t, got.Error)
}

func TestAPIChartsErrors(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.upload("/api/charts", "sample.csv", sampleCSV, map[string]string{"options": "{not json"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"REQ003"`)

	req := httptest.NewRequest(http.MethodPost, "/api/charts", strings.NewReader("A\n1\n"))
	req.Header.Set("Content-Type", "text/csv")
	rec = e.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"FILE004"`)
}

func TestWeather(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.get("/api/weather?city=london")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "London", got["city"])
	assert.Equal(t, "Light Rain", got["description"])
	assert.NotEmpty(t, got["advice"])

	rec = e.get("/api/weather?city=atlantis")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"WTH001"`)

	rec = e.get("/weather?city=london")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/weather/icon/10d")

	rec = e.get("/weather/icon/10d")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())

	rec = e.get("/weather/icon/xx")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSpecies(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.get("/species/?species=Iris-setosa")
	require.Equal(t, http.StatusOK, rec.Code)
	var got speciesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Len(t, got.Data, 2)
	assert.Equal(t, "Iris-setosa", got.Data[0]["Species"])
	_, err := os.Stat(got.Image)
	assert.NoError(t, err)

	rec = e.get("/visualize/?species=Iris-setosa")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = e.get("/species/?species=Iris-unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Species not found"}`, rec.Body.String())

	rec = e.get("/visualize/?species=Iris-virginica")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Image not found"}`, rec.Body.String())

	rec = e.get("/species/")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "value_error.missing")
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.RequestsPerMinute = 2
	e := newTestEnv(t, cfg)

	assert.Equal(t, http.StatusOK, e.get("/api/health").Code)
	assert.Equal(t, http.StatusOK, e.get("/api/health").Code)

	rec := e.get("/api/health")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"code":"RATE001"`)

	// pages are not limited
	assert.Equal(t, http.StatusOK, e.get("/").Code)
}

func TestSessionEnd(t *testing.T) {
	e := newTestEnv(t, nil)
	require.Equal(t, http.StatusSeeOther, e.upload("/charts/upload", "sample.csv", sampleCSV, nil).Code)
	require.Equal(t, 1, e.srv.sessions.Store().Len())

	rec := e.do(httptest.NewRequest(http.MethodPost, "/session/end", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 0, e.srv.sessions.Store().Len())
}
