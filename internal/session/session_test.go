package session

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/dataviz/internal/chart"
	"github.com/JonMunkholm/dataviz/internal/logging"
	"github.com/JonMunkholm/dataviz/internal/sentiment"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(ttl, 0)
	s.now = clock.Now
	t.Cleanup(s.Close)
	return s, clock
}

func TestStoreCreateGet(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	sess := s.Create()
	if sess.ID == "" {
		t.Fatal("empty session id")
	}
	got, ok := s.Get(sess.ID)
	if !ok || got != sess {
		t.Fatalf("Get() = %v, %v", got, ok)
	}
	if len(sess.Options.Charts) == 0 || sess.Options.HistogramBins != chart.DefaultBins {
		t.Errorf("new session options = %+v, want defaults", sess.Options)
	}
	if sess.History == nil {
		t.Error("new session has no history")
	}

	if _, ok := s.Get("nope"); ok {
		t.Error("Get(unknown) found a session")
	}

	s.Delete(sess.ID)
	if _, ok := s.Get(sess.ID); ok {
		t.Error("session still present after Delete")
	}
}

func TestStoreExpiry(t *testing.T) {
	s, clock := newTestStore(t, time.Minute)

	a := s.Create()
	b := s.Create()

	clock.Advance(45 * time.Second)
	if !s.Touch(a.ID) {
		t.Fatal("Touch() on live session = false")
	}
	clock.Advance(30 * time.Second)

	if _, ok := s.Get(a.ID); !ok {
		t.Error("touched session expired")
	}
	if n := s.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, ok := s.Get(b.ID); ok {
		t.Error("idle session survived")
	}
	if s.Touch(b.ID) {
		t.Error("Touch() on expired session = true")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStoreSweeperStopsOnClose(t *testing.T) {
	s := NewStore(time.Nanosecond, time.Millisecond)
	s.Create()

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Len() != 0 {
		t.Error("sweeper did not remove the expired session")
	}
	s.Close()
	s.Close()
}

func TestSessionUpdateSnapshot(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	sess := s.Create()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Update(func(s *Session) {
				s.Options.HistogramBins++
			})
		}()
	}
	wg.Wait()

	sess.Update(func(s *Session) {
		s.Upload = &Upload{Name: "a.csv", Data: []byte("a\n1\n")}
	})
	up, opts := sess.Snapshot()
	if up == nil || up.Name != "a.csv" {
		t.Errorf("upload = %+v", up)
	}
	if opts.HistogramBins != chart.DefaultBins+10 {
		t.Errorf("bins = %d, want %d", opts.HistogramBins, chart.DefaultBins+10)
	}

	sess.Update(func(s *Session) { s.Options.Charts = []chart.ChartType{chart.Line} })
	_, opts = sess.Snapshot()
	opts.Charts[0] = chart.PairPlot
	_, again := sess.Snapshot()
	if again.Charts[0] != chart.Line {
		t.Error("Snapshot() shares the chart selection")
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	s, _ := newTestStore(t, time.Hour)
	return NewManager(s, []byte("test-secret-key-32-bytes-long!!!"), CookieOptions{MaxAge: 3600})
}

func TestManagerLoad(t *testing.T) {
	m := newTestManager(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	first, err := m.Load(w, r)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != DefaultCookieName || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}
	first.History.Append(sentiment.NewRecord("good", sentiment.Score{Polarity: 0.7}))

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	second, err := m.Load(w, r)
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if second != first {
		t.Errorf("second Load() returned a different session")
	}
	if second.History.Len() != 1 {
		t.Errorf("history len = %d, want 1", second.History.Len())
	}
}

func TestManagerLoadBadCookie(t *testing.T) {
	m := newTestManager(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "tampered"})
	sess, err := m.Load(w, r)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sess == nil || m.Store().Len() != 1 {
		t.Error("no fresh session for a tampered cookie")
	}
}

func TestManagerLoadLogsToRequestLogger(t *testing.T) {
	m := newTestManager(t)

	var buf bytes.Buffer
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := logging.WithLogger(r.Context(), logging.New(&buf, "debug", "text"))
	r = r.WithContext(context.WithValue(ctx, middleware.RequestIDKey, "req-7"))
	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "tampered"})
	if _, err := m.Load(httptest.NewRecorder(), r); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "session cookie rejected") || !strings.Contains(out, "request_id=req-7") {
		t.Errorf("request log = %q, want the rejection tagged with the request id", out)
	}
}

func TestManagerEnd(t *testing.T) {
	m := newTestManager(t)

	w := httptest.NewRecorder()
	sess, err := m.Load(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatal(err)
	}
	cookie := w.Result().Cookies()[0]

	w = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.AddCookie(cookie)
	if err := m.End(w, r); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if _, ok := m.Store().Get(sess.ID); ok {
		t.Error("session survived End()")
	}
	expired := w.Result().Cookies()
	if len(expired) != 1 || expired[0].MaxAge >= 0 {
		t.Errorf("cookie not expired: %+v", expired)
	}
}
