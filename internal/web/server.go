// Package web provides the HTTP server: the CSV visualizer, the sentiment
// and weather tools, the iris species endpoints and the JSON API.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/dataviz/internal/chart"
	"github.com/JonMunkholm/dataviz/internal/config"
	"github.com/JonMunkholm/dataviz/internal/iris"
	"github.com/JonMunkholm/dataviz/internal/logging"
	"github.com/JonMunkholm/dataviz/internal/session"
	"github.com/JonMunkholm/dataviz/internal/web/middleware"
	"github.com/JonMunkholm/dataviz/internal/weather"
)

// errRateLimited is answered with 429.
var errRateLimited = errors.New("rate limit exceeded")

// Deps are the collaborators the handlers use. Weather and Iris are
// optional; their routes report the tool as unavailable when nil.
type Deps struct {
	Pipeline *chart.Pipeline
	Sessions *session.Manager
	Weather  *weather.Client
	Iris     *iris.Service
	Logger   *slog.Logger
}

// Server is the HTTP server.
type Server struct {
	cfg      *config.Config
	pipeline *chart.Pipeline
	sessions *session.Manager
	weather  *weather.Client
	iris     *iris.Service

	router  *chi.Mux
	server  *http.Server
	limiter *rateLimiter
}

// NewServer wires the router.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: deps.Pipeline,
		sessions: deps.Sessions,
		weather:  deps.Weather,
		iris:     deps.Iris,
		router:   chi.NewRouter(),
	}
	if cfg.RateLimit.Enabled {
		s.limiter = newRateLimiter(cfg.RateLimit.RequestsPerMinute, time.Minute)
	}
	s.setupMiddleware(deps.Logger)
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware(base *slog.Logger) {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	if base != nil {
		s.router.Use(middleware.WithLogger(base))
	}
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(s.securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleHome)
	s.router.Post("/session/end", s.handleSessionEnd)

	s.router.Route("/charts", func(r chi.Router) {
		r.Get("/", s.handleCharts)
		r.Post("/upload", s.handleChartsUpload)
		r.Post("/options", s.handleChartsOptions)
		r.Get("/stream", s.handleChartsStream)
		r.Post("/clear", s.handleChartsClear)
	})

	s.router.Get("/sentiment", s.handleSentiment)
	s.router.Post("/sentiment", s.handleSentimentSubmit)
	s.router.Get("/sentiment/wordcloud", s.handleWordCloud)

	s.router.Get("/weather", s.handleWeather)
	s.router.Get("/weather/icon/{code}", s.handleWeatherIcon)

	s.router.Get("/species/", s.handleSpecies)
	s.router.Get("/visualize/", s.handleVisualize)

	s.router.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.middleware(s))
		}
		r.Get("/health", s.handleHealth)
		r.Post("/classify", s.handleAPIClassify)
		r.Post("/charts", s.handleAPICharts)
		r.Post("/sentiment", s.handleAPISentiment)
		r.Get("/sentiment/history", s.handleAPISentimentHistory)
		r.Get("/weather", s.handleAPIWeather)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout, // zero keeps SSE streams open
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for active ones, then stops
// the rate limiter's cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// render writes c as an HTML page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "path", r.URL.Path, "error", err)
	}
}

const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline' 'unsafe-eval' https://cdn.jsdelivr.net; " +
	"style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data:; " +
	"connect-src 'self'; font-src 'self'"

// securityHeaders adds hardening headers to all responses. The datastar
// bundle evaluates expressions, hence 'unsafe-eval'.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			h.Set("Content-Security-Policy", contentSecurityPolicy)
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a fixed-window token counter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	now      func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// cleanup drops visitors idle for two windows until stop is called.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if rl.now().Sub(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// allow consumes a token for ip.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(s *Server) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if addr, ok := middleware.RemoteIP(r.RemoteAddr); ok {
				ip = addr.String()
			}
			if !rl.allow(ip) {
				w.Header().Set("Retry-After", "60")
				s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
