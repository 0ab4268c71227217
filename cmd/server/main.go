package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/dataviz/internal/chart"
	"github.com/JonMunkholm/dataviz/internal/config"
	"github.com/JonMunkholm/dataviz/internal/dataset"
	"github.com/JonMunkholm/dataviz/internal/iris"
	"github.com/JonMunkholm/dataviz/internal/logging"
	"github.com/JonMunkholm/dataviz/internal/render"
	"github.com/JonMunkholm/dataviz/internal/session"
	"github.com/JonMunkholm/dataviz/internal/source"
	"github.com/JonMunkholm/dataviz/internal/weather"
	"github.com/JonMunkholm/dataviz/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.Database.Enabled() {
		pool, err = source.Connect(ctx, cfg.Database.URL, source.PoolOptions{
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		slog.Info("connected to database", "name", source.DatabaseName(cfg.Database.URL))
	}

	irisSvc := openIris(ctx, cfg, pool)

	var weatherClient *weather.Client
	if cfg.Weather.APIKey != "" {
		weatherClient = weather.NewClient(cfg.Weather.APIKey)
		if cfg.Weather.BaseURL != "" {
			weatherClient.BaseURL = cfg.Weather.BaseURL
		}
		if cfg.Weather.IconURL != "" {
			weatherClient.IconURL = cfg.Weather.IconURL
		}
		weatherClient.HTTP = &http.Client{Timeout: cfg.Weather.Timeout}
	} else {
		slog.Warn("weather disabled: OPENWEATHER_API_KEY not set")
	}

	registry := render.Default()
	limiter := chart.NewLimiter(cfg.Render.MaxConcurrent, cfg.Render.MaxWaitTime)
	pipeline := chart.NewPipeline(registry, limiter, dataset.LoadOptions{
		MaxRows:  cfg.Upload.MaxRows,
		MaxBytes: cfg.Upload.MaxFileSize,
	})
	slog.Info("renderers registered", "count", registry.Len())

	store := session.NewStore(cfg.Session.TTL, cfg.Session.SweepInterval)
	defer store.Close()
	secret := []byte(cfg.Session.Secret)
	if len(secret) == 0 {
		// development only; sessions do not survive a restart
		secret = make([]byte, config.MinSecretLength)
		if _, err := rand.Read(secret); err != nil {
			slog.Error("failed to generate session secret", "error", err)
			os.Exit(1)
		}
		slog.Warn("SESSION_SECRET not set, using a random key")
	}
	sessions := session.NewManager(store, secret, session.CookieOptions{
		Name:   cfg.Session.CookieName,
		MaxAge: int(cfg.Session.TTL / time.Second),
		Secure: !cfg.Server.IsDevelopment(),
	})

	server := web.NewServer(cfg, web.Deps{
		Pipeline: pipeline,
		Sessions: sessions,
		Weather:  weatherClient,
		Iris:     irisSvc,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for renders to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("renders did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openIris loads the species dataset. A failure only disables the species
// endpoints.
func openIris(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) *iris.Service {
	if !cfg.Iris.Enabled {
		return nil
	}
	var q source.Querier
	if pool != nil {
		q = pool
	}
	svc, err := iris.Open(ctx, iris.Config{
		CSVPath:       cfg.Iris.CSVPath,
		Table:         cfg.Iris.Table,
		SpeciesColumn: cfg.Iris.SpeciesColumn,
		ImageDir:      cfg.Iris.ImageDir,
	}, q)
	if err != nil {
		slog.Warn("iris endpoints disabled", "error", err)
		return nil
	}
	slog.Info("iris species", "species", svc.Species())
	return svc
}
