// Package config loads the server settings from environment variables,
// applying defaults and validating everything up front so a bad value
// stops the process at start-up.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all server settings.
type Config struct {
	Server    ServerConfig
	Upload    UploadConfig
	Render    RenderConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Session   SessionConfig
	Weather   WeatherConfig
	Iris      IrisConfig
	Database  DatabaseConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// Env is "development" or "production". Development relaxes the
	// session secret check and cookie security.
	Env string `env:"APP_ENV" default:"development"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout stays 0 so chart streams are not cut off.
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"120s"`
}

// UploadConfig bounds CSV uploads.
type UploadConfig struct {
	// MaxFileSize in bytes (default 50MB).
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// MaxRows caps the rows read from an upload; 0 reads everything.
	MaxRows int `env:"UPLOAD_MAX_ROWS" default:"0"`
}

// RenderConfig bounds chart rendering.
type RenderConfig struct {
	// MaxConcurrent render cycles across all sessions.
	MaxConcurrent int           `env:"RENDER_MAX_CONCURRENT" default:"4"`
	MaxWaitTime   time.Duration `env:"RENDER_MAX_WAIT_TIME" default:"30s"`
	DefaultBins   int           `env:"RENDER_DEFAULT_BINS" default:"30"`
}

// RateLimitConfig holds the per-IP limit for /api routes.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// forwarding headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
	EnableCSP      bool     `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// SessionConfig configures the in-memory session store and its cookie.
type SessionConfig struct {
	// Secret signs the session cookie. At least 32 bytes outside development.
	Secret        string        `env:"SESSION_SECRET"`
	CookieName    string        `env:"SESSION_COOKIE_NAME" default:"dataviz_session"`
	TTL           time.Duration `env:"SESSION_TTL" default:"2h"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"5m"`
}

// WeatherConfig configures the OpenWeatherMap client. An empty APIKey
// disables the weather pages.
type WeatherConfig struct {
	APIKey  string        `env:"OPENWEATHER_API_KEY" envAlt:"API_KEY"`
	BaseURL string        `env:"WEATHER_BASE_URL" default:"http://api.openweathermap.org/data/2.5/weather"`
	IconURL string        `env:"WEATHER_ICON_URL" default:"http://openweathermap.org/img/wn"`
	Timeout time.Duration `env:"WEATHER_TIMEOUT" default:"10s"`
}

// IrisConfig says where the flower dataset lives. Table takes precedence
// over CSVPath when a database is configured.
type IrisConfig struct {
	Enabled       bool   `env:"IRIS_ENABLED" default:"true"`
	CSVPath       string `env:"IRIS_CSV_PATH" default:"Iris.csv"`
	Table         string `env:"IRIS_TABLE"`
	SpeciesColumn string `env:"IRIS_SPECIES_COLUMN" default:"Species"`
	ImageDir      string `env:"IRIS_IMAGE_DIR" default:"images"`
}

// DatabaseConfig holds the optional PostgreSQL connection.
type DatabaseConfig struct {
	URL             string        `env:"IRIS_DATABASE_URL" envAlt:"DATABASE_URL"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsDevelopment reports whether the server runs in development mode.
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "dev"
}

// Enabled reports whether a database URL is configured.
func (c *DatabaseConfig) Enabled() bool { return c.URL != "" }
