package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// MinSecretLength is the shortest session secret accepted outside
// development.
const MinSecretLength = 32

// Load reads the configuration from the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with a custom variable lookup.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	if err := loadStruct(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// loadStruct fills the tagged fields of v, recursing into nested structs.
func loadStruct(v reflect.Value, getenv func(string) string) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv, getenv); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		value := getenv(name)
		if alt := field.Tag.Get("envAlt"); value == "" && alt != "" {
			value = getenv(alt)
		}
		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", name)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}
		if err := setField(fv, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		var out []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		field.Set(reflect.ValueOf(out))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		add("SERVER_READ_TIMEOUT and SERVER_WRITE_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		add("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		add("SERVER_REQUEST_TIMEOUT must be positive")
	}

	if c.Upload.MaxFileSize <= 0 {
		add("UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxRows < 0 {
		add("UPLOAD_MAX_ROWS must be non-negative")
	}

	if c.Render.MaxConcurrent <= 0 {
		add("RENDER_MAX_CONCURRENT must be positive")
	}
	if c.Render.MaxWaitTime <= 0 {
		add("RENDER_MAX_WAIT_TIME must be positive")
	}
	if c.Render.DefaultBins < 10 || c.Render.DefaultBins > 100 {
		add("RENDER_DEFAULT_BINS (%d) must be 10-100", c.Render.DefaultBins)
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		add("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}

	if !c.Server.IsDevelopment() && len(c.Session.Secret) < MinSecretLength {
		add("SESSION_SECRET must be at least %d bytes outside development", MinSecretLength)
	}
	if c.Session.TTL <= 0 {
		add("SESSION_TTL must be positive")
	}
	if c.Session.SweepInterval < 0 {
		add("SESSION_SWEEP_INTERVAL must be non-negative")
	}

	if c.Weather.Timeout <= 0 {
		add("WEATHER_TIMEOUT must be positive")
	}

	if c.Iris.Enabled && c.Iris.CSVPath == "" && c.Iris.Table == "" {
		add("IRIS_CSV_PATH or IRIS_TABLE is required when IRIS_ENABLED is true")
	}
	if c.Iris.Table != "" && !c.Database.Enabled() {
		add("IRIS_TABLE needs IRIS_DATABASE_URL or DATABASE_URL")
	}

	if c.Database.Enabled() {
		if c.Database.MaxConns <= 0 {
			add("DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			add("DB_MIN_CONNS must be non-negative")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			add("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		add("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String summarises the config for logging with secrets masked.
func (c *Config) String() string {
	mask := func(s string) string {
		if s == "" {
			return "[unset]"
		}
		return "[MASKED]"
	}
	return fmt.Sprintf(
		"Config{Server: {Addr: %q, Env: %q}, Upload: {MaxFileSize: %d}, Render: {MaxConcurrent: %d, DefaultBins: %d}, "+
			"RateLimit: {Enabled: %v, RequestsPerMinute: %d}, Session: {Secret: %s, TTL: %s}, "+
			"Weather: {APIKey: %s}, Iris: {CSVPath: %q, Table: %q}, Database: {URL: %s}, Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(), c.Server.Env, c.Upload.MaxFileSize, c.Render.MaxConcurrent, c.Render.DefaultBins,
		c.RateLimit.Enabled, c.RateLimit.RequestsPerMinute, mask(c.Session.Secret), c.Session.TTL,
		mask(c.Weather.APIKey), c.Iris.CSVPath, c.Iris.Table, mask(c.Database.URL), c.Logging.Level, c.Logging.Format,
	)
}
