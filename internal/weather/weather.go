// Package weather looks up current conditions from OpenWeatherMap.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Default endpoints.
const (
	DefaultBaseURL = "http://api.openweathermap.org/data/2.5/weather"
	DefaultIconURL = "http://openweathermap.org/img/wn"
	DefaultTimeout = 10 * time.Second

	// TimeLayout formats sunrise and sunset.
	TimeLayout = "15:04:05"
)

var (
	// ErrCityNotFound is returned when the service answers 404.
	ErrCityNotFound = errors.New("city not found")
	// ErrUnavailable wraps every other failure to get a report.
	ErrUnavailable = errors.New("weather service unavailable")
)

// Client calls the current weather endpoint. The zero value is usable once
// APIKey is set.
type Client struct {
	BaseURL string
	IconURL string
	APIKey  string
	HTTP    *http.Client
	// Location is used for sunrise and sunset; nil means time.Local.
	Location *time.Location
}

// NewClient returns a client with the default endpoints and timeout.
func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		IconURL: DefaultIconURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
}

// Report is the current weather for one city.
type Report struct {
	City        string    `json:"city"`
	Country     string    `json:"country"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Temp        float64   `json:"temp"`
	FeelsLike   float64   `json:"feels_like"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"wind_speed"`
	Sunrise     time.Time `json:"sunrise"`
	Sunset      time.Time `json:"sunset"`
}

// SunriseClock and SunsetClock format the times as HH:MM:SS.
func (r *Report) SunriseClock() string { return r.Sunrise.Format(TimeLayout) }
func (r *Report) SunsetClock() string  { return r.Sunset.Format(TimeLayout) }

// Advice returns the tip for the report's description.
func (r *Report) Advice() string { return Advice(r.Description) }

// apiResponse is the subset of the current weather payload we read.
type apiResponse struct {
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
}

// Current fetches the weather for city in metric units. It does not retry.
func (c *Client) Current(ctx context.Context, city string) (*Report, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, fmt.Errorf("%w: empty city name", ErrCityNotFound)
	}

	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.APIKey)
	q.Set("units", "metric")

	body, status, err := c.get(ctx, base+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrCityNotFound, city)
	case status != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, status)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	r := &Report{
		City:      TitleCase(city),
		Country:   resp.Sys.Country,
		Temp:      resp.Main.Temp,
		FeelsLike: resp.Main.FeelsLike,
		Humidity:  resp.Main.Humidity,
		WindSpeed: resp.Wind.Speed,
		Sunrise:   time.Unix(resp.Sys.Sunrise, 0).In(loc),
		Sunset:    time.Unix(resp.Sys.Sunset, 0).In(loc),
	}
	if len(resp.Weather) > 0 {
		r.Description = TitleCase(resp.Weather[0].Description)
		r.Icon = resp.Weather[0].Icon
	}
	return r, nil
}

// Icon fetches the PNG for an icon code such as "10d".
func (c *Client) Icon(ctx context.Context, code string) ([]byte, error) {
	if code == "" || strings.ContainsAny(code, "/?#.") {
		return nil, fmt.Errorf("%w: invalid icon code %q", ErrUnavailable, code)
	}
	base := c.IconURL
	if base == "" {
		base = DefaultIconURL
	}
	body, status, err := c.get(ctx, strings.TrimRight(base, "/")+"/"+code+".png")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: icon status %d", ErrUnavailable, status)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// Advice returns a short tip for a weather description, checking rain,
// clear, cloud and snow in that order, or "" when none applies.
func Advice(description string) string {
	d := strings.ToLower(description)
	switch {
	case strings.Contains(d, "rain"):
		return "🌧️ Don't forget an umbrella! Expect rain today."
	case strings.Contains(d, "clear"):
		return "☀️ It's a clear day! Perfect for outdoor activities."
	case strings.Contains(d, "cloud"):
		return "☁️ It's cloudy. Might be a bit chilly today."
	case strings.Contains(d, "snow"):
		return "❄️ Snowy weather! Stay warm and safe."
	}
	return ""
}

// TitleCase upper-cases the first letter of every word and lower-cases
// the rest.
func TitleCase(s string) string {
	return cases.Title(language.Und).String(s)
}
