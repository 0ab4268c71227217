package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/dataviz/internal/chart"
	"github.com/JonMunkholm/dataviz/internal/dataset"
	"github.com/JonMunkholm/dataviz/internal/iris"
	"github.com/JonMunkholm/dataviz/internal/sentiment"
	"github.com/JonMunkholm/dataviz/internal/weather"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"max bytes", fmt.Errorf("parse form: %w", &http.MaxBytesError{Limit: 10}), "FILE001", http.StatusRequestEntityTooLarge},
		{"parse error", &dataset.ParseError{Line: 3, Err: errors.New("wrong number of fields")}, "FILE002", http.StatusBadRequest},
		{"invalid utf8", fmt.Errorf("load: %w", dataset.ErrInvalidUTF8), "FILE003", http.StatusBadRequest},
		{"missing file", http.ErrMissingFile, "FILE004", http.StatusBadRequest},
		{"no rows", &dataset.ParseError{Line: 2, Err: dataset.ErrNoRows}, "FILE005", http.StatusBadRequest},
		{"render failure", &chart.RenderFailure{Chart: chart.Box, Title: "Box Plot of A", Err: errors.New("no values")}, "RND001", http.StatusInternalServerError},
		{"render busy", chart.ErrRenderBusy, "RND002", http.StatusServiceUnavailable},
		{"city", fmt.Errorf("%w: paris", weather.ErrCityNotFound), "WTH001", http.StatusNotFound},
		{"weather down", weather.ErrUnavailable, "WTH002", http.StatusServiceUnavailable},
		{"empty text", sentiment.ErrEmptyText, "SNT001", http.StatusBadRequest},
		{"species", iris.ErrSpeciesNotFound, "IRS001", http.StatusNotFound},
		{"image", iris.ErrImageNotFound, "IRS002", http.StatusNotFound},
		{"timeout", context.DeadlineExceeded, "REQ002", http.StatusGatewayTimeout},
		{"bad request", fmt.Errorf("%w: bins", errBadRequest), "REQ003", http.StatusBadRequest},
		{"rate pattern", errRateLimited, "RATE001", http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), "ERR000", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, MapError(tt.err).Code)
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}

func TestMapErrorMessages(t *testing.T) {
	msg := MapError(&dataset.ParseError{Line: 7, Err: errors.New("bare quote")})
	assert.Contains(t, msg.Message, "line 7")

	msg = MapError(&chart.RenderFailure{Chart: chart.Pie, Title: "Pie Chart of B", Err: errors.New("x")})
	assert.Contains(t, msg.Message, `"Pie Chart of B"`)
	assert.NotEmpty(t, msg.Action)
}
