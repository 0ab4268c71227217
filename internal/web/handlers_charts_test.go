package web

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataviz/internal/chart"
)

func TestPanelSignalsBins(t *testing.T) {
	tests := []struct {
		name    string
		bins    string
		want    int
		wantErr bool
	}{
		{"unset", "", 0, false},
		{"integer", "25", 25, false},
		{"fraction", "25.7", 25, false},
		{"below range", "2", chart.MinBins, false},
		{"huge", "1e20", chart.MaxBins, false},
		{"negative huge", "-1e20", chart.MinBins, false},
		{"out of float range", "1e400", 0, true},
		{"nan", "NaN", 0, true},
		{"infinity", "+Inf", 0, true},
		{"word", "many", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := panelSignals{HistogramBins: json.Number(tt.bins)}.options()
			if tt.wantErr {
				assert.True(t, errors.Is(err, errBadRequest), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, opts.HistogramBins)
		})
	}
}

func TestArtifactViewKeepsDispatchID(t *testing.T) {
	a := chart.Artifact{ID: "chart-1234", Title: "Histogram of A", ContentType: "image/png", Data: []byte("png")}

	v := artifactView(a)
	assert.Equal(t, "chart-1234", v.ID)
	assert.False(t, strings.HasPrefix(v.ID, "chart-chart-"))
	assert.Equal(t, "Histogram of A", v.Title)
	assert.Equal(t, "data:image/png;base64,cG5n", string(v.Src))
}
