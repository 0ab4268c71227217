package cli

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/JonMunkholm/dataviz/internal/chart"
)

// EnvPrefix marks environment variables read as settings, e.g. VIZ_BINS.
const EnvPrefix = "VIZ_"

// Settings are the merged CLI options.
type Settings struct {
	Charts        []string `koanf:"charts"`
	Bins          int      `koanf:"bins"`
	ScatterX      string   `koanf:"scatter_x"`
	ScatterY      string   `koanf:"scatter_y"`
	ScatterColor  string   `koanf:"scatter_color"`
	BarCategory   string   `koanf:"bar_category"`
	PieCategory   string   `koanf:"pie_category"`
	DensityColumn string   `koanf:"density_column"`
	DropMissing   bool     `koanf:"drop_missing"`
	Standardize   bool     `koanf:"standardize"`

	MaxRows  int    `koanf:"max_rows"`
	Out      string `koanf:"out"`
	LogLevel string `koanf:"log_level"`
	Format   string `koanf:"format"`
}

func defaults() map[string]any {
	var charts []string
	for _, t := range chart.DefaultSelection() {
		charts = append(charts, t.Slug())
	}
	return map[string]any{
		"charts":    charts,
		"bins":      chart.DefaultBins,
		"out":       ".",
		"log_level": "warn",
		"format":    "table",
	}
}

// LoadSettings merges, lowest to highest precedence: built-in defaults, the
// YAML file at path (if any), VIZ_* environment variables and the flags of
// fs that were explicitly set.
func LoadSettings(path string, fs *pflag.FlagSet) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading options file %s: %w", path, err)
		}
	}

	// VIZ_SCATTER_X -> scatter_x
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			switch f.Name {
			case "options":
				return "", nil
			case "color":
				return "scatter_color", posflag.FlagVal(fs, f)
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(fs, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("unable to decode options: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) validate() error {
	switch s.Format {
	case "table", "json":
	default:
		return fmt.Errorf("format %q must be table or json", s.Format)
	}
	if s.MaxRows < 0 {
		return fmt.Errorf("max_rows must be non-negative")
	}
	return nil
}

// Options converts the settings to render options. Bins is normalized by
// the pipeline, so out-of-range values are clamped rather than rejected.
func (s *Settings) Options() (chart.Options, error) {
	// VIZ_CHARTS=line,bar may arrive as a single entry
	var names []string
	for _, c := range s.Charts {
		names = append(names, strings.Split(c, ",")...)
	}
	types, err := chart.ParseChartTypes(names)
	if err != nil {
		return chart.Options{}, err
	}
	return chart.Options{
		DropMissing:   s.DropMissing,
		Standardize:   s.Standardize,
		Charts:        types,
		HistogramBins: s.Bins,
		ScatterX:      s.ScatterX,
		ScatterY:      s.ScatterY,
		ScatterColor:  s.ScatterColor,
		BarCategory:   s.BarCategory,
		PieCategory:   s.PieCategory,
		DensityColumn: s.DensityColumn,
	}, nil
}
