// Package iris serves the flower dataset filtered by species, with a
// distribution image per species.
package iris

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"

	"github.com/JonMunkholm/dataviz/internal/dataset"
	"github.com/JonMunkholm/dataviz/internal/render"
	"github.com/JonMunkholm/dataviz/internal/source"
)

const (
	// DefaultSpeciesColumn matches the header of the Kaggle Iris.csv.
	DefaultSpeciesColumn = "Species"

	// Bins per histogram.
	Bins = 20

	imageWidth  = 1000
	imageHeight = 800
)

var barColor = color.NRGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xdc}

var (
	ErrSpeciesNotFound = errors.New("species not found")
	ErrImageNotFound   = errors.New("image not found")
)

// Config says where the dataset comes from and where images go. When Table
// is set and a querier is passed to Open, the rows are read from Postgres;
// otherwise CSVPath is loaded.
type Config struct {
	CSVPath       string
	Table         string
	SpeciesColumn string
	ImageDir      string
}

// Service answers species queries against a dataset loaded once.
type Service struct {
	table    *dataset.Table
	species  *dataset.Column
	imageDir string

	// serialises image writes
	mu sync.Mutex
}

// Open loads the dataset described by cfg. q may be nil.
func Open(ctx context.Context, cfg Config, q source.Querier) (*Service, error) {
	var (
		t   *dataset.Table
		err error
	)
	switch {
	case q != nil && cfg.Table != "":
		t, err = source.QueryTable(ctx, q, cfg.Table)
		if err != nil {
			return nil, fmt.Errorf("load iris table %s: %w", cfg.Table, err)
		}
		slog.Info("iris dataset loaded", "source", "postgres", "table", cfg.Table, "rows", t.NumRows())
	case cfg.CSVPath != "":
		t, err = LoadCSV(cfg.CSVPath)
		if err != nil {
			return nil, err
		}
		slog.Info("iris dataset loaded", "source", "csv", "path", cfg.CSVPath, "rows", t.NumRows())
	default:
		return nil, errors.New("iris: no csv path or table configured")
	}
	return New(t, cfg.SpeciesColumn, cfg.ImageDir)
}

// LoadCSV reads the dataset from a file.
func LoadCSV(path string) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open iris csv: %w", err)
	}
	defer f.Close()

	t, err := dataset.Load(f)
	if err != nil {
		return nil, fmt.Errorf("load iris csv %s: %w", path, err)
	}
	return t, nil
}

// New wraps an already loaded table. An empty speciesColumn selects
// DefaultSpeciesColumn and an empty imageDir the working directory.
func New(t *dataset.Table, speciesColumn, imageDir string) (*Service, error) {
	if speciesColumn == "" {
		speciesColumn = DefaultSpeciesColumn
	}
	col, ok := t.Column(speciesColumn)
	if !ok {
		return nil, fmt.Errorf("iris: dataset has no %q column", speciesColumn)
	}
	if imageDir == "" {
		imageDir = "."
	}
	return &Service{table: t, species: col, imageDir: imageDir}, nil
}

// Species lists the distinct species in first-seen order.
func (s *Service) Species() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range s.species.Cells {
		if c.IsNull() || seen[c.String()] {
			continue
		}
		seen[c.String()] = true
		out = append(out, c.String())
	}
	return out
}

// Filter returns the rows whose species matches exactly.
func (s *Service) Filter(species string) (*dataset.Table, error) {
	out := s.table.Filter(func(row int) bool {
		c := s.species.Cells[row]
		return !c.IsNull() && c.String() == species
	})
	if out.NumRows() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrSpeciesNotFound, species)
	}
	return out, nil
}

// Records converts t into one map per row. Integral numbers become int64,
// other numbers float64 and nulls nil.
func Records(t *dataset.Table) []map[string]any {
	n := t.NumRows()
	out := make([]map[string]any, n)
	for r := 0; r < n; r++ {
		rec := make(map[string]any, len(t.Columns))
		for _, col := range t.Columns {
			rec[col.Name] = value(col.Cells[r])
		}
		out[r] = rec
	}
	return out
}

func value(c dataset.Cell) any {
	switch c.Kind {
	case dataset.Number:
		if c.Num == math.Trunc(c.Num) && math.Abs(c.Num) < 1<<53 {
			return int64(c.Num)
		}
		return c.Num
	case dataset.Text:
		return c.Text
	}
	return nil
}

// ImageName is the file name of the distribution image for species. The
// hash suffix keeps names distinct when sanitize maps two species to the
// same string.
func ImageName(species string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(species))
	return fmt.Sprintf("%s_%08x_distribution.png", sanitize(species), h.Sum32())
}

// ImagePath returns the path of a previously rendered image.
func (s *Service) ImagePath(species string) (string, error) {
	p := filepath.Join(s.imageDir, ImageName(species))
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrImageNotFound, p)
	}
	return p, nil
}

// RenderDistribution draws one histogram per numeric column of the species'
// rows and writes the grid to ImageDir. It returns the written path.
func (s *Service) RenderDistribution(species string) (string, error) {
	t, err := s.Filter(species)
	if err != nil {
		return "", err
	}
	data, err := DistributionPNG(t)
	if err != nil {
		return "", fmt.Errorf("render %s distribution: %w", species, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.imageDir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	p := filepath.Join(s.imageDir, ImageName(species))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return p, nil
}

// DistributionPNG lays the histograms out on a near-square grid.
func DistributionPNG(t *dataset.Table) ([]byte, error) {
	cols := dataset.Classify(t).Numeric
	if len(cols) == 0 {
		return nil, errors.New("no numeric columns")
	}
	gridCols := int(math.Ceil(math.Sqrt(float64(len(cols)))))
	gridRows := (len(cols) + gridCols - 1) / gridCols

	grid := make([][]*plot.Plot, gridRows)
	for r := range grid {
		grid[r] = make([]*plot.Plot, gridCols)
	}
	for i, name := range cols {
		col, _ := t.Column(name)
		p, err := histogram(name, col.Floats())
		if err != nil {
			return nil, fmt.Errorf("histogram of %s: %w", name, err)
		}
		grid[i/gridCols][i%gridCols] = p
	}
	return render.GridPNG("", grid, imageWidth, imageHeight)
}

func histogram(name string, vals []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = name
	p.Y.Label.Text = "Count"
	if len(vals) == 0 {
		return p, nil
	}
	h, err := plotter.NewHist(plotter.Values(vals), Bins)
	if err != nil {
		return nil, err
	}
	h.FillColor = barColor
	h.LineStyle.Color = color.White
	p.Add(h)
	return p, nil
}

// sanitize keeps a species name safe to use as a file name.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
