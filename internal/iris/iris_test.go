package iris

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/JonMunkholm/dataviz/internal/dataset"
)

const irisCSV = `Id,SepalLengthCm,SepalWidthCm,PetalLengthCm,PetalWidthCm,Species
1,5.1,3.5,1.4,0.2,Iris-setosa
2,4.9,3.0,1.4,0.2,Iris-setosa
3,4.7,3.2,1.3,0.2,Iris-setosa
51,7.0,3.2,4.7,1.4,Iris-versicolor
52,6.4,3.2,4.5,1.5,Iris-versicolor
101,6.3,3.3,6.0,2.5,Iris-virginica
`

func newService(t *testing.T) *Service {
	t.Helper()
	tbl, err := dataset.Load(strings.NewReader(irisCSV))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s, err := New(tbl, "", t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNewRequiresSpeciesColumn(t *testing.T) {
	tbl, _ := dataset.Load(strings.NewReader("a,b\n1,2\n"))
	if _, err := New(tbl, "", ""); err == nil {
		t.Error("New() without a Species column succeeded")
	}
	if _, err := New(tbl, "b", ""); err != nil {
		t.Errorf("New() with custom column error = %v", err)
	}
}

func TestOpenCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Iris.csv")
	if err := os.WriteFile(path, []byte(irisCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(context.Background(), Config{CSVPath: path, ImageDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	want := []string{"Iris-setosa", "Iris-versicolor", "Iris-virginica"}
	if got := s.Species(); !reflect.DeepEqual(got, want) {
		t.Errorf("Species() = %v, want %v", got, want)
	}

	if _, err := Open(context.Background(), Config{}, nil); err == nil {
		t.Error("Open() with no source succeeded")
	}
	if _, err := Open(context.Background(), Config{CSVPath: path + ".missing"}, nil); err == nil {
		t.Error("Open() with missing file succeeded")
	}
}

func TestFilter(t *testing.T) {
	s := newService(t)

	tests := []struct {
		species string
		rows    int
		wantErr error
	}{
		{"Iris-setosa", 3, nil},
		{"Iris-virginica", 1, nil},
		{"iris-setosa", 0, ErrSpeciesNotFound},
		{"", 0, ErrSpeciesNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.species, func(t *testing.T) {
			got, err := s.Filter(tt.species)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Filter() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got.NumRows() != tt.rows {
				t.Errorf("rows = %d, want %d", got.NumRows(), tt.rows)
			}
		})
	}
}

func TestRecords(t *testing.T) {
	tbl, _ := dataset.Load(strings.NewReader("Id,Len,Species\n1,5.1,a\n2,,b\n"))
	got := Records(tbl)
	want := []map[string]any{
		{"Id": int64(1), "Len": 5.1, "Species": "a"},
		{"Id": int64(2), "Len": nil, "Species": "b"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Records() = %v, want %v", got, want)
	}
}

func TestRenderDistribution(t *testing.T) {
	s := newService(t)

	if _, err := s.ImagePath("Iris-setosa"); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("ImagePath() before render error = %v, want ErrImageNotFound", err)
	}

	path, err := s.RenderDistribution("Iris-setosa")
	if err != nil {
		t.Fatalf("RenderDistribution() error = %v", err)
	}
	if filepath.Base(path) != ImageName("Iris-setosa") {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != imageWidth || b.Dy() != imageHeight {
		t.Errorf("size = %v", b)
	}

	got, err := s.ImagePath("Iris-setosa")
	if err != nil || got != path {
		t.Errorf("ImagePath() = %q, %v; want %q", got, err, path)
	}

	if _, err := s.RenderDistribution("Iris-unknown"); !errors.Is(err, ErrSpeciesNotFound) {
		t.Errorf("unknown species error = %v, want ErrSpeciesNotFound", err)
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"Iris-setosa": "Iris-setosa",
		"../../etc":   "______etc",
		"a b/c":       "a_b_c",
		"v1.2":        "v1_2",
		"":            "_",
	}
	for in, want := range tests {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestImageNameDistinct(t *testing.T) {
	names := map[string]string{}
	for _, species := range []string{"a.b", "a_b", "a b", "a/b", "Iris-setosa"} {
		n := ImageName(species)
		if prev, ok := names[n]; ok {
			t.Errorf("ImageName(%q) = ImageName(%q) = %q", species, prev, n)
		}
		names[n] = species
		if filepath.Base(n) != n || !strings.HasSuffix(n, "_distribution.png") {
			t.Errorf("ImageName(%q) = %q", species, n)
		}
	}
	if ImageName("a.b") != ImageName("a.b") {
		t.Error("ImageName is not stable")
	}
}

func TestRenderDistributionKeepsCollidingSpeciesApart(t *testing.T) {
	tbl, err := dataset.Load(strings.NewReader("Len,Species\n1,a.b\n2,a.b\n5,a_b\n6,a_b\n"))
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(tbl, "", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	p1, err := s.RenderDistribution("a.b")
	if err != nil {
		t.Fatalf("RenderDistribution(a.b) error = %v", err)
	}
	p2, err := s.RenderDistribution("a_b")
	if err != nil {
		t.Fatalf("RenderDistribution(a_b) error = %v", err)
	}
	if p1 == p2 {
		t.Fatalf("both species written to %s", p1)
	}
	for species, want := range map[string]string{"a.b": p1, "a_b": p2} {
		if got, err := s.ImagePath(species); err != nil || got != want {
			t.Errorf("ImagePath(%q) = %q, %v; want %q", species, got, err, want)
		}
	}
}
