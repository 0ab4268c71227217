package chart

import (
	"reflect"
	"strings"
	"testing"

	"github.com/JonMunkholm/dataviz/internal/dataset"
)

func requestTypes(reqs []ChartRequest) []ChartType {
	out := make([]ChartType, len(reqs))
	for i, r := range reqs {
		out[i] = r.Type
	}
	return out
}

func TestResolve_Preconditions(t *testing.T) {
	tests := []struct {
		name        string
		cls         dataset.Classification
		charts      []ChartType
		wantTypes   []ChartType
		wantSkipped []ChartType
	}{
		{
			name:        "numeric only drops categorical charts",
			cls:         dataset.Classification{Numeric: []string{"A", "C"}},
			charts:      AllChartTypes(),
			wantTypes:   []ChartType{Line, Histogram, Scatter, Box, Area, Heatmap, PairPlot, Density},
			wantSkipped: []ChartType{Bar, Pie, Violin},
		},
		{
			name:        "categorical only",
			cls:         dataset.Classification{Categorical: []string{"B"}},
			charts:      []ChartType{Line, Bar, Pie, Violin},
			wantTypes:   []ChartType{Bar, Pie},
			wantSkipped: []ChartType{Line, Violin},
		},
		{
			name:        "one numeric column cannot scatter",
			cls:         dataset.Classification{Numeric: []string{"A"}},
			charts:      []ChartType{Scatter},
			wantTypes:   []ChartType{},
			wantSkipped: []ChartType{Scatter},
		},
		{
			name:      "empty selection",
			cls:       dataset.Classification{Numeric: []string{"A"}, Categorical: []string{"B"}},
			charts:    nil,
			wantTypes: []ChartType{},
		},
		{
			name:      "selection order does not matter",
			cls:       dataset.Classification{Numeric: []string{"A"}, Categorical: []string{"B"}},
			charts:    []ChartType{Violin, Histogram, Bar},
			wantTypes: []ChartType{Bar, Histogram, Violin},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.cls, Options{Charts: tt.charts})
			if got := requestTypes(res.Requests); !reflect.DeepEqual(got, tt.wantTypes) {
				t.Errorf("request types = %v, want %v", got, tt.wantTypes)
			}
			var skipped []ChartType
			for _, s := range res.Skipped {
				skipped = append(skipped, s.Type)
				if s.Reason == "" {
					t.Errorf("skip of %s has no reason", s.Type)
				}
			}
			if !reflect.DeepEqual(skipped, tt.wantSkipped) {
				t.Errorf("skipped = %v, want %v", skipped, tt.wantSkipped)
			}
		})
	}
}

func TestResolve_SkipReasons(t *testing.T) {
	res := Resolve(dataset.Classification{Numeric: []string{"A"}}, Options{Charts: []ChartType{Scatter, Pie}})
	want := []Skip{
		{Type: Scatter, Reason: "needs at least 2 numeric columns, found 1"},
		{Type: Pie, Reason: "no categorical columns"},
	}
	// Skips follow menu order: Scatter before Pie.
	if !reflect.DeepEqual(res.Skipped, want) {
		t.Errorf("Skipped = %+v, want %+v", res.Skipped, want)
	}
}

func TestResolve_RequestShapes(t *testing.T) {
	cls := dataset.Classification{Numeric: []string{"A", "C"}, Categorical: []string{"B", "D"}}
	res := Resolve(cls, Options{Charts: AllChartTypes(), HistogramBins: 25})

	byType := make(map[ChartType]ChartRequest)
	for _, r := range res.Requests {
		byType[r.Type] = r
	}

	tests := []struct {
		chart ChartType
		want  ChartRequest
	}{
		{Line, ChartRequest{Type: Line, Columns: []string{"A", "C"}}},
		{Histogram, ChartRequest{Type: Histogram, Columns: []string{"A", "C"}, Bins: 25}},
		{Bar, ChartRequest{Type: Bar, Category: "B", Value: "A"}},
		{Pie, ChartRequest{Type: Pie, Category: "B"}},
		{Scatter, ChartRequest{Type: Scatter, X: "A", Y: "C"}},
		{Density, ChartRequest{Type: Density, Column: "A"}},
		{Violin, ChartRequest{Type: Violin, Columns: []string{"A", "C"}, GroupBy: "B"}},
		{Heatmap, ChartRequest{Type: Heatmap, Columns: []string{"A", "C"}}},
	}
	for _, tt := range tests {
		t.Run(tt.chart.Slug(), func(t *testing.T) {
			got, ok := byType[tt.chart]
			if !ok {
				t.Fatalf("no request for %s", tt.chart)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("request = %+v, want %+v", got, tt.want)
			}
		})
	}
	if len(res.Notes) != 0 {
		t.Errorf("Notes = %v, want none", res.Notes)
	}
}

func TestResolve_ColumnChoices(t *testing.T) {
	cls := dataset.Classification{Numeric: []string{"A", "C", "E"}, Categorical: []string{"B", "D"}}

	tests := []struct {
		name      string
		opts      Options
		want      ChartRequest
		wantNotes int
	}{
		{
			name: "valid scatter choices kept",
			opts: Options{Charts: []ChartType{Scatter}, ScatterX: "C", ScatterY: "E", ScatterColor: "D"},
			want: ChartRequest{Type: Scatter, X: "C", Y: "E", Color: "D"},
		},
		{
			name:      "y equal to x falls back",
			opts:      Options{Charts: []ChartType{Scatter}, ScatterX: "C", ScatterY: "C"},
			want:      ChartRequest{Type: Scatter, X: "C", Y: "A"},
			wantNotes: 1,
		},
		{
			name:      "numeric color dropped",
			opts:      Options{Charts: []ChartType{Scatter}, ScatterColor: "A"},
			want:      ChartRequest{Type: Scatter, X: "A", Y: "C"},
			wantNotes: 1,
		},
		{
			name:      "unknown bar category",
			opts:      Options{Charts: []ChartType{Bar}, BarCategory: "nope"},
			want:      ChartRequest{Type: Bar, Category: "B", Value: "A"},
			wantNotes: 1,
		},
		{
			name: "pie category kept",
			opts: Options{Charts: []ChartType{Pie}, PieCategory: "D"},
			want: ChartRequest{Type: Pie, Category: "D"},
		},
		{
			name:      "density column must be numeric",
			opts:      Options{Charts: []ChartType{Density}, DensityColumn: "B"},
			want:      ChartRequest{Type: Density, Column: "A"},
			wantNotes: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(cls, tt.opts)
			if len(res.Requests) != 1 {
				t.Fatalf("got %d requests, want 1", len(res.Requests))
			}
			if !reflect.DeepEqual(res.Requests[0], tt.want) {
				t.Errorf("request = %+v, want %+v", res.Requests[0], tt.want)
			}
			if len(res.Notes) != tt.wantNotes {
				t.Errorf("notes = %v, want %d", res.Notes, tt.wantNotes)
			}
		})
	}
}

func TestResolve_FromLoadedTable(t *testing.T) {
	tbl, err := dataset.Load(strings.NewReader("A,B\n1,x\n2,x\n3,y\n4,y\n"))
	if err != nil {
		t.Fatal(err)
	}
	res := Resolve(dataset.Classify(tbl), Options{Charts: []ChartType{Histogram, Bar}, HistogramBins: 10})
	want := []ChartRequest{
		{Type: Bar, Category: "B", Value: "A"},
		{Type: Histogram, Columns: []string{"A"}, Bins: 10},
	}
	if !reflect.DeepEqual(res.Requests, want) {
		t.Errorf("Requests = %+v, want %+v", res.Requests, want)
	}
}

func TestResolve_DoesNotAliasClassification(t *testing.T) {
	cls := dataset.Classification{Numeric: []string{"A", "C"}}
	res := Resolve(cls, Options{Charts: []ChartType{Line}})
	res.Requests[0].Columns[0] = "changed"
	if cls.Numeric[0] != "A" {
		t.Error("request columns share storage with the classification")
	}
}
