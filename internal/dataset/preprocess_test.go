package dataset

import (
	"math"
	"reflect"
	"testing"

	"github.com/JonMunkholm/dataviz/internal/stats"
)

func TestDropMissing(t *testing.T) {
	tbl := mustLoad(t, "A\n1\n2\nNULL\n4\n")

	out := DropMissing(tbl)
	if got := out.NumRows(); got != 3 {
		t.Fatalf("rows = %d, want 3", got)
	}
	a, _ := out.Column("A")
	for i, c := range a.Cells {
		if c.IsNull() {
			t.Errorf("row %d is still null", i)
		}
	}
	if tbl.NumRows() != 4 {
		t.Errorf("input table modified: rows = %d, want 4", tbl.NumRows())
	}
}

func TestDropMissing_Idempotent(t *testing.T) {
	inputs := []string{
		"A,B\n1,x\n,y\n3,\n4,z\n",
		"A\n1\n2\n",
		"A,B\nNA,NA\n1,2\n",
	}

	for _, csv := range inputs {
		once := DropMissing(mustLoad(t, csv))
		twice := DropMissing(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("%q: DropMissing twice = %+v, once = %+v", csv, twice, once)
		}
	}
}

func TestStandardize(t *testing.T) {
	tbl := mustLoad(t, "A,B,C\n1,x,5\n2,y,5\n3,x,5\n10,y,5\n")

	out := Standardize(tbl, Classify(tbl).Numeric)

	a, _ := out.Column("A")
	vals := a.Floats()
	mean, _ := stats.Mean(vals)
	std, _ := stats.StdPop(vals)
	if math.Abs(mean) > 1e-9 {
		t.Errorf("mean = %v, want 0", mean)
	}
	if math.Abs(std-1) > 1e-9 {
		t.Errorf("std = %v, want 1", std)
	}

	c, _ := out.Column("C")
	if got, want := c.Floats(), []float64{5, 5, 5, 5}; !reflect.DeepEqual(got, want) {
		t.Errorf("zero-variance column changed: %v", got)
	}

	b, _ := out.Column("B")
	if got, want := b.Strings(), []string{"x", "y", "x", "y"}; !reflect.DeepEqual(got, want) {
		t.Errorf("categorical column changed: %v", got)
	}

	orig, _ := tbl.Column("A")
	if orig.Cells[0].Num != 1 {
		t.Errorf("input table modified: A[0] = %v", orig.Cells[0].Num)
	}
}

func TestStandardize_KeepsNulls(t *testing.T) {
	tbl := mustLoad(t, "A\n1\nNA\n3\n")

	a, _ := Standardize(tbl, []string{"A"}).Column("A")
	if !a.Cells[1].IsNull() {
		t.Fatalf("null cell replaced: %+v", a.Cells[1])
	}
	if a.Cells[0].Num != -1 || a.Cells[2].Num != 1 {
		t.Errorf("got %v and %v, want -1 and 1", a.Cells[0].Num, a.Cells[2].Num)
	}
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name      string
		steps     Steps
		wantRows  int
		wantNotes []string
	}{
		{name: "none", steps: Steps{}, wantRows: 4},
		{name: "drop missing", steps: Steps{DropMissing: true}, wantRows: 3, wantNotes: []string{NoteDroppedMissing}},
		{name: "standardize", steps: Steps{Standardize: true}, wantRows: 4, wantNotes: []string{NoteStandardized}},
		{
			name:      "both in order",
			steps:     Steps{DropMissing: true, Standardize: true},
			wantRows:  3,
			wantNotes: []string{NoteDroppedMissing, NoteStandardized},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := mustLoad(t, "A,B\n1,x\n2,y\nNULL,z\n4,x\n")
			out, notes := Preprocess(tbl, tt.steps)
			if got := out.NumRows(); got != tt.wantRows {
				t.Errorf("rows = %d, want %d", got, tt.wantRows)
			}
			if !reflect.DeepEqual(notes, tt.wantNotes) {
				t.Errorf("notes = %v, want %v", notes, tt.wantNotes)
			}
			if tbl.NumRows() != 4 {
				t.Errorf("input modified")
			}
		})
	}
}

func TestPreprocess_StandardizeAfterDrop(t *testing.T) {
	// Statistics are taken over the rows that survive the drop.
	tbl := mustLoad(t, "A,B\n1,x\n3,y\n100,\n")

	out, _ := Preprocess(tbl, Steps{DropMissing: true, Standardize: true})
	a, _ := out.Column("A")
	if got, want := a.Floats(), []float64{-1, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("A = %v, want %v", got, want)
	}
}
