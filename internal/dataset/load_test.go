package dataset

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func mustLoad(t *testing.T, csv string) *Table {
	t.Helper()
	tbl, err := Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tbl
}

func TestLoad_Basic(t *testing.T) {
	tbl := mustLoad(t, "A,B\n1,x\n2,x\n3,y\n4,y\n")

	if got, want := tbl.Names(), []string{"A", "B"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	if got := tbl.NumRows(); got != 4 {
		t.Fatalf("rows = %d, want 4", got)
	}

	a, _ := tbl.Column("A")
	if got, want := a.Floats(), []float64{1, 2, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("A = %v, want %v", got, want)
	}
	b, _ := tbl.Column("B")
	if got, want := b.Strings(), []string{"x", "x", "y", "y"}; !reflect.DeepEqual(got, want) {
		t.Errorf("B = %v, want %v", got, want)
	}
	if err := tbl.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_CellKinds(t *testing.T) {
	tbl := mustLoad(t, "v\n1\nNULL\n2.5e3\n\nfoo\nNaN\n")

	col, _ := tbl.Column("v")
	want := []CellKind{Number, Null, Number, Text, Null}
	if len(col.Cells) != len(want) {
		t.Fatalf("got %d cells, want %d", len(col.Cells), len(want))
	}
	for i, k := range want {
		if col.Cells[i].Kind != k {
			t.Errorf("cell %d kind = %v, want %v", i, col.Cells[i].Kind, k)
		}
	}
	if col.Cells[2].Num != 2500 {
		t.Errorf("cell 2 = %v, want 2500", col.Cells[2].Num)
	}
}

func TestLoad_EmptyFieldsAreNull(t *testing.T) {
	tbl := mustLoad(t, "a,b\n1,\n,x\n")

	a, _ := tbl.Column("a")
	b, _ := tbl.Column("b")
	if !b.Cells[0].IsNull() || !a.Cells[1].IsNull() {
		t.Errorf("expected empty fields to be null, got a=%v b=%v", a.Cells, b.Cells)
	}
}

func TestLoad_Delimiters(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"comma", "a,b\n1,2\n"},
		{"semicolon", "a;b\n1;2\n"},
		{"tab", "a\tb\n1\t2\n"},
		{"pipe", "a|b\n1|2\n"},
		{"quoted comma in header", "\"a;x\",b\n1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := mustLoad(t, tt.input)
			if got := len(tbl.Columns); got != 2 {
				t.Errorf("columns = %d (%v), want 2", got, tbl.Names())
			}
		})
	}
}

func TestLoad_Headers(t *testing.T) {
	tbl := mustLoad(t, "\xEF\xBB\xBF id ,,id,id\n1,2,3,4\n")

	want := []string{"id", "Unnamed: 1", "id.1", "id.2"}
	if got := tbl.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("names = %q, want %q", got, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		target error
	}{
		{"empty stream", "", ErrEmpty},
		{"header only", "a,b\n", ErrNoRows},
		{"invalid utf8", "a,b\n1,\x80\n", ErrInvalidUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("err = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestLoad_RaggedRows(t *testing.T) {
	_, err := Load(strings.NewReader("a,b\n1,2\n3\n"))

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if perr.Line != 3 {
		t.Errorf("line = %d, want 3", perr.Line)
	}
}

func TestLoadWithOptions(t *testing.T) {
	t.Run("max rows", func(t *testing.T) {
		tbl, err := LoadWithOptions(strings.NewReader("a\n1\n2\n3\n"), LoadOptions{MaxRows: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := tbl.NumRows(); got != 2 {
			t.Errorf("rows = %d, want 2", got)
		}
	})

	t.Run("max bytes", func(t *testing.T) {
		input := "a\n" + strings.Repeat("1\n", 100)
		_, err := LoadWithOptions(strings.NewReader(input), LoadOptions{MaxBytes: 20})
		if !errors.Is(err, ErrTooLarge) {
			t.Errorf("err = %v, want ErrTooLarge", err)
		}
	})

	t.Run("forced delimiter", func(t *testing.T) {
		tbl, err := LoadWithOptions(strings.NewReader("a;b,c\n1;2,3\n"), LoadOptions{Delimiter: ','})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got, want := tbl.Names(), []string{"a;b", "c"}; !reflect.DeepEqual(got, want) {
			t.Errorf("names = %v, want %v", got, want)
		}
	})
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		raw  string
		want Cell
	}{
		{"42", NumberCell(42)},
		{" -1.5 ", NumberCell(-1.5)},
		{".5", NumberCell(0.5)},
		{"1e-3", NumberCell(0.001)},
		{`="007"`, NumberCell(7)},
		{"inf", TextCell("inf")},
		{"1,000", TextCell("1,000")},
		{"abc", TextCell("abc")},
		{"", NullCell()},
		{"NA", NullCell()},
		{"None", NullCell()},
		{"#N/A", NullCell()},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseCell(tt.raw); got != tt.want {
				t.Errorf("ParseCell(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}
