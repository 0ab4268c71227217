package dataset

import (
	"github.com/JonMunkholm/dataviz/internal/stats"
)

// Steps selects the preprocessing transforms to run.
type Steps struct {
	DropMissing bool `json:"drop_missing" koanf:"drop_missing"`
	Standardize bool `json:"standardize" koanf:"standardize"`
}

// Notes shown to the user when a step ran.
const (
	NoteDroppedMissing = "Dropped missing values."
	NoteStandardized   = "Standardized numerical columns."
)

// Preprocess applies the enabled steps in fixed order: drop-missing first,
// then standardize. The input table is left untouched.
func Preprocess(t *Table, steps Steps) (*Table, []string) {
	out := t.Clone()
	var notes []string

	if steps.DropMissing {
		out = DropMissing(out)
		notes = append(notes, NoteDroppedMissing)
	}
	if steps.Standardize {
		out = Standardize(out, Classify(out).Numeric)
		notes = append(notes, NoteStandardized)
	}
	return out, notes
}

// DropMissing returns a copy of t without every row that has a null cell.
func DropMissing(t *Table) *Table {
	return t.Filter(func(row int) bool {
		for _, c := range t.Columns {
			if c.Cells[row].IsNull() {
				return false
			}
		}
		return true
	})
}

// Standardize returns a copy of t where each named numeric column is
// rescaled to (v - mean) / stddev over its non-null values. The population
// stddev is used. Columns with zero or undefined spread are left as they
// are, and nulls stay null.
func Standardize(t *Table, columns []string) *Table {
	out := t.Clone()
	for _, name := range columns {
		col, ok := out.Column(name)
		if !ok || KindOf(col) != KindNumeric {
			continue
		}
		values := col.Floats()
		mean, err := stats.Mean(values)
		if err != nil {
			continue
		}
		std, err := stats.StdPop(values)
		if err != nil || std == 0 {
			continue
		}
		for i, cell := range col.Cells {
			if cell.Kind == Number {
				col.Cells[i] = NumberCell((cell.Num - mean) / std)
			}
		}
	}
	return out
}
