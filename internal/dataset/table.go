package dataset

import (
	"fmt"
	"strconv"
)

// CellKind tags the scalar stored in a Cell.
type CellKind uint8

const (
	Null CellKind = iota
	Number
	Text
)

func (k CellKind) String() string {
	switch k {
	case Number:
		return "number"
	case Text:
		return "text"
	default:
		return "null"
	}
}

// Cell is one scalar value of a column. Only the field matching Kind is meaningful.
type Cell struct {
	Kind CellKind
	Num  float64
	Text string
}

// NullCell returns an empty cell.
func NullCell() Cell { return Cell{Kind: Null} }

// NumberCell returns a numeric cell.
func NumberCell(v float64) Cell { return Cell{Kind: Number, Num: v} }

// TextCell returns a textual cell.
func TextCell(s string) Cell { return Cell{Kind: Text, Text: s} }

// IsNull reports whether the cell holds no value.
func (c Cell) IsNull() bool { return c.Kind == Null }

// String renders the cell for display. Null renders as the empty string.
func (c Cell) String() string {
	switch c.Kind {
	case Number:
		return strconv.FormatFloat(c.Num, 'g', -1, 64)
	case Text:
		return c.Text
	default:
		return ""
	}
}

// Column is a named, ordered sequence of cells.
type Column struct {
	Name  string
	Cells []Cell
}

// NonNull returns the number of cells holding a value.
func (c *Column) NonNull() int {
	n := 0
	for _, cell := range c.Cells {
		if !cell.IsNull() {
			n++
		}
	}
	return n
}

// Floats returns the numeric values of the column, skipping nulls and text.
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if cell.Kind == Number {
			out = append(out, cell.Num)
		}
	}
	return out
}

// Strings returns every cell rendered as text, nulls included as "".
func (c *Column) Strings() []string {
	out := make([]string, len(c.Cells))
	for i, cell := range c.Cells {
		out[i] = cell.String()
	}
	return out
}

// Table is an ordered set of equal-length columns.
//
// A Table belongs to the pipeline run that built it. Stages that change it
// return a new Table rather than editing one they were handed.
type Table struct {
	Columns []*Column
}

// NewTable builds a table from column names and row-major cells.
func NewTable(names []string, rows [][]Cell) (*Table, error) {
	t := &Table{Columns: make([]*Column, len(names))}
	for i, name := range names {
		t.Columns[i] = &Column{Name: name, Cells: make([]Cell, 0, len(rows))}
	}
	for r, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", r+1, len(row), len(names))
		}
		for i, cell := range row {
			t.Columns[i].Cells = append(t.Columns[i].Cells, cell)
		}
	}
	return t, nil
}

// NumRows returns the shared column length.
func (t *Table) NumRows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// Names returns the column names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Row returns the cells at index i across all columns.
func (t *Table) Row(i int) []Cell {
	row := make([]Cell, len(t.Columns))
	for c, col := range t.Columns {
		row[c] = col.Cells[i]
	}
	return row
}

// Validate checks that every column has the same length.
func (t *Table) Validate() error {
	n := t.NumRows()
	for _, c := range t.Columns {
		if len(c.Cells) != n {
			return fmt.Errorf("column %q has %d rows, want %d", c.Name, len(c.Cells), n)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		out.Columns[i] = &Column{Name: c.Name, Cells: cells}
	}
	return out
}

// Head returns a copy holding the first n rows.
func (t *Table) Head(n int) *Table {
	if n > t.NumRows() {
		n = t.NumRows()
	}
	return t.selectRows(func(i int) bool { return i < n })
}

// Filter returns a copy holding the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	return t.selectRows(keep)
}

func (t *Table) selectRows(keep func(int) bool) *Table {
	out := &Table{Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		out.Columns[i] = &Column{Name: c.Name, Cells: make([]Cell, 0, len(c.Cells))}
	}
	for r := 0; r < t.NumRows(); r++ {
		if !keep(r) {
			continue
		}
		for i, c := range t.Columns {
			out.Columns[i].Cells = append(out.Columns[i].Cells, c.Cells[r])
		}
	}
	return out
}
