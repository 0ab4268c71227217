package dataset

// ColumnKind is the classification outcome for one column.
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
	KindEmpty       ColumnKind = "empty"
)

// Classification partitions column names into numeric and categorical sets.
// A name appears in at most one set; columns with no values are in neither.
type Classification struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
	Excluded    []string `json:"excluded"`
}

// IsNumeric reports whether name was classified numeric.
func (c Classification) IsNumeric(name string) bool { return contains(c.Numeric, name) }

// IsCategorical reports whether name was classified categorical.
func (c Classification) IsCategorical(name string) bool { return contains(c.Categorical, name) }

// Empty reports whether neither set has a column.
func (c Classification) Empty() bool {
	return len(c.Numeric) == 0 && len(c.Categorical) == 0
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// KindOf classifies a single column. Every non-null value numeric makes it
// numeric; any textual value makes it categorical; no values makes it empty.
func KindOf(c *Column) ColumnKind {
	seen := false
	for _, cell := range c.Cells {
		switch cell.Kind {
		case Text:
			return KindCategorical
		case Number:
			seen = true
		}
	}
	if !seen {
		return KindEmpty
	}
	return KindNumeric
}

// Classify inspects every column of t, keeping table order within each set.
// It has to be rerun after preprocessing since dropped rows can empty a column.
func Classify(t *Table) Classification {
	var cls Classification
	for _, c := range t.Columns {
		switch KindOf(c) {
		case KindNumeric:
			cls.Numeric = append(cls.Numeric, c.Name)
		case KindCategorical:
			cls.Categorical = append(cls.Categorical, c.Name)
		default:
			cls.Excluded = append(cls.Excluded, c.Name)
		}
	}
	return cls
}

// ColumnInfo describes one column for the overview panels.
type ColumnInfo struct {
	Name    string     `json:"name"`
	Kind    ColumnKind `json:"kind"`
	NonNull int        `json:"non_null"`
	Rows    int        `json:"rows"`
}

// DescribeColumns returns per-column kind and fill information in table order.
func DescribeColumns(t *Table) []ColumnInfo {
	out := make([]ColumnInfo, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = ColumnInfo{
			Name:    c.Name,
			Kind:    KindOf(c),
			NonNull: c.NonNull(),
			Rows:    len(c.Cells),
		}
	}
	return out
}
