package templates

import (
	"html/template"

	"github.com/a-h/templ"
)

// ChartsView is the CSV visualizer page.
type ChartsView struct {
	FileName string
	Error    *ErrorView

	Panel    PanelView
	Overview OverviewView

	// Signals seeds the datastar signals of the side panel as JSON.
	Signals string
}

// OverviewView is the #overview element: the data as uploaded and after
// preprocessing.
type OverviewView struct {
	Preview *TableView
	Summary *TableView
	Columns []ColumnView
	Notes   []string
}

// PanelView drives the side panel. Column lists come from the current
// classification.
type PanelView struct {
	DropMissing  bool
	Standardize  bool
	Types        []TypeOption
	Bins         int
	MinBins      int
	MaxBins      int
	Numeric      []Choice
	Categorical  []Choice
	ScatterX     []Choice
	ScatterY     []Choice
	ScatterColor []Choice
	BarCategory  []Choice
	PieCategory  []Choice
	Density      []Choice
}

// TypeOption is one chart type checkbox.
type TypeOption struct {
	Slug     string
	Name     string
	Selected bool
}

// Choice is one select option.
type Choice struct {
	Value    string
	Selected bool
}

// TableView is a header plus rows of preformatted cells.
type TableView struct {
	Headers []string
	Rows    [][]string
}

// ColumnView describes one column in the info table.
type ColumnView struct {
	Name    string
	Kind    string
	NonNull int
	Rows    int
}

// GalleryView is the #gallery element patched while charts stream in.
type GalleryView struct {
	Artifacts []ArtifactView
	Notes     []string
	Warnings  []string
	Error     *ErrorView
	// Pending is true until the render cycle finishes.
	Pending bool
}

// ArtifactView is one rendered chart.
type ArtifactView struct {
	ID    string
	Title string
	Src   template.URL
}

// ChartsPage renders the visualizer.
func ChartsPage(v ChartsView) templ.Component {
	return Page("CSV Visualizer", view("charts", v))
}

// Overview renders the data overview.
func Overview(v OverviewView) templ.Component { return view("overview", v) }

// Gallery renders the chart gallery.
func Gallery(v GalleryView) templ.Component { return view("gallery", v) }

// GalleryError renders the gallery holding only an error.
func GalleryError(e *ErrorView) templ.Component { return Gallery(GalleryView{Error: e}) }
