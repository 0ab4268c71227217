package chart

import (
	"encoding/base64"
	"fmt"
)

// ChartRequest is a resolved, ready-to-render chart. Which fields are set
// depends on Type; see Resolve. It is passed by value and never modified
// after resolution.
type ChartRequest struct {
	Type ChartType `json:"type"`

	// Columns lists the columns drawn one artifact each (Line, Area, Box,
	// Histogram, Violin) or jointly (Heatmap, PairPlot).
	Columns []string `json:"columns,omitempty"`

	X     string `json:"x,omitempty"`
	Y     string `json:"y,omitempty"`
	Color string `json:"color,omitempty"`

	// Category is the grouping column of Bar and Pie; Value is the numeric
	// column summed per category by Bar, empty to count rows instead.
	Category string `json:"category,omitempty"`
	Value    string `json:"value,omitempty"`

	// Column is the single column of a Density request.
	Column string `json:"column,omitempty"`

	// GroupBy is the categorical column splitting each Violin.
	GroupBy string `json:"group_by,omitempty"`

	Bins int `json:"bins,omitempty"`
}

// Params returns the request's parameters as a name to value mapping, only
// including the ones set.
func (r ChartRequest) Params() map[string]any {
	p := make(map[string]any)
	if len(r.Columns) > 0 {
		p["columns"] = append([]string(nil), r.Columns...)
	}
	set := func(k, v string) {
		if v != "" {
			p[k] = v
		}
	}
	set("x", r.X)
	set("y", r.Y)
	set("color", r.Color)
	set("category", r.Category)
	set("value", r.Value)
	set("column", r.Column)
	set("group_by", r.GroupBy)
	if r.Bins > 0 {
		p["bins"] = r.Bins
	}
	return p
}

func (r ChartRequest) String() string {
	return fmt.Sprintf("%s %v", r.Type, r.Params())
}

// Artifact is one rendered chart image.
type Artifact struct {
	ID          string    `json:"id"`
	Type        ChartType `json:"type"`
	Title       string    `json:"title"`
	Column      string    `json:"column,omitempty"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"-"`
}

// DataURI returns the image inlined as a data: URI.
func (a Artifact) DataURI() string {
	return "data:" + a.ContentType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// Skip records a selected chart type that could not be resolved.
type Skip struct {
	Type   ChartType `json:"type"`
	Reason string    `json:"reason"`
}

func (s Skip) String() string {
	return fmt.Sprintf("%s skipped: %s", s.Type, s.Reason)
}

// Resolution is the resolver's output.
type Resolution struct {
	Requests []ChartRequest `json:"requests"`
	// Skipped lists selected types whose preconditions failed. They produce
	// no request and no error.
	Skipped []Skip `json:"skipped,omitempty"`
	// Notes explains column choices the resolver had to change.
	Notes []string `json:"notes,omitempty"`
}
