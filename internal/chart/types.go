// Package chart decides which charts can be drawn from a classified table
// and drives their rendering.
//
// The flow for one interaction is Resolve, which turns the user's selection
// and the column classification into ChartRequests, followed by Dispatch,
// which hands each request to the Renderer registered for its type.
package chart

import (
	"fmt"
	"strings"
)

// ChartType tags a kind of chart. The zero value is invalid.
type ChartType int

const (
	Line ChartType = iota + 1
	Bar
	Histogram
	Scatter
	Box
	Area
	Heatmap
	PairPlot
	Pie
	Density
	Violin
)

type typeInfo struct {
	name string
	slug string
}

var types = map[ChartType]typeInfo{
	Line:      {"Line Chart", "line"},
	Bar:       {"Bar Chart", "bar"},
	Histogram: {"Histogram", "histogram"},
	Scatter:   {"Scatter Plot", "scatter"},
	Box:       {"Box Plot", "box"},
	Area:      {"Area Chart", "area"},
	Heatmap:   {"Correlation Heatmap", "heatmap"},
	PairPlot:  {"Pair Plot", "pair"},
	Pie:       {"Pie Chart", "pie"},
	Density:   {"Density Plot", "density"},
	Violin:    {"Violin Plot", "violin"},
}

// AllChartTypes returns every chart type in menu order. Resolved requests
// and rendered artifacts follow this order too.
func AllChartTypes() []ChartType {
	return []ChartType{Line, Bar, Histogram, Scatter, Box, Area, Heatmap, PairPlot, Pie, Density, Violin}
}

// DefaultSelection is the menu's initial selection.
func DefaultSelection() []ChartType {
	return []ChartType{Line, Bar}
}

// String returns the display name, e.g. "Scatter Plot".
func (t ChartType) String() string {
	if info, ok := types[t]; ok {
		return info.name
	}
	return fmt.Sprintf("ChartType(%d)", int(t))
}

// Slug returns the short identifier used in URLs, flags and file names.
func (t ChartType) Slug() string {
	return types[t].slug
}

// Valid reports whether t is a known chart type.
func (t ChartType) Valid() bool {
	_, ok := types[t]
	return ok
}

// ParseChartType accepts a display name ("Box Plot"), a slug ("box") or one
// of a few aliases ("corr", "kde"), case-insensitively.
func ParseChartType(s string) (ChartType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, t := range AllChartTypes() {
		info := types[t]
		if key == strings.ToLower(info.name) || key == info.slug {
			return t, nil
		}
	}
	switch key {
	case "correlation", "corr":
		return Heatmap, nil
	case "pairplot", "pair-plot":
		return PairPlot, nil
	case "kde":
		return Density, nil
	}
	return 0, fmt.Errorf("unknown chart type %q", s)
}

// ParseChartTypes parses each name, failing on the first unknown one.
func ParseChartTypes(names []string) ([]ChartType, error) {
	out := make([]ChartType, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		t, err := ParseChartType(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// MarshalText encodes the type as its slug.
func (t ChartType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid chart type %d", int(t))
	}
	return []byte(t.Slug()), nil
}

// UnmarshalText accepts anything ParseChartType does.
func (t *ChartType) UnmarshalText(b []byte) error {
	v, err := ParseChartType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
