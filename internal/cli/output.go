package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/JonMunkholm/dataviz/internal/chart"
	"github.com/JonMunkholm/dataviz/internal/dataset"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	// column names are printed as they appear in the file
	t.Style().Format.Header = text.FormatDefault
	return t
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeClassification(w io.Writer, format string, res *chart.Result) error {
	if format == "json" {
		return writeJSON(w, struct {
			Rows           int                    `json:"rows"`
			Classification dataset.Classification `json:"classification"`
			Columns        []dataset.ColumnInfo   `json:"columns"`
		}{res.Table.NumRows(), res.Classification, res.Columns})
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Column", "Kind", "Non-null", "Rows"})
	for _, c := range res.Columns {
		t.AppendRow(table.Row{c.Name, c.Kind, c.NonNull, c.Rows})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
	return nil
}

// summaryJSON is ColumnSummary with NaN statistics encoded as null.
type summaryJSON struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Mean  *float64 `json:"mean"`
	Std   *float64 `json:"std"`
	Min   *float64 `json:"min"`
	Q1    *float64 `json:"p25"`
	Q2    *float64 `json:"p50"`
	Q3    *float64 `json:"p75"`
	Max   *float64 `json:"max"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func writeSummary(w io.Writer, format string, summary []dataset.ColumnSummary) error {
	if format == "json" {
		out := make([]summaryJSON, len(summary))
		for i, s := range summary {
			out[i] = summaryJSON{
				Name: s.Name, Count: s.Count,
				Mean: finite(s.Mean), Std: finite(s.Std),
				Min: finite(s.Min), Q1: finite(s.Q1), Q2: finite(s.Q2), Q3: finite(s.Q3),
				Max: finite(s.Max),
			}
		}
		return writeJSON(w, out)
	}

	if len(summary) == 0 {
		_, _ = fmt.Fprintln(w, "(no numeric columns)")
		return nil
	}

	// statistics down, columns across, as describe() prints them
	t := newTable(w)
	header := table.Row{""}
	for _, s := range summary {
		header = append(header, s.Name)
	}
	t.AppendHeader(header)
	for i, label := range dataset.SummaryLabels {
		row := table.Row{label}
		for _, s := range summary {
			row = append(row, formatStat(s.Values()[i]))
		}
		t.AppendRow(row)
	}
	t.Render()
	return nil
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func writeRendered(w io.Writer, format string, written []writtenChart, skipped []chart.Skip) error {
	if format == "json" {
		if written == nil {
			written = []writtenChart{}
		}
		if skipped == nil {
			skipped = []chart.Skip{}
		}
		return writeJSON(w, struct {
			Charts  []writtenChart `json:"charts"`
			Skipped []chart.Skip   `json:"skipped"`
		}{written, skipped})
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Chart", "Title", "File"})
	for _, c := range written {
		t.AppendRow(table.Row{c.Type.String(), c.Title, c.File})
	}
	for _, s := range skipped {
		t.AppendRow(table.Row{s.Type.String(), "skipped: " + s.Reason, ""})
	}
	if len(written) == 0 && len(skipped) == 0 {
		_, _ = fmt.Fprintln(w, "(no charts selected)")
		return nil
	}
	t.Render()
	return nil
}
