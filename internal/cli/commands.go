package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataviz/internal/chart"
)

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <csv>",
		Short: "Show each column's kind",
		Long: `Load a CSV file (or "-" for stdin), apply the preprocessing options and
print every column with its kind: numeric, categorical or empty.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := settingsFrom(cmd)
			opts, err := s.Options()
			if err != nil {
				return err
			}
			opts.Charts = nil
			res, err := run(cmd, args[0], opts, nil)
			if err != nil {
				return err
			}
			printNotes(cmd, res.Notes)
			return writeClassification(cmd.OutOrStdout(), s.Format, res)
		},
	}
}

func newSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <csv>",
		Short: "Describe the numeric columns",
		Long: `Print count, mean, std, min, quartiles and max of every numeric column
of the uploaded data, before preprocessing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := settingsFrom(cmd)
			res, err := run(cmd, args[0], chart.Options{}, nil)
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), s.Format, res.Summary)
		},
	}
}

func newRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <csv>",
		Short: "Render the selected charts to PNG files",
		Long: `Render the selected chart types and write one PNG per chart into --out.
Charts that cannot be drawn for the data are reported and skipped.`,
		Example: `  vizctl render sales.csv --charts bar,histogram --bins 20 --out charts/
  VIZ_CHARTS=scatter vizctl render iris.csv --scatter-x SepalLengthCm --color Species`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := settingsFrom(cmd)
			opts, err := s.Options()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(s.Out, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			var written []writtenChart
			emit := func(a chart.Artifact) error {
				path := filepath.Join(s.Out, artifactFileName(len(written)+1, a))
				if err := os.WriteFile(path, a.Data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				written = append(written, writtenChart{File: path, Title: a.Title, Type: a.Type})
				return nil
			}

			res, err := run(cmd, args[0], opts, emit)
			var failure *chart.RenderFailure
			if err != nil && (res == nil || !errors.As(err, &failure)) {
				return err
			}
			printNotes(cmd, res.Notes)
			printNotes(cmd, res.Resolution.Notes)
			if outErr := writeRendered(cmd.OutOrStdout(), s.Format, written, res.Resolution.Skipped); outErr != nil {
				return outErr
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringSlice("charts", nil, "Chart types to render (e.g. line,bar,histogram)")
	f.Int("bins", 0, "Histogram bins (10-100)")
	f.String("scatter-x", "", "Scatter plot X column")
	f.String("scatter-y", "", "Scatter plot Y column")
	f.String("color", "", "Scatter plot color column")
	f.String("bar-category", "", "Bar chart category column")
	f.String("pie-category", "", "Pie chart category column")
	f.String("density-column", "", "Density plot column")
	f.StringP("out", "o", "", "Output directory")

	_ = cmd.RegisterFlagCompletionFunc("charts", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		var slugs []string
		for _, t := range chart.AllChartTypes() {
			slugs = append(slugs, t.Slug())
		}
		return slugs, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

type writtenChart struct {
	File  string          `json:"file"`
	Title string          `json:"title"`
	Type  chart.ChartType `json:"type"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// artifactFileName numbers files in render order: "01-histogram-of-a.png".
func artifactFileName(n int, a chart.Artifact) string {
	name := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(a.Title), "-"), "-")
	if name == "" {
		name = a.Type.Slug()
	}
	return fmt.Sprintf("%02d-%s.png", n, name)
}

// printNotes writes warnings to stderr so table and json output stay clean.
func printNotes(cmd *cobra.Command, notes []string) {
	for _, n := range notes {
		fmt.Fprintln(cmd.ErrOrStderr(), "note:", n)
	}
}
