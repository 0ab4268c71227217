// Package cli provides vizctl, a command-line front end to the chart
// pipeline: classify a CSV, describe its numeric columns, or render the
// selected charts to PNG files.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataviz/internal/chart"
	"github.com/JonMunkholm/dataviz/internal/dataset"
	"github.com/JonMunkholm/dataviz/internal/logging"
	"github.com/JonMunkholm/dataviz/internal/render"
)

// settingsKey stores the merged Settings in the command context.
type settingsKey struct{}

// NewRootCmd creates the vizctl command tree.
func NewRootCmd() *cobra.Command {
	var optionsFile string

	root := &cobra.Command{
		Use:   "vizctl",
		Short: "Classify, summarise and chart CSV files",
		Long: `vizctl runs the CSV visualizer pipeline from the command line.

Options come from built-in defaults, an optional YAML file (--options),
VIZ_* environment variables and flags, in increasing precedence.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			s, err := LoadSettings(optionsFile, cmd.Flags())
			if err != nil {
				return err
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), s.LogLevel, "text"))
			cmd.SetContext(context.WithValue(cmd.Context(), settingsKey{}, s))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&optionsFile, "options", "", "YAML options file")
	root.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	root.PersistentFlags().StringP("format", "f", "", "Output format (table|json)")
	root.PersistentFlags().Bool("drop-missing", false, "Drop rows with missing values")
	root.PersistentFlags().Bool("standardize", false, "Standardize numeric columns")
	root.PersistentFlags().Int("max-rows", 0, "Read at most this many rows (0 reads all)")

	_ = root.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(newClassifyCommand())
	root.AddCommand(newSummaryCommand())
	root.AddCommand(newRenderCommand())
	return root
}

// Execute runs vizctl and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

func settingsFrom(cmd *cobra.Command) *Settings {
	if s, ok := cmd.Context().Value(settingsKey{}).(*Settings); ok {
		return s
	}
	s, _ := LoadSettings("", nil)
	return s
}

// run loads path ("-" for stdin) and runs the pipeline over it.
func run(cmd *cobra.Command, path string, opts chart.Options, emit chart.EmitFunc) (*chart.Result, error) {
	s := settingsFrom(cmd)

	var src io.Reader
	if path == "-" {
		src = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		src = f
	}

	p := chart.NewPipeline(render.Default(), nil, dataset.LoadOptions{MaxRows: s.MaxRows})
	return p.Run(cmd.Context(), src, opts, emit)
}
