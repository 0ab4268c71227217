package chart

import (
	"context"
	"io"
	"log/slog"

	"github.com/JonMunkholm/dataviz/internal/dataset"
	"github.com/JonMunkholm/dataviz/internal/logging"
)

// PreviewRows is the number of rows shown in the data overview.
const PreviewRows = 5

// Result is everything one render cycle produced.
type Result struct {
	// Preview and Summary describe the table as uploaded.
	Preview *dataset.Table
	Summary []dataset.ColumnSummary

	// Table, Columns and Classification describe it after preprocessing.
	Table          *dataset.Table
	Columns        []dataset.ColumnInfo
	Classification dataset.Classification

	Options    Options
	Notes      []string
	Resolution Resolution
	Artifacts  []Artifact
}

// Pipeline runs Loader, Preprocessing, Classifier, Resolver and Dispatcher
// for one interaction. It keeps no state between runs.
type Pipeline struct {
	Dispatcher *Dispatcher
	// Limiter, when set, bounds concurrent dispatch stages.
	Limiter *Limiter
	Load    dataset.LoadOptions
}

// NewPipeline returns a pipeline rendering through reg.
func NewPipeline(reg *Registry, lim *Limiter, load dataset.LoadOptions) *Pipeline {
	return &Pipeline{Dispatcher: NewDispatcher(reg), Limiter: lim, Load: load}
}

// Run executes the whole pipeline over src.
//
// A *dataset.ParseError stops it before anything else runs and Result is
// nil. Any later failure, such as a *RenderFailure, returns the Result
// built so far (including already rendered artifacts) together with the
// error.
func (p *Pipeline) Run(ctx context.Context, src io.Reader, opts Options, emit EmitFunc) (*Result, error) {
	t, err := dataset.LoadWithOptions(src, p.Load)
	if err != nil {
		return nil, err
	}
	return p.RunTable(ctx, t, opts, emit)
}

// RunTable is Run for a table that is already loaded. t is not modified.
func (p *Pipeline) RunTable(ctx context.Context, t *dataset.Table, opts Options, emit EmitFunc) (*Result, error) {
	log := logging.FromContext(ctx)
	opts = opts.Normalize()

	res := &Result{Options: opts, Preview: t.Head(PreviewRows)}
	res.Summary = dataset.Summarize(t, dataset.Classify(t))

	processed, notes := dataset.Preprocess(t, opts.Steps())
	res.Table = processed
	res.Notes = notes
	res.Columns = dataset.DescribeColumns(processed)
	res.Classification = dataset.Classify(processed)
	log.Debug("classified",
		slog.Int("rows", processed.NumRows()),
		slog.Any("numeric", res.Classification.Numeric),
		slog.Any("categorical", res.Classification.Categorical),
	)

	res.Resolution = Resolve(res.Classification, opts)
	for _, s := range res.Resolution.Skipped {
		log.Info("chart skipped", slog.String("chart", s.Type.String()), slog.String("reason", s.Reason))
	}
	if len(res.Resolution.Requests) == 0 {
		return res, nil
	}

	if p.Limiter != nil {
		if err := p.Limiter.Acquire(ctx); err != nil {
			return res, err
		}
		defer p.Limiter.Release()
	}

	arts, err := p.Dispatcher.Dispatch(ctx, processed, res.Resolution.Requests, emit)
	res.Artifacts = arts
	return res, err
}
