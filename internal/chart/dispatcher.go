package chart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataviz/internal/dataset"
	"github.com/JonMunkholm/dataviz/internal/logging"
)

// ErrNoRenderer is wrapped by RenderFailure when a chart type has no
// registered renderer.
var ErrNoRenderer = errors.New("no renderer registered")

// RenderFailure aborts a render cycle. Artifacts produced before it stay
// valid.
type RenderFailure struct {
	Chart ChartType
	// Title names the artifact being drawn when known, e.g. the column.
	Title string
	Err   error
}

func (e *RenderFailure) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("render %s (%s): %v", e.Chart, e.Title, e.Err)
	}
	return fmt.Sprintf("render %s: %v", e.Chart, e.Err)
}

func (e *RenderFailure) Unwrap() error { return e.Err }

// EmitFunc receives each artifact as soon as it is ready. Returning an
// error stops the cycle.
type EmitFunc func(Artifact) error

// Dispatcher runs requests through the renderers of a Registry.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher returns a dispatcher backed by reg.
func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{registry: reg}
}

// Dispatch renders the requests in order. Each artifact is assigned an ID
// and passed to emit (which may be nil) before the next one is rendered.
// The first failure stops the cycle: Dispatch returns what was rendered so
// far together with a *RenderFailure.
func (d *Dispatcher) Dispatch(ctx context.Context, t *dataset.Table, reqs []ChartRequest, emit EmitFunc) ([]Artifact, error) {
	log := logging.FromContext(ctx)
	var out []Artifact

	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		rn, ok := d.registry.Get(req.Type)
		if !ok {
			return out, &RenderFailure{Chart: req.Type, Err: ErrNoRenderer}
		}

		start := time.Now()
		arts, err := rn.Render(ctx, t, req)

		// A renderer that fails part way still hands back the images it
		// finished; they are kept like any earlier artifact.
		for _, a := range arts {
			if a.ID == "" {
				a.ID = "chart-" + uuid.NewString()
			}
			if a.Type == 0 {
				a.Type = req.Type
			}
			out = append(out, a)
			if emit != nil {
				if emitErr := emit(a); emitErr != nil {
					return out, emitErr
				}
			}
		}

		if err != nil {
			var rf *RenderFailure
			if !errors.As(err, &rf) {
				err = &RenderFailure{Chart: req.Type, Err: err}
			}
			log.Error("render failed", slog.String("chart", req.Type.String()), slog.String("error", err.Error()))
			return out, err
		}
		log.Debug("rendered",
			slog.String("chart", req.Type.String()),
			slog.Int("artifacts", len(arts)),
			slog.Duration("duration", time.Since(start)),
		)
	}
	return out, nil
}
