package chart

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/dataviz/internal/dataset"
)

// Renderer draws the artifacts of one chart type. A renderer producing one
// image per column returns them in request column order.
type Renderer interface {
	Render(ctx context.Context, t *dataset.Table, req ChartRequest) ([]Artifact, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, t *dataset.Table, req ChartRequest) ([]Artifact, error)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, t *dataset.Table, req ChartRequest) ([]Artifact, error) {
	return f(ctx, t, req)
}

// Registry maps each chart type to exactly one Renderer.
type Registry struct {
	mu        sync.RWMutex
	renderers map[ChartType]Renderer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[ChartType]Renderer)}
}

// Register adds the renderer for t.
// Panics if t is invalid or already has one.
func (r *Registry) Register(t ChartType, rn Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !t.Valid() {
		panic(fmt.Sprintf("register renderer: invalid chart type %d", int(t)))
	}
	if _, exists := r.renderers[t]; exists {
		panic(fmt.Sprintf("renderer already registered: %s", t))
	}
	r.renderers[t] = rn
}

// Get returns the renderer for t.
func (r *Registry) Get(t ChartType) (Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rn, ok := r.renderers[t]
	return rn, ok
}

// Types returns the registered chart types in menu order.
func (r *Registry) Types() []ChartType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ChartType, 0, len(r.renderers))
	for t := range r.renderers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of registered renderers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.renderers)
}
