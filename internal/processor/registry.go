package processor

import (
	"context"
	"fmt"
	"sync"
)

// Stage is one optional step of the pipeline. Apply only records work on
// the chain; the chain's single Write performs it.
type Stage interface {
	Name() string
	Enabled(opts *Options) bool
	Apply(ctx context.Context, chain Chain, opts *Options) error
}

// Registry keeps stages in registration order, which is the order they
// are applied in.
type Registry struct {
	stages map[string]Stage
	order  []string
	mu     sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		stages: make(map[string]Stage),
	}
}

// Register adds a stage at the end of the order. Registering an existing
// name replaces the stage in place.
func (r *Registry) Register(stage Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := stage.Name()
	if _, exists := r.stages[name]; !exists {
		r.order = append(r.order, name)
	}
	r.stages[name] = stage
}

func (r *Registry) Get(name string) (Stage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stages[name]
	return s, ok
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

func (r *Registry) Stages() []Stage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stages := make([]Stage, 0, len(r.order))
	for _, name := range r.order {
		stages = append(stages, r.stages[name])
	}
	return stages
}

// Select returns the named stages in registration order, regardless of
// the order the names were given in.
func (r *Registry) Select(names ...string) ([]Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := r.stages[name]; !ok {
			return nil, fmt.Errorf("%w: stage not registered: %s", ErrInvalidConfig, name)
		}
		want[name] = true
	}

	stages := make([]Stage, 0, len(want))
	for _, name := range r.order {
		if want[name] {
			stages = append(stages, r.stages[name])
		}
	}
	return stages, nil
}

var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.Register(ResizeStage{})
	DefaultRegistry.Register(StripStage{})
	DefaultRegistry.Register(WatermarkStage{})
}
