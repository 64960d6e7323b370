// Package registry holds the step-kind handlers available to a pipeline.
// Each step module registers itself under its kind; the executor looks the
// kind up at run time, and the registry validates up front that every kind a
// definition names is actually registered.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/pipewright/internal/config"
	"github.com/specialistvlad/pipewright/internal/stepctx"
)

// RunFunc executes one step. It receives the decoded input struct produced
// by NewInput and returns any textual output to record on the step result.
type RunFunc func(ctx context.Context, sc *stepctx.Context, input any) (string, error)

// RegisteredStep holds the compiled Go parts of one step kind.
type RegisteredStep struct {
	// NewInput allocates the argument struct the step's args decode into.
	NewInput func() any
	// Fn is the step's handler.
	Fn RunFunc
}

// Module is the interface step packages implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry maps step kinds to their handlers for one application instance.
type Registry struct {
	steps map[string]*RegisteredStep
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{steps: make(map[string]*RegisteredStep)}
}

// RegisterStep registers a handler under a step kind. Registering the same
// kind twice is a programmer error.
func (r *Registry) RegisterStep(kind string, step *RegisteredStep) {
	if _, exists := r.steps[kind]; exists {
		panic(fmt.Sprintf("step kind %q already registered", kind))
	}
	slog.Debug("Registering step handler.", "kind", kind)
	r.steps[kind] = step
}

// Step returns the handler for a kind.
func (r *Registry) Step(kind string) (*RegisteredStep, bool) {
	s, ok := r.steps[kind]
	return s, ok
}

// Kinds returns all registered kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.steps))
	for k := range r.steps {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Validate checks that every step kind the model names is registered and
// that its arguments decode into the handler's input struct. Running this
// before execution turns a typo'd definition into a startup error instead
// of a mid-pipeline failure.
func (r *Registry) Validate(model *config.Model) error {
	for _, j := range model.Jobs {
		for _, s := range j.Steps {
			step, ok := r.steps[s.Kind]
			if !ok {
				return fmt.Errorf("job %q uses unknown step kind %q", j.Name, s.Kind)
			}
			if err := config.DecodeArgs(s.Args, step.NewInput()); err != nil {
				return fmt.Errorf("job %q step %q: %w", j.Name, s.Kind, err)
			}
		}
	}
	return nil
}
