// Package executor runs one job's steps strictly in declared order on that
// job's isolated execution context. The first failing step aborts the job:
// remaining steps are recorded as skipped and the job is failed. There is no
// partial success at the step level and no retry.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/pipewright/internal/config"
	"github.com/specialistvlad/pipewright/internal/ctxlog"
	"github.com/specialistvlad/pipewright/internal/job"
	"github.com/specialistvlad/pipewright/internal/registry"
	"github.com/specialistvlad/pipewright/internal/stepctx"
)

// StepError is the failure of one step, local to its job. Failures never
// cross job boundaries except through the dependency gate's skip
// propagation.
type StepError struct {
	// Job is the owning job's name.
	Job string
	// Kind is the failing step's kind.
	Kind string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("job %q step %q: %v", e.Job, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StepError) Unwrap() error { return e.Err }

// Executor executes jobs against a step handler registry.
type Executor struct {
	registry *registry.Registry
}

// New creates an executor over the given registry.
func New(reg *registry.Registry) *Executor {
	return &Executor{registry: reg}
}

// Execute runs the job's steps in order and returns its terminal result.
// Deferred hooks queued by steps (the cache save) run only when every step
// succeeded; a hook failure is logged but does not fail the job.
func (e *Executor) Execute(ctx context.Context, j *config.Job, sc *stepctx.Context) *job.Result {
	logger := ctxlog.FromContext(ctx).With("job", j.Name)
	result := &job.Result{Job: j.Name, Started: time.Now()}

	var failed *StepError
	for _, s := range j.Steps {
		if failed != nil {
			result.Steps = append(result.Steps, job.StepResult{Kind: s.Kind, Status: job.StepSkipped})
			continue
		}

		output, err := e.runStep(ctx, s, sc)
		if err != nil {
			logger.Error("Step failed.", "step", s.Kind, "error", err)
			failed = &StepError{Job: j.Name, Kind: s.Kind, Err: err}
			result.Steps = append(result.Steps, job.StepResult{Kind: s.Kind, Status: job.StepFailed, Err: err, Output: output})
			continue
		}
		logger.Debug("Step succeeded.", "step", s.Kind)
		result.Steps = append(result.Steps, job.StepResult{Kind: s.Kind, Status: job.StepSucceeded, Output: output})
	}

	if failed != nil {
		result.Status = job.StatusFailed
		result.Err = failed
		result.Finished = time.Now()
		return result
	}

	for _, hook := range sc.Deferred() {
		if err := hook.Fn(ctx); err != nil {
			// The job's work is already done; a failed save only costs the
			// next run a cold start.
			logger.Warn("Deferred hook failed.", "hook", hook.Name, "error", err)
		}
	}

	result.Status = job.StatusSucceeded
	result.Finished = time.Now()
	return result
}

// runStep decodes the step's arguments and invokes its handler.
func (e *Executor) runStep(ctx context.Context, s *config.Step, sc *stepctx.Context) (string, error) {
	step, ok := e.registry.Step(s.Kind)
	if !ok {
		return "", fmt.Errorf("unknown step kind %q", s.Kind)
	}

	input := step.NewInput()
	if err := config.DecodeArgs(s.Args, input); err != nil {
		return "", fmt.Errorf("decoding arguments: %w", err)
	}

	return step.Fn(ctx, sc, input)
}
