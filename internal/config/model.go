package config

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of one pipeline
// definition, produced by any Loader implementation.
type Model struct {
	// Trigger describes the single event that starts a run.
	Trigger *Trigger
	// Jobs holds the pipeline's jobs in declaration order. Job names are
	// unique; Validate enforces this.
	Jobs []*Job
}

// Trigger is the format-agnostic representation of the pipeline's trigger.
// Only one event kind exists: a push to one named branch.
type Trigger struct {
	// Branch is the branch whose pushes start a run, e.g. "master".
	Branch string
}

// Job is the format-agnostic representation of a `job` block.
type Job struct {
	// Name identifies the job within the pipeline.
	Name string
	// Needs lists the names of prerequisite jobs. The job is admitted only
	// once all of them succeeded.
	Needs []string
	// Steps holds the job's steps in declared order.
	Steps []*Step
}

// Step is the format-agnostic representation of a single step within a job.
type Step struct {
	// Kind names the registered step handler, e.g. "checkout" or "run".
	Kind string
	// Args holds the step's arguments, already evaluated to cty values.
	Args map[string]cty.Value
}

// Validate checks pipeline-level invariants that hold for every definition
// format: a trigger is present, job names are unique, and every `needs`
// reference resolves to a declared job. Graph-shape validation (cycles) is
// the DAG builder's concern.
func (m *Model) Validate() error {
	if m.Trigger == nil || m.Trigger.Branch == "" {
		return fmt.Errorf("pipeline definition has no push trigger branch")
	}
	if len(m.Jobs) == 0 {
		return fmt.Errorf("pipeline definition has no jobs")
	}

	seen := make(map[string]struct{}, len(m.Jobs))
	for _, j := range m.Jobs {
		if j.Name == "" {
			return fmt.Errorf("job with empty name")
		}
		if _, dup := seen[j.Name]; dup {
			return fmt.Errorf("duplicate job name %q", j.Name)
		}
		seen[j.Name] = struct{}{}
		if len(j.Steps) == 0 {
			return fmt.Errorf("job %q has no steps", j.Name)
		}
	}

	for _, j := range m.Jobs {
		for _, need := range j.Needs {
			if _, ok := seen[need]; !ok {
				return fmt.Errorf("job %q needs unknown job %q", j.Name, need)
			}
			if need == j.Name {
				return fmt.Errorf("job %q needs itself", j.Name)
			}
		}
	}
	return nil
}

// JobNames returns the names of all jobs in declaration order.
func (m *Model) JobNames() []string {
	names := make([]string, 0, len(m.Jobs))
	for _, j := range m.Jobs {
		names = append(names, j.Name)
	}
	return names
}
