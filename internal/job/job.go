// Package job defines the job status lifecycle and execution results shared
// by the scheduler, gate, and executor.
package job

import "time"

// Status is the execution status of a job within a pipeline run.
type Status int32

const (
	// StatusPending indicates the job has not been admitted yet.
	StatusPending Status = iota
	// StatusRunning indicates a worker is currently executing the job's steps.
	StatusRunning
	// StatusSucceeded indicates every step of the job completed successfully.
	StatusSucceeded
	// StatusFailed indicates a step of the job failed.
	StatusFailed
	// StatusSkipped indicates the job never ran because an upstream
	// prerequisite failed or was skipped, or the run was cancelled.
	StatusSkipped
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can occur from this status.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// StepStatus is the outcome of a single step within a job.
type StepStatus int

const (
	// StepSucceeded indicates the step completed successfully.
	StepSucceeded StepStatus = iota
	// StepFailed indicates the step's underlying operation returned an error.
	StepFailed
	// StepSkipped indicates the step never ran because an earlier step failed.
	StepSkipped
)

// String returns the lower-case name of the step status.
func (s StepStatus) String() string {
	switch s {
	case StepSucceeded:
		return "succeeded"
	case StepFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// StepResult records the outcome of one step.
type StepResult struct {
	// Kind is the step kind, e.g. "checkout" or "image_push".
	Kind string
	// Status is the step's terminal status.
	Status StepStatus
	// Err holds the failure cause for a failed step, nil otherwise.
	Err error
	// Output holds any textual output captured from the step.
	Output string
}

// Result is the terminal record of one job within a pipeline run.
type Result struct {
	// Job is the job's name.
	Job string
	// Status is the job's terminal status.
	Status Status
	// Err is the job-level error: a *executor.StepError for failed jobs, a
	// *gate.SkipError for skipped jobs, nil for succeeded ones.
	Err error
	// Steps holds per-step outcomes in declared order. Empty for jobs that
	// were skipped before admission.
	Steps []StepResult
	// Started and Finished bound the job's execution window. Zero for
	// skipped jobs.
	Started  time.Time
	Finished time.Time
}
