// Package gate implements the admission decision for a job whose
// prerequisites are resolving. It is a pure function over upstream statuses,
// evaluated independently for every dependent job: two jobs sharing the same
// prerequisite get identical but independent decisions.
package gate

import "github.com/specialistvlad/pipewright/internal/job"

// Decision is the outcome of evaluating a job's prerequisites.
type Decision int

const (
	// Wait means at least one prerequisite has not reached a terminal
	// status yet; the job stays pending.
	Wait Decision = iota
	// Admit means every prerequisite succeeded; the job may run.
	Admit
	// Skip means at least one prerequisite failed or was skipped; the job
	// transitions to skipped without running. Skip propagates transitively:
	// a skipped prerequisite skips its dependents in turn.
	Skip
)

// String returns the lower-case name of the decision.
func (d Decision) String() string {
	switch d {
	case Admit:
		return "admit"
	case Skip:
		return "skip"
	default:
		return "wait"
	}
}

// SkipError records why a job was skipped. It is deliberately a distinct
// type from the executor's step failure so that "this job's own logic
// failed" and "this job never ran" stay distinguishable downstream.
type SkipError struct {
	// Job is the skipped job's name.
	Job string
	// Upstream is the prerequisite whose terminal status caused the skip,
	// or empty when the run was cancelled.
	Upstream string
	// UpstreamStatus is the upstream's terminal status (failed or skipped).
	UpstreamStatus job.Status
}

// Error implements the error interface.
func (e *SkipError) Error() string {
	if e.Upstream == "" {
		return "job " + e.Job + " skipped: run cancelled"
	}
	return "job " + e.Job + " skipped: upstream " + e.Upstream + " " + e.UpstreamStatus.String()
}

// Evaluate decides admission for a job given its prerequisites' statuses in
// needs order. Skip takes precedence over Wait so that a known-doomed job
// resolves immediately instead of waiting on unrelated prerequisites.
func Evaluate(upstream map[string]job.Status) Decision {
	decision := Admit
	for _, status := range upstream {
		switch status {
		case job.StatusFailed, job.StatusSkipped:
			return Skip
		case job.StatusSucceeded:
			// keeps Admit unless a later prerequisite demotes it
		default:
			decision = Wait
		}
	}
	return decision
}

// Blame returns the prerequisite justifying a Skip decision. Map iteration
// order is not deterministic, so when several prerequisites are terminal
// failures the reported one may vary; the decision itself never does.
func Blame(upstream map[string]job.Status) (string, job.Status, bool) {
	for name, status := range upstream {
		if status == job.StatusFailed || status == job.StatusSkipped {
			return name, status, true
		}
	}
	return "", job.StatusPending, false
}
