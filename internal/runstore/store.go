// Package runstore provides an ephemeral, thread-safe store for per-job
// execution state during a single pipeline run.
//
// The store uses sync.Map rather than a single RWMutex because the workload
// is write-heavy with independent keys: every worker constantly updates its
// own job's status while the scheduler reads its prerequisites' statuses.
// A fresh store is created for every run; nothing persists across runs
// except through the cache store.
package runstore

import (
	"sync"

	"github.com/specialistvlad/pipewright/internal/job"
)

// Store holds the mutable status and result of every job in one run.
type Store struct {
	statuses sync.Map // key: job name, value: job.Status
	results  sync.Map // key: job name, value: *job.Result
}

// New creates a new, empty run store.
func New() *Store {
	return &Store{}
}

// SetStatus records a job's current status.
func (s *Store) SetStatus(name string, status job.Status) {
	s.statuses.Store(name, status)
}

// Status returns a job's current status. A job that has not been touched
// yet reports pending.
func (s *Store) Status(name string) job.Status {
	v, ok := s.statuses.Load(name)
	if !ok {
		return job.StatusPending
	}
	return v.(job.Status)
}

// Statuses returns the statuses of the named jobs, keyed by name.
func (s *Store) Statuses(names []string) map[string]job.Status {
	out := make(map[string]job.Status, len(names))
	for _, name := range names {
		out[name] = s.Status(name)
	}
	return out
}

// SetResult records a job's terminal result and its status in one step.
func (s *Store) SetResult(res *job.Result) {
	s.results.Store(res.Job, res)
	s.statuses.Store(res.Job, res.Status)
}

// Result returns a job's terminal result, or nil if the job has not
// finished.
func (s *Store) Result(name string) *job.Result {
	v, ok := s.results.Load(name)
	if !ok {
		return nil
	}
	return v.(*job.Result)
}
