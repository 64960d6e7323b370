// Package scheduler drives one pipeline run to completion by topological
// admission: a job becomes eligible the instant all of its prerequisites
// reach a terminal status, eligible admitted jobs execute concurrently on a
// worker pool, and a failed or skipped prerequisite skips its dependents
// transitively. The run terminates when every job is terminal.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/pipewright/internal/ctxlog"
	"github.com/specialistvlad/pipewright/internal/dag"
	"github.com/specialistvlad/pipewright/internal/gate"
	"github.com/specialistvlad/pipewright/internal/job"
	"github.com/specialistvlad/pipewright/internal/runstore"
)

// JobRunner executes a single admitted job and returns its terminal result.
// The scheduler owns admission and status bookkeeping; the runner owns the
// job's step sequence.
type JobRunner interface {
	Run(ctx context.Context, node *dag.Node) *job.Result
}

// JobRunnerFunc adapts a function to the JobRunner interface.
type JobRunnerFunc func(ctx context.Context, node *dag.Node) *job.Result

// Run implements JobRunner.
func (f JobRunnerFunc) Run(ctx context.Context, node *dag.Node) *job.Result {
	return f(ctx, node)
}

// Result is the aggregate outcome of one pipeline run.
type Result struct {
	// Succeeded is true iff every job succeeded. Any failed or skipped
	// job makes the run failed, independent of how many siblings
	// succeeded.
	Succeeded bool
	// Jobs holds every job's terminal result in declaration order.
	Jobs []*job.Result
}

// Job returns the named job's result, or nil.
func (r *Result) Job(name string) *job.Result {
	for _, jr := range r.Jobs {
		if jr.Job == name {
			return jr
		}
	}
	return nil
}

// Scheduler runs a job graph. It is reusable: each Run gets a fresh run
// store and fresh admission state, so one scheduler can serve many pushes.
type Scheduler struct {
	graph   *dag.Graph
	runner  JobRunner
	workers int
}

// New creates a scheduler over a validated graph.
func New(graph *dag.Graph, runner JobRunner, workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{graph: graph, runner: runner, workers: workers}
}

// runState is the per-run mutable admission state of one node.
type runState struct {
	// pendingNeeds counts prerequisites that are not yet terminal.
	pendingNeeds atomic.Int32
	// resolveOnce guarantees a node reaches exactly one terminal status
	// even when cancellation races with gate resolution.
	resolveOnce sync.Once
}

// run bundles everything one pipeline run needs.
type run struct {
	s     *Scheduler
	store *runstore.Store
	state map[string]*runState
	ready chan *dag.Node
	wg    sync.WaitGroup
}

// Run executes the graph to completion and returns the aggregate result.
// On context cancellation all non-terminal jobs transition to skipped;
// nothing is rolled back.
func (s *Scheduler) Run(ctx context.Context) *Result {
	logger := ctxlog.FromContext(ctx)

	r := &run{
		s:     s,
		store: runstore.New(),
		state: make(map[string]*runState, s.graph.Len()),
		ready: make(chan *dag.Node, s.graph.Len()),
	}
	for _, node := range s.graph.Nodes() {
		st := &runState{}
		st.pendingNeeds.Store(int32(len(node.Needs)))
		r.state[node.Name] = st
	}

	r.wg.Add(s.graph.Len())
	for _, root := range s.graph.Roots() {
		r.ready <- root
	}

	logger.Debug("Scheduler starting.", "jobs", s.graph.Len(), "workers", s.workers)
	for i := 0; i < s.workers; i++ {
		go r.worker(ctx)
	}

	r.wg.Wait()
	close(r.ready)

	result := &Result{Succeeded: true}
	for _, node := range s.graph.Nodes() {
		jr := r.store.Result(node.Name)
		result.Jobs = append(result.Jobs, jr)
		if jr.Status != job.StatusSucceeded {
			result.Succeeded = false
		}
	}
	logger.Info("Pipeline run finished.", "succeeded", result.Succeeded)
	return result
}

// worker is the processing loop of one concurrent worker.
func (r *run) worker(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	for node := range r.ready {
		if ctx.Err() != nil {
			// Fail-forward cancellation: admitted-but-unstarted jobs are
			// skipped, never compensated.
			r.resolve(ctx, node, &job.Result{
				Job:    node.Name,
				Status: job.StatusSkipped,
				Err:    &gate.SkipError{Job: node.Name},
			})
			continue
		}

		r.store.SetStatus(node.Name, job.StatusRunning)
		logger.Info("Job running.", "job", node.Name)

		res := r.s.runner.Run(ctx, node)
		logger.Info("Job finished.", "job", node.Name, "status", res.Status.String())
		r.resolve(ctx, node, res)
	}
}

// resolve records a node's terminal result exactly once and re-evaluates
// the gates of its dependents.
func (r *run) resolve(ctx context.Context, node *dag.Node, res *job.Result) {
	st := r.state[node.Name]
	st.resolveOnce.Do(func() {
		r.store.SetResult(res)
		r.wg.Done()
		r.admitDependents(ctx, node)
	})
}

// admitDependents decrements each dependent's pending-needs counter and,
// once all of a dependent's prerequisites are terminal, evaluates its gate:
// admit enqueues it, skip resolves it immediately and cascades.
func (r *run) admitDependents(ctx context.Context, node *dag.Node) {
	logger := ctxlog.FromContext(ctx)

	for _, dep := range node.Dependents {
		if r.state[dep.Name].pendingNeeds.Add(-1) != 0 {
			continue
		}

		upstream := r.store.Statuses(dep.Job.Needs)
		switch gate.Evaluate(upstream) {
		case gate.Admit:
			logger.Debug("Gate admitted job.", "job", dep.Name)
			r.ready <- dep
		case gate.Skip:
			blame, status, _ := gate.Blame(upstream)
			logger.Warn("Gate skipped job.", "job", dep.Name, "upstream", blame, "upstream_status", status.String())
			r.resolve(ctx, dep, &job.Result{
				Job:    dep.Name,
				Status: job.StatusSkipped,
				Err:    &gate.SkipError{Job: dep.Name, Upstream: blame, UpstreamStatus: status},
			})
		case gate.Wait:
			// unreachable: the counter only hits zero when every
			// prerequisite is terminal
		}
	}
}
