package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/pipewright/internal/config"
	"github.com/specialistvlad/pipewright/internal/dag"
	"github.com/specialistvlad/pipewright/internal/gate"
	"github.com/specialistvlad/pipewright/internal/job"
)

func buildGraph(t *testing.T, jobs ...*config.Job) *dag.Graph {
	t.Helper()
	g, err := dag.Build(&config.Model{
		Trigger: &config.Trigger{Branch: "master"},
		Jobs:    jobs,
	})
	require.NoError(t, err)
	return g
}

// recordingRunner executes jobs according to a per-name outcome table and
// records which jobs actually ran.
type recordingRunner struct {
	mu    sync.Mutex
	fails map[string]bool
	ran   []string
	delay time.Duration
}

func (r *recordingRunner) Run(ctx context.Context, node *dag.Node) *job.Result {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	r.ran = append(r.ran, node.Name)
	r.mu.Unlock()

	if r.fails[node.Name] {
		return &job.Result{Job: node.Name, Status: job.StatusFailed, Err: errors.New("step failed")}
	}
	return &job.Result{Job: node.Name, Status: job.StatusSucceeded}
}

func (r *recordingRunner) didRun(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.ran {
		if n == name {
			return true
		}
	}
	return false
}

// pipelineGraph is the canonical three-job shape: two publishers fanning in
// on one verification job.
func pipelineGraph(t *testing.T) *dag.Graph {
	return buildGraph(t,
		&config.Job{Name: "test"},
		&config.Job{Name: "artifact", Needs: []string{"test"}},
		&config.Job{Name: "container", Needs: []string{"test"}},
	)
}

func TestRun_AllJobsSucceed(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	result := New(pipelineGraph(t), runner, 4).Run(context.Background())

	assert.True(t, result.Succeeded)
	require.Len(t, result.Jobs, 3)
	for _, jr := range result.Jobs {
		assert.Equal(t, job.StatusSucceeded, jr.Status)
	}
	assert.True(t, runner.didRun("artifact"))
	assert.True(t, runner.didRun("container"))
}

func TestRun_FailedPrerequisiteSkipsAllDependents(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{fails: map[string]bool{"test": true}}
	result := New(pipelineGraph(t), runner, 4).Run(context.Background())

	assert.False(t, result.Succeeded)
	assert.Equal(t, job.StatusFailed, result.Job("test").Status)
	assert.Equal(t, job.StatusSkipped, result.Job("artifact").Status)
	assert.Equal(t, job.StatusSkipped, result.Job("container").Status)

	assert.False(t, runner.didRun("artifact"))
	assert.False(t, runner.didRun("container"))

	var skipErr *gate.SkipError
	require.ErrorAs(t, result.Job("artifact").Err, &skipErr)
	assert.Equal(t, "test", skipErr.Upstream)
	assert.Equal(t, job.StatusFailed, skipErr.UpstreamStatus)
}

func TestRun_SiblingFailureIsIndependent(t *testing.T) {
	t.Parallel()

	// The artifact publisher fails; its container sibling still runs and
	// succeeds, and the aggregate is failed.
	runner := &recordingRunner{fails: map[string]bool{"artifact": true}}
	result := New(pipelineGraph(t), runner, 4).Run(context.Background())

	assert.False(t, result.Succeeded)
	assert.Equal(t, job.StatusSucceeded, result.Job("test").Status)
	assert.Equal(t, job.StatusFailed, result.Job("artifact").Status)
	assert.Equal(t, job.StatusSucceeded, result.Job("container").Status)
	assert.True(t, runner.didRun("container"))
}

func TestRun_SkipPropagatesTransitively(t *testing.T) {
	t.Parallel()

	g := buildGraph(t,
		&config.Job{Name: "a"},
		&config.Job{Name: "b", Needs: []string{"a"}},
		&config.Job{Name: "c", Needs: []string{"b"}},
		&config.Job{Name: "d", Needs: []string{"c"}},
	)
	runner := &recordingRunner{fails: map[string]bool{"a": true}}
	result := New(g, runner, 2).Run(context.Background())

	assert.False(t, result.Succeeded)
	assert.Equal(t, job.StatusFailed, result.Job("a").Status)
	for _, name := range []string{"b", "c", "d"} {
		assert.Equal(t, job.StatusSkipped, result.Job(name).Status, name)
		assert.False(t, runner.didRun(name), name)
	}

	// The skip chain blames the nearest skipped prerequisite, not the
	// original failure.
	var skipErr *gate.SkipError
	require.ErrorAs(t, result.Job("c").Err, &skipErr)
	assert.Equal(t, "b", skipErr.Upstream)
	assert.Equal(t, job.StatusSkipped, skipErr.UpstreamStatus)
}

func TestRun_DiamondJoinWaitsForBothBranches(t *testing.T) {
	t.Parallel()

	g := buildGraph(t,
		&config.Job{Name: "root"},
		&config.Job{Name: "left", Needs: []string{"root"}},
		&config.Job{Name: "right", Needs: []string{"root"}},
		&config.Job{Name: "join", Needs: []string{"left", "right"}},
	)
	runner := &recordingRunner{delay: 10 * time.Millisecond}
	result := New(g, runner, 4).Run(context.Background())

	assert.True(t, result.Succeeded)
	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, "join", runner.ran[len(runner.ran)-1])
}

func TestRun_JoinSkipsWhenOneBranchFails(t *testing.T) {
	t.Parallel()

	g := buildGraph(t,
		&config.Job{Name: "root"},
		&config.Job{Name: "left", Needs: []string{"root"}},
		&config.Job{Name: "right", Needs: []string{"root"}},
		&config.Job{Name: "join", Needs: []string{"left", "right"}},
	)
	runner := &recordingRunner{fails: map[string]bool{"left": true}}
	result := New(g, runner, 4).Run(context.Background())

	assert.False(t, result.Succeeded)
	assert.Equal(t, job.StatusFailed, result.Job("left").Status)
	assert.Equal(t, job.StatusSucceeded, result.Job("right").Status)
	assert.Equal(t, job.StatusSkipped, result.Job("join").Status)
	assert.False(t, runner.didRun("join"))
}

func TestRun_CancellationSkipsUnstartedJobs(t *testing.T) {
	t.Parallel()

	g := buildGraph(t,
		&config.Job{Name: "a"},
		&config.Job{Name: "b", Needs: []string{"a"}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	runner := JobRunnerFunc(func(ctx context.Context, node *dag.Node) *job.Result {
		// Cancel while the first job is mid-flight; its dependent must
		// resolve as skipped without running.
		cancel()
		return &job.Result{Job: node.Name, Status: job.StatusSucceeded}
	})

	result := New(g, runner, 1).Run(ctx)

	assert.False(t, result.Succeeded)
	assert.Equal(t, job.StatusSucceeded, result.Job("a").Status)
	assert.Equal(t, job.StatusSkipped, result.Job("b").Status)

	var skipErr *gate.SkipError
	require.ErrorAs(t, result.Job("b").Err, &skipErr)
	assert.Empty(t, skipErr.Upstream)
}

func TestRun_SingleWorkerStillCompletesWideGraphs(t *testing.T) {
	t.Parallel()

	g := buildGraph(t,
		&config.Job{Name: "a"},
		&config.Job{Name: "b"},
		&config.Job{Name: "c"},
		&config.Job{Name: "d", Needs: []string{"a", "b", "c"}},
	)
	runner := &recordingRunner{}
	result := New(g, runner, 1).Run(context.Background())

	assert.True(t, result.Succeeded)
	require.Len(t, result.Jobs, 4)
}
