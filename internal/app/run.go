package app

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/specialistvlad/pipewright/internal/artifact"
	"github.com/specialistvlad/pipewright/internal/cachestore"
	"github.com/specialistvlad/pipewright/internal/ctxlog"
	"github.com/specialistvlad/pipewright/internal/dag"
	"github.com/specialistvlad/pipewright/internal/job"
	"github.com/specialistvlad/pipewright/internal/ocipush"
	"github.com/specialistvlad/pipewright/internal/scheduler"
	"github.com/specialistvlad/pipewright/internal/stepctx"
)

// services bundles the shared external state jobs communicate through.
type services struct {
	cache     cachestore.Store
	artifacts artifact.Sink
	images    ocipush.ImagePusher
}

// buildServices constructs the cache store, artifact sink, and image pusher
// from the app configuration. Unconfigured services stay nil and the steps
// that need them fail with a clear error.
func (a *App) buildServices(ctx context.Context, appConfig *Config) (*services, error) {
	svc := &services{}

	if appConfig.CacheDir != "" {
		store, err := cachestore.NewFSStore(appConfig.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("opening cache store: %w", err)
		}
		svc.cache = store
	}

	switch {
	case appConfig.ArtifactBucket != "":
		sink, err := artifact.NewS3Sink(ctx, appConfig.ArtifactBucket, appConfig.ArtifactPrefix)
		if err != nil {
			return nil, fmt.Errorf("opening artifact sink: %w", err)
		}
		svc.artifacts = sink
	case appConfig.ArtifactDir != "":
		sink, err := artifact.NewFSSink(appConfig.ArtifactDir)
		if err != nil {
			return nil, fmt.Errorf("opening artifact sink: %w", err)
		}
		svc.artifacts = sink
	}

	pusher := ocipush.New()
	pusher.PlainHTTP = appConfig.RegistryPlainHTTP
	svc.images = pusher

	return svc, nil
}

// RunOnce executes the pipeline one time and returns an error when the run
// failed. Used by the CLI's one-shot mode; serve mode calls runPipeline per
// accepted push.
func (a *App) RunOnce(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	svc, err := a.buildServices(ctx, appConfig)
	if err != nil {
		return err
	}

	result := a.runPipeline(ctx, appConfig, svc)
	if !result.Succeeded {
		return fmt.Errorf("pipeline run failed")
	}
	return nil
}

// runPipeline drives one complete run over the prebuilt graph. Each run
// gets fresh per-run scheduler state; the graph itself is immutable and
// shared across runs.
func (a *App) runPipeline(ctx context.Context, appConfig *Config, svc *services) *scheduler.Result {
	runner := scheduler.JobRunnerFunc(func(ctx context.Context, node *dag.Node) *job.Result {
		return a.runJob(ctx, node, svc)
	})

	sched := scheduler.New(a.graph, runner, workerCount(appConfig))
	return sched.Run(ctx)
}

// runJob executes one admitted job in a fresh working directory.
func (a *App) runJob(ctx context.Context, node *dag.Node, svc *services) *job.Result {
	logger := ctxlog.FromContext(ctx)

	workDir, err := os.MkdirTemp("", "pipewright-"+node.Name+"-*")
	if err != nil {
		return &job.Result{
			Job:    node.Name,
			Status: job.StatusFailed,
			Err:    fmt.Errorf("creating working directory: %w", err),
		}
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("Failed to clean working directory.", "job", node.Name, "dir", workDir, "error", err)
		}
	}()

	sc := &stepctx.Context{
		Job:       node.Name,
		WorkDir:   workDir,
		OS:        runtime.GOOS,
		Env:       os.Environ(),
		Cache:     svc.cache,
		Artifacts: svc.artifacts,
		Images:    svc.images,
		Secrets:   a.secrets,
	}

	return a.executor.Execute(ctx, node.Job, sc)
}
