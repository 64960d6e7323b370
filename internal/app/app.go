// Package app wires the engine together: it loads a pipeline definition,
// registers the step handlers, builds the job graph, and runs pipelines
// either once or behind the push webhook.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/specialistvlad/pipewright/internal/config"
	"github.com/specialistvlad/pipewright/internal/ctxlog"
	"github.com/specialistvlad/pipewright/internal/dag"
	"github.com/specialistvlad/pipewright/internal/executor"
	"github.com/specialistvlad/pipewright/internal/registry"
	"github.com/specialistvlad/pipewright/internal/secrets"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// PipelinePath is the pipeline definition file or directory.
	PipelinePath string
	// Format selects the definition dialect, "hcl" or "yaml".
	Format string
	// ServeAddr, when non-empty, runs the push webhook server instead of a
	// one-shot run.
	ServeAddr string

	LogFormat   string
	LogLevel    string
	WorkerCount int

	// CacheDir enables the build cache when non-empty.
	CacheDir string
	// ArtifactBucket enables the S3 artifact sink.
	ArtifactBucket string
	// ArtifactPrefix optionally prefixes every uploaded object key.
	ArtifactPrefix string
	// ArtifactDir enables the local filesystem sink instead of S3.
	ArtifactDir string
	// RegistryPlainHTTP selects HTTP for the image registry, for local
	// registries in tests.
	RegistryPlainHTTP bool
}

// App encapsulates the engine's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *config.Model
	graph    *dag.Graph
	executor *executor.Executor
	secrets  secrets.Resolver
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry,
// or an error when the definition does not load or validate.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cfgModel, err := loader.Load(ctx, appConfig.PipelinePath)
	if err != nil {
		return nil, fmt.Errorf("loading pipeline definition: %w", err)
	}
	logger.Debug("Pipeline definition loaded into unified model.",
		"jobs", len(cfgModel.Jobs), "branch", cfgModel.Trigger.Branch)

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All step modules registered.", "count", len(modules))

	if err := reg.Validate(cfgModel); err != nil {
		return nil, fmt.Errorf("validating pipeline definition: %w", err)
	}
	logger.Debug("Registry validation passed.")

	graph, err := dag.Build(cfgModel)
	if err != nil {
		return nil, fmt.Errorf("building job graph: %w", err)
	}
	logger.Debug("Job graph built.", "node_count", graph.Len())

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfgModel,
		graph:    graph,
		executor: executor.New(reg),
		secrets:  secrets.Env(),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded pipeline model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.config
}

// workerCount resolves the configured pool size, defaulting to one worker
// per CPU.
func workerCount(appConfig *Config) int {
	if appConfig.WorkerCount > 0 {
		return appConfig.WorkerCount
	}
	return runtime.NumCPU()
}
