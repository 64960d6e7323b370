// Package cache implements the restore-or-seed-cache step. The restore
// happens when the step runs; the matching save is queued as a deferred
// hook that fires at job end, only if the whole job succeeded.
package cache

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/pipewright/internal/cachestore"
	"github.com/specialistvlad/pipewright/internal/ctxlog"
	"github.com/specialistvlad/pipewright/internal/registry"
	"github.com/specialistvlad/pipewright/internal/stepctx"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the cache step. Prefix namespaces the
// derived key by job class so that, for example, a test build's cache can
// never contaminate a release build sharing the same lock file.
type Input struct {
	Prefix   string   `hcl:"prefix"`
	LockFile string   `hcl:"lock_file"`
	Paths    []string `hcl:"paths"`
}

// Run is the handler for the 'cache' step kind.
func Run(ctx context.Context, sc *stepctx.Context, input any) (string, error) {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx).With("job", sc.Job)

	if sc.Cache == nil {
		logger.Warn("No cache store configured, step is a no-op.")
		return "cache disabled", nil
	}

	key, err := cachestore.KeyFromLockFile(in.Prefix, sc.OS, sc.Toolchain(), filepath.Join(sc.WorkDir, in.LockFile))
	if err != nil {
		return "", err
	}

	hit, err := sc.Cache.Restore(ctx, key, sc.WorkDir)
	if err != nil {
		return "", fmt.Errorf("restoring cache: %w", err)
	}

	paths := in.Paths
	sc.Defer("cache-save", func(ctx context.Context) error {
		return sc.Cache.Save(ctx, key, sc.WorkDir, paths)
	})

	if hit {
		return "restored " + key.String(), nil
	}
	return "cold start " + key.String(), nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("cache", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       Run,
	})
}
