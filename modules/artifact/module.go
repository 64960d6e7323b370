// Package artifact implements the publish-artifact step: it uploads a file
// produced by an earlier build step to the configured artifact sink under a
// stable name. Re-publishing the same name overwrites the previous object.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/pipewright/internal/ctxlog"
	"github.com/specialistvlad/pipewright/internal/registry"
	"github.com/specialistvlad/pipewright/internal/stepctx"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the artifact_upload step. Path is
// relative to the job's working directory; Name is the object name in the
// sink and defaults to the file's base name.
type Input struct {
	Path string `hcl:"path"`
	Name string `hcl:"name,optional"`
}

// Run is the handler for the 'artifact_upload' step kind.
func Run(ctx context.Context, sc *stepctx.Context, input any) (string, error) {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx).With("job", sc.Job)

	if sc.Artifacts == nil {
		return "", fmt.Errorf("no artifact sink configured")
	}

	name := in.Name
	if name == "" {
		name = filepath.Base(in.Path)
	}

	f, err := os.Open(filepath.Join(sc.WorkDir, in.Path))
	if err != nil {
		return "", fmt.Errorf("opening artifact %s: %w", in.Path, err)
	}
	defer f.Close()

	logger.Info("Uploading artifact.", "path", in.Path, "name", name)
	if err := sc.Artifacts.Upload(ctx, name, f); err != nil {
		return "", fmt.Errorf("uploading artifact %s: %w", name, err)
	}
	return "uploaded " + name, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("artifact_upload", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       Run,
	})
}
