// Package run implements the invoke-build step: it hands a command line to
// the shell inside the job's working directory. A non-zero exit fails the
// step, which aborts the rest of the job.
package run

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/specialistvlad/pipewright/internal/ctxlog"
	"github.com/specialistvlad/pipewright/internal/registry"
	"github.com/specialistvlad/pipewright/internal/stepctx"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the run step.
type Input struct {
	Command string `hcl:"command"`
}

// Run is the handler for the 'run' step kind.
func Run(ctx context.Context, sc *stepctx.Context, input any) (string, error) {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx).With("job", sc.Job)
	logger.Info("Running command.", "command", in.Command)

	cmd := exec.CommandContext(ctx, "sh", "-c", in.Command)
	cmd.Dir = sc.WorkDir
	cmd.Env = sc.Env

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("command %q: %w", in.Command, err)
	}
	return out.String(), nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("run", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       Run,
	})
}
