// Package toolchain implements the install-toolchain step. It records the
// toolchain version identity on the job context, where the cache step picks
// it up as a key component, and optionally runs an installer command.
package toolchain

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

// Input defines the arguments for the toolchain step. Override mirrors the
// hosted-runner notion of making this version the default for subsequent
// steps; with a single toolchain per job it is informational.
type Input struct {
	Version   string `hcl:"version"`
	Override  bool   `hcl:"override,optional"`
	Installer string `hcl:"installer,optional"`
}

// Run is the handler for the 'toolchain' step kind.
func Run(ctx context.Context, sc *stepctx.Context, input any) (string, error) {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx).With("job", sc.Job)

	sc.SetToolchain(in.Version)
	logger.Info("Toolchain selected.", "version", in.Version, "override", in.Override)

	if in.Installer == "" {
		return "toolchain " + in.Version, nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", in.Installer)
	cmd.Dir = sc.WorkDir
	cmd.Env = sc.Env

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("installing toolchain %s: %w", in.Version, err)
	}
	return out.String(), nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("toolchain", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       Run,
	})
}
