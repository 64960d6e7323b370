// Package registryauth implements the authenticate step: it resolves the
// registry token from the secret resolver and stores the credential on the
// job context for a later push step. The token value itself is never
// logged and never written to disk.
package registryauth

import (
	"context"
	"fmt"

	"github.com/specialistvlad/pipewright/internal/ctxlog"
	"github.com/specialistvlad/pipewright/internal/registry"
	"github.com/specialistvlad/pipewright/internal/stepctx"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the registry_auth step. TokenRef names
// the secret holding the token; the pipeline definition never carries the
// token itself.
type Input struct {
	Username string `hcl:"username"`
	TokenRef string `hcl:"token_ref"`
}

// Run is the handler for the 'registry_auth' step kind.
func Run(ctx context.Context, sc *stepctx.Context, input any) (string, error) {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx).With("job", sc.Job)

	if sc.Secrets == nil {
		return "", fmt.Errorf("no secret resolver configured")
	}

	token, err := sc.Secrets.Resolve(ctx, in.TokenRef)
	if err != nil {
		return "", fmt.Errorf("resolving secret %q: %w", in.TokenRef, err)
	}

	sc.SetCredential(stepctx.Credential{Username: in.Username, Token: token})
	logger.Info("Registry credential resolved.", "username", in.Username, "token_ref", in.TokenRef)
	return "authenticated as " + in.Username, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("registry_auth", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       Run,
	})
}
