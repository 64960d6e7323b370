// Package secrets resolves secret references at run time. The pipeline
// definition only ever names a secret (e.g. "DOCKER_TOKEN"); the value is
// injected by an external store, resolved just-in-time by the consuming
// step, never logged and never persisted.
package secrets

import (
	"context"
	"fmt"
)

// ErrNotFound is returned when a reference does not resolve to a secret.
var ErrNotFound = fmt.Errorf("secret not found")

// Resolver resolves a secret reference to its value.
type Resolver interface {
	// Resolve returns the secret value for ref, or an error wrapping
	// ErrNotFound when the reference is unknown.
	Resolve(ctx context.Context, ref string) (string, error)
}
