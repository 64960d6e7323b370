package secrets

import (
	"context"
	"fmt"
	"os"
)

// EnvResolver resolves secret references against the process environment,
// the injection surface used by hosted runners.
type EnvResolver struct{}

// Env creates a new environment-backed resolver.
func Env() *EnvResolver {
	return &EnvResolver{}
}

// Resolve implements Resolver.
func (r *EnvResolver) Resolve(_ context.Context, ref string) (string, error) {
	value, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("resolving %q from environment: %w", ref, ErrNotFound)
	}
	return value, nil
}

// StaticResolver resolves secret references from a fixed map. It exists for
// tests and local experiments.
type StaticResolver map[string]string

// Static creates a resolver over the given values.
func Static(values map[string]string) StaticResolver {
	return StaticResolver(values)
}

// Resolve implements Resolver.
func (r StaticResolver) Resolve(_ context.Context, ref string) (string, error) {
	value, ok := r[ref]
	if !ok {
		return "", fmt.Errorf("resolving %q: %w", ref, ErrNotFound)
	}
	return value, nil
}
