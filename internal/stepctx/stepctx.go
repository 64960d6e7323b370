// Package stepctx carries the execution context handed to every step of one
// job run: the job's isolated working directory plus references to the
// shared external services (cache store, artifact sink, image pusher,
// secret resolver). Jobs never share mutable memory; the only state that
// crosses a job boundary travels through these services.
package stepctx

import (
	"context"
	"sync"

	"github.com/specialistvlad/pipewright/internal/artifact"
	"github.com/specialistvlad/pipewright/internal/cachestore"
	"github.com/specialistvlad/pipewright/internal/ocipush"
	"github.com/specialistvlad/pipewright/internal/secrets"
)

// DeferredFunc is a hook queued by a step and executed once at job end,
// only when every step of the job succeeded. The cache save uses this.
type DeferredFunc struct {
	// Name identifies the hook in logs, e.g. "cache-save".
	Name string
	// Fn performs the deferred work.
	Fn func(ctx context.Context) error
}

// Credential is a registry credential resolved by an authenticate step for
// use by a later push step within the same job. The token is held in memory
// only and must never be logged.
type Credential struct {
	Username string
	Token    string
}

// Context is the per-job execution context. One fresh Context is created
// for every admitted job; the service references it carries are shared
// across jobs by design, everything else is job-private.
type Context struct {
	// Job is the owning job's name.
	Job string
	// WorkDir is the job's isolated working directory.
	WorkDir string
	// OS identifies the execution environment's operating system, used as
	// a cache key component.
	OS string
	// Env is the base process environment for steps that spawn commands.
	Env []string

	// Cache is the shared build cache store; nil when caching is not
	// configured.
	Cache cachestore.Store
	// Artifacts is the artifact sink; nil when publishing is not
	// configured.
	Artifacts artifact.Sink
	// Images pushes container images; nil when no registry is configured.
	Images ocipush.ImagePusher
	// Secrets resolves secret references at run time.
	Secrets secrets.Resolver

	mu        sync.Mutex
	toolchain string
	cred      *Credential
	values    map[string]string
	deferred  []DeferredFunc
}

// SetToolchain records the toolchain identity installed for this job. It
// participates in cache key derivation.
func (c *Context) SetToolchain(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolchain = id
}

// Toolchain returns the recorded toolchain identity, or "system" when no
// install step has run.
func (c *Context) Toolchain() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.toolchain == "" {
		return "system"
	}
	return c.toolchain
}

// SetCredential stores the registry credential for later steps of this job.
func (c *Context) SetCredential(cred Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cred = &cred
}

// Credential returns the stored registry credential, if any.
func (c *Context) Credential() (Credential, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cred == nil {
		return Credential{}, false
	}
	return *c.cred, true
}

// SetValue stores a scratch value for later steps of this job, e.g. the
// path of a built image layer consumed by the push step.
func (c *Context) SetValue(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string]string)
	}
	c.values[key] = value
}

// Value returns a scratch value stored by an earlier step.
func (c *Context) Value(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

// Defer queues a hook to run at job end if the job succeeds. Hooks run in
// the order they were queued.
func (c *Context) Defer(name string, fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deferred = append(c.deferred, DeferredFunc{Name: name, Fn: fn})
}

// Deferred returns the queued hooks in order.
func (c *Context) Deferred() []DeferredFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]DeferredFunc, len(c.deferred))
	copy(out, c.deferred)
	return out
}
