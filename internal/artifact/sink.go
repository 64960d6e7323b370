// Package artifact implements the binary artifact sink: a named,
// versionless object store where each successful run's upload supersedes the
// previous one. Overwrite is the contract, not an accident; the external
// store owns retention.
package artifact

import (
	"context"
	"io"
)

// Sink accepts built artifacts for publication.
type Sink interface {
	// Upload stores the artifact under name, replacing any prior object of
	// the same name. The operation is idempotent per run.
	Upload(ctx context.Context, name string, r io.Reader) error
}
