// Package ocipush publishes container images to an OCI registry. Each
// successful run pushes a single-layer image under a mutable tag (the
// pipeline ships `latest`); the push overwrites whatever the tag pointed at
// before, and registry semantics own anything a failed push left behind.
package ocipush

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"

	"github.com/specialistvlad/pipewright/internal/ctxlog"
)

// artifactType marks manifests produced by this engine.
const artifactType = "application/vnd.pipewright.image.v1"

// ImagePusher is the container sink contract consumed by the image push
// step. Credentials arrive per call; the pusher itself holds none.
type ImagePusher interface {
	// Push uploads the layer as a tagged single-layer image and returns
	// the manifest digest. An empty username pushes anonymously.
	Push(ctx context.Context, reference string, layer io.Reader, username, token string) (string, error)
}

// PushError is the terminal publish failure of a container job: an
// authentication or transport error surfaced by the registry.
type PushError struct {
	Reference string
	Err       error
}

// Error implements the error interface.
func (e *PushError) Error() string {
	return fmt.Sprintf("pushing %s: %v", e.Reference, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PushError) Unwrap() error { return e.Err }

// Pusher is the ORAS-backed ImagePusher implementation.
type Pusher struct {
	// PlainHTTP selects HTTP instead of HTTPS, for local registries.
	PlainHTTP bool
	// Transport overrides the HTTP transport; nil uses the default. A
	// retrying transport can be layered here without engine changes.
	Transport http.RoundTripper
}

// New creates a pusher with default transport settings.
func New() *Pusher {
	return &Pusher{}
}

// Push implements ImagePusher. The upload is the ORAS sequence: push the
// layer blob, pack an OCI 1.1 manifest over it, then tag the manifest.
func (p *Pusher) Push(ctx context.Context, reference string, layer io.Reader, username, token string) (string, error) {
	logger := ctxlog.FromContext(ctx).With("reference", reference)

	repoPath, tag, err := splitReference(reference)
	if err != nil {
		return "", &PushError{Reference: reference, Err: err}
	}

	repo, err := remote.NewRepository(repoPath)
	if err != nil {
		return "", &PushError{Reference: reference, Err: err}
	}
	repo.PlainHTTP = p.PlainHTTP
	repo.Client = p.authClient(repo.Reference.Registry, username, token)

	data, err := io.ReadAll(layer)
	if err != nil {
		return "", &PushError{Reference: reference, Err: fmt.Errorf("reading layer: %w", err)}
	}

	blobDesc, err := oras.PushBytes(ctx, repo, ocispec.MediaTypeImageLayerGzip, data)
	if err != nil {
		return "", &PushError{Reference: reference, Err: fmt.Errorf("push layer: %w", err)}
	}

	packOpts := oras.PackManifestOptions{Layers: []ocispec.Descriptor{blobDesc}}
	manDesc, err := oras.PackManifest(ctx, repo, oras.PackManifestVersion1_1, artifactType, packOpts)
	if err != nil {
		return "", &PushError{Reference: reference, Err: fmt.Errorf("pack manifest: %w", err)}
	}

	if _, err := oras.Tag(ctx, repo, manDesc.Digest.String(), tag); err != nil {
		return "", &PushError{Reference: reference, Err: fmt.Errorf("tag manifest: %w", err)}
	}

	logger.Info("Image pushed.", "tag", tag, "digest", manDesc.Digest.String())
	return manDesc.Digest.String(), nil
}

// authClient builds the registry auth client. Static credentials when
// provided, anonymous otherwise.
func (p *Pusher) authClient(registry, username, token string) *auth.Client {
	client := &auth.Client{
		Client: &http.Client{Transport: p.Transport},
		Cache:  auth.NewCache(),
	}
	if username != "" {
		client.Credential = auth.StaticCredential(registry, auth.Credential{
			Username: username,
			Password: token,
		})
	}
	return client
}

// splitReference splits "host/path:tag" into repository path and tag. The
// tag separator must come after the last path separator, so registries with
// ports still parse.
func splitReference(reference string) (repoPath, tag string, err error) {
	idx := strings.LastIndex(reference, ":")
	if idx < 0 || idx < strings.LastIndex(reference, "/") {
		return "", "", fmt.Errorf("reference %q must include a tag", reference)
	}
	return reference[:idx], reference[idx+1:], nil
}
