// Package image implements the container publishing steps. image_build
// packs a context directory into a gzipped layer archive; image_push
// uploads that layer as a single-layer image and moves the requested tag.
package image

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/specialistvlad/pipewright/internal/ctxlog"
	"github.com/specialistvlad/pipewright/internal/registry"
	"github.com/specialistvlad/pipewright/internal/stepctx"
)

// layerValueKey is the job-context scratch key carrying the built layer's
// path from the build step to the push step.
const layerValueKey = "image-layer"

// Module implements the registry.Module interface for this package.
type Module struct{}

// BuildInput defines the arguments for the image_build step. Context is the
// directory to pack, relative to the working directory.
type BuildInput struct {
	Context string `hcl:"context,optional"`
}

// PushInput defines the arguments for the image_push step. Reference is the
// full image reference including the tag, e.g. "registry.example.com/app:latest".
type PushInput struct {
	Reference string `hcl:"reference"`
}

// RunBuild is the handler for the 'image_build' step kind.
func RunBuild(ctx context.Context, sc *stepctx.Context, input any) (string, error) {
	in := input.(*BuildInput)
	logger := ctxlog.FromContext(ctx).With("job", sc.Job)

	contextDir := sc.WorkDir
	if in.Context != "" {
		contextDir = filepath.Join(sc.WorkDir, in.Context)
	}

	layerPath := filepath.Join(sc.WorkDir, ".pipewright-layer.tar.gz")
	if err := packLayer(contextDir, layerPath); err != nil {
		return "", fmt.Errorf("packing image layer: %w", err)
	}

	sc.SetValue(layerValueKey, layerPath)
	logger.Info("Image layer built.", "context", contextDir)
	return "built layer from " + contextDir, nil
}

// RunPush is the handler for the 'image_push' step kind.
func RunPush(ctx context.Context, sc *stepctx.Context, input any) (string, error) {
	in := input.(*PushInput)
	logger := ctxlog.FromContext(ctx).With("job", sc.Job)

	if sc.Images == nil {
		return "", fmt.Errorf("no image registry configured")
	}

	layerPath, ok := sc.Value(layerValueKey)
	if !ok {
		return "", fmt.Errorf("no image layer built; run an image_build step first")
	}

	f, err := os.Open(layerPath)
	if err != nil {
		return "", fmt.Errorf("opening image layer: %w", err)
	}
	defer f.Close()

	var username, token string
	if cred, ok := sc.Credential(); ok {
		username, token = cred.Username, cred.Token
	}

	logger.Info("Pushing image.", "reference", in.Reference)
	dgst, err := sc.Images.Push(ctx, in.Reference, f, username, token)
	if err != nil {
		return "", err
	}
	logger.Info("Image pushed.", "reference", in.Reference, "digest", dgst)
	return "pushed " + in.Reference + "@" + dgst, nil
}

// packLayer writes the context directory as a gzipped tar archive. The
// archive holds regular files and directories only, with paths relative to
// the context root.
func packLayer(contextDir, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	gzw := gzip.NewWriter(out)
	tw := tar.NewWriter(gzw)

	err = filepath.WalkDir(contextDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(contextDir, path)
		if err != nil {
			return err
		}
		if rel == "." || rel == filepath.Base(dest) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !d.IsDir() && !info.Mode().IsRegular() {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	if err := gzw.Close(); err != nil {
		return err
	}
	return out.Close()
}

// Register registers both handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("image_build", &registry.RegisteredStep{
		NewInput: func() any { return new(BuildInput) },
		Fn:       RunBuild,
	})
	r.RegisterStep("image_push", &registry.RegisteredStep{
		NewInput: func() any { return new(PushInput) },
		Fn:       RunPush,
	})
}
