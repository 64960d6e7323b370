package image

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/pipewright/internal/stepctx"
)

// fakePusher records the last push.
type fakePusher struct {
	reference string
	layer     []byte
	username  string
	token     string
	err       error
}

func (f *fakePusher) Push(_ context.Context, reference string, layer io.Reader, username, token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(layer)
	if err != nil {
		return "", err
	}
	f.reference, f.layer, f.username, f.token = reference, data, username, token
	return "sha256:deadbeef", nil
}

func writeContext(t *testing.T, files map[string]string) *stepctx.Context {
	t.Helper()
	workDir := t.TempDir()
	for name, contents := range files {
		path := filepath.Join(workDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}
	return &stepctx.Context{Job: "docker_container", WorkDir: workDir}
}

func listLayer(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gzr.Close()

	members := map[string]string{}
	tr := tar.NewReader(gzr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if hdr.Typeflag != tar.TypeReg {
			members[hdr.Name] = ""
			continue
		}
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		members[hdr.Name] = string(data)
	}
	return members
}

func TestRunBuild(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("packs the working directory", func(t *testing.T) {
		t.Parallel()
		sc := writeContext(t, map[string]string{
			"app":        "binary",
			"etc/config": "settings",
		})

		_, err := RunBuild(ctx, sc, &BuildInput{})
		require.NoError(t, err)

		layerPath, ok := sc.Value("image-layer")
		require.True(t, ok)

		members := listLayer(t, layerPath)
		assert.Equal(t, "binary", members["app"])
		assert.Equal(t, "settings", members["etc/config"])
		assert.NotContains(t, members, filepath.Base(layerPath), "the layer must not contain itself")
	})

	t.Run("packs a named context subdirectory", func(t *testing.T) {
		t.Parallel()
		sc := writeContext(t, map[string]string{
			"dist/app": "binary",
			"src/main": "source",
		})

		_, err := RunBuild(ctx, sc, &BuildInput{Context: "dist"})
		require.NoError(t, err)

		layerPath, ok := sc.Value("image-layer")
		require.True(t, ok)

		members := listLayer(t, layerPath)
		assert.Equal(t, "binary", members["app"])
		assert.NotContains(t, members, "src/main")
	})
}

func TestRunPush(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("pushes the built layer with credentials", func(t *testing.T) {
		t.Parallel()
		pusher := &fakePusher{}
		sc := writeContext(t, map[string]string{"app": "binary"})
		sc.Images = pusher
		sc.SetCredential(stepctx.Credential{Username: "ci-bot", Token: "hunter2"})

		_, err := RunBuild(ctx, sc, &BuildInput{})
		require.NoError(t, err)

		out, err := RunPush(ctx, sc, &PushInput{Reference: "registry.example.com/app:latest"})
		require.NoError(t, err)

		assert.Equal(t, "registry.example.com/app:latest", pusher.reference)
		assert.Equal(t, "ci-bot", pusher.username)
		assert.Equal(t, "hunter2", pusher.token)
		assert.NotEmpty(t, pusher.layer)
		assert.Contains(t, out, "sha256:deadbeef")
		assert.NotContains(t, out, "hunter2")
	})

	t.Run("pushes anonymously without a credential", func(t *testing.T) {
		t.Parallel()
		pusher := &fakePusher{}
		sc := writeContext(t, map[string]string{"app": "binary"})
		sc.Images = pusher

		_, err := RunBuild(ctx, sc, &BuildInput{})
		require.NoError(t, err)
		_, err = RunPush(ctx, sc, &PushInput{Reference: "registry.example.com/app:latest"})
		require.NoError(t, err)
		assert.Empty(t, pusher.username)
	})

	t.Run("push without a built layer fails", func(t *testing.T) {
		t.Parallel()
		sc := writeContext(t, nil)
		sc.Images = &fakePusher{}

		_, err := RunPush(ctx, sc, &PushInput{Reference: "registry.example.com/app:latest"})
		assert.ErrorContains(t, err, "no image layer built")
	})

	t.Run("no registry configured fails", func(t *testing.T) {
		t.Parallel()
		sc := writeContext(t, nil)
		_, err := RunPush(ctx, sc, &PushInput{Reference: "registry.example.com/app:latest"})
		assert.ErrorContains(t, err, "no image registry")
	})
}
