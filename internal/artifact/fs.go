package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/specialistvlad/pipewright/internal/ctxlog"
)

// FSSink publishes artifacts into a local directory. It backs local and
// single-machine runs where no object store is configured, with the same
// overwrite semantics as the S3 sink.
type FSSink struct {
	dir string
}

// NewFSSink creates a sink rooted at dir, creating it if needed.
func NewFSSink(dir string) (*FSSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}
	return &FSSink{dir: dir}, nil
}

// Upload implements Sink.
func (s *FSSink) Upload(ctx context.Context, name string, r io.Reader) error {
	dest := filepath.Join(s.dir, filepath.Base(name))
	ctxlog.FromContext(ctx).Info("Storing artifact.", "path", dest)

	tmp, err := os.CreateTemp(s.dir, ".uploading-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
