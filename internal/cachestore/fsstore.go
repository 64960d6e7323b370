package cachestore

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/specialistvlad/pipewright/internal/ctxlog"
)

// FSStore is a filesystem-backed Store. Each entry is a zstd-compressed tar
// archive named after its full key, written temp-then-rename so a crashed
// save never leaves a half-written entry behind.
type FSStore struct {
	dir string
}

// NewFSStore creates a store rooted at dir, creating it if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// entryPath returns the archive path for a key.
func (s *FSStore) entryPath(key Key) string {
	return filepath.Join(s.dir, key.String()+".tar.zst")
}

// Restore implements Store.
func (s *FSStore) Restore(ctx context.Context, key Key, root string) (bool, error) {
	logger := ctxlog.FromContext(ctx).With("cache_key", key.String())

	f, err := os.Open(s.entryPath(key))
	if os.IsNotExist(err) {
		logger.Info("Cache miss, starting cold.")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("opening cache entry: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return false, fmt.Errorf("reading cache entry: %w", err)
	}
	defer zr.Close()

	if err := extractTar(tar.NewReader(zr), root); err != nil {
		return false, fmt.Errorf("extracting cache entry: %w", err)
	}
	logger.Info("Cache restored.")
	return true, nil
}

// Save implements Store.
func (s *FSStore) Save(ctx context.Context, key Key, root string, paths []string) error {
	logger := ctxlog.FromContext(ctx).With("cache_key", key.String())

	tmp, err := os.CreateTemp(s.dir, ".saving-*")
	if err != nil {
		return fmt.Errorf("creating cache temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw, err := zstd.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("compressing cache entry: %w", err)
	}
	tw := tar.NewWriter(zw)

	var archived int
	for _, p := range paths {
		n, err := archivePath(tw, root, p)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("archiving %s: %w", p, err)
		}
		archived += n
	}

	if err := tw.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Rename is the overwrite: last writer wins per key.
	if err := os.Rename(tmp.Name(), s.entryPath(key)); err != nil {
		return fmt.Errorf("publishing cache entry: %w", err)
	}
	logger.Info("Cache saved.", "files", archived)
	return nil
}

// archivePath adds one configured path (file or directory, relative to
// root) to the archive. Missing paths are skipped, not errors.
func archivePath(tw *tar.Writer, root, rel string) (int, error) {
	abs := filepath.Join(root, rel)
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}

	var count int
	err := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(relPath)

		if d.IsDir() {
			return tw.WriteHeader(hdr)
		}
		if !info.Mode().IsRegular() {
			return nil // symlinks and specials are not cached
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

// extractTar unpacks an entry archive into root, rejecting any member that
// would escape it.
func extractTar(tr *tar.Reader, root string) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		name := filepath.FromSlash(hdr.Name)
		if strings.Contains(name, "..") || filepath.IsAbs(name) {
			return fmt.Errorf("cache entry contains unsafe path %q", hdr.Name)
		}
		dest := filepath.Join(root, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, fs.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fs.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		default:
			// other member types are ignored
		}
	}
}
