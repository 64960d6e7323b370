// Package checkout implements the checkout-source step: it populates the
// job's isolated working directory with the repository contents, either by
// cloning a remote over git or by copying a local tree for one-shot runs.
package checkout

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/specialistvlad/pipewright/internal/ctxlog"
	"github.com/specialistvlad/pipewright/internal/registry"
	"github.com/specialistvlad/pipewright/internal/stepctx"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the checkout step. With a URL the step
// performs a shallow single-branch clone; without one it copies the local
// tree at path into the workspace.
type Input struct {
	URL    string `hcl:"url,optional"`
	Branch string `hcl:"branch,optional"`
	Path   string `hcl:"path,optional"`
}

// Run is the handler for the 'checkout' step kind.
func Run(ctx context.Context, sc *stepctx.Context, input any) (string, error) {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx).With("job", sc.Job)

	if in.URL != "" {
		logger.Info("Cloning repository.", "url", in.URL, "branch", in.Branch)
		opts := &git.CloneOptions{URL: in.URL, Depth: 1, SingleBranch: true}
		if in.Branch != "" {
			opts.ReferenceName = plumbing.NewBranchReferenceName(in.Branch)
		}
		if _, err := git.PlainCloneContext(ctx, sc.WorkDir, false, opts); err != nil {
			return "", fmt.Errorf("cloning %s: %w", in.URL, err)
		}
		return "cloned " + in.URL, nil
	}

	src := in.Path
	if src == "" {
		src = "."
	}
	abs, err := filepath.Abs(src)
	if err != nil {
		return "", err
	}
	logger.Info("Copying local source.", "path", abs)
	if err := copyTree(abs, sc.WorkDir); err != nil {
		return "", fmt.Errorf("copying %s: %w", abs, err)
	}
	return "copied " + abs, nil
}

// copyTree copies a source tree into dest, skipping VCS metadata.
func copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dest string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("checkout", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       Run,
	})
}
