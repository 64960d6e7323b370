// Package hclcfg is the HCL implementation of the config.Loader interface.
//
// A pipeline definition consists of one `pipeline` block naming the push
// trigger and any number of `job` blocks, each holding ordered `step` blocks:
//
//	pipeline {
//	  on_push { branch = "master" }
//	}
//
//	job "test" {
//	  step "checkout" {}
//	  step "run" { command = "cargo test" }
//	}
//
//	job "github_artifact" {
//	  needs = ["test"]
//	  ...
//	}
//
// Step arguments are evaluated at load time; only literal values are
// accepted, so a definition cannot smuggle runtime state into the model.
package hclcfg

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/pipewright/internal/config"
	"github.com/specialistvlad/pipewright/internal/ctxlog"
	"github.com/specialistvlad/pipewright/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL pipeline definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot describes all top-level blocks a definition file may carry.
type fileRoot struct {
	Pipeline *pipelineBlock `hcl:"pipeline,block"`
	Jobs     []*jobBlock    `hcl:"job,block"`
}

type pipelineBlock struct {
	OnPush *onPushBlock `hcl:"on_push,block"`
}

type onPushBlock struct {
	Branch string `hcl:"branch"`
}

type jobBlock struct {
	Name  string       `hcl:"name,label"`
	Needs []string     `hcl:"needs,optional"`
	Steps []*stepBlock `hcl:"step,block"`
}

type stepBlock struct {
	Kind string   `hcl:"kind,label"`
	Body hcl.Body `hcl:",remain"`
}

// Load parses the definition at path (a .hcl file or a directory of them)
// into the format-agnostic model. Blocks from multiple files are merged in
// sorted file order.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("discovering definition files: %w", err)
	}
	logger.Debug("Discovered HCL definition files.", "count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("decoding %s: %w", file, diags)
		}

		if root.Pipeline != nil {
			if model.Trigger != nil {
				return nil, fmt.Errorf("%s: duplicate pipeline block", file)
			}
			if root.Pipeline.OnPush == nil {
				return nil, fmt.Errorf("%s: pipeline block missing on_push", file)
			}
			model.Trigger = &config.Trigger{Branch: root.Pipeline.OnPush.Branch}
		}

		for _, jb := range root.Jobs {
			j, err := translateJob(jb)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			model.Jobs = append(model.Jobs, j)
		}
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("HCL loading complete.", "jobs", len(model.Jobs))
	return model, nil
}

// translateJob converts one decoded job block into the model representation.
func translateJob(jb *jobBlock) (*config.Job, error) {
	j := &config.Job{Name: jb.Name, Needs: jb.Needs}
	for _, sb := range jb.Steps {
		args, err := evalStepArgs(sb)
		if err != nil {
			return nil, fmt.Errorf("job %q step %q: %w", jb.Name, sb.Kind, err)
		}
		j.Steps = append(j.Steps, &config.Step{Kind: sb.Kind, Args: args})
	}
	return j, nil
}

// evalStepArgs evaluates every attribute of a step block to a cty value.
// Evaluation uses a nil context, which restricts arguments to literals.
func evalStepArgs(sb *stepBlock) (map[string]cty.Value, error) {
	attrs, diags := sb.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	args := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("argument %q: %w", name, diags)
		}
		args[name] = val
	}
	return args, nil
}
