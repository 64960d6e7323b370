// Package yamlcfg is the YAML implementation of the config.Loader interface.
//
// The accepted shape mirrors the hosted-CI workflow format the pipeline
// definition originally shipped in:
//
//	on:
//	  push:
//	    branch: master
//	jobs:
//	  test:
//	    steps:
//	      - uses: checkout
//	      - uses: run
//	        with: { command: "cargo test" }
//	  github_artifact:
//	    needs: [test]
//	    steps: [...]
//
// Both loaders produce the same format-agnostic model, so the engine never
// knows which format a pipeline was written in.
package yamlcfg

import (
	"context"
	"fmt"
	"os"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/pipewright/internal/config"
	"github.com/specialistvlad/pipewright/internal/ctxlog"
)

// Loader is the YAML-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new YAML pipeline definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

type fileRoot struct {
	On   *onSpec   `yaml:"on"`
	Jobs yaml.Node `yaml:"jobs"`
}

type onSpec struct {
	Push *pushSpec `yaml:"push"`
}

type pushSpec struct {
	Branch   string   `yaml:"branch"`
	Branches []string `yaml:"branches"`
}

type jobSpec struct {
	Needs stringList  `yaml:"needs"`
	Steps []*stepSpec `yaml:"steps"`
}

type stepSpec struct {
	Uses string         `yaml:"uses"`
	With map[string]any `yaml:"with"`
}

// stringList accepts either a scalar or a sequence of strings.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = stringList{s}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := node.Decode(&ss); err != nil {
			return err
		}
		*l = ss
		return nil
	default:
		return fmt.Errorf("needs must be a string or list of strings")
	}
}

// Load parses a single YAML definition file into the format-agnostic model.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var root fileRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	model := &config.Model{}
	if root.On != nil && root.On.Push != nil {
		branch, err := singleBranch(root.On.Push)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		model.Trigger = &config.Trigger{Branch: branch}
	}

	jobs, err := translateJobs(&root.Jobs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	model.Jobs = jobs

	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("YAML loading complete.", "jobs", len(model.Jobs))
	return model, nil
}

// singleBranch extracts the one trigger branch from either accepted spelling.
func singleBranch(p *pushSpec) (string, error) {
	switch {
	case p.Branch != "" && len(p.Branches) > 0:
		return "", fmt.Errorf("push trigger sets both branch and branches")
	case p.Branch != "":
		return p.Branch, nil
	case len(p.Branches) == 1:
		return p.Branches[0], nil
	case len(p.Branches) > 1:
		return "", fmt.Errorf("push trigger names %d branches, exactly one is supported", len(p.Branches))
	default:
		return "", fmt.Errorf("push trigger names no branch")
	}
}

// translateJobs walks the jobs mapping node directly so that declaration
// order survives decoding; a plain map would lose it.
func translateJobs(node *yaml.Node) ([]*config.Job, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("jobs must be a mapping")
	}

	var jobs []*config.Job
	for i := 0; i+1 < len(node.Content); i += 2 {
		nameNode, specNode := node.Content[i], node.Content[i+1]

		var spec jobSpec
		if err := specNode.Decode(&spec); err != nil {
			return nil, fmt.Errorf("job %q: %w", nameNode.Value, err)
		}

		j := &config.Job{Name: nameNode.Value, Needs: spec.Needs}
		for _, s := range spec.Steps {
			if s.Uses == "" {
				return nil, fmt.Errorf("job %q: step without uses", j.Name)
			}
			args, err := withToArgs(s.With)
			if err != nil {
				return nil, fmt.Errorf("job %q step %q: %w", j.Name, s.Uses, err)
			}
			j.Steps = append(j.Steps, &config.Step{Kind: s.Uses, Args: args})
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// withToArgs converts a step's `with` mapping into cty values.
func withToArgs(with map[string]any) (map[string]cty.Value, error) {
	if len(with) == 0 {
		return map[string]cty.Value{}, nil
	}
	args := make(map[string]cty.Value, len(with))
	for name, raw := range with {
		val, err := toCty(raw)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		args[name] = val
	}
	return args, nil
}

// toCty maps the YAML scalar and collection types onto cty values.
func toCty(raw any) (cty.Value, error) {
	switch v := raw.(type) {
	case string:
		return cty.StringVal(v), nil
	case bool:
		return cty.BoolVal(v), nil
	case int:
		return cty.NumberIntVal(int64(v)), nil
	case int64:
		return cty.NumberIntVal(v), nil
	case float64:
		return cty.NumberFloatVal(v), nil
	case []any:
		if len(v) == 0 {
			return cty.ListValEmpty(cty.String), nil
		}
		elems := make([]cty.Value, 0, len(v))
		for _, e := range v {
			ev, err := toCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, ev)
		}
		return cty.ListVal(elems), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported value type %T", raw)
	}
}
