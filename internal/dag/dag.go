// Package dag builds the job dependency graph for a pipeline run and
// validates that it is acyclic. The graph is immutable after Build, so one
// graph can drive any number of runs; all mutable run state lives in the
// scheduler and the run store.
package dag

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/pipewright/internal/config"
)

// Graph is the directed acyclic graph of a pipeline's jobs. Edges point from
// a prerequisite to its dependents.
type Graph struct {
	// nodes stores all nodes keyed by job name.
	nodes map[string]*Node
	// order preserves job declaration order for deterministic iteration.
	order []string
}

// Node is a single job vertex in the graph.
type Node struct {
	// Name is the job's unique name.
	Name string
	// Job is the job's definition from the pipeline model.
	Job *config.Job
	// Needs holds this node's prerequisites.
	Needs []*Node
	// Dependents holds the nodes that list this node in their needs.
	Dependents []*Node
}

// CyclicDependencyError reports a dependency cycle in a pipeline definition.
type CyclicDependencyError struct {
	// Cycle holds the job names involved, in walk order.
	Cycle []string
}

// Error implements the error interface.
func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic job dependency: %s", strings.Join(e.Cycle, " -> "))
}

// Build constructs the job graph from a validated pipeline model. It returns
// a *CyclicDependencyError if the needs edges form a cycle.
func Build(model *config.Model) (*Graph, error) {
	g := &Graph{nodes: make(map[string]*Node, len(model.Jobs))}

	for _, j := range model.Jobs {
		if _, exists := g.nodes[j.Name]; exists {
			return nil, fmt.Errorf("duplicate job name %q", j.Name)
		}
		g.nodes[j.Name] = &Node{Name: j.Name, Job: j}
		g.order = append(g.order, j.Name)
	}

	for _, node := range g.Nodes() {
		for _, need := range node.Job.Needs {
			dep, ok := g.nodes[need]
			if !ok {
				return nil, fmt.Errorf("job %q needs unknown job %q", node.Name, need)
			}
			node.Needs = append(node.Needs, dep)
			dep.Dependents = append(dep.Dependents, node)
		}
	}

	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

// Node returns the node for the given job name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns all nodes in job declaration order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		nodes = append(nodes, g.nodes[name])
	}
	return nodes
}

// Len returns the number of jobs in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Roots returns the nodes with no prerequisites, in declaration order.
func (g *Graph) Roots() []*Node {
	var roots []*Node
	for _, n := range g.Nodes() {
		if len(n.Needs) == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// detectCycles checks for circular dependencies using depth-first search
// with the classic visiting/visited two-set scheme.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	var stack []string

	var visit func(node *Node) error
	visit = func(node *Node) error {
		visiting[node.Name] = true
		stack = append(stack, node.Name)

		for _, dep := range node.Needs {
			if visiting[dep.Name] {
				return &CyclicDependencyError{Cycle: append(append([]string{}, stack...), dep.Name)}
			}
			if !visited[dep.Name] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		delete(visiting, node.Name)
		visited[node.Name] = true
		return nil
	}

	for _, node := range g.Nodes() {
		if !visited[node.Name] {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}
