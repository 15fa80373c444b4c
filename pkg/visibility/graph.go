package visibility

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-labforms/pkg/model"
)

// Graph is the dependency graph of one field scope (instrument content or a
// record-array fieldset). Nodes are kept in declaration order.
type Graph struct {
	names      []string
	index      map[string]int
	dynamic    []bool
	deps       [][]string
	dependents map[string][]string
	order      []string
}

// NewGraph validates the dependency declarations of fields and returns the
// graph. Every deps entry must name a field of the same scope, the graph
// must be acyclic and edges must point backwards in declaration order.
// Static record-array fieldsets are checked recursively under path.
func NewGraph(fields []model.Field) (*Graph, error) {
	return newGraph(fields, "")
}

func newGraph(fields []model.Field, path string) (*Graph, error) {
	g := &Graph{
		names:      make([]string, len(fields)),
		index:      make(map[string]int, len(fields)),
		dynamic:    make([]bool, len(fields)),
		deps:       make([][]string, len(fields)),
		dependents: make(map[string][]string),
	}

	for idx, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return nil, &DefinitionError{Field: joinPath(path, fmt.Sprintf("#%d", idx)), Reason: "field name is required"}
		}
		if _, exists := g.index[name]; exists {
			return nil, &DefinitionError{Field: joinPath(path, name), Err: ErrDuplicateField}
		}
		g.names[idx] = name
		g.index[name] = idx
		g.dynamic[idx] = field.IsDynamic()
		if field.IsDynamic() && field.Render == nil {
			return nil, &DefinitionError{Field: joinPath(path, name), Reason: "dynamic field has no render function"}
		}
		if !field.IsDynamic() && len(field.Deps) > 0 {
			return nil, &DefinitionError{Field: joinPath(path, name), Reason: "only dynamic fields may declare deps"}
		}
	}

	for idx, field := range fields {
		seen := make(map[string]struct{}, len(field.Deps))
		for _, dep := range field.Deps {
			dep = strings.TrimSpace(dep)
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			if _, ok := g.index[dep]; !ok {
				return nil, &DefinitionError{
					Field:  joinPath(path, g.names[idx]),
					Reason: fmt.Sprintf("depends on %q", dep),
					Err:    ErrUndeclaredDependency,
				}
			}
			g.deps[idx] = append(g.deps[idx], dep)
			g.dependents[dep] = append(g.dependents[dep], g.names[idx])
		}
	}

	order, err := g.topological()
	if err != nil {
		return nil, prefixField(err, path)
	}
	g.order = order

	for idx := range fields {
		for _, dep := range g.deps[idx] {
			if g.index[dep] >= idx {
				return nil, &DefinitionError{
					Field:  joinPath(path, g.names[idx]),
					Reason: fmt.Sprintf("depends on %q declared after it", dep),
					Err:    ErrForwardDependency,
				}
			}
		}
	}

	for _, field := range fields {
		if field.Kind != model.FieldKindRecordArray {
			continue
		}
		if _, err := newGraph(field.Fieldset, joinPath(path, field.Name)); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// topological runs Kahn's algorithm, breaking ties by declaration order.
func (g *Graph) topological() ([]string, error) {
	inDegree := make([]int, len(g.names))
	for idx := range g.names {
		inDegree[idx] = len(g.deps[idx])
	}

	ready := make([]int, 0, len(g.names))
	for idx, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, idx)
		}
	}

	order := make([]string, 0, len(g.names))
	for len(ready) > 0 {
		sort.Ints(ready)
		current := ready[0]
		ready = ready[1:]
		order = append(order, g.names[current])
		for _, dependent := range g.dependents[g.names[current]] {
			didx := g.index[dependent]
			inDegree[didx]--
			if inDegree[didx] == 0 {
				ready = append(ready, didx)
			}
		}
	}

	if len(order) == len(g.names) {
		return order, nil
	}

	cycle := g.findCycle(inDegree)
	return nil, &DefinitionError{
		Field:  cycle[0],
		Reason: strings.Join(cycle, " -> "),
		Err:    ErrCyclicDependency,
	}
}

// findCycle walks dependency edges among the nodes Kahn could not place.
func (g *Graph) findCycle(inDegree []int) []string {
	start := -1
	for idx, degree := range inDegree {
		if degree > 0 {
			start = idx
			break
		}
	}
	if start < 0 {
		return []string{"?"}
	}

	visited := make(map[int]int)
	path := []string{}
	current := start
	for {
		if pos, ok := visited[current]; ok {
			cycle := append([]string(nil), path[pos:]...)
			return append(cycle, g.names[current])
		}
		visited[current] = len(path)
		path = append(path, g.names[current])

		next := -1
		for _, dep := range g.deps[current] {
			if didx := g.index[dep]; inDegree[didx] > 0 {
				next = didx
				break
			}
		}
		if next < 0 {
			return path
		}
		current = next
	}
}

// Order returns the evaluation order. With backward-only edges it equals
// declaration order.
func (g *Graph) Order() []string {
	return append([]string(nil), g.order...)
}

// Deps returns the declared dependencies of name.
func (g *Graph) Deps(name string) []string {
	idx, ok := g.index[name]
	if !ok {
		return nil
	}
	return append([]string(nil), g.deps[idx]...)
}

// Dynamic lists every dynamic field in declaration order.
func (g *Graph) Dynamic() []string {
	var out []string
	for idx, name := range g.names {
		if g.dynamic[idx] {
			out = append(out, name)
		}
	}
	return out
}

// Affected returns the dynamic fields that must be re-resolved after the
// given fields changed, transitively, in declaration order. Dynamic fields
// with no declared deps are always included.
func (g *Graph) Affected(changed ...string) []string {
	marked := make(map[string]struct{})
	queue := append([]string(nil), changed...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dependent := range g.dependents[current] {
			if _, seen := marked[dependent]; seen {
				continue
			}
			marked[dependent] = struct{}{}
			queue = append(queue, dependent)
		}
	}

	out := make([]string, 0, len(marked))
	for idx, name := range g.names {
		if !g.dynamic[idx] {
			continue
		}
		_, hit := marked[name]
		if hit || len(g.deps[idx]) == 0 {
			out = append(out, name)
		}
	}
	return out
}

func prefixField(err error, path string) error {
	if path == "" {
		return err
	}
	if defErr, ok := err.(*DefinitionError); ok {
		clone := *defErr
		clone.Field = joinPath(path, clone.Field)
		return &clone
	}
	return err
}
