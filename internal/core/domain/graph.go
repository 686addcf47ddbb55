// Package domain contains the type model, declarations and binding graph of the resolution engine.
package domain

import (
	"iter"
	"strings"

	"go.trai.ch/zerr"
)

// ModuleGraph represents the dependency graph of the modules linked into a unit.
type ModuleGraph struct {
	modules map[InternedString]Module
	// insertion keeps the declaration order for deterministic traversal.
	insertion []InternedString
	order     []InternedString
}

// NewModuleGraph creates a new empty ModuleGraph.
func NewModuleGraph() *ModuleGraph {
	return &ModuleGraph{
		modules: make(map[InternedString]Module),
	}
}

// AddModule adds a module to the graph.
// It returns an error if a module with the same name already exists.
func (g *ModuleGraph) AddModule(m Module) error {
	name := NewInternedString(m.Name)
	if _, exists := g.modules[name]; exists {
		return zerr.With(ErrModuleAlreadyExists, "module", m.Name)
	}
	g.modules[name] = m
	g.insertion = append(g.insertion, name)
	return nil
}

// Module returns the module with the given name.
func (g *ModuleGraph) Module(name string) (Module, bool) {
	m, ok := g.modules[NewInternedString(name)]
	return m, ok
}

// Validate checks for missing modules and cycles using a topological sort.
// Dependencies come before dependents; ties keep declaration order.
func (g *ModuleGraph) Validate() error {
	g.order = make([]InternedString, 0, len(g.modules))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		for _, req := range g.modules[u].Requires {
			dep := NewInternedString(req.Module)
			if _, exists := g.modules[dep]; !exists {
				return zerr.With(zerr.With(ErrMissingModule, "module", u.String()), "dependency", req.Module)
			}
			if visited[dep] == 1 {
				return buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.order = append(g.order, u)
		return nil
	}

	for _, name := range g.insertion {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}

	return nil
}

func buildCycleError(path []InternedString, dep InternedString) error {
	start := 0
	for i, node := range path {
		if node == dep {
			start = i
			break
		}
	}
	parts := make([]string, 0, len(path)-start+1)
	for _, node := range path[start:] {
		parts = append(parts, node.String())
	}
	parts = append(parts, dep.String())
	return zerr.With(ErrCycleDetected, "cycle", strings.Join(parts, " -> "))
}

// Walk returns an iterator that yields modules in dependency order.
// It assumes Validate() has been called and returned nil.
func (g *ModuleGraph) Walk() iter.Seq[Module] {
	return func(yield func(Module) bool) {
		for _, name := range g.order {
			if !yield(g.modules[name]) {
				return
			}
		}
	}
}
