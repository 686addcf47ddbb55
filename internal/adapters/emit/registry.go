// Package emit renders resolved binding graphs into generated output.
package emit

import (
	"maps"
	"slices"
	"sync"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// FormatJSON dumps the binding graphs as JSON.
	FormatJSON = "json"
	// FormatGo renders Go factory source.
	FormatGo = "gosrc"
)

// Registry maps output formats to emitters.
type Registry struct {
	mu       sync.RWMutex
	emitters map[string]ports.Emitter
}

// NewRegistry creates a Registry with the built-in emitters.
func NewRegistry() *Registry {
	r := &Registry{emitters: make(map[string]ports.Emitter)}
	r.Register(FormatJSON, NewJSONEmitter())
	r.Register(FormatGo, NewGoEmitter())
	return r
}

// Register adds or replaces the emitter for format.
func (r *Registry) Register(format string, e ports.Emitter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emitters[format] = e
}

// Get returns the emitter for format.
func (r *Registry) Get(format string) (ports.Emitter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.emitters[format]
	if !ok {
		err := zerr.With(domain.ErrUnknownFormat, "format", format)
		return nil, zerr.With(err, "known", slices.Sorted(maps.Keys(r.emitters)))
	}
	return e, nil
}

// Formats lists the registered formats, sorted.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.emitters))
}

// Extension returns the file extension conventionally used for format.
func Extension(format string) string {
	switch format {
	case FormatGo:
		return ".go"
	case FormatJSON:
		return ".json"
	default:
		return "." + format
	}
}

// numberNodes returns the nodes reachable from root in dependency order with their index.
func numberNodes(root *domain.BindingNode) ([]*domain.BindingNode, map[*domain.BindingNode]int) {
	var order []*domain.BindingNode
	ids := make(map[*domain.BindingNode]int)
	if root == nil {
		return nil, ids
	}
	for n := range root.Walk() {
		ids[n] = len(order)
		order = append(order, n)
	}
	return order, ids
}
