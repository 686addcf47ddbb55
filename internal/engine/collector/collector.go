// Package collector builds the candidate pool and scope tree of a compilation unit.
package collector

import (
	"cmp"
	"fmt"
	"slices"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/zerr"
)

// Collection is the read-only result of collecting one unit.
type Collection struct {
	Pool   *Pool
	Scopes map[string]*domain.ResolutionScope
	// Sites lists the call sites whose requested type is usable, in source order.
	Sites       []domain.CallSite
	Diagnostics []domain.Diagnostic
}

// Scope returns the resolution scope with the given id, or nil for the unit scope.
func (c *Collection) Scope(id string) *domain.ResolutionScope {
	return c.Scopes[id]
}

// Collector turns front-end declarations into candidates.
type Collector struct{}

// New creates a new Collector.
func New() *Collector {
	return &Collector{}
}

// Collect builds the pool and scope tree for unit.
// Malformed declarations become diagnostics; only module graph problems and
// references to unknown scopes are returned as errors.
func (c *Collector) Collect(unit *domain.Unit) (*Collection, error) {
	graph, err := buildModuleGraph(unit)
	if err != nil {
		return nil, err
	}

	rank := make(map[string]int, len(unit.Modules))
	modules := make(map[string]domain.Module, len(unit.Modules))
	for m := range graph.Walk() {
		rank[m.Name] = len(rank)
		modules[m.Name] = m
	}

	decls := make([]*domain.Declaration, len(unit.Declarations))
	for i := range unit.Declarations {
		decls[i] = &unit.Declarations[i]
	}
	slices.SortStableFunc(decls, func(a, b *domain.Declaration) int {
		return cmp.Or(
			cmp.Compare(rank[a.Location.Module.String()], rank[b.Location.Module.String()]),
			a.Location.File.Compare(b.Location.File),
			cmp.Compare(a.Location.Order, b.Location.Order),
		)
	})

	scopes, err := buildScopes(unit.Scopes)
	if err != nil {
		return nil, err
	}

	col := &Collection{
		Pool:   newPool(),
		Scopes: scopes,
	}

	order := 0
	for _, decl := range decls {
		if !decl.IsInjectable() {
			continue
		}
		module, ok := modules[decl.Location.Module.String()]
		if !ok {
			return nil, zerr.With(zerr.With(domain.ErrMissingModule, "module", decl.Location.Module.String()), "declaration", decl.Name)
		}

		cand, problem := buildCandidate(unit.Types, decl, origin(unit, module), order)
		if problem != "" {
			col.Diagnostics = append(col.Diagnostics, domain.Diagnostic{
				Kind:     domain.FailureMalformed,
				Severity: domain.SeverityError,
				Message:  fmt.Sprintf("malformed candidate %s: %s", decl.Name, problem),
				Primary:  decl.Location,
			})
			continue
		}
		order++

		if decl.Scope == "" {
			col.Pool.add(unit.Types, cand)
			continue
		}
		scope, ok := scopes[decl.Scope]
		if !ok {
			return nil, zerr.With(zerr.With(domain.ErrScopeNotFound, "scope", decl.Scope), "declaration", decl.Name)
		}
		cand.Local = true
		scope.Locals = append(scope.Locals, cand)
	}

	for _, site := range unit.CallSites {
		if site.Scope != "" {
			if _, ok := scopes[site.Scope]; !ok {
				return nil, zerr.With(zerr.With(domain.ErrScopeNotFound, "scope", site.Scope), "site", site.ID)
			}
		}
		if site.Requested == nil || site.Requested.IsError() {
			col.Diagnostics = append(col.Diagnostics, domain.Diagnostic{
				Kind:     domain.FailureMalformed,
				Severity: domain.SeverityError,
				Message:  fmt.Sprintf("call site %s requests an unresolved type %s", site.ID, site.Requested),
				Site:     site.ID,
				Primary:  site.Location,
			})
			continue
		}
		col.Sites = append(col.Sites, site)
	}

	return col, nil
}

func buildModuleGraph(unit *domain.Unit) (*domain.ModuleGraph, error) {
	graph := domain.NewModuleGraph()
	for _, m := range unit.Modules {
		if err := graph.AddModule(m); err != nil {
			return nil, err
		}
	}
	if _, ok := graph.Module(unit.Module); !ok {
		return nil, zerr.With(domain.ErrMissingModule, "module", unit.Module)
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	if err := checkRequirements(graph); err != nil {
		return nil, err
	}
	return graph, nil
}

func origin(unit *domain.Unit, m domain.Module) domain.Origin {
	switch {
	case m.Name == unit.Module:
		return domain.OriginInternal
	case m.Predefined:
		return domain.OriginPredefined
	default:
		return domain.OriginExternal
	}
}

func buildScopes(decls []domain.ScopeDecl) (map[string]*domain.ResolutionScope, error) {
	scopes := make(map[string]*domain.ResolutionScope, len(decls))
	for _, d := range decls {
		scopes[d.ID] = &domain.ResolutionScope{
			ID:           domain.NewInternedString(d.ID),
			Substitution: d.Substitution,
		}
	}
	for _, d := range decls {
		if d.Parent == "" {
			continue
		}
		parent, ok := scopes[d.Parent]
		if !ok {
			return nil, zerr.With(zerr.With(domain.ErrScopeNotFound, "scope", d.Parent), "child", d.ID)
		}
		scopes[d.ID].Parent = parent
	}
	for _, d := range decls {
		depth := 0
		for range scopes[d.ID].Chain() {
			depth++
			if depth > len(decls) {
				return nil, zerr.With(domain.ErrCycleDetected, "scope", d.ID)
			}
		}
	}
	return scopes, nil
}

// buildCandidate converts one injectable declaration. A non-empty problem means the
// declaration is malformed and must be skipped.
func buildCandidate(types *domain.TypeTable, decl *domain.Declaration, o domain.Origin, order int) (*domain.Candidate, string) {
	if decl.Type == nil {
		return nil, "missing produced type"
	}
	if decl.Type.IsError() {
		return nil, "produced type " + decl.Type.String() + " could not be resolved"
	}

	cand := &domain.Candidate{
		Name:       domain.NewInternedString(decl.Name),
		Produced:   decl.Type,
		TypeParams: decl.TypeParams,
		Origin:     o,
		Callable:   decl.Kind,
		Location:   decl.Location,
		Order:      order,
	}

	for _, tp := range decl.TypeParams {
		for _, b := range tp.Bounds {
			if b == nil || b.IsError() {
				return nil, "type parameter " + tp.Classifier.Name.String() + " has an unresolved bound"
			}
		}
	}

	if ann, ok := decl.Annotation(domain.AnnotationScoped); ok {
		if len(ann.Args) == 0 || ann.Args[0] == "" {
			return nil, "Scoped requires a scope name"
		}
		cand.Scope = domain.NewInternedString(ann.Args[0])
	}

	intoSet := decl.HasAnnotation(domain.AnnotationIntoSet)
	intoMap, isMap := decl.Annotation(domain.AnnotationIntoMap)
	switch {
	case intoSet && isMap:
		return nil, "IntoSet and IntoMap are mutually exclusive"
	case intoSet:
		cand.Multi = domain.MultiSetElement
	case isMap:
		if len(intoMap.Args) == 0 || intoMap.Args[0] == "" {
			return nil, "IntoMap requires a key"
		}
		cand.Multi = domain.MultiMapEntry
		cand.MapKey = intoMap.Args[0]
		cand.MapKeyType = intoMap.Type
		if cand.MapKeyType == nil {
			cand.MapKeyType = types.Class(domain.ClassString)
		}
		if cand.MapKeyType.IsError() {
			return nil, "IntoMap key type " + cand.MapKeyType.String() + " could not be resolved"
		}
	}

	if decl.Kind == domain.CallableObject || decl.Kind == domain.CallableValue {
		return cand, ""
	}

	for _, p := range decl.Parameters {
		if p.HasAnnotation(domain.AnnotationAssisted) {
			continue
		}
		if p.Type == nil || p.Type.IsError() {
			return nil, "parameter " + p.Name + " has an unresolved type"
		}
		cand.Parameters = append(cand.Parameters, domain.Parameter{
			Name:       p.Name,
			Type:       p.Type,
			HasDefault: p.HasDefault,
		})
	}
	return cand, ""
}
