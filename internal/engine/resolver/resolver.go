// Package resolver resolves call sites against a collected candidate pool.
package resolver

import (
	"context"
	"fmt"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/engine/collector"
)

// Resolver resolves call sites of one unit. The pool is shared read-only, so
// Resolve may be called concurrently for different sites.
type Resolver struct {
	types *domain.TypeTable
	col   *collector.Collection
}

// New creates a Resolver over a collected unit.
func New(types *domain.TypeTable, col *collector.Collection) *Resolver {
	return &Resolver{types: types, col: col}
}

// Resolve builds the binding graph for one call site.
func (r *Resolver) Resolve(ctx context.Context, site domain.CallSite) domain.Resolution {
	s := &session{
		ctx:    ctx,
		r:      r,
		site:   site,
		scope:  r.col.Scope(site.Scope),
		origin: domain.NewInternedString(site.ID),
		onPath: make(map[*domain.Type]int),
		memo:   make(map[*domain.Type]*domain.BindingNode),
	}

	root, f := s.resolve(domain.BindingRequest{Type: site.Requested, Origin: s.origin})
	return domain.Resolution{Site: site, Root: root, Failure: f, Warnings: s.warnings}
}

// frame is one entry of the visiting stack.
type frame struct {
	req  *domain.Type
	cand *domain.Candidate
	node *domain.BindingNode
	// lazy frames are Provider boundaries; cycles crossing them are legal.
	lazy bool
	// tracked frames take part in cycle detection.
	tracked bool
}

// session holds the per-site state. It is never shared between goroutines.
type session struct {
	ctx      context.Context
	r        *Resolver
	site     domain.CallSite
	scope    *domain.ResolutionScope
	origin   domain.InternedString
	stack    []frame
	onPath   map[*domain.Type]int
	memo     map[*domain.Type]*domain.BindingNode
	warnings []domain.Diagnostic
}

func (s *session) push(f frame) {
	if f.tracked {
		if _, ok := s.onPath[f.req]; !ok {
			s.onPath[f.req] = len(s.stack)
		} else {
			f.tracked = false
		}
	}
	s.stack = append(s.stack, f)
}

func (s *session) pop() {
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	if top.tracked {
		delete(s.onPath, top.req)
	}
}

func (s *session) requester() *domain.Candidate {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].cand != nil {
			return s.stack[i].cand
		}
	}
	return nil
}

func (s *session) fail(kind domain.FailureKind, requested *domain.Type, detail string) *domain.Failure {
	f := &domain.Failure{Kind: kind, Requested: requested, Detail: detail}
	for _, fr := range s.stack {
		if fr.cand != nil {
			f.Chain = append(f.Chain, fr.cand)
		}
	}
	return f
}

// resolve satisfies one request. A nil node with a nil failure means an optional
// request fell back to its source default.
func (s *session) resolve(req domain.BindingRequest) (*domain.BindingNode, *domain.Failure) {
	if err := s.ctx.Err(); err != nil {
		f := s.fail(domain.FailureCanceled, req.Type, "")
		f.Cause = err
		return nil, f
	}
	if node, ok := s.memo[req.Type]; ok {
		return node, nil
	}
	if idx, ok := s.onPath[req.Type]; ok {
		return s.cycle(req, idx)
	}

	if node, f, ok := s.resolveLocal(req); ok {
		return node, f
	}

	if node, f, ok := s.resolveBuiltin(req); ok {
		return node, f
	}
	return s.resolvePool(req)
}

// resolveBuiltin handles untagged Provider, Set and Map requests that no pool
// candidate provides explicitly. ok is false when the pool should be used.
func (s *session) resolveBuiltin(req domain.BindingRequest) (*domain.BindingNode, *domain.Failure, bool) {
	t := req.Type
	if len(t.Tags()) > 0 {
		return nil, nil, false
	}
	args := t.Args()
	var builtin func(domain.BindingRequest) (*domain.BindingNode, *domain.Failure)
	switch t.Classifier() {
	case domain.ClassOf(domain.ClassProvider):
		if len(args) == 1 && args[0].Type != nil {
			builtin = s.resolveProvider
		}
	case domain.ClassOf(domain.ClassSet):
		if len(args) == 1 {
			builtin = s.resolveSet
		}
	case domain.ClassOf(domain.ClassMap):
		if len(args) == 2 {
			builtin = s.resolveMap
		}
	}
	if builtin == nil || s.poolProvides(t) {
		return nil, nil, false
	}
	node, f := builtin(req)
	return node, f, true
}

func (s *session) poolProvides(t *domain.Type) bool {
	for _, cand := range s.r.col.Pool.Lookup(t) {
		if _, ok := s.r.types.Unify(cand.Produced, t, cand.TypeParams); ok {
			return true
		}
	}
	return false
}

func (s *session) cycle(req domain.BindingRequest, idx int) (*domain.BindingNode, *domain.Failure) {
	for _, fr := range s.stack[idx:] {
		if fr.lazy {
			return &domain.BindingNode{
				Kind: domain.NodeReference,
				Key:  req.Type,
				Ref:  s.stack[idx].node,
			}, nil
		}
	}

	f := s.fail(domain.FailureCyclic, req.Type, "")
	for _, fr := range s.stack {
		if fr.tracked {
			f.Path = append(f.Path, fr.req)
		}
	}
	return nil, f
}

// resolveLocal looks the request up in the lexical scopes, innermost first.
// ok is false when no frame declares a matching value.
func (s *session) resolveLocal(req domain.BindingRequest) (*domain.BindingNode, *domain.Failure, bool) {
	if s.scope == nil {
		return nil, nil, false
	}
	for sc := range s.scope.Chain() {
		var found []*domain.Candidate
		for _, local := range sc.Locals {
			if s.r.types.Substitute(local.Produced, sc.Substitution) == req.Type {
				found = append(found, local)
			}
		}
		switch len(found) {
		case 0:
			continue
		case 1:
			node, f := s.resolveCandidate(req.Type, match{cand: found[0], exact: true}, true)
			return node, f, true
		default:
			f := s.fail(domain.FailureAmbiguous, req.Type, "multiple values in scope "+sc.ID.String())
			f.Candidates = found
			return nil, f, true
		}
	}
	return nil, nil, false
}

func (s *session) resolveProvider(req domain.BindingRequest) (*domain.BindingNode, *domain.Failure) {
	node := &domain.BindingNode{Kind: domain.NodeProvider, Key: req.Type}
	s.push(frame{req: req.Type, node: node, lazy: true, tracked: true})
	inner, f := s.resolve(domain.BindingRequest{
		Type:      req.Type.Args()[0].Type,
		Requester: req.Requester,
		Origin:    req.Origin,
		Optional:  req.Optional,
	})
	s.pop()
	if f != nil {
		return nil, f
	}
	if inner == nil {
		return nil, nil
	}
	node.Dependencies = []*domain.BindingNode{inner}
	s.memo[req.Type] = node
	return node, nil
}

func (s *session) resolvePool(req domain.BindingRequest) (*domain.BindingNode, *domain.Failure) {
	var matches []match
	for _, cand := range s.r.col.Pool.Lookup(req.Type) {
		subst, ok := s.r.types.Unify(cand.Produced, req.Type, cand.TypeParams)
		if !ok {
			continue
		}
		matches = append(matches, match{
			cand:  cand,
			subst: subst,
			exact: s.r.types.Substitute(cand.Produced, subst) == req.Type,
		})
	}

	if len(matches) == 0 {
		if req.Optional {
			return nil, nil
		}
		return nil, s.fail(domain.FailureUnresolved, req.Type, "no candidate provides this type")
	}

	best := s.rank(matches)
	if len(best) > 1 {
		f := s.fail(domain.FailureAmbiguous, req.Type, fmt.Sprintf("%d candidates match equally well", len(best)))
		for _, m := range best {
			f.Candidates = append(f.Candidates, m.cand)
		}
		return nil, f
	}
	return s.resolveCandidate(req.Type, best[0], true)
}

// resolveCandidate resolves the parameters of the chosen candidate and builds its node.
func (s *session) resolveCandidate(key *domain.Type, m match, memoize bool) (*domain.BindingNode, *domain.Failure) {
	cand := m.cand
	for _, fr := range s.stack {
		if fr.cand == cand && key.Size() > fr.req.Size() && domain.SameCovering(key, fr.req) {
			f := s.fail(domain.FailureDivergent, key, fmt.Sprintf("%s keeps requesting larger types than %s", cand.Name, fr.req))
			f.Candidates = []*domain.Candidate{cand}
			return nil, f
		}
	}

	node := &domain.BindingNode{
		Kind:      nodeKind(cand),
		Key:       key,
		Candidate: cand,
		Scope:     cand.Scope,
		MapKey:    cand.MapKey,
	}
	for _, tp := range cand.TypeParams {
		node.TypeArgs = append(node.TypeArgs, m.subst[tp.Classifier])
	}

	s.push(frame{req: key, cand: cand, node: node, tracked: cand.Multi == domain.MultiNone})
	defer s.pop()

	for _, p := range cand.Parameters {
		pt := s.r.types.Substitute(p.Type, m.subst)
		for _, tp := range cand.TypeParams {
			if _, bound := m.subst[tp.Classifier]; !bound && pt.ContainsClassifier(tp.Classifier) {
				return nil, s.fail(domain.FailureUnresolved, pt,
					fmt.Sprintf("type parameter %s of %s could not be inferred", tp.Classifier.Name, cand.Name))
			}
		}

		child, f := s.resolve(domain.BindingRequest{
			Type:      pt,
			Requester: cand,
			Origin:    s.origin,
			Optional:  p.HasDefault,
		})
		if f != nil {
			return nil, f
		}
		if child == nil {
			node.Defaulted = append(node.Defaulted, p.Name)
			continue
		}
		node.Dependencies = append(node.Dependencies, child)
	}

	if memoize {
		s.memo[key] = node
	}
	return node, nil
}

func nodeKind(c *domain.Candidate) domain.NodeKind {
	switch {
	case c.Multi == domain.MultiSetElement:
		return domain.NodeSetElement
	case c.Multi == domain.MultiMapEntry:
		return domain.NodeMapEntry
	case c.Callable == domain.CallableObject || c.Callable == domain.CallableValue:
		return domain.NodeInstance
	default:
		return domain.NodeSingle
	}
}
