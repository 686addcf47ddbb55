package resolver

import (
	"fmt"

	"go.trai.ch/knit/internal/core/domain"
)

// resolveSet gathers every set contributor whose element type fits the request.
func (s *session) resolveSet(req domain.BindingRequest) (*domain.BindingNode, *domain.Failure) {
	elem := req.Type.Args()[0].Type
	node := &domain.BindingNode{Kind: domain.NodeSet, Key: req.Type}

	var contributors []match
	for _, c := range s.r.col.Pool.SetContributors() {
		if m, ok := s.contributes(c, elem); ok {
			contributors = append(contributors, m)
		}
	}

	if f := s.resolveContributors(req.Type, node, contributors); f != nil {
		return nil, f
	}
	s.memo[req.Type] = node
	return node, nil
}

// resolveMap gathers every map contributor whose value and key types fit the request.
// A later contribution replaces an earlier one with the same key of the same key type.
func (s *session) resolveMap(req domain.BindingRequest) (*domain.BindingNode, *domain.Failure) {
	key, value := req.Type.Args()[0].Type, req.Type.Args()[1].Type
	node := &domain.BindingNode{Kind: domain.NodeMap, Key: req.Type}

	var entries []match
	byKey := make(map[string]int)
	for _, c := range s.r.col.Pool.MapContributors() {
		if key != nil && !s.r.types.IsAssignable(c.MapKeyType, key) {
			continue
		}
		m, ok := s.contributes(c, value)
		if !ok {
			continue
		}
		id := c.MapKeyType.Key() + "\x00" + c.MapKey
		if i, dup := byKey[id]; dup {
			s.warnings = append(s.warnings, duplicateKey(s.site, req.Type, c, entries[i].cand))
			entries[i] = m
			continue
		}
		byKey[id] = len(entries)
		entries = append(entries, m)
	}

	if f := s.resolveContributors(req.Type, node, entries); f != nil {
		return nil, f
	}
	s.memo[req.Type] = node
	return node, nil
}

func (s *session) contributes(c *domain.Candidate, elem *domain.Type) (match, bool) {
	if elem == nil {
		return match{cand: c}, true
	}
	subst, ok := s.r.types.Unify(c.Produced, elem, c.TypeParams)
	if !ok {
		return match{}, false
	}
	return match{cand: c, subst: subst}, true
}

func (s *session) resolveContributors(aggregate *domain.Type, node *domain.BindingNode, contributors []match) *domain.Failure {
	s.push(frame{req: aggregate, node: node, tracked: true})
	defer s.pop()

	for _, m := range contributors {
		key := s.r.types.Substitute(m.cand.Produced, m.subst)
		child, f := s.resolveCandidate(key, m, false)
		if f != nil {
			return f
		}
		node.Dependencies = append(node.Dependencies, child)
	}
	return nil
}

func duplicateKey(site domain.CallSite, aggregate *domain.Type, later, earlier *domain.Candidate) domain.Diagnostic {
	return domain.Diagnostic{
		Kind:     domain.FailureDuplicateKey,
		Severity: domain.SeverityWarning,
		Message: fmt.Sprintf("duplicate key %q in %s: %s overrides %s",
			later.MapKey, aggregate, later.Name, earlier.Name),
		Site:    site.ID,
		Primary: later.Location,
		Related: []domain.Location{earlier.Location},
	}
}
