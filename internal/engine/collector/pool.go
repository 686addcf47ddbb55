package collector

import (
	"cmp"
	"slices"

	"go.trai.ch/knit/internal/core/domain"
)

// Pool is the immutable candidate index of one unit.
// Single candidates are indexed by their produced classifier and every supertype classifier;
// matching is left to the resolver.
type Pool struct {
	byClass map[domain.Classifier][]*domain.Candidate
	generic []*domain.Candidate
	sets    []*domain.Candidate
	maps    []*domain.Candidate
	all     []*domain.Candidate
}

func newPool() *Pool {
	return &Pool{byClass: make(map[domain.Classifier][]*domain.Candidate)}
}

func (p *Pool) add(types *domain.TypeTable, c *domain.Candidate) {
	p.all = append(p.all, c)

	switch c.Multi {
	case domain.MultiSetElement:
		p.sets = append(p.sets, c)
		return
	case domain.MultiMapEntry:
		p.maps = append(p.maps, c)
		return
	}

	produced := c.Produced.Classifier()
	if slices.ContainsFunc(c.TypeParams, func(tp domain.TypeParam) bool { return tp.Classifier == produced }) {
		p.generic = append(p.generic, c)
		return
	}

	seen := map[domain.Classifier]bool{produced: true}
	p.byClass[produced] = append(p.byClass[produced], c)
	for _, st := range types.AllSupertypes(c.Produced) {
		cl := st.Classifier()
		if seen[cl] {
			continue
		}
		seen[cl] = true
		p.byClass[cl] = append(p.byClass[cl], c)
	}
}

// Lookup returns the single-binding candidates that may produce t, in collection order.
// It panics if t contains an error type.
func (p *Pool) Lookup(t *domain.Type) []*domain.Candidate {
	if t.IsError() {
		panic("collector: lookup with error type " + t.String())
	}
	indexed := p.byClass[t.Classifier()]
	if len(p.generic) == 0 {
		return indexed
	}
	res := make([]*domain.Candidate, 0, len(indexed)+len(p.generic))
	res = append(res, indexed...)
	res = append(res, p.generic...)
	slices.SortFunc(res, byOrder)
	return res
}

// SetContributors returns every set contributor in collection order.
func (p *Pool) SetContributors() []*domain.Candidate { return p.sets }

// MapContributors returns every map contributor in collection order.
func (p *Pool) MapContributors() []*domain.Candidate { return p.maps }

// All returns every pool candidate in collection order.
func (p *Pool) All() []*domain.Candidate { return p.all }

// Len returns the number of pool candidates.
func (p *Pool) Len() int { return len(p.all) }

func byOrder(a, b *domain.Candidate) int {
	return cmp.Compare(a.Order, b.Order)
}
