package resolver

import (
	"cmp"
	"slices"

	"go.trai.ch/knit/internal/core/domain"
)

// match is a candidate that satisfies a request together with the bindings of its type parameters.
type match struct {
	cand  *domain.Candidate
	subst domain.Substitution
	exact bool
}

// proximity of a candidate to the code that requests it.
const (
	sameFile = iota
	sameModule
	elsewhere
)

// rank orders matches and returns the group tied for first place.
// Exact matches beat assignable ones, then origin, then proximity to the requester.
func (s *session) rank(matches []match) []match {
	if len(matches) == 1 {
		return matches
	}
	at := s.site.Location
	if req := s.requester(); req != nil {
		at = req.Location
	}

	compare := func(a, b match) int {
		return cmp.Or(
			compareExact(a, b),
			cmp.Compare(a.cand.Origin, b.cand.Origin),
			cmp.Compare(proximity(a.cand, at), proximity(b.cand, at)),
		)
	}

	sorted := slices.Clone(matches)
	slices.SortStableFunc(sorted, compare)
	end := 1
	for end < len(sorted) && compare(sorted[0], sorted[end]) == 0 {
		end++
	}
	return sorted[:end]
}

func compareExact(a, b match) int {
	switch {
	case a.exact == b.exact:
		return 0
	case a.exact:
		return -1
	default:
		return 1
	}
}

func proximity(c *domain.Candidate, at domain.Location) int {
	switch {
	case c.Location.Module != at.Module:
		return elsewhere
	case c.Location.File != at.File:
		return sameModule
	default:
		return sameFile
	}
}
