package domain

import "iter"

// ResolutionScope is a lexical frame of injectable values.
// Inner frames shadow everything declared outside them.
type ResolutionScope struct {
	ID           InternedString
	Parent       *ResolutionScope
	Locals       []*Candidate
	Substitution Substitution
}

// Chain yields the scope and its ancestors, innermost first.
func (s *ResolutionScope) Chain() iter.Seq[*ResolutionScope] {
	return func(yield func(*ResolutionScope) bool) {
		for cur := s; cur != nil; cur = cur.Parent {
			if !yield(cur) {
				return
			}
		}
	}
}

// Depth returns the number of frames from s to the root, counting s.
func (s *ResolutionScope) Depth() int {
	n := 0
	for range s.Chain() {
		n++
	}
	return n
}
