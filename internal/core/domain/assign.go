package domain

import (
	"maps"
	"slices"
)

// IsAssignable reports whether a value of type candidate can be used where requested is expected.
func (tt *TypeTable) IsAssignable(candidate, requested *Type) bool {
	_, ok := tt.Unify(candidate, requested, nil)
	return ok
}

// Unify matches candidate against requested, binding the given type parameters of the candidate.
// It returns the resulting substitution and whether the candidate satisfies the request.
// Parameters that the request does not constrain stay unbound.
func (tt *TypeTable) Unify(candidate, requested *Type, params []TypeParam) (Substitution, bool) {
	if candidate == nil || requested == nil || candidate.IsError() || requested.IsError() {
		return nil, false
	}

	u := &unifier{
		tt:       tt,
		flexible: make(map[Classifier]TypeParam, len(params)),
		subst:    make(Substitution, len(params)),
	}
	for _, p := range params {
		u.flexible[p.Classifier] = p
	}

	if !u.assign(candidate, requested) {
		return nil, false
	}
	u.close()
	if !u.checkBounds() {
		return nil, false
	}
	return u.subst, true
}

type unifier struct {
	tt       *TypeTable
	flexible map[Classifier]TypeParam
	subst    Substitution
}

func (u *unifier) isFlexible(t *Type) bool {
	_, ok := u.flexible[t.classifier]
	return ok
}

// assign reports whether sub can be used where sup is expected. Flexible
// parameters may occur on either side; contravariant positions swap the roles.
func (u *unifier) assign(sub, sup *Type) bool {
	if sub.nullable && !sup.nullable && !u.isFlexible(sup) {
		return false
	}

	if u.isFlexible(sub) {
		target, ok := u.strip(sub, sup)
		if !ok {
			return false
		}
		return u.bind(sub.classifier, target)
	}
	if u.isFlexible(sup) {
		target, ok := u.strip(sup, sub)
		if !ok {
			return false
		}
		return u.bind(sup.classifier, target)
	}

	if sub.classifier != sup.classifier {
		return u.assignViaSupertypes(sub, sup)
	}
	if !u.sameTags(sub, sup) {
		return false
	}
	return u.assignArgs(sub.args, sup.args)
}

func (u *unifier) assignViaSupertypes(sub, sup *Type) bool {
	if sub.classifier.Kind != ClassKind {
		return false
	}
	for _, st := range u.tt.Supertypes(sub) {
		saved := maps.Clone(u.subst)
		if u.assign(st, sup) {
			return true
		}
		u.subst = saved
	}
	return false
}

func (u *unifier) assignArgs(sub, sup []Arg) bool {
	if len(sub) != len(sup) {
		return false
	}
	for i := range sup {
		want, have := sup[i], sub[i]
		switch want.Variance {
		case Star:
			continue
		case Out:
			if have.Variance == Star || have.Variance == In {
				return false
			}
			if !u.assign(have.Type, want.Type) {
				return false
			}
		case In:
			if have.Variance == Star || have.Variance == Out {
				return false
			}
			if !u.assign(want.Type, have.Type) {
				return false
			}
		default:
			if have.Variance != Invariant {
				return false
			}
			if !u.equal(have.Type, want.Type) {
				return false
			}
		}
	}
	return true
}

// equal is invariant matching: structural equality with flexible parameters bound on the way.
func (u *unifier) equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if u.isFlexible(a) {
		target, ok := u.strip(a, b)
		if !ok || (a.nullable && !b.nullable) {
			return false
		}
		return u.bind(a.classifier, target)
	}
	if u.isFlexible(b) {
		return u.equal(b, a)
	}
	if a.classifier != b.classifier || a.nullable != b.nullable || len(a.args) != len(b.args) {
		return false
	}
	if !u.sameTags(a, b) {
		return false
	}
	for i := range a.args {
		if a.args[i].Variance != b.args[i].Variance {
			return false
		}
		if a.args[i].Variance == Star {
			continue
		}
		if !u.equal(a.args[i].Type, b.args[i].Type) {
			return false
		}
	}
	return true
}

func (u *unifier) sameTags(a, b *Type) bool {
	if len(a.tags) != len(b.tags) {
		return false
	}
	for i := range a.tags {
		if !u.equal(a.tags[i], b.tags[i]) {
			return false
		}
	}
	return true
}

// strip computes the type a flexible parameter p must be bound to so that p
// (with its own nullability and tags) becomes target.
func (u *unifier) strip(p, target *Type) (*Type, bool) {
	remaining := target.tags
	if len(p.tags) > 0 {
		remaining = nil
		for _, tag := range target.tags {
			if !slices.Contains(p.tags, tag) {
				remaining = append(remaining, tag)
			}
		}
		if len(remaining) != len(target.tags)-len(p.tags) {
			return nil, false
		}
	}
	nullable := target.nullable
	if p.nullable {
		nullable = false
	}
	return u.tt.Of(target.classifier, target.args, nullable, remaining), true
}

func (u *unifier) bind(param Classifier, target *Type) bool {
	if bound, ok := u.subst[param]; ok {
		return u.equal(bound, target)
	}
	if target.classifier == param {
		return true
	}
	u.subst[param] = target
	return true
}

// close resolves bindings that refer to other bound parameters.
func (u *unifier) close() {
	for range len(u.subst) {
		changed := false
		for k, v := range u.subst {
			next := u.tt.Substitute(v, u.subst)
			if next != v {
				u.subst[k] = next
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func (u *unifier) checkBounds() bool {
	for c, p := range u.flexible {
		bound, ok := u.subst[c]
		if !ok {
			continue
		}
		for _, b := range p.Bounds {
			if !u.tt.IsAssignable(bound, u.tt.Substitute(b, u.subst)) {
				return false
			}
		}
	}
	return true
}
