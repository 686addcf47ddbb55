package domain

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Well-known classifier names the engine gives special meaning to.
const (
	// ClassSet is the aggregate shape Set<V>.
	ClassSet = "Set"
	// ClassMap is the aggregate shape Map<K, V>.
	ClassMap = "Map"
	// ClassProvider is the lazy shape Provider<T>.
	ClassProvider = "Provider"
	// ClassString is the default key type of map contributions.
	ClassString = "String"
)

// ClassifierKind distinguishes nominal classifiers from type parameters.
type ClassifierKind uint8

const (
	// ClassKind is a nominal, package-qualified classifier.
	ClassKind ClassifierKind = iota
	// TypeParameterKind is a type parameter owned by a declaration.
	TypeParameterKind
	// ErrorKind marks a type the front end failed to resolve.
	ErrorKind
)

// Classifier is the nominal identity of a type.
// Two type parameters with the same name are distinct when their owners differ.
type Classifier struct {
	Name  InternedString
	Owner InternedString
	Kind  ClassifierKind
}

// ClassOf returns the nominal classifier with the given qualified name.
func ClassOf(name string) Classifier {
	return Classifier{Name: NewInternedString(name), Kind: ClassKind}
}

// TypeParamOf returns the classifier of type parameter name declared by owner.
func TypeParamOf(owner, name string) Classifier {
	return Classifier{
		Name:  NewInternedString(name),
		Owner: NewInternedString(owner),
		Kind:  TypeParameterKind,
	}
}

// IsTypeParameter reports whether the classifier denotes a type parameter.
func (c Classifier) IsTypeParameter() bool {
	return c.Kind == TypeParameterKind
}

func (c Classifier) key() string {
	switch c.Kind {
	case TypeParameterKind:
		return c.Owner.String() + "#" + c.Name.String()
	case ErrorKind:
		return "<error:" + c.Name.String() + ">"
	default:
		return c.Name.String()
	}
}

func compareClassifiers(a, b Classifier) int {
	return cmp.Or(
		cmp.Compare(a.Kind, b.Kind),
		a.Name.Compare(b.Name),
		a.Owner.Compare(b.Owner),
	)
}

// Variance is the use-site variance of a type argument.
type Variance uint8

const (
	// Invariant arguments must match exactly.
	Invariant Variance = iota
	// Out arguments are covariant.
	Out
	// In arguments are contravariant.
	In
	// Star accepts any argument.
	Star
)

// Arg is one type argument together with its use-site variance.
// Type is nil for star projections.
type Arg struct {
	Type     *Type
	Variance Variance
}

// Type is an interned, immutable type. Within one TypeTable two structurally
// equal types are the same pointer, so == is structural equality.
type Type struct {
	classifier Classifier
	args       []Arg
	tags       []*Type
	nullable   bool

	key      string
	display  string
	hash     uint64
	size     int
	hasError bool
	covering []Classifier
}

// Classifier returns the nominal identity of t.
func (t *Type) Classifier() Classifier { return t.classifier }

// Args returns the type arguments of t. The slice must not be modified.
func (t *Type) Args() []Arg { return t.args }

// Tags returns the canonical, sorted tag set of t. The slice must not be modified.
func (t *Type) Tags() []*Type { return t.tags }

// Nullable reports whether t admits null.
func (t *Type) Nullable() bool { return t.nullable }

// IsError reports whether t or any of its components failed to resolve.
func (t *Type) IsError() bool { return t.hasError }

// Key returns the canonical structural key of t.
func (t *Type) Key() string { return t.key }

// Hash returns the xxhash of the structural key.
func (t *Type) Hash() uint64 { return t.hash }

// Size counts the classifiers, arguments and tags that make up t.
func (t *Type) Size() int { return t.size }

// String renders t for humans, e.g. `@Named Map<String, out Foo>?`.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.display
}

// CoveringSet returns the sorted set of classifiers occurring in t.
func (t *Type) CoveringSet() []Classifier { return t.covering }

// SameCovering reports whether a and b are built from the same set of classifiers.
func SameCovering(a, b *Type) bool {
	return slices.Equal(a.covering, b.covering)
}

// ContainsClassifier reports whether c occurs anywhere inside t.
func (t *Type) ContainsClassifier(c Classifier) bool {
	_, found := slices.BinarySearchFunc(t.covering, c, compareClassifiers)
	return found
}

// Substitution maps type parameters to the types bound to them.
type Substitution map[Classifier]*Type

// TypeParam is a declaration's type parameter with its upper bounds.
type TypeParam struct {
	Classifier Classifier
	Bounds     []*Type
}

// ClassInfo describes the generic signature and supertypes of a classifier.
// Supertypes are expressed in terms of Params.
type ClassInfo struct {
	Params     []Classifier
	Supertypes []*Type
}

// TypeTable interns types and records class hierarchies for one compilation unit.
// It is safe for concurrent use.
type TypeTable struct {
	mu      sync.RWMutex
	types   map[string]*Type
	classes map[Classifier]ClassInfo
}

// NewTypeTable creates an empty TypeTable.
func NewTypeTable() *TypeTable {
	return &TypeTable{
		types:   make(map[string]*Type),
		classes: make(map[Classifier]ClassInfo),
	}
}

// Len returns the number of distinct interned types.
func (tt *TypeTable) Len() int {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return len(tt.types)
}

// Of returns the canonical type for the given components.
func (tt *TypeTable) Of(c Classifier, args []Arg, nullable bool, tags []*Type) *Type {
	tags = canonicalTags(tags)
	key := buildKey(c, args, nullable, tags)

	tt.mu.RLock()
	t, ok := tt.types[key]
	tt.mu.RUnlock()
	if ok {
		return t
	}

	t = newType(c, slices.Clone(args), nullable, tags, key)

	tt.mu.Lock()
	defer tt.mu.Unlock()
	if existing, ok := tt.types[key]; ok {
		return existing
	}
	tt.types[key] = t
	return t
}

// Class returns the non-null, untagged class type name<args...> with invariant arguments.
func (tt *TypeTable) Class(name string, args ...*Type) *Type {
	converted := make([]Arg, len(args))
	for i, a := range args {
		converted[i] = Arg{Type: a}
	}
	return tt.Of(ClassOf(name), converted, false, nil)
}

// Param returns the type of type parameter name declared by owner.
func (tt *TypeTable) Param(owner, name string) *Type {
	return tt.Of(TypeParamOf(owner, name), nil, false, nil)
}

// ErrorType returns a placeholder for a type the front end could not resolve.
func (tt *TypeTable) ErrorType(raw string) *Type {
	return tt.Of(Classifier{Name: NewInternedString(raw), Kind: ErrorKind}, nil, false, nil)
}

// Nullable returns t marked as nullable.
func (tt *TypeTable) Nullable(t *Type) *Type {
	if t.nullable {
		return t
	}
	return tt.Of(t.classifier, t.args, true, t.tags)
}

// NonNull returns t without its nullable marker.
func (tt *TypeTable) NonNull(t *Type) *Type {
	if !t.nullable {
		return t
	}
	return tt.Of(t.classifier, t.args, false, t.tags)
}

// Tagged returns t with the given tags added.
func (tt *TypeTable) Tagged(t *Type, tags ...*Type) *Type {
	if len(tags) == 0 {
		return t
	}
	return tt.Of(t.classifier, t.args, t.nullable, append(slices.Clone(t.tags), tags...))
}

// Untagged returns t with every tag removed.
func (tt *TypeTable) Untagged(t *Type) *Type {
	if len(t.tags) == 0 {
		return t
	}
	return tt.Of(t.classifier, t.args, t.nullable, nil)
}

// DeclareClass records the type parameters and direct supertypes of a class.
// Supertypes may refer to the parameters through Param(name, param).
func (tt *TypeTable) DeclareClass(name string, params []string, supertypes ...*Type) {
	info := ClassInfo{Supertypes: slices.Clone(supertypes)}
	for _, p := range params {
		info.Params = append(info.Params, TypeParamOf(name, p))
	}

	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.classes[ClassOf(name)] = info
}

// Supertypes returns the direct supertypes of t with t's arguments substituted.
// Nullability and tags of t carry over to each supertype.
func (tt *TypeTable) Supertypes(t *Type) []*Type {
	tt.mu.RLock()
	info, ok := tt.classes[t.classifier]
	tt.mu.RUnlock()
	if !ok || len(info.Supertypes) == 0 {
		return nil
	}

	subst := make(Substitution, len(info.Params))
	for i, p := range info.Params {
		if i < len(t.args) && t.args[i].Type != nil {
			subst[p] = t.args[i].Type
		}
	}

	res := make([]*Type, 0, len(info.Supertypes))
	for _, s := range info.Supertypes {
		st := tt.Substitute(s, subst)
		res = append(res, tt.Of(st.classifier, st.args, st.nullable || t.nullable, append(slices.Clone(st.tags), t.tags...)))
	}
	return res
}

// AllSupertypes returns the transitive supertypes of t, nearest first, without duplicates.
func (tt *TypeTable) AllSupertypes(t *Type) []*Type {
	var res []*Type
	seen := map[*Type]bool{t: true}
	queue := []*Type{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, s := range tt.Supertypes(cur) {
			if seen[s] {
				continue
			}
			seen[s] = true
			res = append(res, s)
			queue = append(queue, s)
		}
	}
	return res
}

// Substitute replaces bound type parameters inside t.
// A bound parameter keeps its own nullability and tags on top of the bound type.
func (tt *TypeTable) Substitute(t *Type, subst Substitution) *Type {
	if len(subst) == 0 || t == nil {
		return t
	}
	if bound, ok := subst[t.classifier]; ok {
		return tt.Of(bound.classifier, bound.args, bound.nullable || t.nullable, append(slices.Clone(bound.tags), t.tags...))
	}
	if len(t.args) == 0 && len(t.tags) == 0 {
		return t
	}

	args := make([]Arg, len(t.args))
	for i, a := range t.args {
		args[i] = Arg{Type: tt.Substitute(a.Type, subst), Variance: a.Variance}
	}
	tags := make([]*Type, len(t.tags))
	for i, tag := range t.tags {
		tags[i] = tt.Substitute(tag, subst)
	}
	return tt.Of(t.classifier, args, t.nullable, tags)
}

func canonicalTags(tags []*Type) []*Type {
	if len(tags) == 0 {
		return nil
	}
	sorted := slices.Clone(tags)
	slices.SortFunc(sorted, func(a, b *Type) int { return strings.Compare(a.key, b.key) })
	return slices.CompactFunc(sorted, func(a, b *Type) bool { return a.key == b.key })
}

func buildKey(c Classifier, args []Arg, nullable bool, tags []*Type) string {
	var sb strings.Builder
	for _, tag := range tags {
		sb.WriteString("@")
		sb.WriteString(tag.key)
		sb.WriteString(" ")
	}
	sb.WriteString(c.key())
	writeArgs(&sb, args, func(t *Type) string { return t.key })
	if nullable {
		sb.WriteString("?")
	}
	return sb.String()
}

func buildDisplay(c Classifier, args []Arg, nullable bool, tags []*Type) string {
	var sb strings.Builder
	for _, tag := range tags {
		sb.WriteString("@")
		sb.WriteString(tag.display)
		sb.WriteString(" ")
	}
	sb.WriteString(c.Name.String())
	writeArgs(&sb, args, func(t *Type) string { return t.display })
	if nullable {
		sb.WriteString("?")
	}
	return sb.String()
}

func writeArgs(sb *strings.Builder, args []Arg, render func(*Type) string) {
	if len(args) == 0 {
		return
	}
	sb.WriteString("<")
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		switch a.Variance {
		case Star:
			sb.WriteString("*")
			continue
		case Out:
			sb.WriteString("out ")
		case In:
			sb.WriteString("in ")
		}
		sb.WriteString(render(a.Type))
	}
	sb.WriteString(">")
}

func newType(c Classifier, args []Arg, nullable bool, tags []*Type, key string) *Type {
	t := &Type{
		classifier: c,
		args:       args,
		tags:       tags,
		nullable:   nullable,
		key:        key,
		display:    buildDisplay(c, args, nullable, tags),
		hash:       xxhash.Sum64String(key),
		size:       1,
		hasError:   c.Kind == ErrorKind,
		covering:   []Classifier{c},
	}
	for _, a := range args {
		if a.Type == nil {
			continue
		}
		t.size += a.Type.size
		t.hasError = t.hasError || a.Type.hasError
		t.covering = append(t.covering, a.Type.covering...)
	}
	for _, tag := range tags {
		t.size += tag.size
		t.hasError = t.hasError || tag.hasError
		t.covering = append(t.covering, tag.covering...)
	}
	slices.SortFunc(t.covering, compareClassifiers)
	t.covering = slices.Compact(t.covering)
	return t
}
