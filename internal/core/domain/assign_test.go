package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knit/internal/core/domain"
)

// hierarchy: Bar <: Foo, Int <: Number, ArrayList<E> <: List<E>.
func newHierarchy() *domain.TypeTable {
	tt := domain.NewTypeTable()
	tt.DeclareClass("Bar", nil, tt.Class("Foo"))
	tt.DeclareClass("Int", nil, tt.Class("Number"))
	tt.DeclareClass("ArrayList", []string{"E"}, tt.Class("List", tt.Param("ArrayList", "E")))
	return tt
}

func arg(t *domain.Type, v domain.Variance) domain.Arg {
	return domain.Arg{Type: t, Variance: v}
}

func TestIsAssignable(t *testing.T) {
	tt := newHierarchy()
	foo, bar := tt.Class("Foo"), tt.Class("Bar")
	named, primary := tt.Class("Named"), tt.Class("Primary")

	tests := []struct {
		name      string
		candidate *domain.Type
		requested *domain.Type
		want      bool
	}{
		{"exact", foo, foo, true},
		{"identifiers are case sensitive", foo, tt.Class("foo"), false},
		{"non-null satisfies nullable", foo, tt.Nullable(foo), true},
		{"nullable never satisfies non-null", tt.Nullable(foo), foo, false},
		{"declared supertype", bar, foo, true},
		{"subtype is not satisfied by supertype", foo, bar, false},
		{"generic supertype with arguments", tt.Class("ArrayList", foo), tt.Class("List", foo), true},
		{"generic supertype wrong argument", tt.Class("ArrayList", bar), tt.Class("List", foo), false},
		{"invariant argument", tt.Class("List", bar), tt.Class("List", foo), false},
		{"covariant argument", tt.Class("List", bar), tt.Of(domain.ClassOf("List"), []domain.Arg{arg(foo, domain.Out)}, false, nil), true},
		{"contravariant argument", tt.Class("Comparator", foo), tt.Of(domain.ClassOf("Comparator"), []domain.Arg{arg(bar, domain.In)}, false, nil), true},
		{"contravariant argument reversed", tt.Class("Comparator", bar), tt.Of(domain.ClassOf("Comparator"), []domain.Arg{arg(foo, domain.In)}, false, nil), false},
		{"star accepts anything", tt.Class("List", bar), tt.Of(domain.ClassOf("List"), []domain.Arg{{Variance: domain.Star}}, false, nil), true},
		{"tags must match", tt.Tagged(foo, named), foo, false},
		{"untagged does not satisfy tagged", foo, tt.Tagged(foo, named), false},
		{"tag sets compare as sets", tt.Tagged(foo, named, primary), tt.Tagged(foo, primary, named), true},
		{"tag subset is not enough", tt.Tagged(foo, named), tt.Tagged(foo, named, primary), false},
		{"error types never match", tt.ErrorType("Foo"), tt.ErrorType("Foo"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tt.IsAssignable(tc.candidate, tc.requested))
		})
	}
}

func TestUnify(t *testing.T) {
	tt := newHierarchy()
	foo, bar := tt.Class("Foo"), tt.Class("Bar")
	tParam := domain.TypeParam{Classifier: domain.TypeParamOf("provide", "T")}
	T := tt.Param("provide", "T")

	t.Run("binds a produced type parameter", func(t *testing.T) {
		subst, ok := tt.Unify(tt.Class("List", T), tt.Class("List", foo), []domain.TypeParam{tParam})
		require.True(t, ok)
		assert.Same(t, foo, subst[tParam.Classifier])
	})

	t.Run("bare parameter matches any type", func(t *testing.T) {
		subst, ok := tt.Unify(T, tt.Nullable(foo), []domain.TypeParam{tParam})
		require.True(t, ok)
		assert.Same(t, tt.Nullable(foo), subst[tParam.Classifier])
	})

	t.Run("nullable parameter cannot satisfy non-null", func(t *testing.T) {
		_, ok := tt.Unify(tt.Nullable(T), foo, []domain.TypeParam{tParam})
		assert.False(t, ok)
	})

	t.Run("nullable parameter binds the non-null type", func(t *testing.T) {
		subst, ok := tt.Unify(tt.Nullable(T), tt.Nullable(foo), []domain.TypeParam{tParam})
		require.True(t, ok)
		assert.Same(t, foo, subst[tParam.Classifier])
	})

	t.Run("repeated parameter must bind consistently", func(t *testing.T) {
		_, ok := tt.Unify(tt.Class("Pair", T, T), tt.Class("Pair", foo, bar), []domain.TypeParam{tParam})
		assert.False(t, ok)

		subst, ok := tt.Unify(tt.Class("Pair", T, T), tt.Class("Pair", foo, foo), []domain.TypeParam{tParam})
		require.True(t, ok)
		assert.Same(t, foo, subst[tParam.Classifier])
	})

	t.Run("tagged parameter keeps its tag", func(t *testing.T) {
		named := tt.Class("Named")
		subst, ok := tt.Unify(tt.Tagged(T, named), tt.Tagged(foo, named), []domain.TypeParam{tParam})
		require.True(t, ok)
		assert.Same(t, foo, subst[tParam.Classifier])

		_, ok = tt.Unify(tt.Tagged(T, named), foo, []domain.TypeParam{tParam})
		assert.False(t, ok)
	})

	t.Run("binds through supertypes", func(t *testing.T) {
		subst, ok := tt.Unify(tt.Class("ArrayList", T), tt.Class("List", foo), []domain.TypeParam{tParam})
		require.True(t, ok)
		assert.Same(t, foo, subst[tParam.Classifier])
	})

	t.Run("upper bounds", func(t *testing.T) {
		bounded := domain.TypeParam{Classifier: tParam.Classifier, Bounds: []*domain.Type{tt.Class("Number")}}

		_, ok := tt.Unify(tt.Class("Box", T), tt.Class("Box", tt.Class("String")), []domain.TypeParam{bounded})
		assert.False(t, ok)

		subst, ok := tt.Unify(tt.Class("Box", T), tt.Class("Box", tt.Class("Int")), []domain.TypeParam{bounded})
		require.True(t, ok)
		assert.Same(t, tt.Class("Int"), subst[tParam.Classifier])
	})

	t.Run("unconstrained parameter stays unbound", func(t *testing.T) {
		U := domain.TypeParam{Classifier: domain.TypeParamOf("provide", "U")}
		subst, ok := tt.Unify(tt.Class("List", T), tt.Class("List", foo), []domain.TypeParam{tParam, U})
		require.True(t, ok)
		assert.NotContains(t, subst, U.Classifier)
	})

	t.Run("parameters of other declarations are rigid", func(t *testing.T) {
		_, ok := tt.Unify(tt.Param("other", "T"), foo, []domain.TypeParam{tParam})
		assert.False(t, ok)
	})
}
