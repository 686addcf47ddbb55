package diagnostics_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/engine/diagnostics"
	"go.trai.ch/zerr"
)

func at(file string, line int) domain.Location {
	return domain.Location{Module: domain.NewInternedString("app"), File: domain.NewInternedString(file), Line: line}
}

func candidate(name, file string, line int) *domain.Candidate {
	return &domain.Candidate{Name: domain.NewInternedString(name), Location: at(file, line)}
}

func TestFromFailure(t *testing.T) {
	tt := domain.NewTypeTable()
	site := domain.CallSite{ID: "main", Location: at("main.kt", 10)}
	str := tt.Class(domain.ClassString)

	t.Run("ambiguous lists every tied candidate", func(t *testing.T) {
		d := diagnostics.FromFailure(site, &domain.Failure{
			Kind:       domain.FailureAmbiguous,
			Requested:  str,
			Candidates: []*domain.Candidate{candidate("a", "a.kt", 1), candidate("b", "b.kt", 2)},
		})

		assert.Equal(t, domain.FailureAmbiguous, d.Kind)
		assert.True(t, d.IsError())
		assert.Equal(t, "main", d.Site)
		assert.Equal(t, site.Location, d.Primary)
		assert.Equal(t, []domain.Location{at("a.kt", 1), at("b.kt", 2)}, d.Related)
		assert.Contains(t, d.Message, "ambiguous injectables for String")
		assert.Contains(t, d.Message, "a (a.kt:1)")
		assert.Contains(t, d.Message, "b (b.kt:2)")
	})

	t.Run("cycle renders the path", func(t *testing.T) {
		a, b := tt.Class("A"), tt.Class("B")
		d := diagnostics.FromFailure(site, &domain.Failure{
			Kind:      domain.FailureCyclic,
			Requested: a,
			Path:      []*domain.Type{a, b},
		})

		assert.Contains(t, d.Message, "cyclic dependency: A -> B -> A")
	})

	t.Run("unresolved shows the requesting chain innermost first", func(t *testing.T) {
		d := diagnostics.FromFailure(site, &domain.Failure{
			Kind:      domain.FailureUnresolved,
			Requested: tt.Class("Foo"),
			Chain:     []*domain.Candidate{candidate("provideBaz", "baz.kt", 1), candidate("provideBar", "bar.kt", 2)},
		})

		assert.Equal(t,
			"no injectable found for Foo\n  requested by:\n    provideBar (bar.kt:2)\n    provideBaz (baz.kt:1)",
			d.Message)
	})
}

func TestReporter(t *testing.T) {
	tt := domain.NewTypeTable()
	r := diagnostics.NewReporter()

	warning := domain.Diagnostic{
		Kind:     domain.FailureDuplicateKey,
		Severity: domain.SeverityWarning,
		Message:  `duplicate key "k1"`,
		Primary:  at("b.kt", 3),
		Related:  []domain.Location{at("a.kt", 1)},
	}
	r.AddResolution(domain.Resolution{
		Site:     domain.CallSite{ID: "map"},
		Root:     &domain.BindingNode{},
		Warnings: []domain.Diagnostic{warning},
	})

	assert.False(t, r.HasErrors())
	require.NoError(t, r.Err("app"))

	r.AddResolution(domain.Resolution{
		Site:    domain.CallSite{ID: "foo", Location: at("a.kt", 9)},
		Failure: &domain.Failure{Kind: domain.FailureUnresolved, Requested: tt.Class("Foo")},
	})

	assert.True(t, r.HasErrors())
	errs, warns := r.Counts()
	assert.Equal(t, 1, errs)
	assert.Equal(t, 1, warns)

	ds := r.Diagnostics()
	require.Len(t, ds, 2)
	assert.Equal(t, "foo", ds[0].Site, "sorted by location")

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	assert.Equal(t,
		"a.kt:9: error: [Unresolved] no injectable found for Foo\n"+
			"b.kt:3: warning: [DuplicateMultibindingKey] duplicate key \"k1\"\n"+
			"    see a.kt:1\n",
		buf.String())

	err := r.Err("app")
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrResolutionFailed.Error())
	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, "app", zErr.Metadata()["unit"])
	assert.Equal(t, 1, zErr.Metadata()["errors"])
	assert.Equal(t, 1, zErr.Metadata()["warnings"])
}
