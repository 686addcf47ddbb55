package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/engine/collector"
	"go.trai.ch/knit/internal/engine/resolver"
)

// fixture builds small units in memory. Declarations default to injectable
// functions of module "app" in file "main.kt".
type fixture struct {
	tt    *domain.TypeTable
	unit  *domain.Unit
	order int
}

func newFixture() *fixture {
	tt := domain.NewTypeTable()
	return &fixture{
		tt: tt,
		unit: &domain.Unit{
			Name:    "app",
			Module:  "app",
			Types:   tt,
			Modules: []domain.Module{{Name: "app"}},
		},
	}
}

func (f *fixture) at(module, file string) domain.Location {
	f.order++
	return domain.Location{
		Module: domain.NewInternedString(module),
		File:   domain.NewInternedString(file),
		Line:   f.order,
		Order:  f.order,
	}
}

func (f *fixture) declare(d domain.Declaration) {
	if d.Location.IsZero() {
		d.Location = f.at("app", "main.kt")
	}
	d.Annotations = append([]domain.Annotation{{Name: domain.AnnotationProvide}}, d.Annotations...)
	f.unit.Declarations = append(f.unit.Declarations, d)
}

func (f *fixture) provide(name string, produced *domain.Type, params ...domain.DeclaredParameter) {
	f.declare(domain.Declaration{Name: name, Type: produced, Parameters: params})
}

func (f *fixture) site(requested *domain.Type) domain.CallSite {
	return domain.CallSite{ID: "site", Requested: requested, Location: f.at("app", "main.kt")}
}

func (f *fixture) resolve(t *testing.T, site domain.CallSite) domain.Resolution {
	t.Helper()
	return f.resolveCtx(t, context.Background(), site)
}

func (f *fixture) resolveCtx(t *testing.T, ctx context.Context, site domain.CallSite) domain.Resolution {
	t.Helper()
	col, err := collector.New().Collect(f.unit)
	require.NoError(t, err)
	require.Empty(t, col.Diagnostics)
	return resolver.New(f.tt, col).Resolve(ctx, site)
}

func param(name string, t *domain.Type) domain.DeclaredParameter {
	return domain.DeclaredParameter{Name: name, Type: t}
}

func optional(name string, t *domain.Type) domain.DeclaredParameter {
	return domain.DeclaredParameter{Name: name, Type: t, HasDefault: true}
}

func names(cands []*domain.Candidate) []string {
	res := make([]string, len(cands))
	for i, c := range cands {
		res[i] = c.Name.String()
	}
	return res
}

func keys(types []*domain.Type) []string {
	res := make([]string, len(types))
	for i, t := range types {
		res[i] = t.String()
	}
	return res
}

// render flattens a binding graph into "kind key <- candidate" lines, dependencies first.
func render(root *domain.BindingNode) []string {
	var lines []string
	for n := range root.Walk() {
		line := n.Kind.String() + " " + n.Key.String()
		if n.Candidate != nil {
			line += " <- " + n.Candidate.Name.String()
		}
		lines = append(lines, line)
	}
	return lines
}
