package emit_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knit/internal/adapters/emit"
	"go.trai.ch/knit/internal/core/domain"
)

type graph struct {
	tt   *domain.TypeTable
	unit *domain.Unit
	line int
}

func newGraph() *graph {
	tt := domain.NewTypeTable()
	return &graph{tt: tt, unit: &domain.Unit{Name: "app", Module: "app", Types: tt}}
}

func (g *graph) cand(name string, produced *domain.Type, kind domain.CallableKind) *domain.Candidate {
	g.line++
	return &domain.Candidate{
		Name:     domain.NewInternedString(name),
		Produced: produced,
		Callable: kind,
		Location: domain.Location{
			Module: domain.NewInternedString("app"),
			File:   domain.NewInternedString("main.kt"),
			Line:   g.line,
		},
	}
}

func (g *graph) single(c *domain.Candidate, deps ...*domain.BindingNode) *domain.BindingNode {
	return &domain.BindingNode{Kind: domain.NodeSingle, Key: c.Produced, Candidate: c, Dependencies: deps}
}

func (g *graph) resolution(id string, root *domain.BindingNode) domain.Resolution {
	return domain.Resolution{
		Site: domain.CallSite{
			ID:        id,
			Requested: root.Key,
			Location:  domain.Location{File: domain.NewInternedString("main.kt"), Line: 40},
		},
		Root: root,
	}
}

// chain builds Bar <- provideBar(Foo) where Foo comes from a scoped provideFoo.
func (g *graph) chain() domain.Resolution {
	foo := g.single(g.cand("provideFoo", g.tt.Class("Foo"), domain.CallableFunction))
	foo.Scope = domain.NewInternedString("app")
	bar := g.single(g.cand("provideBar", g.tt.Class("Bar"), domain.CallableFunction), foo)
	return g.resolution("app/main.kt:12", bar)
}

// cycle builds A <- provideA(Provider<B>), B <- provideB(A) broken by the provider.
func (g *graph) cycle() domain.Resolution {
	a := g.tt.Class("A")
	b := g.tt.Class("B")
	nodeA := g.single(g.cand("provideA", a, domain.CallableFunction))
	ref := &domain.BindingNode{Kind: domain.NodeReference, Key: a, Ref: nodeA}
	nodeB := g.single(g.cand("provideB", b, domain.CallableFunction), ref)
	provider := &domain.BindingNode{
		Kind:         domain.NodeProvider,
		Key:          g.tt.Class(domain.ClassProvider, b),
		Dependencies: []*domain.BindingNode{nodeB},
	}
	nodeA.Dependencies = []*domain.BindingNode{provider}
	return g.resolution("cycle", nodeA)
}

func (g *graph) mapping() domain.Resolution {
	intType := g.tt.Class("Int")
	entry := &domain.BindingNode{
		Kind:      domain.NodeMapEntry,
		Key:       intType,
		Candidate: g.cand("two", intType, domain.CallableProperty),
		MapKey:    "k1",
	}
	root := &domain.BindingNode{
		Kind:         domain.NodeMap,
		Key:          g.tt.Class(domain.ClassMap, g.tt.Class(domain.ClassString), intType),
		Dependencies: []*domain.BindingNode{entry},
	}
	res := g.resolution("map", root)
	res.Warnings = []domain.Diagnostic{{Severity: domain.SeverityWarning, Message: `duplicate key "k1"`}}
	return res
}

func TestRegistry(t *testing.T) {
	r := emit.NewRegistry()
	assert.Equal(t, []string{emit.FormatGo, emit.FormatJSON}, r.Formats())

	e, err := r.Get(emit.FormatJSON)
	require.NoError(t, err)
	assert.IsType(t, &emit.JSONEmitter{}, e)

	_, err = r.Get("xml")
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrUnknownFormat.Error())

	assert.Equal(t, ".go", emit.Extension(emit.FormatGo))
	assert.Equal(t, ".json", emit.Extension(emit.FormatJSON))
}

func TestGoEmitter_Chain(t *testing.T) {
	g := newGraph()

	src, err := emit.NewGoEmitter().Emit(context.Background(), g.unit, []domain.Resolution{g.chain()})
	require.NoError(t, err)

	out := string(src)
	assert.Contains(t, out, "// Code generated by knit. DO NOT EDIT.")
	assert.Contains(t, out, "package app")
	assert.Contains(t, out, `import "sync"`)
	assert.Contains(t, out, "s0_provideFooOnce sync.Once")
	assert.Contains(t, out, "func Resolve_app_main_kt_12() any {")
	assert.Contains(t, out, "scope.s0_provideFoo = provideFoo()")
	assert.Contains(t, out, "return provideBar(n0())")
	assert.Contains(t, out, "return n1()")
}

func TestGoEmitter_ProviderCycle(t *testing.T) {
	g := newGraph()

	src, err := emit.NewGoEmitter().Emit(context.Background(), g.unit, []domain.Resolution{g.cycle()})
	require.NoError(t, err)

	out := string(src)
	assert.NotContains(t, out, `import "sync"`)
	assert.Contains(t, out, "return n3()", "the reference calls back into provideA")
	assert.Contains(t, out, "return provideB(n0())")
	assert.Contains(t, out, "{ return n1 }", "the provider hands out the constructor")
	assert.Contains(t, out, "return provideA(n2())")
}

func TestGoEmitter_MapAndDuplicateFunctionNames(t *testing.T) {
	g := newGraph()
	first := g.mapping()
	second := g.mapping()

	src, err := emit.NewGoEmitter().Emit(context.Background(), g.unit, []domain.Resolution{first, second})
	require.NoError(t, err)

	out := string(src)
	assert.Contains(t, out, `map[string]any{"k1": n0()}`)
	assert.Contains(t, out, "{ return two }")
	assert.Contains(t, out, "func Resolve_map() any {")
	assert.Contains(t, out, "func Resolve_map_2() any {")
}

func TestEmitters_RejectFailedSites(t *testing.T) {
	g := newGraph()
	failed := domain.Resolution{
		Site:    domain.CallSite{ID: "broken", Requested: g.tt.Class("Foo")},
		Failure: &domain.Failure{Kind: domain.FailureUnresolved, Requested: g.tt.Class("Foo")},
	}

	for _, e := range []interface {
		Emit(context.Context, *domain.Unit, []domain.Resolution) ([]byte, error)
	}{emit.NewGoEmitter(), emit.NewJSONEmitter()} {
		_, err := e.Emit(context.Background(), g.unit, []domain.Resolution{failed})
		require.Error(t, err)
		assert.ErrorContains(t, err, domain.ErrResolutionFailed.Error())
	}
}

func TestJSONEmitter_Graph(t *testing.T) {
	g := newGraph()

	data, err := emit.NewJSONEmitter().Emit(context.Background(), g.unit, []domain.Resolution{g.cycle(), g.mapping()})
	require.NoError(t, err)

	var doc struct {
		Unit  string `json:"unit"`
		Sites []struct {
			ID       string   `json:"id"`
			Root     int      `json:"root"`
			Warnings []string `json:"warnings"`
			Nodes    []struct {
				ID        int    `json:"id"`
				Kind      string `json:"kind"`
				Key       string `json:"key"`
				Candidate string `json:"candidate"`
				Deps      []int  `json:"deps"`
				MapKey    string `json:"mapKey"`
				Ref       *int   `json:"ref"`
			} `json:"nodes"`
		} `json:"sites"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "app", doc.Unit)
	require.Len(t, doc.Sites, 2)

	cycle := doc.Sites[0]
	assert.Equal(t, 3, cycle.Root)
	require.Len(t, cycle.Nodes, 4)
	assert.Equal(t, "reference", cycle.Nodes[0].Kind)
	require.NotNil(t, cycle.Nodes[0].Ref)
	assert.Equal(t, 3, *cycle.Nodes[0].Ref)
	assert.Equal(t, "provider", cycle.Nodes[2].Kind)
	assert.Equal(t, "Provider<B>", cycle.Nodes[2].Key)
	assert.Equal(t, []int{2}, cycle.Nodes[3].Deps)
	assert.Equal(t, "provideA", cycle.Nodes[3].Candidate)

	mapping := doc.Sites[1]
	assert.Equal(t, []string{`duplicate key "k1"`}, mapping.Warnings)
	assert.Equal(t, "map-entry", mapping.Nodes[0].Kind)
	assert.Equal(t, "k1", mapping.Nodes[0].MapKey)
	assert.Equal(t, "Map<String, Int>", mapping.Nodes[1].Key)
}
