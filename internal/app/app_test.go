package app_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knit/internal/adapters/emit"
	"go.trai.ch/knit/internal/app"
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/knit/internal/core/ports/mocks"
	"go.trai.ch/knit/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type harness struct {
	source   *mocks.MockDeclarationSource
	logger   *mocks.MockLogger
	store    *mocks.MockOutputStore
	hasher   *mocks.MockHasher
	verifier *mocks.MockVerifier
	watcher  *mocks.MockWatcher
	tel      *mocks.MockTelemetry
	vertex   *mocks.MockVertex
	metrics  *mocks.MockMetrics
	emitters *emit.Registry

	stdout      *bytes.Buffer
	diagnostics *bytes.Buffer
	app         *app.App
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	h := &harness{
		source:      mocks.NewMockDeclarationSource(ctrl),
		logger:      mocks.NewMockLogger(ctrl),
		store:       mocks.NewMockOutputStore(ctrl),
		hasher:      mocks.NewMockHasher(ctrl),
		verifier:    mocks.NewMockVerifier(ctrl),
		watcher:     mocks.NewMockWatcher(ctrl),
		tel:         mocks.NewMockTelemetry(ctrl),
		vertex:      mocks.NewMockVertex(ctrl),
		metrics:     mocks.NewMockMetrics(ctrl),
		emitters:    emit.NewRegistry(),
		stdout:      new(bytes.Buffer),
		diagnostics: new(bytes.Buffer),
	}

	h.tel.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ ...ports.VertexOption) (context.Context, ports.Vertex) {
			return ctx, h.vertex
		}).AnyTimes()
	h.vertex.EXPECT().Log(gomock.Any(), gomock.Any()).AnyTimes()
	h.logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	h.metrics.EXPECT().ObserveResolution(gomock.Any(), gomock.Any()).AnyTimes()

	sched := scheduler.NewScheduler(h.tel, h.metrics)
	h.app = app.New(h.source, h.logger, h.store, h.hasher, h.verifier, h.watcher, h.emitters, h.tel, h.metrics, sched).
		WithOutput(h.stdout, h.diagnostics)
	return h
}

// chainUnit declares foo(): Foo and bar(foo: Foo): Bar with one call site requesting Bar.
func chainUnit(dir string) *domain.Unit {
	tt := domain.NewTypeTable()
	foo, bar := tt.Class("Foo"), tt.Class("Bar")
	loc := func(line int) domain.Location {
		return domain.Location{
			Module: domain.NewInternedString("app"),
			File:   domain.NewInternedString("main.kt"),
			Line:   line,
			Order:  line,
		}
	}
	provide := []domain.Annotation{{Name: domain.AnnotationProvide}}

	return &domain.Unit{
		Name:    "app",
		Sources: []string{filepath.Join(dir, "knit.yaml")},
		Module:  "app",
		Types:   tt,
		Modules: []domain.Module{{Name: "app"}},
		Declarations: []domain.Declaration{
			{Name: "foo", Annotations: provide, Type: foo, Location: loc(1)},
			{
				Name:        "bar",
				Annotations: provide,
				Type:        bar,
				Parameters:  []domain.DeclaredParameter{{Name: "foo", Type: foo}},
				Location:    loc(2),
			},
		},
		CallSites: []domain.CallSite{{ID: "main", Requested: bar, Location: loc(10)}},
	}
}

// ambiguousUnit declares two providers of Foo and requests Foo.
func ambiguousUnit(dir string) *domain.Unit {
	unit := chainUnit(dir)
	tt := unit.Types
	unit.Declarations = append(unit.Declarations, domain.Declaration{
		Name:        "otherFoo",
		Annotations: []domain.Annotation{{Name: domain.AnnotationProvide}},
		Type:        tt.Class("Foo"),
		Location:    domain.Location{Module: domain.NewInternedString("app"), File: domain.NewInternedString("main.kt"), Line: 3, Order: 3},
	})
	unit.CallSites[0].Requested = tt.Class("Foo")
	return unit
}

func TestApp_Resolve_EmitsAndStores(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	unit := chainUnit(dir)
	out := filepath.Join(dir, "gen", "app.json")

	h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(unit, nil)
	h.hasher.EXPECT().ComputeInputHash(unit.Sources, gomock.Any()).Return("in-hash", nil)
	h.store.EXPECT().Get("app").Return(nil, nil)
	h.hasher.EXPECT().ComputeContentHash(gomock.Any()).Return("out-hash")

	var stored domain.OutputRecord
	h.store.EXPECT().Put(gomock.Any()).DoAndReturn(func(rec domain.OutputRecord) error {
		stored = rec
		return nil
	})
	h.vertex.EXPECT().Complete(nil).Times(2)
	h.logger.EXPECT().Info(gomock.Any())

	err := h.app.Resolve(context.Background(), "knit.yaml", app.RunOptions{Out: out, Format: emit.FormatJSON})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"unit": "app"`)
	assert.Contains(t, string(data), `"candidate": "bar"`)

	assert.Equal(t, "app", stored.Unit)
	assert.Equal(t, "in-hash", stored.InputHash)
	assert.Equal(t, "out-hash", stored.OutputHash)
	assert.Equal(t, emit.FormatJSON, stored.Format)
	assert.Equal(t, out, stored.OutputPath)
	assert.Empty(t, h.diagnostics.String())
}

func TestApp_Resolve_DefaultOutputNextToManifest(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	unit := chainUnit(dir)

	h.source.EXPECT().Load(gomock.Any(), dir).Return(unit, nil)
	h.hasher.EXPECT().ComputeInputHash(unit.Sources, gomock.Any()).Return("in-hash", nil)
	h.store.EXPECT().Get("app").Return(nil, nil)
	h.hasher.EXPECT().ComputeContentHash(gomock.Any()).Return("out-hash")
	h.store.EXPECT().Put(gomock.Any()).Return(nil)
	h.vertex.EXPECT().Complete(nil).Times(2)
	h.logger.EXPECT().Info(gomock.Any())

	require.NoError(t, h.app.Resolve(context.Background(), dir, app.RunOptions{}))

	data, err := os.ReadFile(filepath.Join(dir, "app_knit.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "func Resolve_main() any")
}

func TestApp_Resolve_SkipsUnchangedUnit(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	unit := chainUnit(dir)
	out := filepath.Join(dir, "app.json")

	h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(unit, nil)
	h.hasher.EXPECT().ComputeInputHash(unit.Sources, gomock.Any()).Return("in-hash", nil)
	h.store.EXPECT().Get("app").Return(&domain.OutputRecord{
		Unit:       "app",
		InputHash:  "in-hash",
		OutputPath: out,
	}, nil)
	h.verifier.EXPECT().VerifyOutputs(".", []string{out}).Return(true, nil)
	h.vertex.EXPECT().Cached()
	h.logger.EXPECT().Info(out + " is up to date")

	err := h.app.Resolve(context.Background(), "knit.yaml", app.RunOptions{Out: out, Format: emit.FormatJSON})
	require.NoError(t, err)

	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err), "nothing is emitted for an unchanged unit")
}

func TestApp_Resolve_ReemitsWhenOutputMissing(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	unit := chainUnit(dir)
	out := filepath.Join(dir, "app.json")

	h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(unit, nil)
	h.hasher.EXPECT().ComputeInputHash(unit.Sources, gomock.Any()).Return("in-hash", nil)
	h.store.EXPECT().Get("app").Return(&domain.OutputRecord{Unit: "app", InputHash: "in-hash", OutputPath: out}, nil)
	h.verifier.EXPECT().VerifyOutputs(".", []string{out}).Return(false, nil)
	h.hasher.EXPECT().ComputeContentHash(gomock.Any()).Return("out-hash")
	h.store.EXPECT().Put(gomock.Any()).Return(nil)
	h.vertex.EXPECT().Complete(nil).Times(2)
	h.logger.EXPECT().Info(gomock.Any())

	require.NoError(t, h.app.Resolve(context.Background(), "knit.yaml", app.RunOptions{Out: out, Format: emit.FormatJSON}))
	assert.FileExists(t, out)
}

func TestApp_Resolve_ForceBypassesStore(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	unit := chainUnit(dir)
	out := filepath.Join(dir, "app.json")

	h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(unit, nil)
	h.hasher.EXPECT().ComputeInputHash(unit.Sources, gomock.Any()).Return("in-hash", nil)
	h.hasher.EXPECT().ComputeContentHash(gomock.Any()).Return("out-hash")
	h.store.EXPECT().Put(gomock.Any()).Return(nil)
	h.vertex.EXPECT().Complete(nil).Times(2)
	h.logger.EXPECT().Info(gomock.Any())

	err := h.app.Resolve(context.Background(), "knit.yaml", app.RunOptions{Out: out, Format: emit.FormatJSON, Force: true})
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestApp_Resolve_Stdout(t *testing.T) {
	h := newHarness(t)
	unit := chainUnit(t.TempDir())

	h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(unit, nil)
	h.hasher.EXPECT().ComputeInputHash(unit.Sources, gomock.Any()).Return("in-hash", nil)
	h.vertex.EXPECT().Complete(nil).Times(2)

	err := h.app.Resolve(context.Background(), "knit.yaml", app.RunOptions{Out: app.StdoutPath, Format: emit.FormatJSON})
	require.NoError(t, err)
	assert.Contains(t, h.stdout.String(), `"requested": "Bar"`)
}

func TestApp_Resolve_FailureBlocksEmission(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	unit := ambiguousUnit(dir)
	out := filepath.Join(dir, "app.json")

	h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(unit, nil)
	h.hasher.EXPECT().ComputeInputHash(unit.Sources, gomock.Any()).Return("in-hash", nil)
	h.store.EXPECT().Get("app").Return(nil, nil)
	h.metrics.EXPECT().ObserveDiagnostic("AmbiguousResolution", "error")
	h.vertex.EXPECT().Complete(gomock.Not(gomock.Nil())).Times(2)

	err := h.app.Resolve(context.Background(), "knit.yaml", app.RunOptions{Out: out, Format: emit.FormatJSON})
	require.ErrorContains(t, err, domain.ErrResolutionFailed.Error())

	assert.Contains(t, h.diagnostics.String(), "[AmbiguousResolution]")
	assert.NoFileExists(t, out)
}

func TestApp_Resolve_EmitterError(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	unit := chainUnit(dir)
	out := filepath.Join(dir, "app.txt")

	emitter := mocks.NewMockEmitter(gomock.NewController(t))
	h.emitters.Register("text", emitter)

	h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(unit, nil)
	h.hasher.EXPECT().ComputeInputHash(unit.Sources, gomock.Any()).Return("in-hash", nil)
	h.store.EXPECT().Get("app").Return(nil, nil)
	emitter.EXPECT().Emit(gomock.Any(), unit, gomock.Len(1)).Return(nil, errors.New("template broke"))
	h.vertex.EXPECT().Complete(nil)
	h.vertex.EXPECT().Complete(gomock.Not(gomock.Nil()))

	err := h.app.Resolve(context.Background(), "knit.yaml", app.RunOptions{Out: out, Format: "text"})
	require.ErrorContains(t, err, "failed to emit bindings")
	assert.NoFileExists(t, out)
}

func TestApp_Resolve_UnknownFormat(t *testing.T) {
	h := newHarness(t)
	unit := chainUnit(t.TempDir())

	h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(unit, nil)

	err := h.app.Resolve(context.Background(), "knit.yaml", app.RunOptions{Format: "xml"})
	require.ErrorContains(t, err, domain.ErrUnknownFormat.Error())
}

func TestApp_Resolve_LoadError(t *testing.T) {
	h := newHarness(t)

	h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(nil, errors.New("boom"))

	err := h.app.Resolve(context.Background(), "knit.yaml", app.RunOptions{})
	require.ErrorContains(t, err, "failed to load declarations")
}

func TestApp_Resolve_FlushesMetrics(t *testing.T) {
	h := newHarness(t)
	unit := chainUnit(t.TempDir())
	metricsPath := filepath.Join(t.TempDir(), "knit.prom")

	h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(unit, nil)
	h.hasher.EXPECT().ComputeInputHash(unit.Sources, gomock.Any()).Return("in-hash", nil)
	h.vertex.EXPECT().Complete(nil).Times(2)
	h.metrics.EXPECT().Flush(metricsPath).Return(errors.New("disk full"))
	h.logger.EXPECT().Warn("failed to write metrics: disk full")

	err := h.app.Resolve(context.Background(), "knit.yaml", app.RunOptions{
		Out:     app.StdoutPath,
		Format:  emit.FormatJSON,
		Metrics: metricsPath,
	})
	require.NoError(t, err)
}

func TestApp_Check(t *testing.T) {
	h := newHarness(t)
	unit := chainUnit(t.TempDir())

	h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(unit, nil)
	h.vertex.EXPECT().Complete(nil).Times(2)
	h.logger.EXPECT().Info("app: 1 call sites, 0 errors, 0 warnings")

	require.NoError(t, h.app.Check(context.Background(), "knit.yaml", app.RunOptions{}))
	assert.Empty(t, h.stdout.String())
}

func TestApp_Check_ReportsFailures(t *testing.T) {
	h := newHarness(t)
	unit := ambiguousUnit(t.TempDir())

	h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(unit, nil)
	h.metrics.EXPECT().ObserveDiagnostic("AmbiguousResolution", "error")
	h.vertex.EXPECT().Complete(gomock.Not(gomock.Nil())).Times(2)

	err := h.app.Check(context.Background(), "knit.yaml", app.RunOptions{})
	require.ErrorContains(t, err, domain.ErrResolutionFailed.Error())
	assert.Contains(t, h.diagnostics.String(), "main.kt:10: error: [AmbiguousResolution]")
}

func TestApp_Check_Canceled(t *testing.T) {
	h := newHarness(t)
	unit := chainUnit(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(unit, nil)
	h.vertex.EXPECT().Complete(gomock.Not(gomock.Nil()))

	err := h.app.Check(ctx, "knit.yaml", app.RunOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestApp_Watch_ResolvesAgainOnChange(t *testing.T) {
	h := newHarness(t)
	unit := chainUnit(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(unit, nil).Times(2)
	h.hasher.EXPECT().ComputeInputHash(unit.Sources, gomock.Any()).Return("in-hash", nil).Times(2)
	h.vertex.EXPECT().Complete(nil).Times(4)
	h.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	gomock.InOrder(
		h.watcher.EXPECT().Wait(gomock.Any(), unit.Sources).Return(unit.Sources, nil),
		h.watcher.EXPECT().Wait(gomock.Any(), unit.Sources).
			DoAndReturn(func(ctx context.Context, _ []string) ([]string, error) {
				cancel()
				return nil, ctx.Err()
			}),
	)

	err := h.app.Watch(ctx, "knit.yaml", app.RunOptions{Out: app.StdoutPath, Format: emit.FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(h.stdout.String(), `"unit": "app"`))
}

func TestApp_Watch_KeepsWatchingAfterFailure(t *testing.T) {
	h := newHarness(t)
	unit := chainUnit(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gomock.InOrder(
		h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(nil, errors.New("yaml: line 3")),
		h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(unit, nil),
	)
	h.logger.EXPECT().Error(gomock.Any())
	h.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	h.hasher.EXPECT().ComputeInputHash(unit.Sources, gomock.Any()).Return("in-hash", nil)
	h.vertex.EXPECT().Complete(nil).Times(2)
	gomock.InOrder(
		h.watcher.EXPECT().Wait(gomock.Any(), []string{"knit.yaml"}).Return([]string{"knit.yaml"}, nil),
		h.watcher.EXPECT().Wait(gomock.Any(), unit.Sources).
			DoAndReturn(func(ctx context.Context, _ []string) ([]string, error) {
				cancel()
				return nil, ctx.Err()
			}),
	)

	err := h.app.Watch(ctx, "knit.yaml", app.RunOptions{Out: app.StdoutPath, Format: emit.FormatJSON})
	require.NoError(t, err)
}

func TestApp_Watch_WatcherError(t *testing.T) {
	h := newHarness(t)
	unit := chainUnit(t.TempDir())

	h.source.EXPECT().Load(gomock.Any(), "knit.yaml").Return(unit, nil)
	h.hasher.EXPECT().ComputeInputHash(unit.Sources, gomock.Any()).Return("in-hash", nil)
	h.vertex.EXPECT().Complete(nil).Times(2)
	h.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	h.watcher.EXPECT().Wait(gomock.Any(), unit.Sources).Return(nil, errors.New("too many open files"))

	err := h.app.Watch(context.Background(), "knit.yaml", app.RunOptions{Out: app.StdoutPath, Format: emit.FormatJSON})
	require.ErrorContains(t, err, "failed to watch manifests")
}
