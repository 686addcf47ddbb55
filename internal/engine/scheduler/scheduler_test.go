package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/knit/internal/core/ports/mocks"
	"go.trai.ch/knit/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type resolverFunc func(ctx context.Context, site domain.CallSite) domain.Resolution

func (f resolverFunc) Resolve(ctx context.Context, site domain.CallSite) domain.Resolution {
	return f(ctx, site)
}

func sites(tt *domain.TypeTable, ids ...string) []domain.CallSite {
	out := make([]domain.CallSite, len(ids))
	for i, id := range ids {
		out[i] = domain.CallSite{
			ID:        id,
			Requested: tt.Class("Foo"),
			Location:  domain.Location{Module: domain.NewInternedString("app"), File: domain.NewInternedString("main.kt"), Line: i + 1},
		}
	}
	return out
}

func ok(site domain.CallSite) domain.Resolution {
	return domain.Resolution{Site: site, Root: &domain.BindingNode{Key: site.Requested}}
}

// quietTelemetry returns a telemetry mock whose vertices accept everything.
func quietTelemetry(ctrl *gomock.Controller) *mocks.MockTelemetry {
	tel := mocks.NewMockTelemetry(ctrl)
	vertex := mocks.NewMockVertex(ctrl)
	tel.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ ...ports.VertexOption) (context.Context, ports.Vertex) {
			return ctx, vertex
		}).AnyTimes()
	vertex.EXPECT().Log(gomock.Any(), gomock.Any()).AnyTimes()
	vertex.EXPECT().Complete(gomock.Any()).AnyTimes()
	return tel
}

func TestScheduler_Run_OrderStatusAndTelemetry(t *testing.T) {
	ctrl := gomock.NewController(t)
	tt := domain.NewTypeTable()
	all := sites(tt, "a", "b", "c")

	failure := &domain.Failure{Kind: domain.FailureCyclic, Requested: tt.Class("Foo")}
	warning := domain.Diagnostic{Kind: domain.FailureDuplicateKey, Severity: domain.SeverityWarning, Message: "duplicate key k1"}

	tel := mocks.NewMockTelemetry(ctrl)
	metrics := mocks.NewMockMetrics(ctrl)
	vertices := map[string]*mocks.MockVertex{}
	for _, site := range all {
		v := mocks.NewMockVertex(ctrl)
		vertices[site.ID] = v
		tel.EXPECT().Record(gomock.Any(), site.ID, gomock.Any()).Return(context.Background(), v)
		v.EXPECT().Log(domain.LogLevelDebug, "resolving Foo")
	}
	vertices["a"].EXPECT().Complete(nil)
	vertices["b"].EXPECT().Complete(failure)
	vertices["c"].EXPECT().Log(domain.LogLevelWarn, "duplicate key k1")
	vertices["c"].EXPECT().Complete(nil)

	metrics.EXPECT().ObserveResolution(scheduler.OutcomeResolved, gomock.Any()).Times(2)
	metrics.EXPECT().ObserveResolution("CyclicDependency", gomock.Any())

	resolve := resolverFunc(func(_ context.Context, site domain.CallSite) domain.Resolution {
		switch site.ID {
		case "b":
			return domain.Resolution{Site: site, Failure: failure}
		case "c":
			res := ok(site)
			res.Warnings = []domain.Diagnostic{warning}
			return res
		default:
			return ok(site)
		}
	})

	s := scheduler.NewScheduler(tel, metrics)
	results, err := s.Run(context.Background(), resolve, all, 2)
	require.NoError(t, err)

	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, all[i].ID, res.Site.ID, "results keep the order of the sites")
	}
	assert.True(t, results[0].OK())
	assert.Same(t, failure, results[1].Failure)

	assert.Equal(t, map[string]domain.SiteStatus{
		"a": domain.SiteStatusResolved,
		"b": domain.SiteStatusFailed,
		"c": domain.SiteStatusResolved,
	}, s.GetSiteStatusMap())
}

func TestScheduler_Run_RespectsParallelism(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tt := domain.NewTypeTable()
		all := sites(tt, "a", "b", "c", "d")

		metrics := mocks.NewMockMetrics(ctrl)
		metrics.EXPECT().ObserveResolution(gomock.Any(), gomock.Any()).Times(4)

		var inFlight, peak atomic.Int32
		release := make(chan struct{})
		resolve := resolverFunc(func(_ context.Context, site domain.CallSite) domain.Resolution {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			inFlight.Add(-1)
			return ok(site)
		})

		s := scheduler.NewScheduler(quietTelemetry(ctrl), metrics)

		type result struct {
			res []domain.Resolution
			err error
		}
		done := make(chan result)
		go func() {
			res, err := s.Run(context.Background(), resolve, all, 2)
			done <- result{res, err}
		}()

		synctest.Wait()
		assert.Equal(t, int32(2), inFlight.Load())

		statuses := s.GetSiteStatusMap()
		running, pending := 0, 0
		for _, st := range statuses {
			switch st {
			case domain.SiteStatusRunning:
				running++
			case domain.SiteStatusPending:
				pending++
			}
		}
		assert.Equal(t, 2, running)
		assert.Equal(t, 2, pending)

		close(release)
		r := <-done
		require.NoError(t, r.err)
		assert.Len(t, r.res, 4)
		assert.Equal(t, int32(2), peak.Load())

		for id, st := range s.GetSiteStatusMap() {
			assert.Equal(t, domain.SiteStatusResolved, st, id)
		}
	})
}

func TestScheduler_Run_Canceled(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tt := domain.NewTypeTable()
		all := sites(tt, "a", "b")

		tel := mocks.NewMockTelemetry(ctrl)
		metrics := mocks.NewMockMetrics(ctrl)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		resolve := resolverFunc(func(context.Context, domain.CallSite) domain.Resolution {
			t.Error("no site should be resolved after cancellation")
			return domain.Resolution{}
		})

		s := scheduler.NewScheduler(tel, metrics)
		results, err := s.Run(ctx, resolve, all, 1)
		require.ErrorIs(t, err, context.Canceled)

		require.Len(t, results, 2)
		for _, res := range results {
			require.NotNil(t, res.Failure)
			assert.Equal(t, domain.FailureCanceled, res.Failure.Kind)
			assert.ErrorIs(t, res.Failure, context.Canceled)
		}
		for id, st := range s.GetSiteStatusMap() {
			assert.Equal(t, domain.SiteStatusCanceled, st, id)
		}
	})
}

func TestScheduler_Run_CancelMidway(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tt := domain.NewTypeTable()
		all := sites(tt, "a", "b", "c")

		metrics := mocks.NewMockMetrics(ctrl)
		metrics.EXPECT().ObserveResolution(domain.FailureCanceled.String(), gomock.Any())

		ctx, cancel := context.WithCancel(context.Background())
		started := make(chan struct{})
		resolve := resolverFunc(func(ctx context.Context, site domain.CallSite) domain.Resolution {
			close(started)
			<-ctx.Done()
			return domain.Resolution{
				Site:    site,
				Failure: &domain.Failure{Kind: domain.FailureCanceled, Requested: site.Requested, Cause: ctx.Err()},
			}
		})

		s := scheduler.NewScheduler(quietTelemetry(ctrl), metrics)

		errCh := make(chan error)
		go func() {
			_, err := s.Run(ctx, resolve, all, 1)
			errCh <- err
		}()

		<-started
		cancel()
		require.ErrorIs(t, <-errCh, context.Canceled)

		for id, st := range s.GetSiteStatusMap() {
			assert.Equal(t, domain.SiteStatusCanceled, st, id)
		}
	})
}

func TestScheduler_Run_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := scheduler.NewScheduler(mocks.NewMockTelemetry(ctrl), mocks.NewMockMetrics(ctrl))

	results, err := s.Run(context.Background(), resolverFunc(nil), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}
