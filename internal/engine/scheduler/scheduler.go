// Package scheduler resolves the call sites of a unit in parallel.
package scheduler

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

// OutcomeResolved is the metrics outcome of a call site that produced a binding graph.
const OutcomeResolved = "resolved"

// SiteResolver resolves a single call site.
type SiteResolver interface {
	Resolve(ctx context.Context, site domain.CallSite) domain.Resolution
}

// Scheduler manages the resolution of the call sites of a unit.
type Scheduler struct {
	telemetry ports.Telemetry
	metrics   ports.Metrics

	mu         sync.RWMutex
	siteStatus map[string]domain.SiteStatus
}

// NewScheduler creates a new Scheduler.
func NewScheduler(telemetry ports.Telemetry, metrics ports.Metrics) *Scheduler {
	return &Scheduler{
		telemetry:  telemetry,
		metrics:    metrics,
		siteStatus: make(map[string]domain.SiteStatus),
	}
}

func (s *Scheduler) initSiteStatuses(sites []domain.CallSite) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.siteStatus = make(map[string]domain.SiteStatus, len(sites))
	for _, site := range sites {
		s.siteStatus[site.ID] = domain.SiteStatusPending
	}
}

func (s *Scheduler) updateStatus(id string, status domain.SiteStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.siteStatus[id] = status
}

// Run resolves every site with at most parallelism sites in flight.
// A parallelism of zero or less uses the number of CPUs.
// Results are returned in the order of sites; a failing site never stops the others.
// The returned error is only set when ctx is canceled.
func (s *Scheduler) Run(
	ctx context.Context,
	resolver SiteResolver,
	sites []domain.CallSite,
	parallelism int,
) ([]domain.Resolution, error) {
	s.initSiteStatuses(sites)
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	results := make([]domain.Resolution, len(sites))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, site := range sites {
		g.Go(func() error {
			results[i] = s.resolveSite(gctx, resolver, site)
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err()
}

func (s *Scheduler) resolveSite(ctx context.Context, resolver SiteResolver, site domain.CallSite) domain.Resolution {
	if err := ctx.Err(); err != nil {
		s.updateStatus(site.ID, domain.SiteStatusCanceled)
		return domain.Resolution{
			Site:    site,
			Failure: &domain.Failure{Kind: domain.FailureCanceled, Requested: site.Requested, Cause: err},
		}
	}

	s.updateStatus(site.ID, domain.SiteStatusRunning)
	ctx, vertex := s.telemetry.Record(ctx, site.ID, ports.WithGroup(site.Location.Module.String()))
	vertex.Log(domain.LogLevelDebug, "resolving "+site.Requested.String())

	start := time.Now()
	res := resolver.Resolve(ctx, site)
	elapsed := time.Since(start)

	for _, w := range res.Warnings {
		vertex.Log(domain.LogLevelWarn, w.Message)
	}

	outcome := OutcomeResolved
	switch {
	case res.Failure == nil:
		s.updateStatus(site.ID, domain.SiteStatusResolved)
		vertex.Complete(nil)
	case res.Failure.Kind == domain.FailureCanceled:
		outcome = res.Failure.Kind.String()
		s.updateStatus(site.ID, domain.SiteStatusCanceled)
		vertex.Complete(res.Failure)
	default:
		outcome = res.Failure.Kind.String()
		s.updateStatus(site.ID, domain.SiteStatusFailed)
		vertex.Complete(res.Failure)
	}
	s.metrics.ObserveResolution(outcome, elapsed)

	return res
}
