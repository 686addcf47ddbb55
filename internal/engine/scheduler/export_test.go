package scheduler

import (
	"maps"

	"go.trai.ch/knit/internal/core/domain"
)

// GetSiteStatusMap returns a copy of the internal site status map.
// This is exported for testing purposes only.
func (s *Scheduler) GetSiteStatusMap() map[string]domain.SiteStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.siteStatus)
}
