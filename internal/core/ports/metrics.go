package ports

import "time"

// Metrics records resolution counters for a run.
//
//go:generate go run go.uber.org/mock/mockgen -source=metrics.go -destination=mocks/mock_metrics.go -package=mocks
type Metrics interface {
	// ObserveResolution records the outcome of one call site ("resolved" or a failure kind).
	ObserveResolution(outcome string, duration time.Duration)
	// ObserveDiagnostic records one diagnostic of the given kind and severity.
	ObserveDiagnostic(kind, severity string)
	// Flush writes the collected metrics to path.
	Flush(path string) error
}
