package ports

import "go.trai.ch/knit/internal/core/domain"

// OutputStore defines the interface for storing and retrieving emitted output records.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type OutputStore interface {
	// Get retrieves the output record for a given unit name.
	// Returns nil, nil if not found.
	Get(unit string) (*domain.OutputRecord, error)

	// Put stores the output record.
	Put(record domain.OutputRecord) error
}
