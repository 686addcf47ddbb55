// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/knit/internal/core/domain"
)

// DeclarationSource loads a compilation unit from a front end.
//
//go:generate go run go.uber.org/mock/mockgen -source=declaration_source.go -destination=mocks/mock_declaration_source.go -package=mocks
type DeclarationSource interface {
	// Load reads the unit described at path.
	// Declarations must carry resolved types; unresolved ones are reported as error types.
	Load(ctx context.Context, path string) (*domain.Unit, error)
}
