package ports

import (
	"context"

	"go.trai.ch/knit/internal/core/domain"
)

// Emitter renders the binding graphs of a unit into generated output.
//
//go:generate go run go.uber.org/mock/mockgen -source=emitter.go -destination=mocks/mock_emitter.go -package=mocks
type Emitter interface {
	// Emit renders every resolution of the unit. It is only called when no call site failed.
	Emit(ctx context.Context, unit *domain.Unit, resolutions []domain.Resolution) ([]byte, error)
}
