package ports

import (
	"context"

	"github.com/alejandrodnm/playscore/internal/domain"
)

// SlipSolver calcula el EV agregado de un slip a partir de sus piernas normalizadas.
type SlipSolver interface {
	Solve(ctx context.Context, legs []domain.SlipLeg, book string, mode domain.SlipMode) (domain.SlipEV, error)
}
