package ports

import (
	"context"

	"github.com/alejandrodnm/playscore/internal/domain"
)

// Notifier presenta rankings y slips al usuario.
type Notifier interface {
	// NotifyRanking muestra las oportunidades ordenadas por score.
	// En la implementación de consola, imprime una tabla formateada.
	NotifyRanking(ctx context.Context, ranked []domain.Ranked) error

	// NotifySlip muestra las piernas del slip, sus estadísticas y avisos.
	NotifySlip(ctx context.Context, slip domain.SlipSummary) error
}
