package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/playscore/internal/domain"
)

// RankingStorage persiste el resultado de cada ejecución del ranker.
type RankingStorage interface {
	// SaveRanking persiste las oportunidades puntuadas de una ejecución.
	SaveRanking(ctx context.Context, ranked []domain.Ranked) error

	// GetRankings devuelve las oportunidades registradas en el rango de tiempo dado.
	GetRankings(ctx context.Context, from, to time.Time) ([]domain.Ranked, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
