package ports

import (
	"context"
	"errors"

	"github.com/alejandrodnm/playscore/internal/domain"
)

// ErrMalformedProfile indica que el perfil persistido existe pero no se puede
// decodificar. Quien lo lee vuelve al default de ese dominio.
var ErrMalformedProfile = errors.New("malformed profile")

// ProfileRepository guarda los perfiles de cálculo fuera del proceso.
// Los campos viajan como un registro plano sin validar: quien los lee los normaliza.
type ProfileRepository interface {
	// LoadProfile devuelve los campos persistidos del dominio, o nil si no hay ninguno.
	// Un cuerpo ilegible devuelve un error que envuelve ErrMalformedProfile.
	LoadProfile(ctx context.Context, d domain.Domain) (map[string]any, error)

	// SaveProfile persiste el perfil completo del dominio.
	SaveProfile(ctx context.Context, d domain.Domain, fields map[string]any) error
}
