package slip

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/profile"
)

// DefaultCapacity es el máximo de piernas de un slip.
const DefaultCapacity = 6

// readyAt es el mínimo de piernas para que las estadísticas tengan sentido.
const readyAt = 2

// State es el estado del ciclo de vida de un slip.
type State string

const (
	StateEmpty    State = "empty"
	StateBuilding State = "building"
	StateReady    State = "ready"
)

// AddOutcome es el resultado de intentar añadir una pierna. Ninguno es un
// error: el llamador decide cómo presentarlo.
type AddOutcome string

const (
	Added       AddOutcome = "added"
	Full        AddOutcome = "full"
	Duplicate   AddOutcome = "duplicate"
	Unavailable AddOutcome = "unavailable"
)

// Slip es la lista ordenada de piernas de una sesión con sus locks.
// Los locks van por clave compuesta, no por posición.
type Slip struct {
	id       string
	capacity int
	legs     []Leg
	locks    map[string]bool
}

// New crea un slip vacío. capacity <= 0 usa DefaultCapacity.
func New(capacity int) *Slip {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Slip{
		id:       uuid.NewString(),
		capacity: capacity,
		locks:    make(map[string]bool),
	}
}

func (s *Slip) ID() string    { return s.id }
func (s *Slip) Capacity() int { return s.capacity }
func (s *Slip) Len() int      { return len(s.legs) }

// Legs devuelve una copia de las piernas en orden de inserción.
func (s *Slip) Legs() []Leg {
	out := make([]Leg, len(s.legs))
	copy(out, s.legs)
	return out
}

// State deriva el estado del número de piernas.
func (s *Slip) State() State {
	switch {
	case len(s.legs) == 0:
		return StateEmpty
	case len(s.legs) < readyAt:
		return StateBuilding
	}
	return StateReady
}

// Add añade la pierna al final del slip si cabe, si el jugador no está ya y si
// la plataforma la ofrece. En cualquier otro caso el slip no cambia.
func (s *Slip) Add(l Leg, platform Platform) AddOutcome {
	if len(s.legs) >= s.capacity {
		return Full
	}
	entity := l.Entity()
	for _, cur := range s.legs {
		if cur.Entity() == entity {
			return Duplicate
		}
	}
	if !platform.Available(l) {
		return Unavailable
	}
	s.legs = append(s.legs, l)
	return Added
}

// Remove quita la pierna con esa clave y su lock. Un lock no protege de
// un borrado explícito.
func (s *Slip) Remove(key string) bool {
	for i, l := range s.legs {
		if l.Key() == key {
			s.legs = append(s.legs[:i], s.legs[i+1:]...)
			delete(s.locks, key)
			return true
		}
	}
	return false
}

// Replace sustituye todas las piernas manteniendo solo los locks de claves
// que siguen presentes. Lo usa el optimizador.
func (s *Slip) Replace(legs []Leg) {
	keep := make(map[string]bool, len(legs))
	next := make([]Leg, 0, min(len(legs), s.capacity))
	for _, l := range legs {
		if len(next) >= s.capacity {
			break
		}
		next = append(next, l)
		if s.locks[l.Key()] {
			keep[l.Key()] = true
		}
	}
	s.legs = next
	s.locks = keep
}

// Clear vacía el slip y sus locks.
func (s *Slip) Clear() {
	s.legs = nil
	s.locks = make(map[string]bool)
}

// ToggleLock invierte el lock de la pierna. ok es false si la clave no está.
func (s *Slip) ToggleLock(key string) (locked, ok bool) {
	if !s.contains(key) {
		return false, false
	}
	if s.locks[key] {
		delete(s.locks, key)
		return false, true
	}
	s.locks[key] = true
	return true, true
}

// Locked indica si la pierna con esa clave está bloqueada.
func (s *Slip) Locked(key string) bool {
	return s.locks[key]
}

// LockedLegs devuelve las piernas bloqueadas en orden.
func (s *Slip) LockedLegs() []Leg {
	var out []Leg
	for _, l := range s.legs {
		if s.locks[l.Key()] {
			out = append(out, l)
		}
	}
	return out
}

func (s *Slip) contains(key string) bool {
	for _, l := range s.legs {
		if l.Key() == key {
			return true
		}
	}
	return false
}

// Summary calcula la foto del slip con el perfil dado: piernas normalizadas
// con su score ajustado, edge medio, probabilidad independiente y avisos.
// Edge y probabilidad quedan a 0 hasta que el slip está Ready.
func (s *Slip) Summary(platform Platform, p profile.DFSProfile) domain.SlipSummary {
	scores := AdjustedScores(s.legs, p)
	legs := make([]domain.SlipLeg, len(s.legs))
	edges := make([]float64, len(s.legs))
	probs := make([]float64, len(s.legs))
	for i, l := range s.legs {
		legs[i] = l.Normalized(scores[i], s.locks[l.Key()])
		edges[i] = l.Eval.EdgePct
		probs[i] = l.WinProbability()
	}

	sum := domain.SlipSummary{
		ID:       s.id,
		Platform: string(platform),
		State:    string(s.State()),
		Legs:     legs,
		Warnings: Warnings(s.legs),
	}
	if s.State() == StateReady {
		sum.AvgEdge = stat.Mean(edges, nil)
		sum.WinProb = floats.Prod(probs)
	}
	if sum.Warnings == nil {
		sum.Warnings = []string{}
	}
	return sum
}
