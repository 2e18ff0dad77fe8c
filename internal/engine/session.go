// Package engine orquesta perfiles, scoring y slip dentro de una sesión
// explícita. No hay estado global: cada sesión posee su Store de perfiles y
// su Slip, y el llamador sincroniza si la comparte.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/ports"
	"github.com/alejandrodnm/playscore/internal/profile"
	"github.com/alejandrodnm/playscore/internal/slip"
)

// SessionConfig contiene la configuración inicial de una sesión.
type SessionConfig struct {
	SlipCapacity int
	Platform     string
	Sport        string
}

// Session es el contexto de trabajo de un usuario: perfiles, slip y destino.
type Session struct {
	ID       string
	Profiles *profile.Store
	Slip     *slip.Slip
	Platform slip.Platform
	Sport    string

	cfg SessionConfig
}

// NewSession crea una sesión con perfiles por defecto y slip vacío.
func NewSession(cfg SessionConfig) *Session {
	s := &Session{cfg: cfg}
	s.Reset()
	return s
}

// Reset vuelve al estado inicial: perfiles por defecto, slip nuevo y vacío,
// plataforma y deporte de la configuración.
func (s *Session) Reset() {
	s.ID = uuid.NewString()
	s.Profiles = profile.NewStore()
	s.Slip = slip.New(s.cfg.SlipCapacity)
	s.Platform = slip.ParsePlatform(s.cfg.Platform)
	s.Sport = strings.ToLower(strings.TrimSpace(s.cfg.Sport))
}

// Init carga los perfiles persistidos. Un error deja los perfiles por defecto.
func (s *Session) Init(ctx context.Context, repo ports.ProfileRepository) error {
	if repo == nil {
		return nil
	}
	if err := s.Profiles.Load(ctx, repo); err != nil {
		s.Profiles.ResetAll()
		return fmt.Errorf("engine.Session.Init: %w", err)
	}
	slog.Info("session profiles loaded", "session", s.ID)
	return nil
}

// Leg evalúa la prop con el perfil DFS actual. Si la prop no trae deporte
// hereda el de la sesión.
func (s *Session) Leg(p domain.Prop) (slip.Leg, error) {
	if p.Sport == "" {
		p.Sport = s.Sport
	}
	return slip.NewLeg(p, s.Profiles.DFS())
}

// AddProp evalúa la prop y la intenta añadir al slip.
func (s *Session) AddProp(p domain.Prop) (slip.AddOutcome, slip.Leg, error) {
	l, err := s.Leg(p)
	if err != nil {
		return "", slip.Leg{}, err
	}
	out := s.Slip.Add(l, s.Platform)
	if out != slip.Added {
		slog.Debug("leg not added", "key", l.Key(), "outcome", out)
	}
	return out, l, nil
}

// Rescore recalcula las piernas del slip con el perfil DFS actual. Se llama
// después de cambiar el perfil para que edge y stake no queden obsoletos.
func (s *Session) Rescore() error {
	legs := s.Slip.Legs()
	for i, l := range legs {
		next, err := slip.NewLeg(l.Prop, s.Profiles.DFS())
		if err != nil {
			return fmt.Errorf("engine.Session.Rescore: %w", err)
		}
		legs[i] = next
	}
	s.Slip.Replace(legs)
	return nil
}

// SlipSummary devuelve la foto del slip con el perfil DFS actual.
func (s *Session) SlipSummary() domain.SlipSummary {
	return s.Slip.Summary(s.Platform, s.Profiles.DFS())
}

// Snapshot copia lo que el ranker necesita para trabajar sin tocar la sesión.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Stocks: s.Profiles.Stocks(),
		Events: s.Profiles.Events(),
		DFS:    s.Profiles.DFS(),
		Slip:   s.Slip.Legs(),
		Sport:  s.Sport,
	}
}
