package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/ports"
)

// Store guarda los perfiles actuales de una sesión. Tiene un único escritor:
// el llamador sincroniza si lo comparte entre goroutines.
type Store struct {
	stocks StocksProfile
	events EventsProfile
	dfs    DFSProfile
}

// NewStore crea un Store con los perfiles por defecto.
func NewStore() *Store {
	s := &Store{}
	s.ResetAll()
	return s
}

func (s *Store) Stocks() StocksProfile { return s.stocks }
func (s *Store) Events() EventsProfile { return s.events }
func (s *Store) DFS() DFSProfile { return s.dfs }

// ResetAll restaura los tres perfiles a sus defaults.
func (s *Store) ResetAll() {
	s.stocks = Stocks.Default
	s.events = Events.Default
	s.dfs = DFS.Default
}

// Get devuelve el perfil del dominio como registro plano.
func (s *Store) Get(d domain.Domain) (map[string]any, error) {
	sec, err := s.section(d)
	if err != nil {
		return nil, err
	}
	return sec.fields(), nil
}

// Update mezcla raw sobre el perfil actual. Devuelve el perfil resultante y
// los campos descartados por tipo incorrecto o no finitos.
func (s *Store) Update(d domain.Domain, raw map[string]any) (map[string]any, []string, error) {
	sec, err := s.section(d)
	if err != nil {
		return nil, nil, err
	}
	dropped := sec.merge(raw)
	if len(dropped) > 0 {
		slog.Warn("profile fields ignored", "domain", d, "fields", dropped)
	}
	return sec.fields(), dropped, nil
}

// ApplyPreset aplica la tabla fija del preset sobre el perfil actual.
func (s *Store) ApplyPreset(d domain.Domain, p Preset) (map[string]any, error) {
	sec, err := s.section(d)
	if err != nil {
		return nil, err
	}
	if err := sec.preset(p); err != nil {
		return nil, err
	}
	return sec.fields(), nil
}

// Reset restaura el perfil del dominio a su default.
func (s *Store) Reset(d domain.Domain) (map[string]any, error) {
	sec, err := s.section(d)
	if err != nil {
		return nil, err
	}
	sec.reset()
	return sec.fields(), nil
}

// Guardrails devuelve las violaciones de rango del perfil actual del dominio.
func (s *Store) Guardrails(d domain.Domain) (map[string]string, error) {
	sec, err := s.section(d)
	if err != nil {
		return nil, err
	}
	return sec.guardrails(), nil
}

// Load lee los tres perfiles del repositorio y los normaliza. Un dominio sin
// perfil persistido, o con uno ilegible, se queda en su default sin tocar
// los demás. Solo los fallos del repositorio se devuelven.
func (s *Store) Load(ctx context.Context, repo ports.ProfileRepository) error {
	for _, d := range domain.Domains() {
		sec, _ := s.section(d)
		raw, err := repo.LoadProfile(ctx, d)
		if errors.Is(err, ports.ErrMalformedProfile) {
			slog.Warn("persisted profile unreadable, using default", "domain", d, "err", err)
			sec.reset()
			continue
		}
		if err != nil {
			return fmt.Errorf("profile.Load %s: %w", d, err)
		}
		if raw == nil {
			sec.reset()
			continue
		}
		if dropped := sec.normalize(raw); len(dropped) > 0 {
			slog.Warn("persisted profile fields reset to default", "domain", d, "fields", dropped)
		}
		for field, reason := range sec.guardrails() {
			slog.Warn("profile guardrail", "domain", d, "field", field, "reason", reason)
		}
	}
	return nil
}

// Save persiste los tres perfiles en el repositorio.
func (s *Store) Save(ctx context.Context, repo ports.ProfileRepository) error {
	for _, d := range domain.Domains() {
		sec, _ := s.section(d)
		if err := repo.SaveProfile(ctx, d, sec.fields()); err != nil {
			return fmt.Errorf("profile.Save %s: %w", d, err)
		}
	}
	return nil
}

// section da acceso uniforme al perfil tipado de cada dominio.
type section interface {
	fields() map[string]any
	merge(raw map[string]any) []string
	normalize(raw map[string]any) []string
	preset(p Preset) error
	reset()
	guardrails() map[string]string
}

type slot[P any] struct {
	schema *Schema[P]
	cur    *P
}

func (sl slot[P]) fields() map[string]any { return sl.schema.ToMap(*sl.cur) }

func (sl slot[P]) merge(raw map[string]any) []string {
	*sl.cur = sl.schema.Merge(*sl.cur, raw)
	return sl.schema.Invalid(raw)
}

func (sl slot[P]) normalize(raw map[string]any) []string {
	*sl.cur = sl.schema.Normalize(raw)
	return sl.schema.Invalid(raw)
}

func (sl slot[P]) preset(p Preset) error {
	next, err := sl.schema.ApplyPreset(p, *sl.cur)
	if err != nil {
		return err
	}
	*sl.cur = next
	return nil
}

func (sl slot[P]) reset() { *sl.cur = sl.schema.Default }

func (sl slot[P]) guardrails() map[string]string { return sl.schema.Guardrails(*sl.cur) }

func (s *Store) section(d domain.Domain) (section, error) {
	switch d {
	case domain.Stocks:
		return slot[StocksProfile]{schema: &Stocks, cur: &s.stocks}, nil
	case domain.Events:
		return slot[EventsProfile]{schema: &Events, cur: &s.events}, nil
	case domain.DFS:
		return slot[DFSProfile]{schema: &DFS, cur: &s.dfs}, nil
	}
	return nil, fmt.Errorf("profile.Store %q: %w", d, domain.ErrUnknownDomain)
}
