package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain identifica la familia de mercado a la que pertenece una oportunidad.
// Cada dominio tiene su propio perfil de cálculo y su propio scorer.
type Domain string

const (
	Stocks Domain = "stocks"
	Events Domain = "events"
	DFS    Domain = "dfs"
)

// Domains devuelve los dominios soportados en orden estable.
func Domains() []Domain {
	return []Domain{Stocks, Events, DFS}
}

var (
	// ErrInvalidOdds se devuelve para cuotas americanas iguales a 0 o no finitas.
	ErrInvalidOdds = errors.New("invalid odds")
	// ErrInvalidProbability se devuelve cuando una probabilidad cae fuera de (0,1).
	ErrInvalidProbability = errors.New("invalid probability")
	// ErrUnknownDomain se devuelve cuando el nombre de dominio no es stocks/events/dfs.
	ErrUnknownDomain = errors.New("unknown domain")
)

// ParseDomain convierte un string (case-insensitive) en Domain.
func ParseDomain(s string) (Domain, error) {
	switch Domain(strings.ToLower(strings.TrimSpace(s))) {
	case Stocks:
		return Stocks, nil
	case Events:
		return Events, nil
	case DFS:
		return DFS, nil
	}
	return "", fmt.Errorf("domain.ParseDomain %q: %w", s, ErrUnknownDomain)
}

func (d Domain) String() string {
	return string(d)
}
