package engine

import (
	"strings"

	"github.com/alejandrodnm/playscore/internal/domain"
)

// FilterConfig contiene los parámetros configurables de filtrado del ranking.
type FilterConfig struct {
	// MinStocksScore descarta setups y filas del scanner por debajo de este score.
	MinStocksScore float64 `yaml:"min_stocks_score"`
	// MinEventsScore descarta contratos de eventos por debajo de este score.
	MinEventsScore float64 `yaml:"min_events_score"`
	// MinDFSScore descarta props con score compuesto menor.
	MinDFSScore float64 `yaml:"min_dfs_score"`
	// MinEdgePct descarta props cuyo edge (pp) no llega al mínimo.
	MinEdgePct float64 `yaml:"min_edge_pct"`
	// PlaysOnly si true, solo deja props con stake sugerido > 0.
	PlaysOnly bool `yaml:"plays_only"`
	// Side restringe el lado (over/under, BUY_YES/BUY_NO...). Vacío = todos.
	Side string `yaml:"side"`
}

// DefaultFilterConfig devuelve una configuración que no descarta nada.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{}
}

// Filter aplica los filtros configurados sobre un ranking.
type Filter struct {
	cfg FilterConfig
}

// NewFilter crea un Filter con la configuración dada.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// Apply devuelve las oportunidades que pasan todos los filtros.
func (f *Filter) Apply(ranked []domain.Ranked) []domain.Ranked {
	result := make([]domain.Ranked, 0, len(ranked))
	for _, r := range ranked {
		if f.passes(r) {
			result = append(result, r)
		}
	}
	return result
}

// passes devuelve true si la oportunidad supera todos los criterios.
func (f *Filter) passes(r domain.Ranked) bool {
	if f.cfg.Side != "" && !strings.EqualFold(r.Side, f.cfg.Side) {
		return false
	}
	switch r.Domain {
	case domain.Stocks:
		return r.Score >= f.cfg.MinStocksScore
	case domain.Events:
		return r.Score >= f.cfg.MinEventsScore
	case domain.DFS:
		if r.Score < f.cfg.MinDFSScore {
			return false
		}
		if edge, ok := r.EdgePct(); ok && f.cfg.MinEdgePct > 0 && edge < f.cfg.MinEdgePct {
			return false
		}
		if f.cfg.PlaysOnly && r.StakePct() <= 0 {
			return false
		}
	}
	return true
}

// QuickFilter traduce los ajustes rápidos de cada dominio (min_play_score,
// min_edge, plays_only, side_filter) a un FilterConfig. Los campos ausentes o
// de tipo incorrecto se quedan en base.
func QuickFilter(base FilterConfig, quick map[domain.Domain]map[string]any) FilterConfig {
	cfg := base
	if v, ok := number(quick[domain.Stocks], "min_play_score"); ok {
		cfg.MinStocksScore = v
	}
	if v, ok := number(quick[domain.Events], "min_play_score"); ok {
		cfg.MinEventsScore = v
	}
	dfs := quick[domain.DFS]
	if v, ok := number(dfs, "min_edge"); ok {
		cfg.MinEdgePct = v
	}
	if v, ok := dfs["plays_only"].(bool); ok {
		cfg.PlaysOnly = v
	}
	if v, ok := dfs["side_filter"].(string); ok {
		cfg.Side = v
		if strings.EqualFold(v, "all") {
			cfg.Side = ""
		}
	}
	return cfg
}

func number(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
