package domain

import (
	"fmt"
	"math"
)

// ImpliedProbability convierte cuotas americanas en probabilidad implícita.
//
//	odds ≥ 0 → 100 / (odds + 100)
//	odds < 0 → -odds / (-odds + 100)
//
// Devuelve ErrInvalidOdds para odds == 0 o no finitas: una probabilidad
// inventada aquí contaminaría todo el scoring posterior.
func ImpliedProbability(odds float64) (float64, error) {
	if odds == 0 || math.IsNaN(odds) || math.IsInf(odds, 0) {
		return 0, fmt.Errorf("domain.ImpliedProbability %v: %w", odds, ErrInvalidOdds)
	}
	if odds > 0 {
		return 100 / (odds + 100), nil
	}
	return -odds / (-odds + 100), nil
}

// AmericanToDecimal convierte cuotas americanas en decimales.
// +150 → 2.50, -150 → 1.667.
func AmericanToDecimal(odds float64) (float64, error) {
	if odds == 0 || math.IsNaN(odds) || math.IsInf(odds, 0) {
		return 0, fmt.Errorf("domain.AmericanToDecimal %v: %w", odds, ErrInvalidOdds)
	}
	if odds > 0 {
		return odds/100 + 1, nil
	}
	return 100/(-odds) + 1, nil
}

// DecimalToImplied convierte cuotas decimales (> 1) en probabilidad implícita.
func DecimalToImplied(decimal float64) (float64, error) {
	if !(decimal > 1) || math.IsInf(decimal, 0) {
		return 0, fmt.Errorf("domain.DecimalToImplied %v: %w", decimal, ErrInvalidOdds)
	}
	return 1 / decimal, nil
}

// ProbabilityToAmerican convierte una probabilidad en (0,1) a cuotas americanas.
// p ≥ 0.5 da cuotas negativas (favorito), p < 0.5 positivas.
func ProbabilityToAmerican(p float64) (float64, error) {
	if !validProbability(p) {
		return 0, fmt.Errorf("domain.ProbabilityToAmerican %v: %w", p, ErrInvalidProbability)
	}
	if p >= 0.5 {
		return -100 * p / (1 - p), nil
	}
	return 100 * (1 - p) / p, nil
}

// DevigResult es el resultado del de-vig clásico de un mercado a dos lados.
type DevigResult struct {
	FairSide     float64 // probabilidad justa del lado evaluado
	FairOpposing float64 // probabilidad justa del lado contrario
	VigPct       float64 // overround en puntos porcentuales (puede ser negativo)
}

// Devig elimina el overround de un par de probabilidades implícitas
// normalizándolas para que sumen 1 y preservando su ratio.
//
//	vig_pct = (pSide + pOpposing - 1) × 100
//	fair    = pSide / (pSide + pOpposing)
func Devig(pSide, pOpposing float64) (DevigResult, error) {
	if !validProbability(pSide) || !validProbability(pOpposing) {
		return DevigResult{}, fmt.Errorf("domain.Devig (%v, %v): %w", pSide, pOpposing, ErrInvalidProbability)
	}
	total := pSide + pOpposing
	fair := pSide / total
	return DevigResult{
		FairSide:     fair,
		FairOpposing: 1 - fair,
		VigPct:       (total - 1) * 100,
	}, nil
}

// EdgePct calcula el edge en puntos porcentuales. Positivo = favorable al apostador.
func EdgePct(fairOrImplied, platformImplied float64) float64 {
	return (fairOrImplied - platformImplied) * 100
}

// ProbabilityResult agrupa las probabilidades derivadas de una cuota.
// Fair y VigPct son nil cuando no hay cuota contraria: estado degradado pero válido,
// los consumidores deben usar Implied en su lugar.
type ProbabilityResult struct {
	Implied float64  `json:"implied_probability"`
	Fair    *float64 `json:"fair_probability,omitempty"`
	VigPct  *float64 `json:"vig_pct,omitempty"`
	Fixed   float64  `json:"fixed_implied_probability"`
	EdgePct float64  `json:"edge_pct"`
}

// Best devuelve la probabilidad justa si existe, o la implícita si no.
func (r ProbabilityResult) Best() float64 {
	if r.Fair != nil {
		return *r.Fair
	}
	return r.Implied
}

// EdgeFor devuelve el edge con o sin de-vig. Sin de-vig se compara la
// probabilidad implícita cotizada, vig incluido.
func (r ProbabilityResult) EdgeFor(useDevig bool) float64 {
	if useDevig {
		return r.EdgePct
	}
	return EdgePct(r.Implied, r.Fixed)
}

// Evaluate calcula implied/fair/vig/edge para una cuota contra la probabilidad
// implícita fija de la plataforma. opposing puede ser nil.
func Evaluate(odds float64, opposing *float64, platformImplied float64) (ProbabilityResult, error) {
	implied, err := ImpliedProbability(odds)
	if err != nil {
		return ProbabilityResult{}, err
	}
	res := ProbabilityResult{Implied: implied, Fixed: platformImplied}

	if opposing != nil {
		oppImplied, err := ImpliedProbability(*opposing)
		if err != nil {
			return ProbabilityResult{}, err
		}
		dv, err := Devig(implied, oppImplied)
		if err != nil {
			return ProbabilityResult{}, err
		}
		res.Fair = &dv.FairSide
		res.VigPct = &dv.VigPct
	}

	res.EdgePct = EdgePct(res.Best(), platformImplied)
	return res, nil
}

// OddsLine proyecta cuotas americanas a una escala continua donde +100 ≡ -100.
// -110 → -110, +105 → -95. Sirve para medir dispersión entre books en "puntos".
func OddsLine(odds float64) float64 {
	if odds >= 100 {
		return odds - 200
	}
	return odds
}

func validProbability(p float64) bool {
	return p > 0 && p < 1
}
