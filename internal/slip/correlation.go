package slip

import (
	"fmt"
	"strings"

	"github.com/alejandrodnm/playscore/internal/profile"
	"github.com/alejandrodnm/playscore/internal/scoring"
)

const (
	sameMarketPenalty = 3.5
	sameSidePenalty   = 1.2

	marketRepeatWarnAt = 2
	sideConcentrateAt  = 3
	genericWarnAt      = 4
)

// CorrelationPenalty mide cuánto se solapa candidate con legs:
//
//	mismo_mercado × 3.5 + max(0, mismo_lado − 1) × 1.2
//
// La pierna con la misma clave que candidate no cuenta. El resultado depende
// del contexto que se le pase, no es simétrico entre pares.
func CorrelationPenalty(candidate Leg, legs []Leg) float64 {
	key := candidate.Key()
	market := norm(candidate.Market)
	side := norm(candidate.Side)

	var sameMarket, sameSide int
	for _, l := range legs {
		if l.Key() == key {
			continue
		}
		if norm(l.Market) == market {
			sameMarket++
		}
		if norm(l.Side) == side {
			sameSide++
		}
	}
	return float64(sameMarket)*sameMarketPenalty + float64(max(0, sameSide-1))*sameSidePenalty
}

// AdjustedScores devuelve el score compuesto de cada pierna evaluada contra
// las piernas que la preceden en el slip. El orden de inserción importa.
func AdjustedScores(legs []Leg, p profile.DFSProfile) []float64 {
	scores := make([]float64, len(legs))
	for i, l := range legs {
		penalty := CorrelationPenalty(l, legs[:i])
		scores[i] = scoring.CompositeScore(l.Eval.Features(l.Prop, penalty), p)
	}
	return scores
}

// CandidateScore puntúa una pierna en el contexto del slip. Si ya está dentro
// se evalúa contra las anteriores; si no, contra el slip completo.
func CandidateScore(candidate Leg, legs []Leg, p profile.DFSProfile) float64 {
	ctx := legs
	key := candidate.Key()
	for i, l := range legs {
		if l.Key() == key {
			ctx = legs[:i]
			break
		}
	}
	penalty := CorrelationPenalty(candidate, ctx)
	return scoring.CompositeScore(candidate.Eval.Features(candidate.Prop, penalty), p)
}

// Warnings devuelve como mucho un aviso por regla, en este orden: mercado
// repetido, concentración en un lado y, si ninguna salta y hay 4+ piernas,
// el aviso genérico.
func Warnings(legs []Leg) []string {
	var warnings []string

	if market, n := mostRepeated(legs, func(l Leg) string { return l.Market }); n >= marketRepeatWarnAt {
		warnings = append(warnings, fmt.Sprintf("%d legs share market %s: outcomes are correlated", n, market))
	}
	if side, n := mostRepeated(legs, func(l Leg) string { return l.Side }); n >= sideConcentrateAt {
		warnings = append(warnings, fmt.Sprintf("%d legs on the %s side: concentrated exposure", n, side))
	}
	if len(warnings) == 0 && len(legs) >= genericWarnAt {
		warnings = append(warnings, "moderate correlation risk, diversify")
	}
	return warnings
}

// mostRepeated devuelve el valor más repetido y su cuenta. En empate gana el
// que aparece antes en el slip.
func mostRepeated(legs []Leg, field func(Leg) string) (string, int) {
	counts := make(map[string]int, len(legs))
	var best string
	var bestN int
	for _, l := range legs {
		v := norm(field(l))
		if v == "" {
			continue
		}
		counts[v]++
	}
	for _, l := range legs {
		v := norm(field(l))
		if counts[v] > bestN {
			best, bestN = v, counts[v]
		}
	}
	return best, bestN
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
