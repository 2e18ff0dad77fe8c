package slip

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/alejandrodnm/playscore/internal/domain"
)

type stackKey struct {
	Position string
	Stat     string
}

// Coeficientes de correlación históricos para stacks DFS por (posición, stat).
var stackMatrix = map[string]map[stackKey]map[stackKey]float64{
	"NFL": {
		{"QB", "passing_yards"}: {
			{"WR1", "receiving_yards"}: 0.72,
			{"WR2", "receiving_yards"}: 0.55,
			{"TE", "receiving_yards"}:  0.48,
			{"WR1", "receptions"}:      0.68,
			{"RB", "receiving_yards"}:  0.25,
		},
		{"QB", "passing_tds"}: {
			{"WR1", "tds"}: 0.65,
			{"WR2", "tds"}: 0.40,
			{"TE", "tds"}:  0.38,
		},
		{"RB", "rushing_yards"}: {
			{"DEF", "points_allowed"}: -0.35,
			{"QB", "passing_yards"}:   -0.20,
		},
		{"WR1", "receiving_yards"}: {
			{"QB", "passing_yards"}:    0.72,
			{"WR2", "receiving_yards"}: -0.15,
			{"TE", "receiving_yards"}:  -0.10,
		},
	},
	"NBA": {
		{"PG", "points"}: {
			{"SG", "points"}:  0.25,
			{"PG", "assists"}: 0.60,
		},
		{"PG", "assists"}: {
			{"SG", "points"}: 0.45,
			{"SF", "points"}: 0.40,
			{"C", "points"}:  0.35,
		},
		{"C", "rebounds"}: {
			{"C", "points"}:    0.55,
			{"PF", "rebounds"}: -0.20,
		},
	},
}

// Stack es una pick correlacionada con otra.
type Stack struct {
	Position       string  `json:"position"`
	Stat           string  `json:"stat"`
	Correlation    float64 `json:"correlation"`
	Direction      string  `json:"direction"`
	Strength       string  `json:"strength"`
	Recommendation string  `json:"recommendation"`
}

// CorrelatedPicks devuelve las n picks más correlacionadas (en valor
// absoluto) con position/stat. Deporte o clave sin datos devuelven nil.
func CorrelatedPicks(sport, position, stat string, n int) []Stack {
	corrs := stackMatrix[strings.ToUpper(sport)][stackKey{strings.ToUpper(position), strings.ToLower(stat)}]
	out := make([]Stack, 0, len(corrs))
	for k, c := range corrs {
		out = append(out, Stack{
			Position:       k.Position,
			Stat:           k.Stat,
			Correlation:    c,
			Direction:      direction(c),
			Strength:       strength(c),
			Recommendation: recommendation(c, k.Stat),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Correlation), math.Abs(out[j].Correlation)
		if ai != aj {
			return ai > aj
		}
		return out[i].Position+out[i].Stat < out[j].Position+out[j].Stat
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func direction(c float64) string {
	if c > 0 {
		return "positive"
	}
	return "negative"
}

func strength(c float64) string {
	switch a := math.Abs(c); {
	case a >= 0.6:
		return "strong"
	case a >= 0.3:
		return "moderate"
	}
	return "weak"
}

func recommendation(c float64, stat string) string {
	switch {
	case c >= 0.6:
		return fmt.Sprintf("Strong stack: pair with %s OVER", stat)
	case c >= 0.3:
		return fmt.Sprintf("Moderate stack: consider %s OVER", stat)
	case c <= -0.3:
		return fmt.Sprintf("Negative correlation: consider %s UNDER if primary goes OVER", stat)
	}
	return "Weak correlation: use independently"
}

// ParlayLeg es una pierna de pick'em con su probabilidad y, opcionalmente,
// sus coeficientes de correlación con el resto.
type ParlayLeg struct {
	Probability  float64   `json:"probability"`
	Correlations []float64 `json:"correlations,omitempty"`
}

// ParlayResult es la valoración de una entrada pick'em multi-pierna.
type ParlayResult struct {
	Legs             int     `json:"legs"`
	IndependentProb  float64 `json:"independent_probability"`
	CombinedProb     float64 `json:"combined_probability"`
	PayoutMultiplier float64 `json:"payout_multiplier"`
	EV               float64 `json:"ev"`
	EVPct            float64 `json:"ev_percent"`
	KellyFraction    float64 `json:"kelly_fraction"`
	Recommendation   string  `json:"recommendation"`
}

var pickemPayouts = map[int]float64{2: 3.0, 3: 6.0, 4: 10.0, 5: 20.0, 6: 40.0}

// ParlayEV valora una entrada pick'em. Con correlaciones informadas la
// probabilidad conjunta se encoge por max(0.5, 1 − 0.35·media|ρ|).
// Una probabilidad fuera de [0,1] es un error.
func ParlayEV(legs []ParlayLeg) (ParlayResult, error) {
	if len(legs) == 0 {
		return ParlayResult{Recommendation: "SKIP"}, nil
	}

	independent := 1.0
	var corrSum float64
	var corrN int
	for i, l := range legs {
		if math.IsNaN(l.Probability) || l.Probability < 0 || l.Probability > 1 {
			return ParlayResult{}, fmt.Errorf("slip.ParlayEV leg %d (%v): %w", i, l.Probability, domain.ErrInvalidProbability)
		}
		independent *= l.Probability
		for _, c := range l.Correlations {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				continue
			}
			corrSum += math.Abs(c)
			corrN++
		}
	}

	combined := independent
	if corrN > 0 {
		avgAbs := math.Min(1, corrSum/float64(corrN))
		shrink := math.Max(0.5, 1-0.35*avgAbs)
		combined = math.Max(0, math.Min(1, independent*shrink))
	}

	n := len(legs)
	payout, ok := pickemPayouts[n]
	if !ok {
		payout = math.Pow(2, float64(n))
	}
	ev := combined*payout - 1

	res := ParlayResult{
		Legs:             n,
		IndependentProb:  independent,
		CombinedProb:     combined,
		PayoutMultiplier: payout,
		EV:               ev,
		EVPct:            ev * 100,
		Recommendation:   "SKIP",
	}
	if ev > 0 && payout > 1 {
		res.KellyFraction = math.Max(0, (combined*payout-1)/(payout-1))
		res.Recommendation = "BET"
	}
	return res, nil
}
