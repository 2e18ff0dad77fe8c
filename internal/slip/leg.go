// Package slip gestiona slips DFS multi-pierna: pertenencia, locks,
// penalización por correlación, avisos y valoración de pago por book.
//
// Un Slip tiene un único escritor (la sesión que lo posee). Las funciones
// de correlación y pago son puras.
package slip

import (
	"fmt"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/profile"
	"github.com/alejandrodnm/playscore/internal/scoring"
)

// Leg es una prop ya evaluada con el perfil DFS vigente.
type Leg struct {
	domain.Prop
	Eval scoring.PropEvaluation
}

// NewLeg evalúa la prop con el perfil y la envuelve como pierna.
func NewLeg(prop domain.Prop, p profile.DFSProfile) (Leg, error) {
	eval, err := scoring.EvaluateProp(prop, p)
	if err != nil {
		return Leg{}, fmt.Errorf("slip.NewLeg: %w", err)
	}
	return Leg{Prop: prop, Eval: eval}, nil
}

// WinProbability es la probabilidad independiente de acierto de la pierna:
// la justa si hay cuota contraria, si no la implícita.
func (l Leg) WinProbability() float64 {
	return l.Eval.Probability.Best()
}

// Normalized devuelve la representación que consume el solver.
func (l Leg) Normalized(adjustedScore float64, locked bool) domain.SlipLeg {
	return domain.SlipLeg{
		Key:           l.Key(),
		PlayerName:    l.PlayerName,
		Market:        l.Market,
		Side:          l.Side,
		Line:          l.Line,
		Book:          l.Book,
		SharpOdds:     l.SharpOdds,
		OpposingOdds:  l.OpposingOdds,
		EdgePct:       l.Eval.EdgePct,
		FairProb:      l.Eval.Probability.Fair,
		Confidence:    l.Eval.Confidence,
		StakePct:      l.Eval.Stake.StakePct,
		AdjustedScore: adjustedScore,
		Locked:        locked,
	}
}
