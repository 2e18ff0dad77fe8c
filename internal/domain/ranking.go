package domain

import "time"

// Ranked es una oportunidad ya puntuada dentro de una ejecución del ranker.
type Ranked struct {
	RunID       string               `json:"run_id"`
	Domain      Domain               `json:"domain"`
	Key         string               `json:"key"`
	Label       string               `json:"label"`
	Score       float64              `json:"score"`
	Probability *ProbabilityResult   `json:"probability,omitempty"`
	Stake       *StakeRecommendation `json:"stake,omitempty"`
	Confidence  float64              `json:"confidence,omitempty"`
	Side        string               `json:"side,omitempty"`
	RankedAt    time.Time            `json:"ranked_at"`
}

// EdgePct devuelve el edge de la oportunidad si tiene modelo de probabilidad.
func (r Ranked) EdgePct() (float64, bool) {
	if r.Probability == nil {
		return 0, false
	}
	return r.Probability.EdgePct, true
}

// StakePct devuelve el stake sugerido, 0 si no aplica.
func (r Ranked) StakePct() float64 {
	if r.Stake == nil {
		return 0
	}
	return r.Stake.StakePct
}
