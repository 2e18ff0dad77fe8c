package domain

import (
	"fmt"
	"math"
)

const probabilityEpsilon = 1e-6

// EVRequest es la entrada de la calculadora de EV para una apuesta individual.
type EVRequest struct {
	Odds       float64  // cuotas americanas
	UserProb   float64  // probabilidad estimada por el usuario
	Stake      float64  // importe apostado
	Opposing   *float64 // cuotas del lado contrario (opcional, activa el de-vig)
	Confidence float64  // 0-1, confianza en UserProb
}

// EVResult es el resultado de la calculadora de EV.
type EVResult struct {
	EV               float64  `json:"ev"`
	EVPct            float64  `json:"ev_percent"`
	DecimalOdds      float64  `json:"decimal_odds"`
	ImpliedProb      float64  `json:"implied_probability"`
	BlendedProb      float64  `json:"blended_probability"`
	Edge             float64  `json:"your_edge"`
	KellyFraction    float64  `json:"kelly_fraction"`
	KellyStake       float64  `json:"kelly_stake"`
	FairProb         *float64 `json:"fair_prob,omitempty"`
	VigPct           *float64 `json:"vig_pct,omitempty"`
	ConfidenceWeight float64  `json:"confidence_weight"`
	Devigged         bool     `json:"devigged"`
}

// CalculateEV calcula EV y Kelly escalado por confianza.
// Con cuota contraria mezcla la probabilidad del usuario con la justa del mercado:
// a menor confianza, más cerca del mercado.
func CalculateEV(req EVRequest) (EVResult, error) {
	dec, err := AmericanToDecimal(req.Odds)
	if err != nil {
		return EVResult{}, fmt.Errorf("domain.CalculateEV: %w", err)
	}
	implied := 1 / dec
	conf := clamp(req.Confidence, 0, 1)
	userProb := clamp(req.UserProb, probabilityEpsilon, 1-probabilityEpsilon)
	trueProb := userProb

	res := EVResult{
		DecimalOdds:      dec,
		ImpliedProb:      implied,
		ConfidenceWeight: conf,
	}

	if req.Opposing != nil {
		pr, err := Evaluate(req.Odds, req.Opposing, implied)
		if err != nil {
			return EVResult{}, fmt.Errorf("domain.CalculateEV: %w", err)
		}
		res.FairProb = pr.Fair
		res.VigPct = pr.VigPct
		res.Devigged = true
		trueProb = clamp(conf*userProb+(1-conf)*(*pr.Fair), probabilityEpsilon, 1-probabilityEpsilon)
	}

	winProfit := req.Stake * (dec - 1)
	res.EV = trueProb*winProfit - (1-trueProb)*req.Stake
	if req.Stake > 0 {
		res.EVPct = res.EV / req.Stake * 100
	}

	b := dec - 1
	kelly := 0.0
	if b > 0 {
		kelly = (b*trueProb - (1 - trueProb)) / b
	}
	kelly *= 0.25 + 0.75*conf
	res.KellyFraction = math.Max(0, kelly)
	res.KellyStake = req.Stake * res.KellyFraction
	res.BlendedProb = trueProb
	res.Edge = trueProb - implied
	return res, nil
}
