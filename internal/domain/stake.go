package domain

import "math"

const (
	// KellyMultiplier es la fracción fija de Kelly completo que se apuesta.
	KellyMultiplier = 0.25
	// proxyStakeCap y proxyStakePerEdge definen el stake aproximado cuando
	// la fórmula de Kelly no está definida.
	proxyStakeCap     = 2.5
	proxyStakePerEdge = 0.16
)

// StakeMethod indica qué camino produjo la recomendación.
type StakeMethod string

const (
	StakeNone  StakeMethod = "none"  // edge ≤ 0
	StakeKelly StakeMethod = "kelly" // Kelly fraccional
	StakeProxy StakeMethod = "proxy" // Kelly indefinido, aproximación por edge
)

// StakeInput contiene los datos de una oportunidad necesarios para dimensionar.
type StakeInput struct {
	EdgePct          float64  // edge en puntos porcentuales
	FixedImpliedProb float64  // probabilidad implícita del pago fijo de la plataforma
	ImpliedProb      float64  // probabilidad implícita cotizada (sin de-vig); 0 = reconstruir
	FairProb         *float64 // probabilidad sin vig, nil si no hay cuota contraria
	Confidence       float64  // confidence score 0-100
}

// StakeOptions son los toggles del perfil que afectan al staking.
type StakeOptions struct {
	UseDevig            bool
	UseConfidenceShrink bool
	UseKellyCap         bool
	KellyCapPct         float64
}

// StakeRecommendation es el resultado del modelo de staking.
// StakePct está en puntos porcentuales del bankroll y nunca es negativo.
type StakeRecommendation struct {
	FullKelly     float64     `json:"full_kelly"`
	KellyFraction float64     `json:"kelly_fraction"`
	StakePct      float64     `json:"stake_pct"`
	Method        StakeMethod `json:"method"`
	Capped        bool        `json:"capped"`
}

// SuggestedStake calcula el stake recomendado con Kelly fraccional (0.25×),
// shrink de confianza hacia 0.5 y cap opcional.
//
//  1. edge ≤ 0 → 0
//  2. p = fair si hay de-vig, si no la implícita cotizada
//  3. shrink: p' = 0.5 + (p - 0.5) × confidence/100
//  4. b = 1/fixed - 1; si b ≤ 0 o p' ∉ (0,1) → proxy min(2.5, edge × 0.16)
//  5. kelly = max(0, (b·p' - (1-p'))/b × 0.25)
//  6. cap opcional a [0, kellyCapPct]
func SuggestedStake(in StakeInput, opts StakeOptions) StakeRecommendation {
	if !(in.EdgePct > 0) {
		return StakeRecommendation{Method: StakeNone}
	}

	p := baseProbability(in, opts.UseDevig)
	if opts.UseConfidenceShrink {
		conf := clamp(in.Confidence, 0, 100)
		p = 0.5 + (p-0.5)*(conf/100)
	}

	var rec StakeRecommendation
	b := math.NaN()
	if in.FixedImpliedProb > 0 {
		b = 1/in.FixedImpliedProb - 1
	}

	if !(b > 0) || math.IsInf(b, 0) || !validProbability(p) {
		rec = StakeRecommendation{
			StakePct: math.Min(proxyStakeCap, in.EdgePct*proxyStakePerEdge),
			Method:   StakeProxy,
		}
	} else {
		full := (b*p - (1 - p)) / b
		frac := math.Max(0, full*KellyMultiplier)
		rec = StakeRecommendation{
			FullKelly:     full,
			KellyFraction: frac,
			StakePct:      frac * 100,
			Method:        StakeKelly,
		}
	}

	if opts.UseKellyCap {
		limit := math.Max(0, opts.KellyCapPct)
		if rec.StakePct > limit {
			rec.StakePct = limit
			rec.Capped = true
		}
	}
	if rec.StakePct < 0 || math.IsNaN(rec.StakePct) {
		rec.StakePct = 0
	}
	return rec
}

// baseProbability elige la probabilidad de partida del paso 2.
// Sin cuota implícita conocida se reconstruye desde edge = (p - fixed) × 100.
func baseProbability(in StakeInput, useDevig bool) float64 {
	if useDevig && in.FairProb != nil {
		return *in.FairProb
	}
	if in.ImpliedProb > 0 {
		return in.ImpliedProb
	}
	return in.FixedImpliedProb + in.EdgePct/100
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
