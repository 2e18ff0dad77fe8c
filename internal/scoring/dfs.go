package scoring

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/profile"
)

const (
	confidenceBase     = 50.0
	confidenceEdgeMult = 2.2
	maxEdgeInfluence   = 20.0
	vigPenaltyMult     = 0.65
	fairBonus          = 4.0
	trendBonus         = 5.0

	compositeFloor = 8.0
	compositeCeil  = 92.0

	bookSpreadThreshold = 14.0 // puntos OddsLine antes de penalizar desacuerdo
)

// ConfidenceInput son las features del score de confianza de una prop.
type ConfidenceInput struct {
	EdgePct  float64
	VigPct   *float64
	HasFair  bool
	Trending bool
}

// ConfidenceComposite es el score de confianza DFS:
//
//	clamp(50 + edge×2.2 − vig_penalty + fair_bonus + trend_bonus, 0, 100)
var ConfidenceComposite = Composite[ConfidenceInput, profile.DFSProfile]{
	Name: "dfs_confidence",
	Base: func(ConfidenceInput, profile.DFSProfile) float64 { return confidenceBase },
	Terms: []Term[ConfidenceInput, profile.DFSProfile]{
		{
			Name: "edge",
			Value: func(in ConfidenceInput, _ profile.DFSProfile) float64 {
				return clamp(in.EdgePct, -maxEdgeInfluence, maxEdgeInfluence) * confidenceEdgeMult
			},
		},
		{
			Name:    "vig",
			Penalty: true,
			Enabled: func(p profile.DFSProfile) bool { return p.UseVigPenalty },
			Value: func(in ConfidenceInput, _ profile.DFSProfile) float64 {
				if in.VigPct == nil {
					return 0
				}
				return math.Max(0, finite(*in.VigPct)) * vigPenaltyMult
			},
		},
		{
			Name:    "fair",
			Enabled: func(p profile.DFSProfile) bool { return p.UseDevig },
			Value: func(in ConfidenceInput, _ profile.DFSProfile) float64 {
				if in.HasFair {
					return fairBonus
				}
				return 0
			},
		},
		{
			Name:    "trend",
			Enabled: func(p profile.DFSProfile) bool { return p.UseTrendBonus },
			Value: func(in ConfidenceInput, _ profile.DFSProfile) float64 {
				if in.Trending {
					return trendBonus
				}
				return 0
			},
		},
	},
	Min: 0,
	Max: 100,
}

// ConfidenceScore devuelve el score de confianza 0-100 de una prop.
func ConfidenceScore(in ConfidenceInput, p profile.DFSProfile) float64 {
	return ConfidenceComposite.Evaluate(in, p)
}

// LegFeatures son las features del score compuesto de una pierna DFS.
type LegFeatures struct {
	EdgePct            float64
	Confidence         float64 // 0-100
	StakePct           float64
	Books              int
	BookSpread         float64 // max-min en escala OddsLine
	CorrelationPenalty float64 // ver slip.CorrelationPenalty
}

// AIComposite es el score compuesto no lineal: la señal bruta pasa por
// 50 + tanh(señal)×40 y se acota a [8, 92].
var AIComposite = Composite[LegFeatures, profile.DFSProfile]{
	Name: "dfs_ai_composite",
	Terms: []Term[LegFeatures, profile.DFSProfile]{
		{
			Name: "edge",
			Value: func(f LegFeatures, p profile.DFSProfile) float64 {
				return clamp(f.EdgePct, -maxEdgeInfluence, maxEdgeInfluence) / 10 * 0.55 * p.EdgeWeight
			},
		},
		{
			Name: "confidence",
			Value: func(f LegFeatures, p profile.DFSProfile) float64 {
				return (clamp(f.Confidence, 0, 100) - 50) / 50 * 0.45 * p.ConfidenceWeight
			},
		},
		{
			Name: "stake",
			Value: func(f LegFeatures, p profile.DFSProfile) float64 {
				return clamp(f.StakePct, 0, 10) / 10 * 0.25 * p.StakeWeight
			},
		},
		{
			Name: "liquidity",
			Value: func(f LegFeatures, _ profile.DFSProfile) float64 {
				if f.Books < 1 {
					return 0
				}
				return math.Min(0.18, math.Log2(float64(f.Books))*0.08)
			},
		},
		{
			Name:    "book_disagreement",
			Penalty: true,
			Value: func(f LegFeatures, _ profile.DFSProfile) float64 {
				return math.Min(0.22, math.Max(0, finite(f.BookSpread)-bookSpreadThreshold)*0.01)
			},
		},
		{
			Name:    "correlation",
			Penalty: true,
			Enabled: func(p profile.DFSProfile) bool { return p.UseCorrelationPenalty },
			Value: func(f LegFeatures, _ profile.DFSProfile) float64 {
				return math.Min(0.35, math.Max(0, finite(f.CorrelationPenalty))*0.025)
			},
		},
	},
	Shape: func(signal float64, _ profile.DFSProfile) float64 {
		return 50 + math.Tanh(signal)*40
	},
	Min: compositeFloor,
	Max: compositeCeil,
}

// CompositeScore devuelve el score compuesto 8-92 de una pierna.
func CompositeScore(f LegFeatures, p profile.DFSProfile) float64 {
	return AIComposite.Evaluate(f, p)
}

// BookSpread mide el desacuerdo entre books como max-min de sus cuotas en
// escala OddsLine. Con menos de dos books no hay desacuerdo.
func BookSpread(prop domain.Prop) float64 {
	lines := prop.BookLines()
	if len(lines) < 2 {
		return 0
	}
	return floats.Max(lines) - floats.Min(lines)
}

// PropEvaluation reúne todo lo que el motor deriva de una prop.
type PropEvaluation struct {
	Probability domain.ProbabilityResult   `json:"probability"`
	EdgePct     float64                    `json:"edge_pct"`
	Confidence  float64                    `json:"confidence"`
	Stake       domain.StakeRecommendation `json:"stake"`
}

// EvaluateProp calcula probabilidad, edge, confianza y stake de una prop.
// Solo falla con cuotas inválidas.
func EvaluateProp(prop domain.Prop, p profile.DFSProfile) (PropEvaluation, error) {
	pr, err := prop.Probability()
	if err != nil {
		return PropEvaluation{}, fmt.Errorf("scoring.EvaluateProp %s: %w", prop.Key(), err)
	}
	edge := pr.EdgeFor(p.UseDevig)
	conf := ConfidenceScore(ConfidenceInput{
		EdgePct:  edge,
		VigPct:   pr.VigPct,
		HasFair:  pr.Fair != nil,
		Trending: prop.Trending,
	}, p)
	stake := domain.SuggestedStake(domain.StakeInput{
		EdgePct:          edge,
		FixedImpliedProb: pr.Fixed,
		ImpliedProb:      pr.Implied,
		FairProb:         pr.Fair,
		Confidence:       conf,
	}, p.StakeOptions())

	return PropEvaluation{Probability: pr, EdgePct: edge, Confidence: conf, Stake: stake}, nil
}

// Features construye las features del score compuesto para una pierna con la
// penalización de correlación que le corresponde en su contexto.
func (e PropEvaluation) Features(prop domain.Prop, correlationPenalty float64) LegFeatures {
	return LegFeatures{
		EdgePct:            e.EdgePct,
		Confidence:         e.Confidence,
		StakePct:           e.Stake.StakePct,
		Books:              prop.BookCount(),
		BookSpread:         BookSpread(prop),
		CorrelationPenalty: correlationPenalty,
	}
}
