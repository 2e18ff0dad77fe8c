package slip

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/alejandrodnm/playscore/internal/domain"
)

// defaultSharpOdds es la cuota que se asume para una pierna sin cuota sharp.
const defaultSharpOdds = -110.0

// Tablas de pago por book y modo. Los modos todo-o-nada pagan un único
// multiplicador por tamaño; flex e insured pagan según aciertos.
var (
	flatPayouts = map[string]map[domain.SlipMode]map[int]float64{
		"prizepicks": {
			domain.ModePower: {2: 3.0, 3: 5.0, 4: 10.0, 5: 20.0},
		},
		"underdog": {
			domain.ModeStandard: {3: 6.0, 4: 10.0, 5: 20.0, 6: 40.0},
		},
		"sleeper": {
			domain.ModePower: sleeperPower(),
		},
	}

	tieredPayouts = map[string]map[domain.SlipMode]map[int]map[int]float64{
		"prizepicks": {
			domain.ModeFlex: {
				3: {3: 2.25, 2: 1.25},
				4: {4: 5.0, 3: 1.5},
				5: {5: 10.0, 4: 2.0, 3: 0.4},
				6: {6: 25.0, 5: 2.0, 4: 0.4},
			},
		},
		"underdog": {
			domain.ModeInsured: {
				3: {3: 3.0, 2: 1.0},
				4: {4: 6.0, 3: 1.5},
				5: {5: 10.0, 4: 2.5},
				6: {6: 20.0, 5: 2.5},
			},
		},
	}

	// legacyPayouts se usa para books o tamaños sin tabla.
	legacyPayouts = map[int]float64{2: 3.0, 3: 5.0, 4: 10.0, 5: 20.0, 6: 40.0}
)

// sleeperPower: Sleeper paga ~1.75x por pierna, redondeado a centésimas.
func sleeperPower() map[int]float64 {
	m := make(map[int]float64, 5)
	for n := 2; n <= 6; n++ {
		m[n] = math.Round(math.Pow(1.75, float64(n))*100) / 100
	}
	return m
}

func legacyPayout(n int) float64 {
	if m, ok := legacyPayouts[n]; ok {
		return m
	}
	return 2.0
}

// Payout es el pago de un slip: Flat para todo-o-nada, ByHits para modos
// con pago parcial (multiplicador por número de aciertos).
type Payout struct {
	Flat   float64
	ByHits map[int]float64
}

// Tiered indica si el pago depende del número de aciertos.
func (p Payout) Tiered() bool { return p.ByHits != nil }

// Multiplier es el multiplicador mostrado: el de acertar todas.
func (p Payout) Multiplier(n int) float64 {
	if p.Tiered() {
		return p.ByHits[n]
	}
	return p.Flat
}

// PayoutFor devuelve el pago de book/mode para n piernas. Un book o modo sin
// tabla usa la tabla legacy; un tamaño sin entrada también.
func PayoutFor(book string, mode domain.SlipMode, n int) Payout {
	book = CanonicalBook(book)
	if tiers, ok := tieredPayouts[book][mode]; ok {
		if t, ok := tiers[n]; ok {
			return Payout{ByHits: t}
		}
		return Payout{Flat: legacyPayout(n)}
	}
	if flat, ok := flatPayouts[book][mode]; ok {
		if m, ok := flat[n]; ok {
			return Payout{Flat: m}
		}
	}
	return Payout{Flat: legacyPayout(n)}
}

// LegConfidence es el peso de confianza 0.2-0.95 de una pierna para el solver:
// base 0.55 con cuota contraria (0.40 sin ella) más un extra por edge.
func LegConfidence(l domain.SlipLeg) float64 {
	base := 0.40
	if l.OpposingOdds != nil {
		base = 0.55
	}
	edgeFactor := math.Min(0.35, math.Abs(l.EdgePct)/100*1.75)
	return math.Max(0.2, math.Min(0.95, base+edgeFactor))
}

// ConfidenceAdjusted encoge p hacia 0.5 según la confianza c ∈ [0,1].
func ConfidenceAdjusted(p, c float64) float64 {
	return 0.5 + (p-0.5)*c
}

// legProbability es la probabilidad sin vig de la cuota sharp de la pierna.
func legProbability(l domain.SlipLeg) (float64, error) {
	odds := l.SharpOdds
	if odds == 0 {
		odds = defaultSharpOdds
	}
	p, err := domain.ImpliedProbability(odds)
	if err != nil {
		return 0, err
	}
	if l.OpposingOdds == nil {
		return p, nil
	}
	opp, err := domain.ImpliedProbability(*l.OpposingOdds)
	if err != nil {
		return 0, err
	}
	dv, err := domain.Devig(p, opp)
	if err != nil {
		return 0, err
	}
	return dv.FairSide, nil
}

// PayoutSolver valora slips con las tablas de pago de cada book asumiendo
// piernas independientes.
type PayoutSolver struct{}

// Solve calcula probabilidad de acierto, EV y edge combinado del slip.
func (PayoutSolver) Solve(ctx context.Context, legs []domain.SlipLeg, book string, mode domain.SlipMode) (domain.SlipEV, error) {
	if err := ctx.Err(); err != nil {
		return domain.SlipEV{}, err
	}
	n := len(legs)
	if n == 0 {
		return domain.SlipEV{}, fmt.Errorf("slip.Solve: empty slip")
	}

	probs := make([]float64, n)
	var confSum float64
	winProb := 1.0
	for i, l := range legs {
		p, err := legProbability(l)
		if err != nil {
			return domain.SlipEV{}, fmt.Errorf("slip.Solve leg %s: %w", l.Key, err)
		}
		c := LegConfidence(l)
		confSum += c
		probs[i] = ConfidenceAdjusted(p, c)
		winProb *= probs[i]
	}

	payout := PayoutFor(book, mode, n)
	mult := payout.Multiplier(n)
	var ev float64
	if payout.Tiered() {
		ev = tieredEV(probs, payout.ByHits)
	} else {
		ev = winProb*mult - 1
	}
	breakeven := 1.0
	if mult > 0 {
		breakeven = 1 / mult
	}

	return domain.SlipEV{
		Book:             CanonicalBook(book),
		Mode:             mode,
		Legs:             n,
		WinProb:          winProb,
		EV:               ev,
		PayoutMultiplier: mult,
		CombinedEdgePct:  (winProb - breakeven) * 100,
		AvgLegConfidence: confSum / float64(n),
	}, nil
}

// tieredEV es el EV con pago parcial usando la probabilidad media por pierna:
//
//	EV = Σ_k C(n,k)·p^k·(1−p)^(n−k)·m[k] − 1
func tieredEV(probs []float64, byHits map[int]float64) float64 {
	n := len(probs)
	var sum float64
	for _, p := range probs {
		sum += p
	}
	pAvg := sum / float64(n)

	ev := -1.0
	for k := 0; k <= n; k++ {
		m := byHits[k]
		if m == 0 {
			continue
		}
		ev += float64(combin.Binomial(n, k)) * math.Pow(pAvg, float64(k)) * math.Pow(1-pAvg, float64(n-k)) * m
	}
	return ev
}
