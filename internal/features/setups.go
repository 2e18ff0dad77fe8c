package features

import (
	"math"

	"github.com/alejandrodnm/playscore/internal/domain"
)

// Tipos de setup generados.
const (
	KindAggressive   = "aggressive"
	KindConservative = "conservative"
	KindTrendFollow  = "trend_follower"
	KindTrendSurfer  = "trend_surfer"
)

const (
	aggressiveATR   = 2.0
	conservativeATR = 2.5
	trendFollowATR  = 3.0
	trendFollowRR   = 3.0
	surferRR        = 2.5
	momentumTarget  = 1.06 // objetivo mínimo del setup agresivo: +6%
)

// Setups genera los setups de trading de una acción:
//   - ATR: agresivo (stop 2.0×ATR), conservativo desde la SMA20 (2.5×ATR) y
//     trend follower (3.0×ATR, R:R 3). Se omiten sin ATR.
//   - Trend surfer: con la EMA9 por encima de la EMA21 (cruce fresco o
//     precio sobre la EMA9), stop en la EMA21 y R:R 2.5. Con el precio en
//     la EMA21 o por debajo no hay stop válido y se omite.
func Setups(in Indicators) []domain.StockSetup {
	var out []domain.StockSetup
	price := in.Price

	if in.ATR > 0 && price > 0 {
		stop := price - in.ATR*aggressiveATR
		target := math.Max(in.RecentHigh, price*momentumTarget)
		out = append(out, setup(in, KindAggressive, price, stop, target, rr(price, stop, target)))

		if in.SMA20 > 0 {
			entry := in.SMA20
			stop := entry - in.ATR*conservativeATR
			out = append(out, setup(in, KindConservative, entry, stop, in.RecentHigh, rr(entry, stop, in.RecentHigh)))
		}

		stop = price - in.ATR*trendFollowATR
		out = append(out, setup(in, KindTrendFollow, price, stop, price+(price-stop)*trendFollowRR, trendFollowRR))
	}

	if in.FreshCross() || (in.EMA9 > in.EMA21 && price > in.EMA9) {
		if risk := price - in.EMA21; risk > 0 {
			out = append(out, setup(in, KindTrendSurfer, price, in.EMA21, price+risk*surferRR, surferRR))
		}
	}
	return out
}

func setup(in Indicators, kind string, entry, stop, target, riskReward float64) domain.StockSetup {
	return domain.StockSetup{
		Symbol:     in.Symbol,
		Kind:       kind,
		Entry:      round2(entry),
		Stop:       round2(stop),
		Target:     round2(target),
		Price:      in.Price,
		RiskReward: round2(riskReward),
	}
}

func rr(entry, stop, target float64) float64 {
	risk := entry - stop
	if risk <= 0 {
		return 0
	}
	return (target - entry) / risk
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
