package scoring

import (
	"math"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/profile"
)

const (
	setupBase          = 35.0
	setupRiskThreshold = 4.5 // % de riesgo a partir del cual se penaliza
	setupTrendMinRR    = 2.1

	rsiSweetSpot  = 58.0
	rsiBandWidth  = 22.0
	atrVolCeiling = 5.5 // % ATR a partir del cual se penaliza volatilidad
	atrTrendFloor = 1.0
	liquidityLog0 = 6.5 // log10 del volumen en dólares neutral (~3M$)
)

// SetupComposite puntúa setups de trading (entrada/stop/objetivo).
var SetupComposite = Composite[domain.StockSetup, profile.StocksProfile]{
	Name: "stocks_setup",
	Base: func(domain.StockSetup, profile.StocksProfile) float64 { return setupBase },
	Terms: []Term[domain.StockSetup, profile.StocksProfile]{
		{
			Name: "risk_reward",
			Value: func(s domain.StockSetup, p profile.StocksProfile) float64 {
				return clamp(s.RR(), 0, 5) * 7 * p.ATRWeight
			},
		},
		{
			Name: "move",
			Value: func(s domain.StockSetup, p profile.StocksProfile) float64 {
				return clamp(s.MovePct(), -10, 10) * 1.5 * p.EMAWeight
			},
		},
		{
			Name: "room_to_target",
			Value: func(s domain.StockSetup, p profile.StocksProfile) float64 {
				return clamp(s.TargetPct()-s.RiskPct(), 0, 15) * 0.8 * p.RSIWeight
			},
		},
		{
			Name:    "excess_risk",
			Penalty: true,
			Value: func(s domain.StockSetup, p profile.StocksProfile) float64 {
				return math.Max(0, clamp(s.RiskPct(), 0, 100)-setupRiskThreshold) * 4 * p.VolatilityPenalty
			},
		},
		{
			Name:    "trend_bonus",
			Enabled: func(p profile.StocksProfile) bool { return p.UseLiquidityFilter },
			Value: func(s domain.StockSetup, p profile.StocksProfile) float64 {
				if s.RR() >= setupTrendMinRR {
					return p.TrendStrengthBonus
				}
				return 0
			},
		},
	},
	Min: 0,
	Max: 100,
}

// ScannerComposite puntúa filas del scanner de acciones. El AI score externo
// se centra en 50 y el resultado se mezcla con 50 según scoreSmoothing.
var ScannerComposite = Composite[domain.ScannerSignal, profile.StocksProfile]{
	Name: "stocks_scanner",
	Base: func(s domain.ScannerSignal, _ profile.StocksProfile) float64 {
		return 50 + (clamp(s.AIScore, 0, 100) - 50)
	},
	Terms: []Term[domain.ScannerSignal, profile.StocksProfile]{
		{
			Name:    "rsi_band",
			Enabled: func(p profile.StocksProfile) bool { return p.UseRSIFilter },
			Value: func(s domain.ScannerSignal, p profile.StocksProfile) float64 {
				proximity := math.Max(0, 1-math.Abs(finite(s.RSI)-rsiSweetSpot)/rsiBandWidth)
				return (proximity - 0.5) * 16 * p.RSIWeight
			},
		},
		{
			Name: "ema_trend",
			Value: func(s domain.ScannerSignal, p profile.StocksProfile) float64 {
				return clamp(s.EMASpreadPct(), -5, 5) * 2.2 * p.EMAWeight
			},
		},
		{
			Name:    "crossover",
			Enabled: func(p profile.StocksProfile) bool { return p.UseCrossoverBoost },
			Value: func(s domain.ScannerSignal, p profile.StocksProfile) float64 {
				if s.Crossover {
					return 6 * p.CrossoverWeight
				}
				return 0
			},
		},
		{
			Name:    "atr_trend_gate",
			Enabled: func(p profile.StocksProfile) bool { return p.UseATRTrendGate },
			Value: func(s domain.ScannerSignal, p profile.StocksProfile) float64 {
				atr := s.ATRPct()
				if s.EMAFast > s.EMASlow && atr >= atrTrendFloor && atr <= atrVolCeiling {
					return 4 * p.ATRWeight
				}
				return 0
			},
		},
		{
			Name:    "liquidity",
			Enabled: func(p profile.StocksProfile) bool { return p.UseLiquidityFilter },
			Value: func(s domain.ScannerSignal, p profile.StocksProfile) float64 {
				dv := s.DollarVolume()
				if !(dv > 0) {
					return -3 * 3 * p.LiquidityWeight
				}
				return clamp(math.Log10(dv)-liquidityLog0, -3, 2) * 3 * p.LiquidityWeight
			},
		},
		{
			Name:    "volatility",
			Penalty: true,
			Value: func(s domain.ScannerSignal, p profile.StocksProfile) float64 {
				return math.Max(0, clamp(s.ATRPct(), 0, 100)-atrVolCeiling) * 2.5 * p.VolatilityPenalty
			},
		},
	},
	// Sin suavizado el score es 50 aunque la suma no sea finita.
	Shape: func(raw float64, p profile.StocksProfile) float64 {
		smoothing := clamp(p.ScoreSmoothing, 0, 1)
		if smoothing == 0 {
			return 50
		}
		return 50 + (raw-50)*smoothing
	},
	Min: 0,
	Max: 100,
}

// SetupScore devuelve el play score 0-100 de un setup.
func SetupScore(s domain.StockSetup, p profile.StocksProfile) float64 {
	return SetupComposite.Evaluate(s, p)
}

// ScannerScore devuelve el play score 0-100 de una fila del scanner.
func ScannerScore(s domain.ScannerSignal, p profile.StocksProfile) float64 {
	return ScannerComposite.Evaluate(s, p)
}
