package scoring

import (
	"math"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/profile"
)

const (
	marketBase       = 30.0
	spreadZeroCents  = 10.0 // spread al que el término de spread llega a 0
	matchWordsForMax = 6.0
)

// VenueScale son las escalas de normalización de un venue. Los cuatro venues
// comparten fórmula y solo difieren aquí.
type VenueScale struct {
	Volume          float64 // volumen que satura el término de volumen
	Liquidity       float64 // liquidez que satura el término de liquidez
	Depth           float64 // profundidad que satura el boost de depth
	SafeLiquidity   float64 // por debajo empieza el riesgo de ejecución
	SafeSpreadCents float64 // por encima empieza el riesgo de ejecución
}

var venueScales = map[domain.Venue]VenueScale{
	domain.VenueKalshi:      {Volume: 10_000, Liquidity: 5_000, Depth: 2_000, SafeLiquidity: 2_000, SafeSpreadCents: 4},
	domain.VenuePolymarket:  {Volume: 100_000, Liquidity: 50_000, Depth: 10_000, SafeLiquidity: 10_000, SafeSpreadCents: 3},
	domain.VenueConvergence: {Volume: 50_000, Liquidity: 25_000, Depth: 5_000, SafeLiquidity: 5_000, SafeSpreadCents: 5},
	domain.VenueScalper:     {Volume: 5_000, Liquidity: 2_000, Depth: 1_000, SafeLiquidity: 1_000, SafeSpreadCents: 6},
}

// ScaleFor devuelve las escalas del venue. Un venue desconocido usa las de Kalshi.
func ScaleFor(v domain.Venue) VenueScale {
	if s, ok := venueScales[v]; ok {
		return s
	}
	return venueScales[domain.VenueKalshi]
}

// MarketComposite puntúa contratos de eventos: spread estrecho y volumen/liquidez
// suman, volatilidad y riesgo de ejecución restan.
var MarketComposite = Composite[domain.MarketQuote, profile.EventsProfile]{
	Name: "events_market",
	Base: func(domain.MarketQuote, profile.EventsProfile) float64 { return marketBase },
	Terms: []Term[domain.MarketQuote, profile.EventsProfile]{
		{
			Name: "spread",
			Value: func(q domain.MarketQuote, p profile.EventsProfile) float64 {
				return math.Max(0, 1-q.SpreadCents()/spreadZeroCents) * 20 * p.SpreadWeight
			},
		},
		{
			Name: "volume",
			Value: func(q domain.MarketQuote, p profile.EventsProfile) float64 {
				return logNorm(q.Volume, ScaleFor(q.Venue).Volume) * 12 * p.LiquidityWeight
			},
		},
		{
			Name: "liquidity",
			Value: func(q domain.MarketQuote, p profile.EventsProfile) float64 {
				return logNorm(q.Liquidity, ScaleFor(q.Venue).Liquidity) * 10 * p.LiquidityWeight
			},
		},
		{
			Name:    "depth",
			Enabled: func(p profile.EventsProfile) bool { return p.UseDepthBoost },
			Value: func(q domain.MarketQuote, p profile.EventsProfile) float64 {
				return ratio(q.Depth, ScaleFor(q.Venue).Depth) * 8 * p.DepthWeight
			},
		},
		{
			Name:    "confidence",
			Enabled: func(p profile.EventsProfile) bool { return p.UseConfidenceScaling },
			Value: func(q domain.MarketQuote, p profile.EventsProfile) float64 {
				return (clamp(q.Confidence, 0, 1) - 0.5) * 20 * p.ConfidenceWeight
			},
		},
		{
			Name:    "momentum",
			Enabled: func(p profile.EventsProfile) bool { return p.UseMomentumBoost },
			Value: func(q domain.MarketQuote, p profile.EventsProfile) float64 {
				return clamp(math.Abs(q.Momentum)*p.ScalpSensitivity, 0, 1) * 10 * p.MomentumWeight
			},
		},
		{
			Name:    "volatility",
			Penalty: true,
			Enabled: func(p profile.EventsProfile) bool { return p.UseVolatilityPenalty },
			Value: func(q domain.MarketQuote, p profile.EventsProfile) float64 {
				return clamp(q.Volatility, 0, 1) * 12 * p.VolatilityPenalty
			},
		},
		{
			Name:    "execution_risk",
			Penalty: true,
			Enabled: func(p profile.EventsProfile) bool { return p.UseExecutionRisk },
			Value: func(q domain.MarketQuote, p profile.EventsProfile) float64 {
				scale := ScaleFor(q.Venue)
				liqGap := 1 - ratio(q.Liquidity, scale.SafeLiquidity)
				spreadGap := math.Max(0, q.SpreadCents()/scale.SafeSpreadCents-1)
				return (liqGap*6 + math.Min(spreadGap, 2)*4) * p.ExecutionRiskPenalty
			},
		},
	},
	Min: 0,
	Max: 100,
}

// MarketScore devuelve el play score 0-100 de un contrato de eventos.
func MarketScore(q domain.MarketQuote, p profile.EventsProfile) float64 {
	return MarketComposite.Evaluate(q, p)
}

// ConvergenceQuote proyecta un par Polymarket/Kalshi sobre las features del
// scorer de mercado. La divergencia de precio actúa como momentum y la
// calidad del match como confianza. Se ejecuta en Kalshi.
func ConvergenceQuote(c domain.ConvergencePair) domain.MarketQuote {
	return domain.MarketQuote{
		Venue:      domain.VenueConvergence,
		Ticker:     c.KalshiTicker,
		Title:      c.KalshiTitle,
		Bid:        domain.NormalizePrice(c.KalshiBid),
		Ask:        domain.NormalizePrice(c.KalshiAsk),
		Volume:     c.Volume,
		Liquidity:  c.Liquidity,
		Depth:      c.Liquidity,
		Confidence: math.Min(1, float64(c.MatchScore)/matchWordsForMax),
		Momentum:   c.Spread() * 10,
	}
}

// ScalpQuote proyecta una señal de scalping sobre las features del scorer de mercado.
func ScalpQuote(s domain.ScalpSignal) domain.MarketQuote {
	return domain.MarketQuote{
		Venue:      domain.VenueScalper,
		Ticker:     s.Ticker,
		Bid:        domain.NormalizePrice(s.Bid),
		Ask:        domain.NormalizePrice(s.Ask),
		Volume:     s.Volume,
		Liquidity:  s.Volume,
		Depth:      s.Volume,
		Confidence: s.Confidence,
		Momentum:   s.Momentum,
		Volatility: s.Volatility * 100,
	}
}

// logNorm normaliza v a 0-1 en escala logarítmica: v = scale → 1.
func logNorm(v, scale float64) float64 {
	if !(v > 0) || !(scale > 0) {
		return 0
	}
	return clamp(math.Log10(1+v)/math.Log10(1+scale), 0, 1)
}

func ratio(v, scale float64) float64 {
	if !(scale > 0) {
		return 0
	}
	return clamp(v/scale, 0, 1)
}
