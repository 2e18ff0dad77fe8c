package domain

import (
	"math"
	"strconv"
	"strings"
)

// DefaultFixedImpliedProb es la probabilidad implícita del pago fijo de un
// pick'em DFS (≈ -119 americano) cuando la plataforma no publica otra.
const DefaultFixedImpliedProb = 0.545

// maxSpreadCents es el spread que se asume cuando falta bid o ask.
const maxSpreadCents = 100.0

// Venue identifica el mercado de eventos de donde procede un MarketQuote.
type Venue string

const (
	VenueKalshi      Venue = "kalshi"
	VenuePolymarket  Venue = "polymarket"
	VenueConvergence Venue = "convergence"
	VenueScalper     Venue = "scalper"
)

// BookQuote es la cuota americana de un book concreto para una línea.
type BookQuote struct {
	Book string  `json:"book"`
	Odds float64 `json:"odds"`
}

// StockSetup es un setup de trading sobre una acción: entrada, stop y objetivo.
type StockSetup struct {
	Symbol     string  `json:"symbol"`
	Kind       string  `json:"type"`
	Entry      float64 `json:"entry"`
	Stop       float64 `json:"stop_loss"`
	Target     float64 `json:"target"`
	Price      float64 `json:"price"`       // último precio, 0 = sin movimiento desde la entrada
	RiskReward float64 `json:"risk_reward"` // 0 = derivar de entry/stop/target
}

// Key identifica el setup dentro de un ranking.
func (s StockSetup) Key() string {
	return s.Symbol + "|" + s.Kind
}

// RR devuelve el ratio riesgo:beneficio declarado o, si no hay, el derivado.
func (s StockSetup) RR() float64 {
	if s.RiskReward != 0 {
		return s.RiskReward
	}
	risk := s.Entry - s.Stop
	if risk <= 0 {
		return 0
	}
	return (s.Target - s.Entry) / risk
}

// RiskPct es la distancia de la entrada al stop en % de la entrada.
func (s StockSetup) RiskPct() float64 {
	if s.Entry <= 0 {
		return 0
	}
	return (s.Entry - s.Stop) / s.Entry * 100
}

// TargetPct es la distancia de la entrada al objetivo en % de la entrada.
func (s StockSetup) TargetPct() float64 {
	if s.Entry <= 0 {
		return 0
	}
	return (s.Target - s.Entry) / s.Entry * 100
}

// MovePct es el movimiento del precio actual respecto a la entrada.
func (s StockSetup) MovePct() float64 {
	if s.Entry <= 0 || s.Price <= 0 {
		return 0
	}
	return (s.Price - s.Entry) / s.Entry * 100
}

// ScannerSignal es una fila del scanner de acciones con los indicadores ya calculados.
type ScannerSignal struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	AIScore   float64 `json:"ai_score"` // score externo 0-100
	RSI       float64 `json:"rsi"`
	EMAFast   float64 `json:"ema_fast"`
	EMASlow   float64 `json:"ema_slow"`
	ATR       float64 `json:"atr"`
	Crossover bool    `json:"crossover"`
}

// ATRPct es el ATR en % del precio.
func (s ScannerSignal) ATRPct() float64 {
	if s.Price <= 0 {
		return 0
	}
	return s.ATR / s.Price * 100
}

// EMASpreadPct es la separación de la EMA rápida sobre la lenta en %.
func (s ScannerSignal) EMASpreadPct() float64 {
	if s.EMASlow <= 0 {
		return 0
	}
	return (s.EMAFast - s.EMASlow) / s.EMASlow * 100
}

// DollarVolume es el volumen negociado en dólares.
func (s ScannerSignal) DollarVolume() float64 {
	return s.Price * s.Volume
}

// MarketQuote es la foto de un contrato de eventos. Los precios van en 0-1.
type MarketQuote struct {
	Venue      Venue   `json:"venue"`
	Ticker     string  `json:"ticker"`
	Title      string  `json:"title,omitempty"`
	Bid        float64 `json:"bid"`
	Ask        float64 `json:"ask"`
	Volume     float64 `json:"volume"`
	Liquidity  float64 `json:"liquidity"`
	Depth      float64 `json:"depth"`
	Confidence float64 `json:"confidence"` // 0-1
	Momentum   float64 `json:"momentum"`
	Volatility float64 `json:"volatility"`
}

// SpreadCents devuelve ask - bid en centavos. Sin bid o ask el spread se
// considera máximo.
func (q MarketQuote) SpreadCents() float64 {
	if q.Bid <= 0 || q.Ask <= 0 || q.Ask < q.Bid {
		return maxSpreadCents
	}
	return (q.Ask - q.Bid) * 100
}

// Midpoint devuelve el precio medio, 0 si falta un lado.
func (q MarketQuote) Midpoint() float64 {
	if q.Bid <= 0 || q.Ask <= 0 {
		return 0
	}
	return (q.Bid + q.Ask) / 2
}

// QuoteFromBook construye un MarketQuote a partir del libro de órdenes.
// depthWindow es la distancia máxima al midpoint que cuenta como profundidad.
func QuoteFromBook(venue Venue, ticker string, ob OrderBook, depthWindow float64) MarketQuote {
	return MarketQuote{
		Venue:     venue,
		Ticker:    ticker,
		Bid:       ob.BestBid(),
		Ask:       ob.BestAsk(),
		Depth:     ob.NotionalWithin(depthWindow),
		Liquidity: ob.Notional(),
	}
}

// NormalizePrice lleva un precio en centavos (Kalshi) a 0-1. Valores ≤ 1 se
// devuelven tal cual.
func NormalizePrice(p float64) float64 {
	if p > 1 {
		return p / 100
	}
	return p
}

// Prop es una línea de player prop DFS con sus cuotas de referencia.
type Prop struct {
	PlayerID         string      `json:"player_id,omitempty"`
	PlayerName       string      `json:"player_name"`
	Sport            string      `json:"sport,omitempty"`
	Position         string      `json:"position,omitempty"`
	Market           string      `json:"market"`
	Side             string      `json:"side"`
	Line             float64     `json:"line"`
	Book             string      `json:"book"`
	SharpOdds        float64     `json:"sharp_odds"`
	OpposingOdds     *float64    `json:"opposing_odds,omitempty"`
	FixedImpliedProb float64     `json:"fixed_implied_prob,omitempty"`
	BookOdds         []BookQuote `json:"book_odds,omitempty"`
	Trending         bool        `json:"trending,omitempty"`
}

// Entity identifica al jugador: PlayerID si existe, si no el nombre.
func (p Prop) Entity() string {
	if id := strings.TrimSpace(p.PlayerID); id != "" {
		return strings.ToLower(id)
	}
	return strings.ToLower(strings.TrimSpace(p.PlayerName))
}

// Key es la clave compuesta estable entity|market|side|line|book.
// No depende de la posición de la pierna en el slip.
func (p Prop) Key() string {
	parts := []string{
		p.Entity(),
		strings.ToLower(strings.TrimSpace(p.Market)),
		strings.ToLower(strings.TrimSpace(p.Side)),
		strconv.FormatFloat(p.Line, 'g', -1, 64),
		strings.ToLower(strings.TrimSpace(p.Book)),
	}
	return strings.Join(parts, "|")
}

// FixedProb devuelve la probabilidad implícita del pago fijo, con el default
// de la plataforma cuando no viene informada o es inválida.
func (p Prop) FixedProb() float64 {
	if validProbability(p.FixedImpliedProb) {
		return p.FixedImpliedProb
	}
	return DefaultFixedImpliedProb
}

// Probability evalúa la cuota sharp de la prop contra el pago fijo.
func (p Prop) Probability() (ProbabilityResult, error) {
	return Evaluate(p.SharpOdds, p.OpposingOdds, p.FixedProb())
}

// BookCount devuelve el número de books con cuota. Sin lista cuenta el sharp.
func (p Prop) BookCount() int {
	if len(p.BookOdds) == 0 {
		if p.SharpOdds != 0 {
			return 1
		}
		return 0
	}
	return len(p.BookOdds)
}

// BookLines devuelve las cuotas de los books proyectadas con OddsLine.
// Se ignoran cuotas 0 o no finitas.
func (p Prop) BookLines() []float64 {
	lines := make([]float64, 0, len(p.BookOdds))
	for _, q := range p.BookOdds {
		if q.Odds == 0 || math.IsNaN(q.Odds) || math.IsInf(q.Odds, 0) {
			continue
		}
		lines = append(lines, OddsLine(q.Odds))
	}
	return lines
}
