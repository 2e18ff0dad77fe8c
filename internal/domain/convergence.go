package domain

import (
	"math"
	"strings"
)

// MinMatchWords es el mínimo de palabras significativas compartidas para
// considerar que una pregunta de Polymarket y un título de Kalshi son el mismo evento.
const MinMatchWords = 3

// ConvergencePair es un mismo evento cotizado en Polymarket y en Kalshi.
type ConvergencePair struct {
	Question     string  `json:"polymarket_question"`
	KalshiTitle  string  `json:"kalshi_title"`
	KalshiTicker string  `json:"kalshi_ticker"`
	PolyPrice    float64 `json:"polymarket_price"` // 0-1
	KalshiPrice  float64 `json:"kalshi_price"`     // 0-1 o centavos
	KalshiBid    float64 `json:"kalshi_bid"`       // 0-1 o centavos, lado ejecutable
	KalshiAsk    float64 `json:"kalshi_ask"`
	Volume       float64 `json:"volume"`
	Liquidity    float64 `json:"liquidity"`
	MatchScore   int     `json:"match_score"`
}

// Spread es la diferencia absoluta de precio entre venues (0-1).
func (c ConvergencePair) Spread() float64 {
	return math.Abs(c.PolyPrice - NormalizePrice(c.KalshiPrice))
}

// Signal indica qué lado del par está barato.
func (c ConvergencePair) Signal() string {
	if c.PolyPrice > NormalizePrice(c.KalshiPrice) {
		return "BUY_KALSHI"
	}
	return "FADE_KALSHI"
}

// MatchScore cuenta las palabras de más de 3 letras que comparten dos títulos.
func MatchScore(question, title string) int {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(question)) {
		if len(w) > 3 {
			words[w] = struct{}{}
		}
	}
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(title)) {
		if _, ok := words[w]; !ok {
			continue
		}
		seen[w] = struct{}{}
	}
	return len(seen)
}
