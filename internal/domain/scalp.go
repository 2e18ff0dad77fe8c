package domain

// ScalpDirection es el lado que recomienda una señal de scalping.
type ScalpDirection string

const (
	BuyYes ScalpDirection = "BUY_YES"
	BuyNo  ScalpDirection = "BUY_NO"
)

// ScalpSignal es una señal intradía sobre un contrato de cierre con strike.
type ScalpSignal struct {
	Ticker     string         `json:"contract_ticker"`
	Direction  ScalpDirection `json:"direction"`
	Confidence float64        `json:"confidence"` // 0-1
	Strike     float64        `json:"strike_level"`
	Price      float64        `json:"current_price"`
	Momentum   float64        `json:"momentum"`   // cambio de precio por segundo
	Volatility float64        `json:"volatility"` // desviación típica de los retornos
	Bid        float64        `json:"bid"`        // precio YES 0-1
	Ask        float64        `json:"ask"`
	Volume     float64        `json:"volume"`
	Reasoning  string         `json:"reasoning"`
}
