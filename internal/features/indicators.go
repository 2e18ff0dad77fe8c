// Package features deriva las features que consumen los scorers a partir de
// datos de mercado ya descargados: velas diarias de acciones y ticks de precio
// intradía.
package features

import (
	"errors"
	"fmt"
	"time"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/alejandrodnm/playscore/internal/domain"
)

const (
	rsiPeriod    = 14
	atrPeriod    = 14
	emaFast      = 9
	emaSlow      = 21
	smaPeriod    = 20
	smaTrend     = 50
	pivotWindow  = 60 // ~3 meses de velas diarias
	volumeWindow = 20

	// minBars: EMA lenta más la vela anterior para detectar cruces.
	minBars = emaSlow + 1
)

// ErrNotEnoughBars se devuelve cuando no hay velas suficientes para los indicadores.
var ErrNotEnoughBars = errors.New("not enough bars")

// Bar es una vela OHLCV.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Chart es la serie diaria de un símbolo junto al score 0-100 del modelo de ML.
type Chart struct {
	Symbol  string  `json:"symbol"`
	AIScore float64 `json:"ai_score"`
	Bars    []Bar   `json:"bars"`
}

// Indicators son los indicadores técnicos de la última vela.
type Indicators struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	RSI        float64 `json:"rsi"`
	EMA9       float64 `json:"ema_9"`
	EMA21      float64 `json:"ema_21"`
	PrevEMA9   float64 `json:"prev_ema_9"`
	PrevEMA21  float64 `json:"prev_ema_21"`
	SMA20      float64 `json:"sma_20"`
	SMA50      float64 `json:"sma_50,omitempty"` // 0 con menos de 50 velas
	ATR        float64 `json:"atr"`
	RecentHigh float64 `json:"recent_high"`
	RecentLow  float64 `json:"recent_low"`
	AvgVolume  float64 `json:"avg_volume"`
}

// FreshCross indica si la EMA9 acaba de cruzar por encima de la EMA21.
func (in Indicators) FreshCross() bool {
	return in.PrevEMA9 <= in.PrevEMA21 && in.EMA9 > in.EMA21
}

// Compute calcula los indicadores de la última vela. Las velas deben venir
// en orden cronológico.
func Compute(symbol string, bars []Bar) (Indicators, error) {
	if len(bars) < minBars {
		return Indicators{}, fmt.Errorf("features.Compute %s: %d bars: %w", symbol, len(bars), ErrNotEnoughBars)
	}

	n := len(bars)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		closes[i], highs[i], lows[i], volumes[i] = b.Close, b.High, b.Low, b.Volume
	}

	ema9 := talib.Ema(closes, emaFast)
	ema21 := talib.Ema(closes, emaSlow)
	in := Indicators{
		Symbol:     symbol,
		Price:      closes[n-1],
		RSI:        last(talib.Rsi(closes, rsiPeriod)),
		EMA9:       ema9[n-1],
		EMA21:      ema21[n-1],
		PrevEMA9:   ema9[n-2],
		PrevEMA21:  ema21[n-2],
		SMA20:      last(talib.Sma(closes, smaPeriod)),
		ATR:        last(talib.Atr(highs, lows, closes, atrPeriod)),
		RecentHigh: floats.Max(tail(highs, pivotWindow)),
		RecentLow:  floats.Min(tail(lows, pivotWindow)),
		AvgVolume:  stat.Mean(tail(volumes, volumeWindow), nil),
	}
	if n >= smaTrend {
		in.SMA50 = last(talib.Sma(closes, smaTrend))
	}
	return in, nil
}

// Scanner proyecta los indicadores sobre una fila del scanner. aiScore es el
// score externo 0-100 del modelo de ML.
func (in Indicators) Scanner(aiScore float64) domain.ScannerSignal {
	return domain.ScannerSignal{
		Symbol:    in.Symbol,
		Price:     in.Price,
		Volume:    in.AvgVolume,
		AIScore:   aiScore,
		RSI:       in.RSI,
		EMAFast:   in.EMA9,
		EMASlow:   in.EMA21,
		ATR:       in.ATR,
		Crossover: in.FreshCross(),
	}
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}

func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}
