package features

import (
	"fmt"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/alejandrodnm/playscore/internal/domain"
)

// DefaultTapeSize son ~5 minutos de ticks de 1s.
const DefaultTapeSize = 300

// Ventanas (en ticks) de las señales de scalping.
const (
	shortWindow      = 10
	mediumWindow     = 30
	volatilityWindow = 60

	minSignalConfidence = 0.4
	valueMargin         = 0.05
	defaultYesCents     = 50.0
)

// Tick es un precio del subyacente en un instante.
type Tick struct {
	Price float64   `json:"price"`
	At    time.Time `json:"at"`
}

// Contract es un contrato de cierre con strike que se vigila para scalping.
// Los precios van en centavos.
type Contract struct {
	Ticker   string  `json:"ticker"`
	Strike   float64 `json:"strike_level"`
	YesPrice float64 `json:"yes_price"`
	Bid      float64 `json:"bid"`
	Ask      float64 `json:"ask"`
	Volume   float64 `json:"volume"`
}

// Tape guarda los últimos ticks de precio. Es seguro para uso concurrente:
// un stream escribe mientras la API lee.
type Tape struct {
	mu    sync.RWMutex
	ticks []Tick
	size  int
}

// NewTape crea una cinta con capacidad size (<= 0 usa DefaultTapeSize).
func NewTape(size int) *Tape {
	if size <= 0 {
		size = DefaultTapeSize
	}
	return &Tape{size: size, ticks: make([]Tick, 0, size)}
}

// Add registra un tick y descarta el más antiguo si se supera la capacidad.
func (t *Tape) Add(price float64, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ticks = append(t.ticks, Tick{Price: price, At: at})
	if len(t.ticks) > t.size {
		t.ticks = append(t.ticks[:0], t.ticks[len(t.ticks)-t.size:]...)
	}
}

// Len devuelve el número de ticks guardados.
func (t *Tape) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ticks)
}

// Last devuelve el último tick.
func (t *Tape) Last() (Tick, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.ticks) == 0 {
		return Tick{}, false
	}
	return t.ticks[len(t.ticks)-1], true
}

// Momentum es el cambio de precio por segundo en los últimos window ticks.
func (t *Tape) Momentum(window int) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return momentum(t.window(window))
}

// Volatility es la desviación típica poblacional de los retornos simples de
// los últimos window ticks. Hace falta un mínimo de 3 ticks.
func (t *Tape) Volatility(window int) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return volatility(t.window(window))
}

func (t *Tape) window(n int) []Tick {
	if n <= 0 || n > len(t.ticks) {
		n = len(t.ticks)
	}
	return t.ticks[len(t.ticks)-n:]
}

func momentum(ticks []Tick) float64 {
	if len(ticks) < 2 {
		return 0
	}
	first, lastTick := ticks[0], ticks[len(ticks)-1]
	dt := lastTick.At.Sub(first.At).Seconds()
	if dt == 0 {
		return 0
	}
	return (lastTick.Price - first.Price) / dt
}

func volatility(ticks []Tick) float64 {
	if len(ticks) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(ticks)-1)
	for i := 1; i < len(ticks); i++ {
		prev := ticks[i-1].Price
		if prev == 0 {
			continue
		}
		returns = append(returns, (ticks[i].Price-prev)/prev)
	}
	if len(returns) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(returns, nil)
	return std
}

// Signals compara el momentum de la cinta con cada contrato y devuelve las
// señales con confianza > 0.4 que además superan el filtro de valor: el
// contrato tiene que estar mal valorado por al menos 5 puntos.
func (t *Tape) Signals(contracts []Contract) []domain.ScalpSignal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.ticks) == 0 || len(contracts) == 0 {
		return nil
	}

	price := t.ticks[len(t.ticks)-1].Price
	short := momentum(t.window(shortWindow))
	medium := momentum(t.window(mediumWindow))
	vol := volatility(t.window(volatilityWindow))

	var signals []domain.ScalpSignal
	for _, c := range contracts {
		if c.Strike == 0 || c.Ticker == "" {
			continue
		}
		distancePct := math.Abs((price-c.Strike)/c.Strike) * 100

		var dir domain.ScalpDirection
		var conf float64
		var reasoning string
		switch {
		case short > 0 && medium > 0:
			dir = domain.BuyYes
			if price > c.Strike {
				conf = math.Min(0.95, 0.5+short*100+distancePct*0.1)
				reasoning = fmt.Sprintf("Price $%.2f above %g, momentum +%.2fpts/s", price, c.Strike, short*100)
			} else {
				conf = math.Min(0.7, 0.3+short*50)
				reasoning = fmt.Sprintf("Price $%.2f approaching %g from below, momentum +%.2fpts/s", price, c.Strike, short*100)
			}
		case short < 0 && medium < 0:
			dir = domain.BuyNo
			if price < c.Strike {
				conf = math.Min(0.95, 0.5+math.Abs(short)*100+distancePct*0.1)
				reasoning = fmt.Sprintf("Price $%.2f below %g, momentum %.2fpts/s", price, c.Strike, short*100)
			} else {
				conf = math.Min(0.7, 0.3+math.Abs(short)*50)
				reasoning = fmt.Sprintf("Price $%.2f dropping toward %g, momentum %.2fpts/s", price, c.Strike, short*100)
			}
		default:
			continue
		}

		if conf <= minSignalConfidence || !mispriced(dir, conf, c.YesPrice) {
			continue
		}
		signals = append(signals, domain.ScalpSignal{
			Ticker:     c.Ticker,
			Direction:  dir,
			Confidence: math.Round(conf*1000) / 1000,
			Strike:     c.Strike,
			Price:      price,
			Momentum:   math.Round(short*1e6) / 1e6,
			Volatility: vol,
			Bid:        c.Bid,
			Ask:        c.Ask,
			Volume:     c.Volume,
			Reasoning:  reasoning,
		})
	}
	return signals
}

// mispriced aplica el filtro de valor sobre el precio YES en centavos.
func mispriced(dir domain.ScalpDirection, conf, yesCents float64) bool {
	if yesCents == 0 {
		yesCents = defaultYesCents
	}
	implied := yesCents / 100
	if dir == domain.BuyYes {
		return conf > implied+valueMargin
	}
	return 1-conf < implied-valueMargin
}
