// Package scoring convierte features de oportunidades en un play score acotado.
//
// Todos los scorers comparten la misma forma:
//
//	score = clamp(base + Σ términos − Σ penalizaciones, min, max)
//
// Cada término puede ir ligado a un toggle del perfil: con el toggle apagado
// aporta exactamente 0. Los scorers son funciones puras de (features, perfil).
package scoring

import "math"

// Term es un sumando del score. Value devuelve la magnitud ya ponderada;
// si Penalty es true se resta.
type Term[F, P any] struct {
	Name    string
	Penalty bool
	Enabled func(P) bool // nil = siempre activo
	Value   func(F, P) float64
}

// Composite es un score ponderado con términos activables.
type Composite[F, P any] struct {
	Name  string
	Base  func(F, P) float64
	Terms []Term[F, P]
	// Shape transforma la suma antes de acotar. nil = identidad.
	Shape func(raw float64, p P) float64
	Min   float64
	Max   float64
}

// Contribution es la aportación de un término al score.
type Contribution struct {
	Term    string  `json:"term"`
	Value   float64 `json:"value"` // con signo: las penalizaciones son negativas
	Enabled bool    `json:"enabled"`
}

// Breakdown desglosa un score término a término.
type Breakdown struct {
	Base  float64        `json:"base"`
	Terms []Contribution `json:"terms"`
	Raw   float64        `json:"raw"`
	Score float64        `json:"score"`
}

// Evaluate devuelve el score acotado.
func (c Composite[F, P]) Evaluate(f F, p P) float64 {
	return c.Breakdown(f, p).Score
}

// Breakdown evalúa el score y devuelve la aportación de cada término.
func (c Composite[F, P]) Breakdown(f F, p P) Breakdown {
	b := Breakdown{Terms: make([]Contribution, 0, len(c.Terms))}
	if c.Base != nil {
		b.Base = finite(c.Base(f, p))
	}
	raw := b.Base
	for _, t := range c.Terms {
		contrib := Contribution{Term: t.Name, Enabled: t.Enabled == nil || t.Enabled(p)}
		if contrib.Enabled {
			v := finite(t.Value(f, p))
			if t.Penalty {
				v = -v
			}
			contrib.Value = v
			raw += v
		}
		b.Terms = append(b.Terms, contrib)
	}
	if c.Shape != nil {
		raw = finite(c.Shape(raw, p))
	}
	b.Raw = raw
	b.Score = clamp(raw, c.Min, c.Max)
	return b
}

// Contribution devuelve la aportación del término name, 0 si no existe.
func (b Breakdown) Contribution(name string) float64 {
	for _, t := range b.Terms {
		if t.Term == name {
			return t.Value
		}
	}
	return 0
}

// finite convierte NaN en 0. Los infinitos se dejan para que clamp los acote.
func finite(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, finite(v)))
}
