package profile

import (
	"encoding/json"
	"fmt"
	"math"
)

// Kind es el tipo de valor de un campo de perfil.
type Kind int

const (
	KindNumber Kind = iota
	KindToggle
)

func (k Kind) String() string {
	if k == KindToggle {
		return "toggle"
	}
	return "number"
}

// Range es el rango recomendado de un campo numérico. Max siempre es inclusivo.
type Range struct {
	Min          float64
	Max          float64
	MinExclusive bool
}

func (r Range) contains(v float64) bool {
	if r.MinExclusive {
		if v <= r.Min {
			return false
		}
	} else if v < r.Min {
		return false
	}
	return v <= r.Max
}

func (r Range) String() string {
	open := "["
	if r.MinExclusive {
		open = "("
	}
	return fmt.Sprintf("%s%g, %g]", open, r.Min, r.Max)
}

// Field describe un campo del perfil P: nombre persistido, tipo, rango
// recomendado y acceso tipado al valor.
type Field[P any] struct {
	Name  string
	Kind  Kind
	Range Range
	num   func(*P) *float64
	flag  func(*P) *bool
}

func number[P any](name string, r Range, acc func(*P) *float64) Field[P] {
	return Field[P]{Name: name, Kind: KindNumber, Range: r, num: acc}
}

func toggle[P any](name string, acc func(*P) *bool) Field[P] {
	return Field[P]{Name: name, Kind: KindToggle, flag: acc}
}

// Value devuelve el valor actual del campo (float64 o bool).
func (f Field[P]) Value(p *P) any {
	if f.Kind == KindToggle {
		return *f.flag(p)
	}
	return *f.num(p)
}

// set asigna raw al campo si es del tipo correcto y finito.
// Devuelve false si el valor se descarta.
func (f Field[P]) set(p *P, raw any) bool {
	if f.Kind == KindToggle {
		b, ok := raw.(bool)
		if !ok {
			return false
		}
		*f.flag(p) = b
		return true
	}
	v, ok := toFloat(raw)
	if !ok {
		return false
	}
	*f.num(p) = v
	return true
}

// check devuelve el motivo por el que v queda fuera del rango recomendado.
func (f Field[P]) check(v float64) (string, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%s must be a finite number", f.Name), true
	}
	if f.Range.contains(v) {
		return "", false
	}
	return fmt.Sprintf("%s=%g is outside the recommended range %s", f.Name, v, f.Range), true
}

func toFloat(raw any) (float64, bool) {
	var v float64
	switch x := raw.(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int64:
		v = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
