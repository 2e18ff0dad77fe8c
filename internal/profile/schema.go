package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/alejandrodnm/playscore/internal/domain"
)

// Preset es una tabla fija de overrides que se aplica sobre el perfil actual.
type Preset string

const (
	Safe       Preset = "safe"
	Balanced   Preset = "balanced"
	Aggressive Preset = "aggressive"
)

// ErrUnknownPreset se devuelve cuando el nombre no es safe/balanced/aggressive.
var ErrUnknownPreset = errors.New("unknown preset")

// Presets devuelve los presets soportados en orden de riesgo.
func Presets() []Preset {
	return []Preset{Safe, Balanced, Aggressive}
}

// ParsePreset convierte un string (case-insensitive) en Preset.
func ParsePreset(s string) (Preset, error) {
	switch p := Preset(strings.ToLower(strings.TrimSpace(s))); p {
	case Safe, Balanced, Aggressive:
		return p, nil
	}
	return "", fmt.Errorf("profile.ParsePreset %q: %w", s, ErrUnknownPreset)
}

// Overrides es un registro plano campo → valor, el mismo formato que se persiste.
type Overrides map[string]any

// Schema agrupa la tabla de campos, el default y los presets de un dominio.
// Es la única fuente de verdad para normalizar, aplicar presets y validar.
type Schema[P any] struct {
	Domain  domain.Domain
	Fields  []Field[P]
	Default P
	Presets map[Preset]Overrides // balanced no se declara: son los defaults
}

// Normalize construye un perfil a partir de datos no confiables. Cada campo
// ausente, de tipo incorrecto o no finito cae a su default, campo a campo.
func (s *Schema[P]) Normalize(raw map[string]any) P {
	return s.Merge(s.Default, raw)
}

// NormalizeJSON es Normalize sobre un documento JSON. Un documento ilegible
// devuelve el perfil por defecto.
func (s *Schema[P]) NormalizeJSON(data []byte) P {
	raw, err := decodeFlat(data)
	if err != nil {
		return s.Default
	}
	return s.Normalize(raw)
}

// Merge aplica sobre base los campos válidos de raw. Los inválidos conservan
// el valor de base y los desconocidos se ignoran.
func (s *Schema[P]) Merge(base P, raw map[string]any) P {
	out := base
	for _, f := range s.Fields {
		v, ok := raw[f.Name]
		if !ok {
			continue
		}
		f.set(&out, v)
	}
	return out
}

// Invalid devuelve, ordenados, los campos presentes en raw que Merge descartaría.
func (s *Schema[P]) Invalid(raw map[string]any) []string {
	var bad []string
	for _, f := range s.Fields {
		v, ok := raw[f.Name]
		if !ok {
			continue
		}
		var probe P
		if !f.set(&probe, v) {
			bad = append(bad, f.Name)
		}
	}
	sort.Strings(bad)
	return bad
}

// ApplyPreset parte de current y sobrescribe solo los campos del preset.
func (s *Schema[P]) ApplyPreset(preset Preset, current P) (P, error) {
	o, err := s.overrides(preset)
	if err != nil {
		return current, err
	}
	return s.Merge(current, o), nil
}

// PresetOverrides devuelve una copia de la tabla de overrides del preset.
func (s *Schema[P]) PresetOverrides(preset Preset) (Overrides, error) {
	o, err := s.overrides(preset)
	if err != nil {
		return nil, err
	}
	out := make(Overrides, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out, nil
}

func (s *Schema[P]) overrides(preset Preset) (Overrides, error) {
	if preset == Balanced {
		return s.ToMap(s.Default), nil
	}
	o, ok := s.Presets[preset]
	if !ok {
		return nil, fmt.Errorf("profile.ApplyPreset %s/%q: %w", s.Domain, preset, ErrUnknownPreset)
	}
	return o, nil
}

// Guardrail devuelve un motivo legible cuando value queda fuera del rango
// recomendado del campo. Es solo informativo: nunca bloquea la escritura.
// Toggles y campos desconocidos nunca violan.
func (s *Schema[P]) Guardrail(field string, value float64) (string, bool) {
	for _, f := range s.Fields {
		if f.Name == field && f.Kind == KindNumber {
			return f.check(value)
		}
	}
	return "", false
}

// Guardrails evalúa todos los campos numéricos de p.
func (s *Schema[P]) Guardrails(p P) map[string]string {
	out := make(map[string]string)
	for _, f := range s.Fields {
		if f.Kind != KindNumber {
			continue
		}
		if reason, bad := f.check(*f.num(&p)); bad {
			out[f.Name] = reason
		}
	}
	return out
}

// ToMap serializa p como registro plano con los nombres persistidos.
func (s *Schema[P]) ToMap(p P) map[string]any {
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = f.Value(&p)
	}
	return out
}

// Names devuelve los nombres de campo en el orden de la tabla.
func (s *Schema[P]) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func decodeFlat(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("profile.decodeFlat: %w", err)
	}
	return raw, nil
}
