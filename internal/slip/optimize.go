package slip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/ports"
	"github.com/alejandrodnm/playscore/internal/profile"
)

// maxPool acota los candidatos que entran en la combinatoria.
const maxPool = 24

// ErrNoCandidates se devuelve cuando no queda ninguna pierna que valorar.
var ErrNoCandidates = errors.New("no eligible legs")

// OptimizeConfig son los parámetros del optimizador.
type OptimizeConfig struct {
	Size     int // tamaño objetivo, 0 = capacidad del slip
	MinEdge  float64
	Platform Platform
	Book     string // book de pago, vacío = la plataforma
	Mode     domain.SlipMode
}

// Optimized es el mejor slip encontrado.
type Optimized struct {
	Legs      []Leg         `json:"-"`
	EV        domain.SlipEV `json:"ev"`
	Evaluated int           `json:"evaluated"`
}

// Optimize rellena los huecos no bloqueados del slip con la combinación de
// candidatos de mayor EV. Las piernas bloqueadas se conservan siempre y en
// su orden; ningún jugador se repite.
func Optimize(ctx context.Context, solver ports.SlipSolver, s *Slip, candidates []Leg, cfg OptimizeConfig, p profile.DFSProfile) (Optimized, error) {
	size := cfg.Size
	if size <= 0 || size > s.Capacity() {
		size = s.Capacity()
	}
	book := payoutBook(cfg.Book, cfg.Platform)

	locked := s.LockedLegs()
	pool := candidatePool(candidates, entities(locked), cfg)

	open := min(size-len(locked), len(pool))
	if open <= 0 {
		if len(locked) == 0 {
			return Optimized{}, fmt.Errorf("slip.Optimize: %w", ErrNoCandidates)
		}
		ev, err := solver.Solve(ctx, normalize(locked, p), book, cfg.Mode)
		if err != nil {
			return Optimized{}, fmt.Errorf("slip.Optimize: %w", err)
		}
		return Optimized{Legs: locked, EV: ev, Evaluated: 1}, nil
	}

	found, err := search(ctx, solver, locked, pool, open, book, cfg.Mode, p, 1)
	if err != nil {
		return Optimized{}, err
	}
	if len(found) == 0 {
		return Optimized{}, fmt.Errorf("slip.Optimize: %w", ErrNoCandidates)
	}
	best := found[0]

	slog.Debug("slip optimized",
		"size", len(best.Legs),
		"locked", len(locked),
		"pool", len(pool),
		"evaluated", best.Evaluated,
		"ev", best.EV.EV,
	)
	return best, nil
}

// TopConfig son los parámetros de TopSlips.
type TopConfig struct {
	Sizes    []int // nil = 3 a 6
	TopN     int   // 0 = 5
	MinEdge  float64
	Platform Platform
	Book     string
	Mode     domain.SlipMode
}

const (
	defaultTopN = 5
	// maxOverlap es el índice de Jaccard máximo entre dos slips devueltos.
	maxOverlap = 0.82
)

var defaultSizes = []int{3, 4, 5, 6}

// TopSlips busca los mejores slips de cada tamaño pedido, respetando las
// piernas bloqueadas, y devuelve como mucho TopN ordenados por EV. Un slip
// que comparte más del 82% de sus piernas con otro mejor se descarta. Los
// tamaños por encima de la capacidad o por debajo de las piernas bloqueadas
// se ignoran.
func TopSlips(ctx context.Context, solver ports.SlipSolver, s *Slip, candidates []Leg, cfg TopConfig, p profile.DFSProfile) ([]Optimized, error) {
	sizes := cfg.Sizes
	if len(sizes) == 0 {
		sizes = defaultSizes
	}
	topN := cfg.TopN
	if topN <= 0 {
		topN = defaultTopN
	}
	book := payoutBook(cfg.Book, cfg.Platform)

	locked := s.LockedLegs()
	pool := candidatePool(candidates, entities(locked), OptimizeConfig{MinEdge: cfg.MinEdge, Platform: cfg.Platform})

	var all []Optimized
	seen := make(map[int]bool, len(sizes))
	for _, size := range sizes {
		open := size - len(locked)
		if seen[size] || size > s.Capacity() || open < 0 || open > len(pool) {
			continue
		}
		seen[size] = true
		if open == 0 {
			if len(locked) == 0 {
				continue
			}
			ev, err := solver.Solve(ctx, normalize(locked, p), book, cfg.Mode)
			if err != nil {
				slog.Debug("slip size skipped", "size", size, "err", err)
				continue
			}
			all = append(all, Optimized{Legs: locked, EV: ev, Evaluated: 1})
			continue
		}
		found, err := search(ctx, solver, locked, pool, open, book, cfg.Mode, p, max(10, topN*6))
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("slip.TopSlips: %w", ErrNoCandidates)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].EV.EV > all[j].EV.EV })
	selected := make([]Optimized, 0, topN)
	var sets []map[string]bool
	for _, c := range all {
		set := keySet(c.Legs)
		if overlapsAny(set, sets) {
			continue
		}
		selected = append(selected, c)
		sets = append(sets, set)
		if len(selected) == topN {
			break
		}
	}

	slog.Debug("top slips",
		"sizes", sizes,
		"locked", len(locked),
		"pool", len(pool),
		"candidates", len(all),
		"selected", len(selected),
	)
	return selected, nil
}

// search evalúa todas las combinaciones de open piernas del pool junto a las
// bloqueadas y devuelve las keep de mayor EV, de mayor a menor. Evaluated de
// cada resultado es el total de combinaciones valoradas.
func search(ctx context.Context, solver ports.SlipSolver, locked, pool []Leg, open int, book string, mode domain.SlipMode, p profile.DFSProfile, keep int) ([]Optimized, error) {
	byEV := func(xs []Optimized) {
		sort.SliceStable(xs, func(i, j int) bool { return xs[i].EV.EV > xs[j].EV.EV })
	}

	var out []Optimized
	evaluated := 0
	gen := combin.NewCombinationGenerator(len(pool), open)
	idx := make([]int, open)
	for gen.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gen.Combination(idx)
		legs, ok := assemble(locked, pool, idx)
		if !ok {
			continue
		}
		ev, err := solver.Solve(ctx, normalize(legs, p), book, mode)
		if err != nil {
			slog.Debug("slip candidate skipped", "err", err)
			continue
		}
		evaluated++
		out = append(out, Optimized{Legs: legs, EV: ev})
		if len(out) > 2*keep {
			byEV(out)
			out = out[:keep]
		}
	}
	byEV(out)
	if len(out) > keep {
		out = out[:keep]
	}
	for i := range out {
		out[i].Evaluated = evaluated
	}
	return out, nil
}

func payoutBook(book string, platform Platform) string {
	if book == "" {
		return string(platform)
	}
	return book
}

func entities(legs []Leg) map[string]bool {
	taken := make(map[string]bool, len(legs))
	for _, l := range legs {
		taken[l.Entity()] = true
	}
	return taken
}

func keySet(legs []Leg) map[string]bool {
	set := make(map[string]bool, len(legs))
	for _, l := range legs {
		set[l.Key()] = true
	}
	return set
}

// Overlap devuelve el índice de Jaccard entre las claves de dos slips.
func Overlap(a, b []Leg) float64 {
	return jaccard(keySet(a), keySet(b))
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

func overlapsAny(set map[string]bool, prev []map[string]bool) bool {
	for _, p := range prev {
		if jaccard(set, p) > maxOverlap {
			return true
		}
	}
	return false
}

// candidatePool filtra por edge y plataforma, descarta jugadores ya
// bloqueados, deduplica por clave quedándose la de más calidad y ordena.
func candidatePool(candidates []Leg, taken map[string]bool, cfg OptimizeConfig) []Leg {
	byKey := make(map[string]Leg, len(candidates))
	for _, c := range candidates {
		if c.Eval.EdgePct < cfg.MinEdge || taken[c.Entity()] || !cfg.Platform.Available(c) {
			continue
		}
		if cur, ok := byKey[c.Key()]; !ok || betterQuality(c, cur) {
			byKey[c.Key()] = c
		}
	}
	pool := make([]Leg, 0, len(byKey))
	for _, c := range byKey {
		pool = append(pool, c)
	}
	sort.Slice(pool, func(i, j int) bool {
		if betterQuality(pool[i], pool[j]) {
			return true
		}
		if betterQuality(pool[j], pool[i]) {
			return false
		}
		return pool[i].Key() < pool[j].Key()
	})
	if len(pool) > maxPool {
		pool = pool[:maxPool]
	}
	return pool
}

// betterQuality compara por edge y, a igualdad, por número de books.
func betterQuality(a, b Leg) bool {
	if a.Eval.EdgePct != b.Eval.EdgePct {
		return a.Eval.EdgePct > b.Eval.EdgePct
	}
	return a.BookCount() > b.BookCount()
}

func assemble(locked, pool []Leg, idx []int) ([]Leg, bool) {
	legs := make([]Leg, 0, len(locked)+len(idx))
	legs = append(legs, locked...)
	seen := make(map[string]bool, cap(legs))
	for _, l := range locked {
		seen[l.Entity()] = true
	}
	for _, i := range idx {
		e := pool[i].Entity()
		if seen[e] {
			return nil, false
		}
		seen[e] = true
		legs = append(legs, pool[i])
	}
	return legs, true
}

func normalize(legs []Leg, p profile.DFSProfile) []domain.SlipLeg {
	scores := AdjustedScores(legs, p)
	out := make([]domain.SlipLeg, len(legs))
	for i, l := range legs {
		out[i] = l.Normalized(scores[i], false)
	}
	return out
}
