package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/features"
	"github.com/alejandrodnm/playscore/internal/ports"
	"github.com/alejandrodnm/playscore/internal/profile"
	"github.com/alejandrodnm/playscore/internal/scoring"
	"github.com/alejandrodnm/playscore/internal/slip"
)

// Batch es un lote de oportunidades ya descargadas, agrupadas por forma.
// Charts, Books y Tape son datos en bruto que Expand convierte en setups,
// filas del scanner, cotizaciones y señales de scalping.
type Batch struct {
	Setups      []domain.StockSetup      `json:"setups,omitempty"`
	Scanner     []domain.ScannerSignal   `json:"scanner,omitempty"`
	Markets     []domain.MarketQuote     `json:"markets,omitempty"`
	Convergence []domain.ConvergencePair `json:"convergence,omitempty"`
	Scalps      []domain.ScalpSignal     `json:"scalps,omitempty"`
	Props       []domain.Prop            `json:"props,omitempty"`
	Charts      []features.Chart         `json:"charts,omitempty"`
	Books       []BookFeed               `json:"books,omitempty"`
	Tape        *TapeFeed                `json:"tape,omitempty"`
}

// Len devuelve el número de oportunidades ya formadas del lote.
func (b Batch) Len() int {
	return len(b.Setups) + len(b.Scanner) + len(b.Markets) +
		len(b.Convergence) + len(b.Scalps) + len(b.Props)
}

// Only devuelve el lote restringido a un dominio.
func (b Batch) Only(d domain.Domain) Batch {
	switch d {
	case domain.Stocks:
		return Batch{Setups: b.Setups, Scanner: b.Scanner, Charts: b.Charts}
	case domain.Events:
		return Batch{Markets: b.Markets, Convergence: b.Convergence, Scalps: b.Scalps, Books: b.Books, Tape: b.Tape}
	case domain.DFS:
		return Batch{Props: b.Props}
	}
	return Batch{}
}

// Snapshot es la copia de perfiles y slip con la que trabaja el ranker. Los
// workers solo leen de aquí, nunca de la sesión.
type Snapshot struct {
	Stocks profile.StocksProfile
	Events profile.EventsProfile
	DFS    profile.DFSProfile
	Slip   []slip.Leg
	Sport  string
}

// DefaultSnapshot usa los perfiles por defecto y un slip vacío.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Stocks: profile.Stocks.Default,
		Events: profile.Events.Default,
		DFS:    profile.DFS.Default,
	}
}

// RankerConfig contiene la configuración del ranker.
type RankerConfig struct {
	Workers int // goroutines de scoring (0 = NumCPU*2)
	Filter  FilterConfig
}

// Ranker puntúa lotes de oportunidades en paralelo y los ordena por score.
type Ranker struct {
	cfg      RankerConfig
	filter   *Filter
	storage  ports.RankingStorage
	notifier ports.Notifier
}

// NewRanker crea un Ranker. storage y notifier son opcionales.
func NewRanker(cfg RankerConfig, storage ports.RankingStorage, notifier ports.Notifier) *Ranker {
	return &Ranker{
		cfg:      cfg,
		filter:   NewFilter(cfg.Filter),
		storage:  storage,
		notifier: notifier,
	}
}

// job puntúa una oportunidad. ok=false descarta la oportunidad.
type job func() (domain.Ranked, bool)

// Rank puntúa, filtra y ordena el lote: score descendente, empate por clave.
// Todas las oportunidades de la ejecución comparten RunID y RankedAt.
func (r *Ranker) Rank(ctx context.Context, batch Batch, snap Snapshot) ([]domain.Ranked, error) {
	jobs := r.jobs(batch.Expand(), snap)
	ranked := runConcurrent(ctx, jobs, r.cfg.Workers)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("engine.Rank: %w", err)
	}

	runID := uuid.NewString()
	now := time.Now().UTC()
	for i := range ranked {
		ranked[i].RunID = runID
		ranked[i].RankedAt = now
	}

	ranked = r.filter.Apply(ranked)
	sortRanked(ranked)
	return ranked, nil
}

// Run ejecuta Rank y después notifica y persiste el resultado. Los fallos
// de notificación o persistencia se registran pero no invalidan el ranking.
func (r *Ranker) Run(ctx context.Context, batch Batch, snap Snapshot) ([]domain.Ranked, error) {
	start := time.Now()

	batch = batch.Expand()
	ranked, err := r.Rank(ctx, batch, snap)
	if err != nil {
		return nil, err
	}

	if r.notifier != nil {
		if err := r.notifier.NotifyRanking(ctx, ranked); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}
	if r.storage != nil {
		if err := r.storage.SaveRanking(ctx, ranked); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	slog.Info("ranking complete",
		"queued", batch.Len(),
		"ranked", len(ranked),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return ranked, nil
}

func (r *Ranker) jobs(b Batch, snap Snapshot) []job {
	jobs := make([]job, 0, b.Len())
	for _, s := range b.Setups {
		jobs = append(jobs, func() (domain.Ranked, bool) {
			return domain.Ranked{
				Domain: domain.Stocks,
				Key:    s.Key(),
				Label:  s.Symbol + " " + s.Kind,
				Score:  scoring.SetupScore(s, snap.Stocks),
			}, true
		})
	}
	for _, s := range b.Scanner {
		jobs = append(jobs, func() (domain.Ranked, bool) {
			return domain.Ranked{
				Domain: domain.Stocks,
				Key:    s.Symbol + "|scanner",
				Label:  s.Symbol,
				Score:  scoring.ScannerScore(s, snap.Stocks),
			}, true
		})
	}
	for _, q := range b.Markets {
		jobs = append(jobs, func() (domain.Ranked, bool) {
			return marketRanked(q, "", snap.Events), true
		})
	}
	for _, c := range b.Convergence {
		jobs = append(jobs, func() (domain.Ranked, bool) {
			return marketRanked(scoring.ConvergenceQuote(c), c.Signal(), snap.Events), true
		})
	}
	for _, s := range b.Scalps {
		jobs = append(jobs, func() (domain.Ranked, bool) {
			return marketRanked(scoring.ScalpQuote(s), string(s.Direction), snap.Events), true
		})
	}
	for _, p := range b.Props {
		jobs = append(jobs, func() (domain.Ranked, bool) {
			return propRanked(p, snap)
		})
	}
	return jobs
}

func marketRanked(q domain.MarketQuote, side string, p profile.EventsProfile) domain.Ranked {
	label := q.Title
	if label == "" {
		label = q.Ticker
	}
	return domain.Ranked{
		Domain:     domain.Events,
		Key:        string(q.Venue) + "|" + q.Ticker,
		Label:      label,
		Score:      scoring.MarketScore(q, p),
		Confidence: q.Confidence,
		Side:       side,
	}
}

// propRanked puntúa una prop en el contexto del slip de la sesión y adjunta
// probabilidad y stake. Las cuotas inválidas descartan la prop.
func propRanked(p domain.Prop, snap Snapshot) (domain.Ranked, bool) {
	if p.Sport == "" {
		p.Sport = snap.Sport
	}
	l, err := slip.NewLeg(p, snap.DFS)
	if err != nil {
		slog.Debug("prop skipped", "key", p.Key(), "err", err)
		return domain.Ranked{}, false
	}
	prob := l.Eval.Probability
	prob.EdgePct = l.Eval.EdgePct // edge según useDevig del perfil
	stake := l.Eval.Stake
	return domain.Ranked{
		Domain:      domain.DFS,
		Key:         l.Key(),
		Label:       fmt.Sprintf("%s %s %s %g", p.PlayerName, p.Market, strings.ToUpper(p.Side), p.Line),
		Score:       slip.CandidateScore(l, snap.Slip, snap.DFS),
		Probability: &prob,
		Stake:       &stake,
		Confidence:  l.Eval.Confidence,
		Side:        p.Side,
	}, true
}

// runConcurrent ejecuta los jobs en un worker pool. Si workers <= 0 usa
// runtime.NumCPU() × 2. Con el contexto cancelado los workers dejan de puntuar.
func runConcurrent(ctx context.Context, jobs []job, workers int) []domain.Ranked {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	workers = min(workers, max(1, len(jobs)))

	workCh := make(chan job, len(jobs))
	resultCh := make(chan domain.Ranked, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range workCh {
				if ctx.Err() != nil {
					continue
				}
				if r, ok := j(); ok {
					resultCh <- r
				}
			}
		}()
	}

	for _, j := range jobs {
		workCh <- j
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	ranked := make([]domain.Ranked, 0, len(jobs))
	for r := range resultCh {
		ranked = append(ranked, r)
	}

	slog.Debug("concurrent scoring complete",
		"queued", len(jobs),
		"scored", len(ranked),
		"workers", workers,
	)
	return ranked
}

// sortRanked ordena por score descendente; a igual score, por clave.
func sortRanked(ranked []domain.Ranked) {
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Key < ranked[j].Key
	})
}
