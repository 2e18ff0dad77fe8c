package storage

// sqlite.go: perfiles de cálculo e histórico de rankings.
//
// Estrategia:
//   - `profiles`: una fila por dominio con el perfil plano en JSON (UPSERT).
//   - `runs`: resumen ligero por ejecución del ranker (total, mejor score).
//   - `rankings`: una fila por oportunidad puntuada y ejecución.
//   - Cache en memoria de perfiles: evita writes si el JSON no cambió.
//   - Prune automático al arrancar: runs y rankings de más de 30 días.
//   - Tiempos en milisegundos Unix UTC para comparar rangos sin depender del
//     formato de fecha del driver.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
-- Perfil plano por dominio
CREATE TABLE IF NOT EXISTS profiles (
    domain     TEXT PRIMARY KEY,
    body       TEXT    NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Resumen ligero por ejecución del ranker
CREATE TABLE IF NOT EXISTS runs (
    run_id     TEXT PRIMARY KEY,
    ranked_at  INTEGER NOT NULL,
    total      INTEGER NOT NULL DEFAULT 0,
    best_score REAL    NOT NULL DEFAULT 0
);

-- Una fila por oportunidad y ejecución
CREATE TABLE IF NOT EXISTS rankings (
    run_id     TEXT    NOT NULL,
    domain     TEXT    NOT NULL,
    key        TEXT    NOT NULL,
    label      TEXT,
    score      REAL    NOT NULL DEFAULT 0,
    edge_pct   REAL,
    stake_pct  REAL,
    confidence REAL    NOT NULL DEFAULT 0,
    side       TEXT,
    ranked_at  INTEGER NOT NULL,
    PRIMARY KEY (run_id, key)
);

CREATE INDEX IF NOT EXISTS idx_runs_at       ON runs(ranked_at DESC);
CREATE INDEX IF NOT EXISTS idx_rankings_at   ON rankings(ranked_at DESC);
CREATE INDEX IF NOT EXISTS idx_rankings_dom  ON rankings(domain);
`

// retention: histórico de rankings que se conserva.
const retention = 30 * 24 * time.Hour

// SQLiteStorage implementa ports.ProfileRepository y ports.RankingStorage
// usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db    *sql.DB
	cache map[domain.Domain]string // dominio → JSON guardado
	mu    sync.Mutex
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema, limpia datos antiguos y precarga la cache.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{
		db:    db,
		cache: make(map[domain.Domain]string),
	}
	s.pruneOld(context.Background())
	s.warmCache(context.Background())
	return s, nil
}

// LoadProfile devuelve los campos persistidos del dominio, o nil si no hay fila.
// Los números vuelven como float64; el Store los normaliza.
func (s *SQLiteStorage) LoadProfile(ctx context.Context, d domain.Domain) (map[string]any, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM profiles WHERE domain = ?`, d.String()).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.LoadProfile %s: %w", d, err)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, fmt.Errorf("storage.LoadProfile %s: %w: %v", d, ports.ErrMalformedProfile, err)
	}
	return fields, nil
}

// SaveProfile hace upsert del perfil del dominio. Si el JSON es idéntico al
// último guardado no escribe.
func (s *SQLiteStorage) SaveProfile(ctx context.Context, d domain.Domain, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("storage.SaveProfile %s: encode: %w", d, err)
	}
	body := string(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.cache[d]; ok && prev == body {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (domain, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, d.String(), body, time.Now().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("storage.SaveProfile %s: %w", d, err)
	}
	s.cache[d] = body
	return nil
}

// DeleteProfile borra el perfil persistido del dominio. No es error si no existe.
func (s *SQLiteStorage) DeleteProfile(ctx context.Context, d domain.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE domain = ?`, d.String()); err != nil {
		return fmt.Errorf("storage.DeleteProfile %s: %w", d, err)
	}
	delete(s.cache, d)
	return nil
}

// SaveRanking persiste el resumen de cada ejecución y sus oportunidades.
// Un ranking puede mezclar ejecuciones; se agrupa por RunID.
func (s *SQLiteStorage) SaveRanking(ctx context.Context, ranked []domain.Ranked) error {
	if len(ranked) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRanking: begin tx: %w", err)
	}
	defer tx.Rollback()

	for runID, sum := range summarizeRuns(ranked) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO runs (run_id, ranked_at, total, best_score) VALUES (?, ?, ?, ?)
			ON CONFLICT(run_id) DO UPDATE SET
				total      = runs.total + excluded.total,
				best_score = MAX(runs.best_score, excluded.best_score)
		`, runID, sum.rankedAt, sum.total, sum.best); err != nil {
			return fmt.Errorf("storage.SaveRanking: insert run %s: %w", runID, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rankings
			(run_id, domain, key, label, score, edge_pct, stake_pct, confidence, side, ranked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, key) DO UPDATE SET
			score      = excluded.score,
			edge_pct   = excluded.edge_pct,
			stake_pct  = excluded.stake_pct,
			confidence = excluded.confidence
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveRanking: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range ranked {
		var edge, stake *float64
		if e, ok := r.EdgePct(); ok {
			edge = &e
		}
		if r.Stake != nil {
			st := r.Stake.StakePct
			stake = &st
		}
		if _, err := stmt.ExecContext(ctx,
			r.RunID,
			r.Domain.String(),
			r.Key,
			r.Label,
			r.Score,
			edge,
			stake,
			r.Confidence,
			r.Side,
			toMillis(r.RankedAt),
		); err != nil {
			return fmt.Errorf("storage.SaveRanking: insert %s: %w", r.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRanking: commit: %w", err)
	}
	return nil
}

// GetRankings devuelve las oportunidades puntuadas en el rango dado.
// Más recientes primero; dentro de una ejecución, por score desc.
func (s *SQLiteStorage) GetRankings(ctx context.Context, from, to time.Time) ([]domain.Ranked, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, domain, key, label, score, edge_pct, stake_pct, confidence, side, ranked_at
		FROM rankings
		WHERE ranked_at BETWEEN ? AND ?
		ORDER BY ranked_at DESC, run_id, score DESC, key
	`, toMillis(from), toMillis(to))
	if err != nil {
		return nil, fmt.Errorf("storage.GetRankings: query: %w", err)
	}
	defer rows.Close()

	var ranked []domain.Ranked
	for rows.Next() {
		var r domain.Ranked
		var dom string
		var label, side sql.NullString
		var edge, stake sql.NullFloat64
		var rankedAt int64

		if err := rows.Scan(
			&r.RunID,
			&dom,
			&r.Key,
			&label,
			&r.Score,
			&edge,
			&stake,
			&r.Confidence,
			&side,
			&rankedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.GetRankings: scan row: %w", err)
		}

		r.Domain = domain.Domain(dom)
		r.Label = label.String
		r.Side = side.String
		r.RankedAt = time.UnixMilli(rankedAt).UTC()
		if edge.Valid {
			r.Probability = &domain.ProbabilityResult{EdgePct: edge.Float64}
		}
		if stake.Valid {
			r.Stake = &domain.StakeRecommendation{StakePct: stake.Float64}
		}
		ranked = append(ranked, r)
	}

	return ranked, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

type runSummary struct {
	rankedAt int64
	total    int
	best     float64
}

// summarizeRuns agrupa el ranking por RunID con su conteo y mejor score.
func summarizeRuns(ranked []domain.Ranked) map[string]runSummary {
	runs := make(map[string]runSummary)
	for _, r := range ranked {
		sum, ok := runs[r.RunID]
		if !ok {
			sum = runSummary{rankedAt: toMillis(r.RankedAt), best: r.Score}
		}
		sum.total++
		sum.best = max(sum.best, r.Score)
		runs[r.RunID] = sum
	}
	return runs
}

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := toMillis(time.Now().Add(-retention))
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE ranked_at < ?`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM rankings WHERE ranked_at < ?`, cutoff)
}

// warmCache precarga la caché de perfiles desde la DB al arrancar.
func (s *SQLiteStorage) warmCache(ctx context.Context) {
	rows, err := s.db.QueryContext(ctx, `SELECT domain, body FROM profiles`)
	if err != nil {
		return
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var d, body string
		if rows.Scan(&d, &body) == nil {
			s.cache[domain.Domain(d)] = body
		}
	}
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}
