package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alejandrodnm/playscore/internal/adapters/notify"
	"github.com/alejandrodnm/playscore/internal/adapters/storage"
	"github.com/alejandrodnm/playscore/internal/engine"
	"github.com/alejandrodnm/playscore/internal/slip"
)

// rankFile puntúa el lote del archivo y, si slipSize > 0, arma el mejor slip
// con sus props y lo imprime.
func rankFile(ctx context.Context, session *engine.Session, ranker *engine.Ranker, notifier *notify.Console, path string, slipSize int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read batch: %w", err)
	}
	var batch engine.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("parse batch: %w", err)
	}
	slog.Info("batch loaded", "opportunities", batch.Len(), "props", len(batch.Props))

	if _, err := ranker.Run(ctx, batch, session.Snapshot()); err != nil {
		return err
	}
	if slipSize <= 0 || len(batch.Props) == 0 {
		return nil
	}

	candidates := make([]slip.Leg, 0, len(batch.Props))
	for _, p := range batch.Props {
		l, err := session.Leg(p)
		if err != nil {
			slog.Debug("prop skipped", "player", p.PlayerName, "err", err)
			continue
		}
		candidates = append(candidates, l)
	}

	best, err := slip.Optimize(ctx, slip.PayoutSolver{}, session.Slip, candidates, slip.OptimizeConfig{
		Size:     slipSize,
		Platform: session.Platform,
		Mode:     session.Platform.DefaultMode(),
	}, session.Profiles.DFS())
	if err != nil {
		return fmt.Errorf("build slip: %w", err)
	}
	session.Slip.Replace(best.Legs)

	sum := session.SlipSummary()
	sum.EV = &best.EV
	return notifier.NotifySlip(ctx, sum)
}

// printHistory imprime los rankings guardados en la ventana [now-window, now].
func printHistory(ctx context.Context, store *storage.SQLiteStorage, notifier *notify.Console, window time.Duration) error {
	to := time.Now()
	ranked, err := store.GetRankings(ctx, to.Add(-window), to)
	if err != nil {
		return err
	}
	slog.Info("history loaded", "window", window, "rows", len(ranked))
	return notifier.NotifyRanking(ctx, ranked)
}
