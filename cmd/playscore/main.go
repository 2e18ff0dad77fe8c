package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/playscore/config"
	"github.com/alejandrodnm/playscore/internal/adapters/httpapi"
	"github.com/alejandrodnm/playscore/internal/adapters/notify"
	"github.com/alejandrodnm/playscore/internal/adapters/settings"
	"github.com/alejandrodnm/playscore/internal/adapters/storage"
	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/engine"
	"github.com/alejandrodnm/playscore/internal/ports"
	"github.com/alejandrodnm/playscore/internal/slip"
)

func main() {
	configPath := flag.String("config", "", "path to config file (empty = defaults + env)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full table (default: compact 1-line)")
	serve := flag.Bool("serve", false, "start the HTTP API")
	batchFile := flag.String("file", "", "JSON batch of opportunities to rank once")
	slipSize := flag.Int("slip", 0, "build the best slip of this size from the batch props")
	history := flag.Duration("history", 0, "print rankings stored in the last duration (e.g. 24h)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("playscore starting",
		"config", *configPath,
		"platform", cfg.Engine.Platform,
		"sport", cfg.Engine.Sport,
		"serve", *serve,
		"file", *batchFile,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := settings.NewClient(cfg.Settings.URL,
		settings.WithHTTPClient(&http.Client{Timeout: cfg.SettingsTimeout()}))

	// Con servicio de settings los perfiles viven allí; si no, en SQLite.
	var repo ports.ProfileRepository = store
	filter := cfg.Engine.Filter
	if client.Enabled() {
		repo = client
		filter = quickFilter(ctx, client, filter)
	}

	session := engine.NewSession(engine.SessionConfig{
		SlipCapacity: cfg.Engine.SlipCapacity,
		Platform:     cfg.Engine.Platform,
		Sport:        cfg.Engine.Sport,
	})
	if err := session.Init(ctx, repo); err != nil {
		slog.Warn("using default profiles", "err", err)
	}

	notifier := notify.NewConsole(*table)
	ranker := engine.NewRanker(engine.RankerConfig{
		Workers: cfg.Engine.Workers,
		Filter:  filter,
	}, store, notifier)

	switch {
	case *history > 0:
		if err := printHistory(ctx, store, notifier, *history); err != nil {
			slog.Error("history failed", "err", err)
			os.Exit(1)
		}
	case *batchFile != "":
		if err := rankFile(ctx, session, ranker, notifier, *batchFile, *slipSize); err != nil {
			slog.Error("ranking failed", "err", err, "file", *batchFile)
			os.Exit(1)
		}
	}

	if *serve {
		srv := httpapi.New(httpapi.Config{
			Addr:           cfg.Server.Listen,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RequestTimeout: cfg.RequestTimeout(),
		}, session, ranker, slip.PayoutSolver{}, repo)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			if err != nil {
				slog.Error("http server exited with error", "err", err)
				os.Exit(1)
			}
		case <-ctx.Done():
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("http shutdown error", "err", err)
			}
		}
	}

	slog.Info("playscore stopped cleanly")
}

// quickFilter aplica los ajustes rápidos del servicio de settings sobre el
// filtro de la configuración. Un dominio que falla se queda como estaba.
func quickFilter(ctx context.Context, client *settings.Client, base engine.FilterConfig) engine.FilterConfig {
	quick := make(map[domain.Domain]map[string]any, 3)
	for _, d := range domain.Domains() {
		q, err := client.QuickSettings(ctx, d)
		if err != nil {
			slog.Warn("quick settings unavailable", "domain", d, "err", err)
			continue
		}
		quick[d] = q
	}
	return engine.QuickFilter(base, quick)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
