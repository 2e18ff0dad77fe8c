// Package httpapi expone el motor por HTTP: scoring por lotes, modelo de
// probabilidad, staking, perfiles y el slip de la sesión.
//
// El servidor sirve una única sesión. Session y Slip son de un solo escritor,
// así que todos los handlers que los tocan pasan por el mismo mutex.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/alejandrodnm/playscore/internal/engine"
	"github.com/alejandrodnm/playscore/internal/features"
	"github.com/alejandrodnm/playscore/internal/ports"
)

// Config contiene la configuración del servidor HTTP.
type Config struct {
	Addr           string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Server es la fachada HTTP sobre una sesión del motor.
type Server struct {
	cfg     Config
	router  *chi.Mux
	server  *http.Server
	ranker  *engine.Ranker
	solver  ports.SlipSolver
	repo    ports.ProfileRepository // opcional
	tape    *features.Tape          // tiene su propio lock
	mu      sync.Mutex
	session *engine.Session
}

// New crea el servidor con todas las dependencias inyectadas. repo puede ser
// nil: los cambios de perfil entonces no se persisten.
func New(cfg Config, session *engine.Session, ranker *engine.Ranker, solver ports.SlipSolver, repo ports.ProfileRepository) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		cfg:     cfg,
		router:  chi.NewRouter(),
		ranker:  ranker,
		solver:  solver,
		repo:    repo,
		tape:    features.NewTape(0),
		session: session,
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler devuelve el router, útil para httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(loggingMiddleware)
	s.router.Use(middleware.Timeout(s.cfg.RequestTimeout))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/score/{domain}", s.handleScore)
		r.Post("/probability", s.handleProbability)
		r.Post("/stake", s.handleStake)
		r.Post("/ev", s.handleEV)
		r.Post("/middle", s.handleMiddle)
		r.Post("/parlay", s.handleParlay)
		r.Get("/stacks", s.handleStacks)

		r.Route("/tape", func(r chi.Router) {
			r.Get("/", s.handleTapeStats)
			r.Post("/ticks", s.handleTapeTicks)
			r.Post("/signals", s.handleTapeSignals)
		})

		r.Route("/profiles/{domain}", func(r chi.Router) {
			r.Get("/", s.handleGetProfile)
			r.Put("/", s.handleUpdateProfile)
			r.Post("/preset/{preset}", s.handlePreset)
			r.Post("/reset", s.handleResetProfile)
			r.Get("/guardrails", s.handleGuardrails)
		})

		r.Route("/slip", func(r chi.Router) {
			r.Get("/", s.handleGetSlip)
			r.Delete("/", s.handleClearSlip)
			r.Post("/legs", s.handleAddLeg)
			r.Delete("/legs/{key}", s.handleRemoveLeg)
			r.Post("/locks/{key}", s.handleToggleLock)
			r.Post("/optimize", s.handleOptimize)
			r.Post("/top", s.handleTopSlips)
		})
	})
}

// Start arranca el servidor. Bloquea hasta Shutdown.
func (s *Server) Start() error {
	slog.Info("http server starting", "addr", s.cfg.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown para el servidor limpiamente.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("http server stopping")
	return s.server.Shutdown(ctx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
