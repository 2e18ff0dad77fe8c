package httpapi

import (
	"net/http"
	"time"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/engine"
	"github.com/alejandrodnm/playscore/internal/features"
)

// Ventanas (en ticks) que se publican en las estadísticas de la cinta.
const (
	statsShortWindow = 10
	statsVolWindow   = 60
)

type tapeStats struct {
	Ticks      int            `json:"ticks"`
	Last       *features.Tick `json:"last,omitempty"`
	Momentum   float64        `json:"momentum"`
	Volatility float64        `json:"volatility"`
}

type signalsResponse struct {
	Signals []domain.ScalpSignal `json:"signals"`
	Results []domain.Ranked      `json:"results"`
}

func (s *Server) stats() tapeStats {
	st := tapeStats{
		Ticks:      s.tape.Len(),
		Momentum:   s.tape.Momentum(statsShortWindow),
		Volatility: s.tape.Volatility(statsVolWindow),
	}
	if last, ok := s.tape.Last(); ok {
		st.Last = &last
	}
	return st
}

func (s *Server) handleTapeStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.stats())
}

// handleTapeTicks añade ticks a la cinta. Un tick sin hora usa la actual.
func (s *Server) handleTapeTicks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticks []features.Tick `json:"ticks"`
	}
	if !decode(w, r, &req) {
		return
	}
	for _, t := range req.Ticks {
		if !(t.Price > 0) {
			respondError(w, http.StatusBadRequest, "tick price must be positive", nil)
			return
		}
	}
	for _, t := range req.Ticks {
		at := t.At
		if at.IsZero() {
			at = time.Now()
		}
		s.tape.Add(t.Price, at)
	}
	respondJSON(w, http.StatusOK, s.stats())
}

// handleTapeSignals compara la cinta con los contratos y puntúa las señales
// con el perfil de eventos de la sesión.
func (s *Server) handleTapeSignals(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Contracts []features.Contract `json:"contracts"`
	}
	if !decode(w, r, &req) {
		return
	}
	signals := s.tape.Signals(req.Contracts)
	if signals == nil {
		signals = []domain.ScalpSignal{}
	}

	s.mu.Lock()
	snap := s.session.Snapshot()
	s.mu.Unlock()

	ranked, err := s.ranker.Rank(r.Context(), engine.Batch{Scalps: signals}, snap)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "ranking aborted", err)
		return
	}
	respondJSON(w, http.StatusOK, signalsResponse{Signals: signals, Results: ranked})
}
