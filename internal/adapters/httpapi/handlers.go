package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/engine"
	"github.com/alejandrodnm/playscore/internal/profile"
	"github.com/alejandrodnm/playscore/internal/slip"
)

// maxBody acota el cuerpo de cualquier petición.
const maxBody = 4 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type profileResponse struct {
	Domain   domain.Domain  `json:"domain"`
	Fields   map[string]any `json:"fields"`
	Rejected []string       `json:"rejected,omitempty"`
}

type legResponse struct {
	Outcome slip.AddOutcome    `json:"outcome"`
	Key     string             `json:"key"`
	Summary domain.SlipSummary `json:"slip"`
}

type probabilityRequest struct {
	Odds             float64  `json:"odds"`
	OpposingOdds     *float64 `json:"opposing_odds,omitempty"`
	FixedImpliedProb float64  `json:"fixed_implied_prob,omitempty"`
}

type stakeRequest struct {
	EdgePct          float64  `json:"edge_pct"`
	FixedImpliedProb float64  `json:"fixed_implied_prob"`
	ImpliedProb      float64  `json:"implied_prob,omitempty"`
	FairProb         *float64 `json:"fair_prob,omitempty"`
	Confidence       float64  `json:"confidence"`
}

type evRequest struct {
	Odds       float64  `json:"odds"`
	UserProb   float64  `json:"user_prob"`
	Stake      float64  `json:"stake"`
	Opposing   *float64 `json:"opposing_odds,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type optimizeRequest struct {
	Candidates []domain.Prop `json:"candidates"`
	Size       int           `json:"size,omitempty"`
	MinEdge    float64       `json:"min_edge,omitempty"`
	Book       string        `json:"book,omitempty"`
	Mode       string        `json:"mode,omitempty"`
	Apply      bool          `json:"apply,omitempty"`
}

type topRequest struct {
	Candidates []domain.Prop `json:"candidates"`
	Sizes      []int         `json:"sizes,omitempty"`
	Top        int           `json:"top,omitempty"`
	MinEdge    float64       `json:"min_edge,omitempty"`
	Book       string        `json:"book,omitempty"`
	Mode       string        `json:"mode,omitempty"`
}

type rankedSlip struct {
	Rank      int              `json:"rank"`
	Legs      []domain.SlipLeg `json:"legs"`
	EV        domain.SlipEV    `json:"ev"`
	Evaluated int              `json:"evaluated"`
}

type optimizeResponse struct {
	Legs      []domain.SlipLeg `json:"legs"`
	EV        domain.SlipEV    `json:"ev"`
	Evaluated int              `json:"evaluated"`
	Applied   bool             `json:"applied"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	id := s.session.ID
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "session": id})
}

// --- scoring ---

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	d, ok := parseDomain(w, r)
	if !ok {
		return
	}
	var batch engine.Batch
	if !decode(w, r, &batch) {
		return
	}

	s.mu.Lock()
	snap := s.session.Snapshot()
	s.mu.Unlock()

	ranked, err := s.ranker.Rank(r.Context(), batch.Only(d), snap)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "ranking aborted", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"domain":  d,
		"count":   len(ranked),
		"results": ranked,
	})
}

func (s *Server) handleProbability(w http.ResponseWriter, r *http.Request) {
	var req probabilityRequest
	if !decode(w, r, &req) {
		return
	}
	fixed := req.FixedImpliedProb
	if fixed <= 0 {
		fixed = domain.DefaultFixedImpliedProb
	}
	res, err := domain.Evaluate(req.Odds, req.OpposingOdds, fixed)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid odds", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.FixedImpliedProb <= 0 {
		req.FixedImpliedProb = domain.DefaultFixedImpliedProb
	}
	s.mu.Lock()
	opts := s.session.Profiles.DFS().StakeOptions()
	s.mu.Unlock()

	rec := domain.SuggestedStake(domain.StakeInput{
		EdgePct:          req.EdgePct,
		FixedImpliedProb: req.FixedImpliedProb,
		ImpliedProb:      req.ImpliedProb,
		FairProb:         req.FairProb,
		Confidence:       req.Confidence,
	}, opts)
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleEV(w http.ResponseWriter, r *http.Request) {
	var req evRequest
	if !decode(w, r, &req) {
		return
	}
	conf := 1.0
	if req.Confidence != nil {
		conf = *req.Confidence
	}
	res, err := domain.CalculateEV(domain.EVRequest{
		Odds:       req.Odds,
		UserProb:   req.UserProb,
		Stake:      req.Stake,
		Opposing:   req.Opposing,
		Confidence: conf,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleMiddle(w http.ResponseWriter, r *http.Request) {
	var req domain.MiddleRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := domain.DetectMiddle(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleParlay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Legs []slip.ParlayLeg `json:"legs"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := slip.ParlayEV(req.Legs)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleStacks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sport := q.Get("sport")
	if sport == "" {
		s.mu.Lock()
		sport = s.session.Sport
		s.mu.Unlock()
	}
	n := 5
	if raw := q.Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			respondError(w, http.StatusBadRequest, "n must be a positive integer", err)
			return
		}
		n = v
	}
	stacks := slip.CorrelatedPicks(sport, q.Get("position"), q.Get("stat"), n)
	if stacks == nil {
		stacks = []slip.Stack{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"sport": sport, "stacks": stacks})
}

// --- perfiles ---

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	d, ok := parseDomain(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	fields, err := s.session.Profiles.Get(d)
	s.mu.Unlock()
	if err != nil {
		respondError(w, http.StatusNotFound, "unknown domain", err)
		return
	}
	respondJSON(w, http.StatusOK, profileResponse{Domain: d, Fields: fields})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	d, ok := parseDomain(w, r)
	if !ok {
		return
	}
	var raw map[string]any
	if !decode(w, r, &raw) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fields, rejected, err := s.session.Profiles.Update(d, raw)
	if err != nil {
		respondError(w, http.StatusNotFound, "unknown domain", err)
		return
	}
	s.profileChanged(r, d, fields)
	respondJSON(w, http.StatusOK, profileResponse{Domain: d, Fields: fields, Rejected: rejected})
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	d, ok := parseDomain(w, r)
	if !ok {
		return
	}
	p, err := profile.ParsePreset(chi.URLParam(r, "preset"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown preset", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fields, err := s.session.Profiles.ApplyPreset(d, p)
	if err != nil {
		respondError(w, http.StatusBadRequest, "preset not applied", err)
		return
	}
	s.profileChanged(r, d, fields)
	respondJSON(w, http.StatusOK, profileResponse{Domain: d, Fields: fields})
}

func (s *Server) handleResetProfile(w http.ResponseWriter, r *http.Request) {
	d, ok := parseDomain(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fields, err := s.session.Profiles.Reset(d)
	if err != nil {
		respondError(w, http.StatusNotFound, "unknown domain", err)
		return
	}
	s.profileChanged(r, d, fields)
	respondJSON(w, http.StatusOK, profileResponse{Domain: d, Fields: fields})
}

func (s *Server) handleGuardrails(w http.ResponseWriter, r *http.Request) {
	d, ok := parseDomain(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	warnings, err := s.session.Profiles.Guardrails(d)
	s.mu.Unlock()
	if err != nil {
		respondError(w, http.StatusNotFound, "unknown domain", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"domain": d, "warnings": warnings})
}

// profileChanged persiste el perfil y, si es DFS, recalcula el slip.
// Se llama con s.mu tomado. Un fallo de persistencia no revierte el cambio.
func (s *Server) profileChanged(r *http.Request, d domain.Domain, fields map[string]any) {
	if s.repo != nil {
		if err := s.repo.SaveProfile(r.Context(), d, fields); err != nil {
			slog.Warn("profile not persisted", "domain", d, "err", err)
		}
	}
	if d == domain.DFS {
		if err := s.session.Rescore(); err != nil {
			slog.Warn("slip rescore failed", "err", err)
		}
	}
}

// --- slip ---

func (s *Server) handleGetSlip(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mode := slipMode(r.URL.Query().Get("mode"), s.session.Platform)
	respondJSON(w, http.StatusOK, s.summary(r, mode))
}

func (s *Server) handleClearSlip(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Slip.Clear()
	respondJSON(w, http.StatusOK, s.summary(r, ""))
}

func (s *Server) handleAddLeg(w http.ResponseWriter, r *http.Request) {
	var prop domain.Prop
	if !decode(w, r, &prop) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out, leg, err := s.session.AddProp(prop)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid prop", err)
		return
	}

	status := http.StatusCreated
	if out != slip.Added {
		status = http.StatusConflict
	}
	respondJSON(w, status, legResponse{Outcome: out, Key: leg.Key(), Summary: s.summary(r, "")})
}

func (s *Server) handleRemoveLeg(w http.ResponseWriter, r *http.Request) {
	key, ok := legKey(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.Slip.Remove(key) {
		respondError(w, http.StatusNotFound, "leg not in slip", nil)
		return
	}
	respondJSON(w, http.StatusOK, s.summary(r, ""))
}

func (s *Server) handleToggleLock(w http.ResponseWriter, r *http.Request) {
	key, ok := legKey(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	locked, found := s.session.Slip.ToggleLock(key)
	if !found {
		respondError(w, http.StatusNotFound, "leg not in slip", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"key": key, "locked": locked})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dfs := s.session.Profiles.DFS()
	candidates := s.candidateLegs(req.Candidates)

	cfg := slip.OptimizeConfig{
		Size:     req.Size,
		MinEdge:  req.MinEdge,
		Platform: s.session.Platform,
		Book:     req.Book,
		Mode:     slipMode(req.Mode, s.session.Platform),
	}
	best, err := slip.Optimize(r.Context(), s.solver, s.session.Slip, candidates, cfg, dfs)
	if err != nil {
		if errors.Is(err, slip.ErrNoCandidates) {
			respondError(w, http.StatusUnprocessableEntity, "no eligible legs", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "optimize failed", err)
		return
	}

	if req.Apply {
		s.session.Slip.Replace(best.Legs)
	}

	respondJSON(w, http.StatusOK, optimizeResponse{
		Legs:      s.normalized(best.Legs, dfs),
		EV:        best.EV,
		Evaluated: best.Evaluated,
		Applied:   req.Apply,
	})
}

// handleTopSlips devuelve los mejores slips por tamaño sin tocar el slip.
func (s *Server) handleTopSlips(w http.ResponseWriter, r *http.Request) {
	var req topRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dfs := s.session.Profiles.DFS()
	cfg := slip.TopConfig{
		Sizes:    req.Sizes,
		TopN:     req.Top,
		MinEdge:  req.MinEdge,
		Platform: s.session.Platform,
		Book:     req.Book,
		Mode:     slipMode(req.Mode, s.session.Platform),
	}
	found, err := slip.TopSlips(r.Context(), s.solver, s.session.Slip, s.candidateLegs(req.Candidates), cfg, dfs)
	if err != nil {
		if errors.Is(err, slip.ErrNoCandidates) {
			respondError(w, http.StatusUnprocessableEntity, "no eligible legs", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "top slips failed", err)
		return
	}

	out := make([]rankedSlip, len(found))
	for i, f := range found {
		out[i] = rankedSlip{Rank: i + 1, Legs: s.normalized(f.Legs, dfs), EV: f.EV, Evaluated: f.Evaluated}
	}
	respondJSON(w, http.StatusOK, map[string]any{"count": len(out), "slips": out})
}

// candidateLegs evalúa las props con el perfil de la sesión. Se llama con
// s.mu tomado.
func (s *Server) candidateLegs(props []domain.Prop) []slip.Leg {
	legs := make([]slip.Leg, 0, len(props))
	for _, p := range props {
		l, err := s.session.Leg(p)
		if err != nil {
			slog.Debug("candidate skipped", "player", p.PlayerName, "err", err)
			continue
		}
		legs = append(legs, l)
	}
	return legs
}

// normalized da las piernas con su score ajustado y su candado actual.
func (s *Server) normalized(legs []slip.Leg, dfs profile.DFSProfile) []domain.SlipLeg {
	adjusted := slip.AdjustedScores(legs, dfs)
	out := make([]domain.SlipLeg, len(legs))
	for i, l := range legs {
		out[i] = l.Normalized(adjusted[i], s.session.Slip.Locked(l.Key()))
	}
	return out
}

// summary construye la foto del slip y, si está listo, su EV con el solver.
// Se llama con s.mu tomado.
func (s *Server) summary(r *http.Request, mode domain.SlipMode) domain.SlipSummary {
	sum := s.session.SlipSummary()
	if sum.State != string(slip.StateReady) || s.solver == nil {
		return sum
	}
	if mode == "" {
		mode = slipMode("", s.session.Platform)
	}
	ev, err := s.solver.Solve(r.Context(), sum.Legs, string(s.session.Platform), mode)
	if err != nil {
		slog.Debug("slip ev unavailable", "err", err)
		return sum
	}
	sum.EV = &ev
	return sum
}

// --- helpers ---

// slipMode devuelve el modo pedido o el habitual de la plataforma.
func slipMode(raw string, platform slip.Platform) domain.SlipMode {
	if m := strings.ToLower(strings.TrimSpace(raw)); m != "" {
		return domain.SlipMode(m)
	}
	return platform.DefaultMode()
}

func parseDomain(w http.ResponseWriter, r *http.Request) (domain.Domain, bool) {
	d, err := domain.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		respondError(w, http.StatusNotFound, "unknown domain", err)
		return "", false
	}
	return d, true
}

// legKey devuelve la clave de pierna de la URL. Las claves llevan '|' y
// espacios, así que llegan escapadas.
func legKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		respondError(w, http.StatusBadRequest, "invalid leg key", err)
		return "", false
	}
	return key, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Error: http.StatusText(status), Message: message}
	if err != nil {
		resp.Message = message + ": " + err.Error()
	}
	respondJSON(w, status, resp)
}
