package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/engine"
	"github.com/alejandrodnm/playscore/internal/features"
	"github.com/alejandrodnm/playscore/internal/profile"
	"github.com/alejandrodnm/playscore/internal/slip"
)

// --- mocks ---

type mockStorage struct {
	mu    sync.Mutex
	saved [][]domain.Ranked
	err   error
}

func (m *mockStorage) SaveRanking(_ context.Context, ranked []domain.Ranked) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, ranked)
	return m.err
}

func (m *mockStorage) GetRankings(_ context.Context, _, _ time.Time) ([]domain.Ranked, error) {
	return nil, nil
}

func (m *mockStorage) Close() error { return nil }

type mockNotifier struct {
	rankings int
	slips    int
}

func (m *mockNotifier) NotifyRanking(_ context.Context, _ []domain.Ranked) error {
	m.rankings++
	return nil
}

func (m *mockNotifier) NotifySlip(_ context.Context, _ domain.SlipSummary) error {
	m.slips++
	return nil
}

type mockRepo struct {
	profiles map[domain.Domain]map[string]any
	err      error
}

func (m *mockRepo) LoadProfile(_ context.Context, d domain.Domain) (map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.profiles[d], nil
}

func (m *mockRepo) SaveProfile(_ context.Context, d domain.Domain, fields map[string]any) error {
	m.profiles[d] = fields
	return nil
}

// --- helpers ---

func ptr(v float64) *float64 { return &v }

func prop(player, market, side string) domain.Prop {
	return domain.Prop{
		PlayerName:       player,
		Market:           market,
		Side:             side,
		Line:             20.5,
		Book:             "pinnacle",
		SharpOdds:        -140,
		OpposingOdds:     ptr(120),
		FixedImpliedProb: 0.5,
	}
}

func quote(ticker string, bid, ask float64) domain.MarketQuote {
	return domain.MarketQuote{
		Venue:      domain.VenueKalshi,
		Ticker:     ticker,
		Bid:        bid,
		Ask:        ask,
		Volume:     50_000,
		Liquidity:  20_000,
		Depth:      5_000,
		Confidence: 0.6,
	}
}

func bars(n int) []features.Bar {
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]features.Bar, n)
	for i := range out {
		c := 100 + float64(i)*0.5
		out[i] = features.Bar{Time: start.AddDate(0, 0, i), Open: c - 0.25, High: c + 1, Low: c - 1, Close: c, Volume: 1_000_000}
	}
	return out
}

func ticks(n int, start, step float64) []features.Tick {
	t0 := time.Date(2026, 3, 2, 20, 30, 0, 0, time.UTC)
	out := make([]features.Tick, n)
	for i := range out {
		out[i] = features.Tick{Price: start + float64(i)*step, At: t0.Add(time.Duration(i) * time.Second)}
	}
	return out
}

// --- session ---

func TestSession_NewAndReset(t *testing.T) {
	s := engine.NewSession(engine.SessionConfig{SlipCapacity: 3, Platform: "PrizePicks", Sport: " NBA "})
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, slip.PrizePicks, s.Platform)
	assert.Equal(t, "nba", s.Sport)
	assert.Equal(t, 3, s.Slip.Capacity())
	assert.Equal(t, slip.StateEmpty, s.Slip.State())

	_, _, err := s.Profiles.Update(domain.DFS, map[string]any{"kellyCapPct": 2.0})
	require.NoError(t, err)
	out, _, err := s.AddProp(prop("Jalen Brunson", "player_points", "over"))
	require.NoError(t, err)
	require.Equal(t, slip.Added, out)

	id := s.ID
	s.Reset()
	assert.NotEqual(t, id, s.ID)
	assert.Zero(t, s.Slip.Len())
	assert.Equal(t, profile.DFS.Default, s.Profiles.DFS())
}

func TestSession_AddPropInheritsSport(t *testing.T) {
	s := engine.NewSession(engine.SessionConfig{Platform: "sleeper", Sport: "nba"})

	out, l, err := s.AddProp(prop("Jalen Brunson", "player_points", "over"))
	require.NoError(t, err)
	assert.Equal(t, slip.Added, out)
	assert.Equal(t, "nba", l.Sport)

	out, _, err = s.AddProp(prop("Jalen Brunson", "player_assists", "under"))
	require.NoError(t, err)
	assert.Equal(t, slip.Duplicate, out)

	out, _, err = s.AddProp(prop("Josh Hart", "pitcher_walks", "over"))
	require.NoError(t, err)
	assert.Equal(t, slip.Unavailable, out, "mlb market on an nba sleeper slip")

	bad := prop("Mikal Bridges", "player_points", "over")
	bad.SharpOdds = 0
	_, _, err = s.AddProp(bad)
	assert.ErrorIs(t, err, domain.ErrInvalidOdds)
	assert.Equal(t, 1, s.Slip.Len())
}

func TestSession_Init(t *testing.T) {
	repo := &mockRepo{profiles: map[domain.Domain]map[string]any{
		domain.DFS: {"kellyCapPct": 1.5, "useDevig": false},
	}}
	s := engine.NewSession(engine.SessionConfig{})
	require.NoError(t, s.Init(context.Background(), repo))
	assert.Equal(t, 1.5, s.Profiles.DFS().KellyCapPct)
	assert.False(t, s.Profiles.DFS().UseDevig)
	assert.Equal(t, profile.Stocks.Default, s.Profiles.Stocks())

	failing := &mockRepo{err: errors.New("db down")}
	err := s.Init(context.Background(), failing)
	require.Error(t, err)
	assert.Equal(t, profile.DFS.Default, s.Profiles.DFS(), "failed load falls back to defaults")

	assert.NoError(t, s.Init(context.Background(), nil))
}

func TestSession_RescoreFollowsProfile(t *testing.T) {
	s := engine.NewSession(engine.SessionConfig{Sport: "nba"})
	_, before, err := s.AddProp(prop("Jalen Brunson", "player_points", "over"))
	require.NoError(t, err)

	_, _, err = s.Profiles.Update(domain.DFS, map[string]any{"useDevig": false})
	require.NoError(t, err)
	require.NoError(t, s.Rescore())

	after := s.Slip.Legs()[0]
	assert.Equal(t, before.Key(), after.Key())
	assert.NotEqual(t, before.Eval.EdgePct, after.Eval.EdgePct)
}

// --- ranker ---

func TestRanker_SortsByScoreThenKey(t *testing.T) {
	r := engine.NewRanker(engine.RankerConfig{Workers: 3}, nil, nil)
	batch := engine.Batch{
		Markets: []domain.MarketQuote{
			quote("WIDE", 0.30, 0.60),
			quote("B", 0.49, 0.51),
			quote("A", 0.49, 0.51),
		},
	}

	ranked, err := r.Rank(context.Background(), batch, engine.DefaultSnapshot())
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, "kalshi|A", ranked[0].Key)
	assert.Equal(t, "kalshi|B", ranked[1].Key)
	assert.Equal(t, "kalshi|WIDE", ranked[2].Key)
	assert.Equal(t, ranked[0].Score, ranked[1].Score)
	assert.Greater(t, ranked[1].Score, ranked[2].Score)

	runID := ranked[0].RunID
	assert.NotEmpty(t, runID)
	for _, rk := range ranked {
		assert.Equal(t, runID, rk.RunID)
		assert.Equal(t, domain.Events, rk.Domain)
		assert.False(t, rk.RankedAt.IsZero())
	}
}

func TestRanker_AllShapes(t *testing.T) {
	r := engine.NewRanker(engine.RankerConfig{}, nil, nil)
	bad := prop("Nobody", "player_points", "over")
	bad.SharpOdds = 0
	batch := engine.Batch{
		Setups:  []domain.StockSetup{{Symbol: "ABC", Kind: "aggressive", Entry: 100, Stop: 96, Target: 110, Price: 101}},
		Scanner: []domain.ScannerSignal{{Symbol: "ABC", Price: 100, Volume: 2_000_000, AIScore: 70, RSI: 55, EMAFast: 101, EMASlow: 99, ATR: 2}},
		Markets: []domain.MarketQuote{quote("FED", 0.40, 0.42)},
		Convergence: []domain.ConvergencePair{{
			Question: "Will the Fed cut rates in March", KalshiTitle: "Fed cut rates March", KalshiTicker: "FEDCUT",
			PolyPrice: 0.55, KalshiPrice: 48, KalshiBid: 47, KalshiAsk: 49, Volume: 10_000, Liquidity: 5_000, MatchScore: 4,
		}},
		Scalps: []domain.ScalpSignal{{Ticker: "INX", Direction: domain.BuyYes, Confidence: 0.8, Bid: 0.6, Ask: 0.62, Volume: 300}},
		Props:  []domain.Prop{prop("Jalen Brunson", "player_points", "over"), bad},
	}
	require.Equal(t, 7, batch.Len())

	ranked, err := r.Rank(context.Background(), batch, engine.DefaultSnapshot())
	require.NoError(t, err)
	require.Len(t, ranked, 6, "invalid odds are skipped")

	byKey := make(map[string]domain.Ranked, len(ranked))
	for _, rk := range ranked {
		byKey[rk.Key] = rk
		assert.GreaterOrEqual(t, rk.Score, 0.0)
		assert.LessOrEqual(t, rk.Score, 100.0)
	}
	assert.Contains(t, byKey, "ABC|aggressive")
	assert.Contains(t, byKey, "ABC|scanner")
	assert.Equal(t, "BUY_KALSHI", byKey["convergence|FEDCUT"].Side)
	assert.Equal(t, "BUY_YES", byKey["scalper|INX"].Side)

	dfs := byKey[prop("Jalen Brunson", "player_points", "over").Key()]
	require.NotNil(t, dfs.Probability)
	require.NotNil(t, dfs.Stake)
	edge, ok := dfs.EdgePct()
	assert.True(t, ok)
	assert.Greater(t, edge, 0.0)
	assert.Greater(t, dfs.StakePct(), 0.0)
	assert.Equal(t, "Jalen Brunson player_points OVER 20.5", dfs.Label)

	stocksOnly := batch.Only(domain.Stocks)
	assert.Equal(t, 2, stocksOnly.Len())
}

func TestRanker_PropScoredAgainstSlip(t *testing.T) {
	r := engine.NewRanker(engine.RankerConfig{}, nil, nil)
	candidate := prop("Jalen Brunson", "player_points", "over")
	batch := engine.Batch{Props: []domain.Prop{candidate}}

	alone, err := r.Rank(context.Background(), batch, engine.DefaultSnapshot())
	require.NoError(t, err)
	require.Len(t, alone, 1)

	s := engine.NewSession(engine.SessionConfig{Sport: "nba"})
	for _, name := range []string{"Josh Hart", "Mikal Bridges"} {
		out, _, err := s.AddProp(prop(name, "player_points", "over"))
		require.NoError(t, err)
		require.Equal(t, slip.Added, out)
	}
	crowded, err := r.Rank(context.Background(), batch, s.Snapshot())
	require.NoError(t, err)
	require.Len(t, crowded, 1)

	assert.Less(t, crowded[0].Score, alone[0].Score)
}

func TestRanker_RunNotifiesAndSaves(t *testing.T) {
	storage := &mockStorage{err: errors.New("disk full")}
	notifier := &mockNotifier{}
	r := engine.NewRanker(engine.RankerConfig{Workers: 2}, storage, notifier)

	ranked, err := r.Run(context.Background(), engine.Batch{Markets: []domain.MarketQuote{quote("A", 0.4, 0.45)}}, engine.DefaultSnapshot())
	require.NoError(t, err, "storage errors are logged, not returned")
	assert.Len(t, ranked, 1)
	assert.Equal(t, 1, notifier.rankings)
	require.Len(t, storage.saved, 1)
	assert.Equal(t, ranked, storage.saved[0])
}

func TestRanker_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := engine.NewRanker(engine.RankerConfig{}, nil, nil)
	_, err := r.Rank(ctx, engine.Batch{Markets: []domain.MarketQuote{quote("A", 0.4, 0.45)}}, engine.DefaultSnapshot())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRanker_EmptyBatch(t *testing.T) {
	r := engine.NewRanker(engine.RankerConfig{}, nil, nil)
	ranked, err := r.Rank(context.Background(), engine.Batch{}, engine.DefaultSnapshot())
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

// --- filter ---

func TestFilter_Apply(t *testing.T) {
	stake := func(pct float64) *domain.StakeRecommendation { return &domain.StakeRecommendation{StakePct: pct} }
	prob := func(edge float64) *domain.ProbabilityResult { return &domain.ProbabilityResult{EdgePct: edge} }

	tests := []struct {
		name   string
		cfg    engine.FilterConfig
		ranked domain.Ranked
		want   bool
	}{
		{"default passes all", engine.DefaultFilterConfig(), domain.Ranked{Domain: domain.Stocks, Score: 10}, true},
		{"stocks below min", engine.FilterConfig{MinStocksScore: 55}, domain.Ranked{Domain: domain.Stocks, Score: 54.9}, false},
		{"stocks at min", engine.FilterConfig{MinStocksScore: 55}, domain.Ranked{Domain: domain.Stocks, Score: 55}, true},
		{"events below min", engine.FilterConfig{MinEventsScore: 50}, domain.Ranked{Domain: domain.Events, Score: 49}, false},
		{"events min ignores stocks", engine.FilterConfig{MinEventsScore: 50}, domain.Ranked{Domain: domain.Stocks, Score: 49}, true},
		{"dfs edge below min", engine.FilterConfig{MinEdgePct: 1.2}, domain.Ranked{Domain: domain.DFS, Score: 70, Probability: prob(1.1)}, false},
		{"dfs edge at min", engine.FilterConfig{MinEdgePct: 1.2}, domain.Ranked{Domain: domain.DFS, Score: 70, Probability: prob(1.2)}, true},
		{"dfs score below min", engine.FilterConfig{MinDFSScore: 60}, domain.Ranked{Domain: domain.DFS, Score: 59}, false},
		{"plays only drops zero stake", engine.FilterConfig{PlaysOnly: true}, domain.Ranked{Domain: domain.DFS, Score: 70, Stake: stake(0)}, false},
		{"plays only keeps stake", engine.FilterConfig{PlaysOnly: true}, domain.Ranked{Domain: domain.DFS, Score: 70, Stake: stake(1.5)}, true},
		{"side mismatch", engine.FilterConfig{Side: "over"}, domain.Ranked{Domain: domain.DFS, Side: "under"}, false},
		{"side case insensitive", engine.FilterConfig{Side: "OVER"}, domain.Ranked{Domain: domain.DFS, Side: "over"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.NewFilter(tt.cfg).Apply([]domain.Ranked{tt.ranked})
			assert.Equal(t, tt.want, len(got) == 1)
		})
	}
}

func TestQuickFilter(t *testing.T) {
	base := engine.FilterConfig{MinDFSScore: 40, Side: "under"}
	got := engine.QuickFilter(base, map[domain.Domain]map[string]any{
		domain.Stocks: {"min_play_score": 55.0},
		domain.Events: {"min_play_score": 50},
		domain.DFS:    {"min_edge": 1.2, "plays_only": true, "side_filter": "all"},
	})

	assert.Equal(t, engine.FilterConfig{
		MinStocksScore: 55,
		MinEventsScore: 50,
		MinDFSScore:    40,
		MinEdgePct:     1.2,
		PlaysOnly:      true,
	}, got)

	kept := engine.QuickFilter(base, map[domain.Domain]map[string]any{
		domain.DFS: {"min_edge": "high"},
	})
	assert.Equal(t, base, kept, "malformed values keep the base config")
}

func TestBatch_Expand(t *testing.T) {
	b := engine.Batch{
		Setups: []domain.StockSetup{{Symbol: "XYZ", Kind: "manual", Entry: 10, Stop: 9, Target: 13, Price: 10}},
		Charts: []features.Chart{
			{Symbol: "ABC", AIScore: 64, Bars: bars(80)},
			{Symbol: "NEW", AIScore: 50, Bars: bars(10)},
		},
		Tape: &engine.TapeFeed{
			Ticks:     ticks(30, 5000, 0.01),
			Contracts: []features.Contract{{Ticker: "INX-ABOVE", Strike: 4990, YesPrice: 60}},
		},
		Books: []engine.BookFeed{
			{Venue: domain.VenueKalshi, Ticker: "KX-1", Volume: 5_000, Confidence: 0.6, Book: domain.OrderBook{
				Bids: []domain.BookEntry{{Price: 0.45, Size: 100}},
				Asks: []domain.BookEntry{{Price: 0.47, Size: 200}},
			}},
			{Venue: domain.VenueKalshi, Ticker: "KX-EMPTY"},
		},
	}

	out := b.Expand()
	assert.Nil(t, out.Charts)
	assert.Nil(t, out.Books)
	assert.Nil(t, out.Tape)
	require.Len(t, out.Markets, 1, "empty book skipped")
	assert.Equal(t, "KX-1", out.Markets[0].Ticker)
	assert.Equal(t, 0.45, out.Markets[0].Bid)
	assert.Equal(t, 5_000.0, out.Markets[0].Volume)
	assert.InDelta(t, 0.45*100+0.47*200, out.Markets[0].Depth, 1e-9)
	require.Len(t, out.Scanner, 1, "chart with too few bars skipped")
	assert.Equal(t, "ABC", out.Scanner[0].Symbol)
	assert.Equal(t, 64.0, out.Scanner[0].AIScore)
	assert.Equal(t, "XYZ", out.Setups[0].Symbol)
	require.Len(t, out.Scalps, 1)
	assert.Equal(t, domain.BuyYes, out.Scalps[0].Direction)

	again := out.Expand()
	assert.Equal(t, out.Len(), again.Len())
	assert.Len(t, b.Setups, 1, "input not modified")
}

func TestBatch_Only(t *testing.T) {
	b := engine.Batch{
		Props:   []domain.Prop{prop("A", "player_points", "over")},
		Markets: []domain.MarketQuote{quote("FED", 0.4, 0.42)},
		Charts:  []features.Chart{{Symbol: "ABC", Bars: bars(80)}},
		Tape:    &engine.TapeFeed{},
	}

	stocks := b.Only(domain.Stocks)
	assert.Len(t, stocks.Charts, 1)
	assert.Nil(t, stocks.Tape)
	assert.Zero(t, stocks.Len())

	events := b.Only(domain.Events)
	assert.NotNil(t, events.Tape)
	assert.Equal(t, 1, events.Len())

	assert.Equal(t, 1, b.Only(domain.DFS).Len())
}

func TestRanker_RanksCharts(t *testing.T) {
	r := engine.NewRanker(engine.RankerConfig{Workers: 2}, nil, nil)

	ranked, err := r.Rank(context.Background(), engine.Batch{
		Charts: []features.Chart{{Symbol: "ABC", AIScore: 70, Bars: bars(80)}},
	}, engine.DefaultSnapshot())
	require.NoError(t, err)
	require.NotEmpty(t, ranked)
	for _, rk := range ranked {
		assert.Equal(t, domain.Stocks, rk.Domain)
	}
}
