package scoring_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/profile"
	"github.com/alejandrodnm/playscore/internal/scoring"
)

// wild devuelve valores degenerados: negativos, cero, enormes y no finitos.
func wild(r *rand.Rand) float64 {
	switch r.IntN(8) {
	case 0:
		return 0
	case 1:
		return -r.Float64() * 1e6
	case 2:
		return r.Float64() * 1e9
	case 3:
		return math.NaN()
	case 4:
		return math.Inf(1 - 2*r.IntN(2))
	default:
		return r.Float64()*200 - 50
	}
}

func randomStocks(r *rand.Rand) profile.StocksProfile {
	return profile.StocksProfile{
		ATRWeight: r.Float64() * 10, RSIWeight: r.Float64() * 10, EMAWeight: r.Float64() * 10,
		CrossoverWeight: r.Float64() * 10, VolatilityPenalty: r.Float64() * 10, LiquidityWeight: r.Float64() * 10,
		TrendStrengthBonus: r.Float64() * 30, ScoreSmoothing: r.Float64()*1.4 - 0.2,
		UseRSIFilter: r.IntN(2) == 0, UseATRTrendGate: r.IntN(2) == 0,
		UseCrossoverBoost: r.IntN(2) == 0, UseLiquidityFilter: r.IntN(2) == 0,
	}
}

func randomEvents(r *rand.Rand) profile.EventsProfile {
	return profile.EventsProfile{
		SpreadWeight: r.Float64() * 10, LiquidityWeight: r.Float64() * 10, DepthWeight: r.Float64() * 10,
		MomentumWeight: r.Float64() * 10, ConfidenceWeight: r.Float64() * 10, VolatilityPenalty: r.Float64() * 10,
		ExecutionRiskPenalty: r.Float64() * 10, ScalpSensitivity: r.Float64() * 5,
		UseDepthBoost: r.IntN(2) == 0, UseVolatilityPenalty: r.IntN(2) == 0, UseExecutionRisk: r.IntN(2) == 0,
		UseMomentumBoost: r.IntN(2) == 0, UseConfidenceScaling: r.IntN(2) == 0,
	}
}

func randomDFS(r *rand.Rand) profile.DFSProfile {
	return profile.DFSProfile{
		EdgeWeight: r.Float64() * 10, ConfidenceWeight: r.Float64() * 10, StakeWeight: r.Float64() * 10, KellyCapPct: r.Float64() * 100,
		UseDevig: r.IntN(2) == 0, UseConfidenceShrink: r.IntN(2) == 0, UseVigPenalty: r.IntN(2) == 0,
		UseTrendBonus: r.IntN(2) == 0, UseKellyCap: r.IntN(2) == 0, UseCorrelationPenalty: r.IntN(2) == 0,
	}
}

func TestScores_AlwaysWithinBounds(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 99))
	for i := 0; i < 5000; i++ {
		setup := domain.StockSetup{Entry: wild(r), Stop: wild(r), Target: wild(r), Price: wild(r), RiskReward: wild(r)}
		s := scoring.SetupScore(setup, randomStocks(r))
		require.True(t, s >= 0 && s <= 100, "setup score %v for %+v", s, setup)

		sig := domain.ScannerSignal{
			Price: wild(r), Volume: wild(r), AIScore: wild(r), RSI: wild(r),
			EMAFast: wild(r), EMASlow: wild(r), ATR: wild(r), Crossover: r.IntN(2) == 0,
		}
		s = scoring.ScannerScore(sig, randomStocks(r))
		require.True(t, s >= 0 && s <= 100, "scanner score %v for %+v", s, sig)

		q := domain.MarketQuote{
			Venue: []domain.Venue{domain.VenueKalshi, domain.VenuePolymarket, domain.VenueConvergence, domain.VenueScalper, "other"}[r.IntN(5)],
			Bid:   wild(r), Ask: wild(r), Volume: wild(r), Liquidity: wild(r), Depth: wild(r),
			Confidence: wild(r), Momentum: wild(r), Volatility: wild(r),
		}
		s = scoring.MarketScore(q, randomEvents(r))
		require.True(t, s >= 0 && s <= 100, "market score %v for %+v", s, q)

		vig := wild(r)
		in := scoring.ConfidenceInput{EdgePct: wild(r), VigPct: &vig, HasFair: r.IntN(2) == 0, Trending: r.IntN(2) == 0}
		s = scoring.ConfidenceScore(in, randomDFS(r))
		require.True(t, s >= 0 && s <= 100, "confidence score %v", s)

		f := scoring.LegFeatures{
			EdgePct: wild(r), Confidence: wild(r), StakePct: wild(r), Books: r.IntN(12) - 1,
			BookSpread: wild(r), CorrelationPenalty: wild(r),
		}
		s = scoring.CompositeScore(f, randomDFS(r))
		require.True(t, s >= 8 && s <= 92, "composite score %v for %+v", s, f)
	}
}

func richSignal() domain.ScannerSignal {
	return domain.ScannerSignal{
		Symbol: "ABC", Price: 50, Volume: 1_000_000, AIScore: 55, RSI: 60,
		EMAFast: 51, EMASlow: 50, ATR: 1.5, Crossover: true,
	}
}

func richQuote() domain.MarketQuote {
	return domain.MarketQuote{
		Venue: domain.VenueKalshi, Bid: 0.45, Ask: 0.47, Volume: 5000, Liquidity: 1000,
		Depth: 1000, Confidence: 0.8, Momentum: 0.3, Volatility: 0.2,
	}
}

func TestToggles_OffContributesExactlyZero(t *testing.T) {
	t.Run("stocks scanner", func(t *testing.T) {
		toggles := map[string]func(*profile.StocksProfile){
			"rsi_band":       func(p *profile.StocksProfile) { p.UseRSIFilter = false },
			"crossover":      func(p *profile.StocksProfile) { p.UseCrossoverBoost = false },
			"atr_trend_gate": func(p *profile.StocksProfile) { p.UseATRTrendGate = false },
			"liquidity":      func(p *profile.StocksProfile) { p.UseLiquidityFilter = false },
		}
		for term, off := range toggles {
			on := profile.Stocks.Default
			bOn := scoring.ScannerComposite.Breakdown(richSignal(), on)
			require.NotZero(t, bOn.Contribution(term), term)

			p := on
			off(&p)
			bOff := scoring.ScannerComposite.Breakdown(richSignal(), p)
			assert.Zero(t, bOff.Contribution(term), term)
			assert.InDelta(t, bOn.Contribution(term)*on.ScoreSmoothing, bOn.Score-bOff.Score, 1e-9, term)
		}
	})

	t.Run("stocks setup", func(t *testing.T) {
		setup := domain.StockSetup{Entry: 100, Stop: 96, Target: 110, Price: 101}
		on := profile.Stocks.Default
		bOn := scoring.SetupComposite.Breakdown(setup, on)
		require.Equal(t, on.TrendStrengthBonus, bOn.Contribution("trend_bonus"))

		p := on
		p.UseLiquidityFilter = false
		bOff := scoring.SetupComposite.Breakdown(setup, p)
		assert.Zero(t, bOff.Contribution("trend_bonus"))
		assert.InDelta(t, on.TrendStrengthBonus, bOn.Score-bOff.Score, 1e-9)
	})

	t.Run("events market", func(t *testing.T) {
		toggles := map[string]func(*profile.EventsProfile){
			"depth":          func(p *profile.EventsProfile) { p.UseDepthBoost = false },
			"confidence":     func(p *profile.EventsProfile) { p.UseConfidenceScaling = false },
			"momentum":       func(p *profile.EventsProfile) { p.UseMomentumBoost = false },
			"volatility":     func(p *profile.EventsProfile) { p.UseVolatilityPenalty = false },
			"execution_risk": func(p *profile.EventsProfile) { p.UseExecutionRisk = false },
		}
		for term, off := range toggles {
			on := profile.Events.Default
			bOn := scoring.MarketComposite.Breakdown(richQuote(), on)
			require.NotZero(t, bOn.Contribution(term), term)
			require.Less(t, bOn.Score, 100.0)

			p := on
			off(&p)
			bOff := scoring.MarketComposite.Breakdown(richQuote(), p)
			assert.Zero(t, bOff.Contribution(term), term)
			assert.InDelta(t, bOn.Contribution(term), bOn.Score-bOff.Score, 1e-9, term)
		}
	})

	t.Run("dfs confidence", func(t *testing.T) {
		vig := 3.0
		in := scoring.ConfidenceInput{EdgePct: 5, VigPct: &vig, HasFair: true, Trending: true}
		toggles := map[string]func(*profile.DFSProfile){
			"vig":   func(p *profile.DFSProfile) { p.UseVigPenalty = false },
			"fair":  func(p *profile.DFSProfile) { p.UseDevig = false },
			"trend": func(p *profile.DFSProfile) { p.UseTrendBonus = false },
		}
		for term, off := range toggles {
			on := profile.DFS.Default
			bOn := scoring.ConfidenceComposite.Breakdown(in, on)
			require.NotZero(t, bOn.Contribution(term), term)

			p := on
			off(&p)
			bOff := scoring.ConfidenceComposite.Breakdown(in, p)
			assert.Zero(t, bOff.Contribution(term), term)
			assert.InDelta(t, bOn.Contribution(term), bOn.Score-bOff.Score, 1e-9, term)
		}
	})

	t.Run("dfs composite", func(t *testing.T) {
		f := scoring.LegFeatures{EdgePct: 4, Confidence: 70, StakePct: 2, Books: 3, CorrelationPenalty: 4.7}
		on := profile.DFS.Default
		bOn := scoring.AIComposite.Breakdown(f, on)
		assert.InDelta(t, -0.1175, bOn.Contribution("correlation"), 1e-12)

		p := on
		p.UseCorrelationPenalty = false
		bOff := scoring.AIComposite.Breakdown(f, p)
		assert.Zero(t, bOff.Contribution("correlation"))
		assert.Greater(t, bOff.Score, bOn.Score)
	})
}

func TestConfidenceScore_Formula(t *testing.T) {
	vig := 3.0
	p := profile.DFS.Default

	got := scoring.ConfidenceScore(scoring.ConfidenceInput{EdgePct: 5, VigPct: &vig, HasFair: true, Trending: true}, p)
	assert.InDelta(t, 50+11-1.95+4+5, got, 1e-9)

	// edge acotado a ±20
	got = scoring.ConfidenceScore(scoring.ConfidenceInput{EdgePct: 500}, p)
	assert.InDelta(t, 94.0, got, 1e-9)
	got = scoring.ConfidenceScore(scoring.ConfidenceInput{EdgePct: -500}, p)
	assert.InDelta(t, 6.0, got, 1e-9)

	// vig negativo no penaliza
	neg := -2.0
	got = scoring.ConfidenceScore(scoring.ConfidenceInput{VigPct: &neg}, p)
	assert.InDelta(t, 50.0, got, 1e-9)
}

func TestScannerScore_SmoothingBlendsWithNeutral(t *testing.T) {
	p := profile.Stocks.Default
	p.ScoreSmoothing = 0
	assert.Equal(t, 50.0, scoring.ScannerScore(richSignal(), p))

	p.ScoreSmoothing = 1
	full := scoring.ScannerComposite.Breakdown(richSignal(), p)
	base := full.Base
	sum := base
	for _, c := range full.Terms {
		sum += c.Value
	}
	assert.InDelta(t, sum, full.Score, 1e-9)
}

func TestScannerScore_NoSmoothingIsNeutralWithHugeWeights(t *testing.T) {
	p := profile.Stocks.Default
	p.ATRWeight, p.LiquidityWeight = 1e308, 1e308
	p.UseATRTrendGate, p.UseLiquidityFilter = true, true
	p.ScoreSmoothing = 0

	s := richSignal()
	s.Volume = 0 // trend gate +Inf, liquidez -Inf
	assert.Equal(t, 50.0, scoring.ScannerScore(s, p))

	p.ScoreSmoothing = -0.5
	assert.Equal(t, 50.0, scoring.ScannerScore(s, p))
}

func TestScannerScore_RSIBandPeaksAt58(t *testing.T) {
	p := profile.Stocks.Default
	at := func(rsi float64) float64 {
		s := richSignal()
		s.RSI = rsi
		return scoring.ScannerComposite.Breakdown(s, p).Contribution("rsi_band")
	}
	assert.Greater(t, at(58), at(50))
	assert.Greater(t, at(58), at(66))
	assert.InDelta(t, at(80), at(95), 1e-12)
	assert.InDelta(t, 0.5*16*p.RSIWeight, at(58), 1e-9)
}

func TestScannerScore_VolatilityPenaltyAboveCeiling(t *testing.T) {
	p := profile.Stocks.Default
	s := richSignal()
	s.ATR = 2.5 // 5% del precio
	assert.Zero(t, scoring.ScannerComposite.Breakdown(s, p).Contribution("volatility"))
	s.ATR = 4 // 8%
	assert.InDelta(t, -2.5*2.5*p.VolatilityPenalty, scoring.ScannerComposite.Breakdown(s, p).Contribution("volatility"), 1e-9)
}

func TestSetupScore_RiskPenaltyAndTrendBonus(t *testing.T) {
	p := profile.Stocks.Default

	tight := domain.StockSetup{Entry: 100, Stop: 97, Target: 109}
	b := scoring.SetupComposite.Breakdown(tight, p)
	assert.Zero(t, b.Contribution("excess_risk"))
	assert.Equal(t, p.TrendStrengthBonus, b.Contribution("trend_bonus"))
	// 35 + 3×7×1.2 + 0 + 6×0.8×0.9 + 6
	assert.InDelta(t, 35+25.2+4.32+6, b.Score, 1e-9)

	wide := domain.StockSetup{Entry: 100, Stop: 92, Target: 110}
	b = scoring.SetupComposite.Breakdown(wide, p)
	assert.InDelta(t, -3.5*4*p.VolatilityPenalty, b.Contribution("excess_risk"), 1e-9)
	assert.Zero(t, b.Contribution("trend_bonus"))
}

func TestMarketScore_TighterSpreadScoresHigher(t *testing.T) {
	p := profile.Events.Default
	tight := richQuote()
	wide := richQuote()
	wide.Ask = 0.55
	assert.Greater(t, scoring.MarketScore(tight, p), scoring.MarketScore(wide, p))

	missing := richQuote()
	missing.Bid = 0
	assert.Zero(t, scoring.MarketComposite.Breakdown(missing, p).Contribution("spread"))
}

func TestMarketScore_VenueScales(t *testing.T) {
	assert.Equal(t, scoring.ScaleFor(domain.VenueKalshi), scoring.ScaleFor(domain.Venue("unknown")))

	p := profile.Events.Default
	q := richQuote()
	q.Venue = domain.VenuePolymarket
	kalshi := scoring.MarketScore(richQuote(), p)
	poly := scoring.MarketScore(q, p)
	assert.Greater(t, kalshi, poly, "same volume is deeper relative to Kalshi scales")
}

func TestConvergenceQuote(t *testing.T) {
	q := scoring.ConvergenceQuote(domain.ConvergencePair{
		KalshiTicker: "FED-MAR", PolyPrice: 0.55, KalshiPrice: 48, KalshiBid: 47, KalshiAsk: 49,
		Volume: 20_000, Liquidity: 8_000, MatchScore: 3,
	})
	assert.Equal(t, domain.VenueConvergence, q.Venue)
	assert.InDelta(t, 0.47, q.Bid, 1e-12)
	assert.InDelta(t, 0.49, q.Ask, 1e-12)
	assert.InDelta(t, 0.5, q.Confidence, 1e-12)
	assert.InDelta(t, 0.7, q.Momentum, 1e-9)
}

func TestScalpQuote(t *testing.T) {
	q := scoring.ScalpQuote(domain.ScalpSignal{
		Ticker: "INX-5000", Confidence: 0.8, Momentum: 0.2, Volatility: 0.004, Bid: 52, Ask: 55, Volume: 900,
	})
	assert.Equal(t, domain.VenueScalper, q.Venue)
	assert.InDelta(t, 3.0, q.SpreadCents(), 1e-9)
	assert.InDelta(t, 0.4, q.Volatility, 1e-12)
	assert.Equal(t, 0.8, q.Confidence)
}

func TestCompositeScore_TanhCompression(t *testing.T) {
	p := profile.DFS.Default
	neutral := scoring.CompositeScore(scoring.LegFeatures{Confidence: 50}, p)
	assert.InDelta(t, 50.0, neutral, 1e-9)

	huge := scoring.CompositeScore(scoring.LegFeatures{EdgePct: 1e9, Confidence: 100, StakePct: 100, Books: 64}, p)
	assert.LessOrEqual(t, huge, 92.0)
	assert.Greater(t, huge, 85.0)

	awful := scoring.CompositeScore(scoring.LegFeatures{EdgePct: -1e9, BookSpread: 1e6, CorrelationPenalty: 1e6}, p)
	assert.GreaterOrEqual(t, awful, 8.0)
	assert.Less(t, awful, 15.0)
}

func TestCompositeScore_MonotonicInEdgeAndConfidence(t *testing.T) {
	p := profile.DFS.Default
	prev := 0.0
	for edge := -25.0; edge <= 25; edge += 0.5 {
		s := scoring.CompositeScore(scoring.LegFeatures{EdgePct: edge, Confidence: 60, Books: 2}, p)
		assert.GreaterOrEqual(t, s, prev)
		prev = s
	}
	prev = 0
	for conf := 0.0; conf <= 100; conf += 5 {
		s := scoring.CompositeScore(scoring.LegFeatures{EdgePct: 3, Confidence: conf, Books: 2}, p)
		assert.GreaterOrEqual(t, s, prev)
		prev = s
	}
}

func TestBookSpread(t *testing.T) {
	prop := domain.Prop{BookOdds: []domain.BookQuote{{Book: "a", Odds: -110}, {Book: "b", Odds: 120}, {Book: "c", Odds: -130}}}
	// OddsLine: -110, -80, -130
	assert.InDelta(t, 50.0, scoring.BookSpread(prop), 1e-9)
	assert.Zero(t, scoring.BookSpread(domain.Prop{BookOdds: []domain.BookQuote{{Book: "a", Odds: -110}}}))

	b := scoring.AIComposite.Breakdown(scoring.LegFeatures{Confidence: 50, BookSpread: 50}, profile.DFS.Default)
	assert.InDelta(t, -0.22, b.Contribution("book_disagreement"), 1e-12)
}

func TestEvaluateProp(t *testing.T) {
	opp := 120.0
	prop := domain.Prop{
		PlayerName: "Jalen Brunson", Market: "player_points", Side: "over", Line: 26.5, Book: "pinnacle",
		SharpOdds: -140, OpposingOdds: &opp, FixedImpliedProb: 0.5,
	}
	p := profile.DFS.Default

	ev, err := scoring.EvaluateProp(prop, p)
	require.NoError(t, err)
	require.NotNil(t, ev.Probability.Fair)
	assert.InDelta(t, (*ev.Probability.Fair-0.5)*100, ev.EdgePct, 1e-9)
	assert.Greater(t, ev.Confidence, 50.0)
	assert.Greater(t, ev.Stake.StakePct, 0.0)
	assert.LessOrEqual(t, ev.Stake.StakePct, p.KellyCapPct)

	p.UseDevig = false
	raw, err := scoring.EvaluateProp(prop, p)
	require.NoError(t, err)
	assert.Greater(t, raw.EdgePct, ev.EdgePct)

	f := ev.Features(prop, 3.5)
	assert.Equal(t, 1, f.Books)
	assert.Equal(t, 3.5, f.CorrelationPenalty)
}

func TestEvaluateProp_InvalidOdds(t *testing.T) {
	_, err := scoring.EvaluateProp(domain.Prop{PlayerName: "x", SharpOdds: 0}, profile.DFS.Default)
	assert.ErrorIs(t, err, domain.ErrInvalidOdds)
}

func TestEvaluateProp_NegativeEdgeNeverStakes(t *testing.T) {
	prop := domain.Prop{PlayerName: "x", SharpOdds: 150, FixedImpliedProb: 0.545}
	ev, err := scoring.EvaluateProp(prop, profile.DFS.Default)
	require.NoError(t, err)
	assert.Less(t, ev.EdgePct, 0.0)
	assert.Zero(t, ev.Stake.StakePct)
}
