package profile

import "github.com/alejandrodnm/playscore/internal/domain"

var (
	weightRange    = Range{Min: 0, Max: 3}
	bonusRange     = Range{Min: 0, Max: 15}
	smoothingRange = Range{Min: 0, Max: 1}
	scalpRange     = Range{Min: 0.1, Max: 3}
	kellyCapRange  = Range{Min: 0, Max: 100, MinExclusive: true}
)

// StocksProfile pondera los términos de los scorers de setups y scanner de acciones.
type StocksProfile struct {
	ATRWeight          float64 `json:"atrWeight"`
	RSIWeight          float64 `json:"rsiWeight"`
	EMAWeight          float64 `json:"emaWeight"`
	CrossoverWeight    float64 `json:"crossoverWeight"`
	VolatilityPenalty  float64 `json:"volatilityPenalty"`
	LiquidityWeight    float64 `json:"liquidityWeight"`
	TrendStrengthBonus float64 `json:"trendStrengthBonus"`
	ScoreSmoothing     float64 `json:"scoreSmoothing"`
	UseRSIFilter       bool    `json:"useRsiFilter"`
	UseATRTrendGate    bool    `json:"useAtrTrendGate"`
	UseCrossoverBoost  bool    `json:"useCrossoverBoost"`
	UseLiquidityFilter bool    `json:"useLiquidityFilter"`
}

// EventsProfile pondera los términos del scorer de mercados de eventos.
type EventsProfile struct {
	SpreadWeight         float64 `json:"spreadWeight"`
	LiquidityWeight      float64 `json:"liquidityWeight"`
	DepthWeight          float64 `json:"depthWeight"`
	MomentumWeight       float64 `json:"momentumWeight"`
	ConfidenceWeight     float64 `json:"confidenceWeight"`
	VolatilityPenalty    float64 `json:"volatilityPenalty"`
	ExecutionRiskPenalty float64 `json:"executionRiskPenalty"`
	ScalpSensitivity     float64 `json:"scalpSensitivity"`
	UseDepthBoost        bool    `json:"useDepthBoost"`
	UseVolatilityPenalty bool    `json:"useVolatilityPenalty"`
	UseExecutionRisk     bool    `json:"useExecutionRisk"`
	UseMomentumBoost     bool    `json:"useMomentumBoost"`
	UseConfidenceScaling bool    `json:"useConfidenceScaling"`
}

// DFSProfile pondera el score de confianza, el score compuesto y el staking de props.
type DFSProfile struct {
	EdgeWeight            float64 `json:"edgeWeight"`
	ConfidenceWeight      float64 `json:"confidenceWeight"`
	StakeWeight           float64 `json:"stakeWeight"`
	KellyCapPct           float64 `json:"kellyCapPct"`
	UseDevig              bool    `json:"useDevig"`
	UseConfidenceShrink   bool    `json:"useConfidenceShrink"`
	UseVigPenalty         bool    `json:"useVigPenalty"`
	UseTrendBonus         bool    `json:"useTrendBonus"`
	UseKellyCap           bool    `json:"useKellyCap"`
	UseCorrelationPenalty bool    `json:"useCorrelationPenalty"`
}

// StakeOptions extrae del perfil los toggles que usa el modelo de staking.
func (p DFSProfile) StakeOptions() domain.StakeOptions {
	return domain.StakeOptions{
		UseDevig:            p.UseDevig,
		UseConfidenceShrink: p.UseConfidenceShrink,
		UseKellyCap:         p.UseKellyCap,
		KellyCapPct:         p.KellyCapPct,
	}
}

// Stocks es el esquema del dominio stocks.
var Stocks = Schema[StocksProfile]{
	Domain: domain.Stocks,
	Default: StocksProfile{
		ATRWeight:          1.2,
		RSIWeight:          0.9,
		EMAWeight:          1.1,
		CrossoverWeight:    1.15,
		VolatilityPenalty:  0.8,
		LiquidityWeight:    0.7,
		TrendStrengthBonus: 6.0,
		ScoreSmoothing:     0.6,
		UseRSIFilter:       true,
		UseATRTrendGate:    true,
		UseCrossoverBoost:  true,
		UseLiquidityFilter: true,
	},
	Fields: []Field[StocksProfile]{
		number("atrWeight", weightRange, func(p *StocksProfile) *float64 { return &p.ATRWeight }),
		number("rsiWeight", weightRange, func(p *StocksProfile) *float64 { return &p.RSIWeight }),
		number("emaWeight", weightRange, func(p *StocksProfile) *float64 { return &p.EMAWeight }),
		number("crossoverWeight", weightRange, func(p *StocksProfile) *float64 { return &p.CrossoverWeight }),
		number("volatilityPenalty", weightRange, func(p *StocksProfile) *float64 { return &p.VolatilityPenalty }),
		number("liquidityWeight", weightRange, func(p *StocksProfile) *float64 { return &p.LiquidityWeight }),
		number("trendStrengthBonus", bonusRange, func(p *StocksProfile) *float64 { return &p.TrendStrengthBonus }),
		number("scoreSmoothing", smoothingRange, func(p *StocksProfile) *float64 { return &p.ScoreSmoothing }),
		toggle("useRsiFilter", func(p *StocksProfile) *bool { return &p.UseRSIFilter }),
		toggle("useAtrTrendGate", func(p *StocksProfile) *bool { return &p.UseATRTrendGate }),
		toggle("useCrossoverBoost", func(p *StocksProfile) *bool { return &p.UseCrossoverBoost }),
		toggle("useLiquidityFilter", func(p *StocksProfile) *bool { return &p.UseLiquidityFilter }),
	},
	Presets: map[Preset]Overrides{
		Safe: {
			"volatilityPenalty":  1.2,
			"liquidityWeight":    0.9,
			"crossoverWeight":    1.0,
			"trendStrengthBonus": 4.0,
			"scoreSmoothing":     0.45,
			"useRsiFilter":       true,
			"useAtrTrendGate":    true,
			"useLiquidityFilter": true,
		},
		Aggressive: {
			"volatilityPenalty":  0.5,
			"liquidityWeight":    0.5,
			"crossoverWeight":    1.35,
			"trendStrengthBonus": 8.0,
			"scoreSmoothing":     0.8,
			"useAtrTrendGate":    false,
			"useLiquidityFilter": false,
		},
	},
}

// Events es el esquema del dominio events.
var Events = Schema[EventsProfile]{
	Domain: domain.Events,
	Default: EventsProfile{
		SpreadWeight:         1.5,
		LiquidityWeight:      1.2,
		DepthWeight:          1.0,
		MomentumWeight:       1.1,
		ConfidenceWeight:     1.0,
		VolatilityPenalty:    0.8,
		ExecutionRiskPenalty: 0.9,
		ScalpSensitivity:     1.0,
		UseDepthBoost:        true,
		UseVolatilityPenalty: true,
		UseExecutionRisk:     true,
		UseMomentumBoost:     true,
		UseConfidenceScaling: true,
	},
	Fields: []Field[EventsProfile]{
		number("spreadWeight", weightRange, func(p *EventsProfile) *float64 { return &p.SpreadWeight }),
		number("liquidityWeight", weightRange, func(p *EventsProfile) *float64 { return &p.LiquidityWeight }),
		number("depthWeight", weightRange, func(p *EventsProfile) *float64 { return &p.DepthWeight }),
		number("momentumWeight", weightRange, func(p *EventsProfile) *float64 { return &p.MomentumWeight }),
		number("confidenceWeight", weightRange, func(p *EventsProfile) *float64 { return &p.ConfidenceWeight }),
		number("volatilityPenalty", weightRange, func(p *EventsProfile) *float64 { return &p.VolatilityPenalty }),
		number("executionRiskPenalty", weightRange, func(p *EventsProfile) *float64 { return &p.ExecutionRiskPenalty }),
		number("scalpSensitivity", scalpRange, func(p *EventsProfile) *float64 { return &p.ScalpSensitivity }),
		toggle("useDepthBoost", func(p *EventsProfile) *bool { return &p.UseDepthBoost }),
		toggle("useVolatilityPenalty", func(p *EventsProfile) *bool { return &p.UseVolatilityPenalty }),
		toggle("useExecutionRisk", func(p *EventsProfile) *bool { return &p.UseExecutionRisk }),
		toggle("useMomentumBoost", func(p *EventsProfile) *bool { return &p.UseMomentumBoost }),
		toggle("useConfidenceScaling", func(p *EventsProfile) *bool { return &p.UseConfidenceScaling }),
	},
	Presets: map[Preset]Overrides{
		Safe: {
			"spreadWeight":         1.8,
			"momentumWeight":       0.9,
			"volatilityPenalty":    1.1,
			"executionRiskPenalty": 1.2,
			"scalpSensitivity":     0.8,
			"useVolatilityPenalty": true,
			"useExecutionRisk":     true,
		},
		Aggressive: {
			"momentumWeight":       1.4,
			"volatilityPenalty":    0.5,
			"executionRiskPenalty": 0.6,
			"scalpSensitivity":     1.3,
			"useVolatilityPenalty": false,
		},
	},
}

// DFS es el esquema del dominio dfs.
var DFS = Schema[DFSProfile]{
	Domain: domain.DFS,
	Default: DFSProfile{
		EdgeWeight:            1.8,
		ConfidenceWeight:      1.2,
		StakeWeight:           1.0,
		KellyCapPct:           25.0,
		UseDevig:              true,
		UseConfidenceShrink:   true,
		UseVigPenalty:         true,
		UseTrendBonus:         true,
		UseKellyCap:           true,
		UseCorrelationPenalty: true,
	},
	Fields: []Field[DFSProfile]{
		number("edgeWeight", weightRange, func(p *DFSProfile) *float64 { return &p.EdgeWeight }),
		number("confidenceWeight", weightRange, func(p *DFSProfile) *float64 { return &p.ConfidenceWeight }),
		number("stakeWeight", weightRange, func(p *DFSProfile) *float64 { return &p.StakeWeight }),
		number("kellyCapPct", kellyCapRange, func(p *DFSProfile) *float64 { return &p.KellyCapPct }),
		toggle("useDevig", func(p *DFSProfile) *bool { return &p.UseDevig }),
		toggle("useConfidenceShrink", func(p *DFSProfile) *bool { return &p.UseConfidenceShrink }),
		toggle("useVigPenalty", func(p *DFSProfile) *bool { return &p.UseVigPenalty }),
		toggle("useTrendBonus", func(p *DFSProfile) *bool { return &p.UseTrendBonus }),
		toggle("useKellyCap", func(p *DFSProfile) *bool { return &p.UseKellyCap }),
		toggle("useCorrelationPenalty", func(p *DFSProfile) *bool { return &p.UseCorrelationPenalty }),
	},
	Presets: map[Preset]Overrides{
		Safe: {
			"edgeWeight":            1.5,
			"confidenceWeight":      1.4,
			"stakeWeight":           0.8,
			"kellyCapPct":           10.0,
			"useConfidenceShrink":   true,
			"useVigPenalty":         true,
			"useKellyCap":           true,
			"useCorrelationPenalty": true,
		},
		Aggressive: {
			"edgeWeight":            2.2,
			"confidenceWeight":      1.0,
			"stakeWeight":           1.3,
			"kellyCapPct":           40.0,
			"useConfidenceShrink":   false,
			"useCorrelationPenalty": false,
		},
	},
}
