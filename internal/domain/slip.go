package domain

// SlipMode es el modo de pago de un slip.
type SlipMode string

const (
	ModePower    SlipMode = "power"    // todas las piernas deben acertar
	ModeFlex     SlipMode = "flex"     // pago parcial por aciertos
	ModeStandard SlipMode = "standard" // todo o nada (underdog)
	ModeInsured  SlipMode = "insured"  // devuelve la entrada con n-1 aciertos
)

// SlipLeg es la representación normalizada de una pierna que se entrega al
// solver combinatorio.
type SlipLeg struct {
	Key           string   `json:"key"`
	PlayerName    string   `json:"player_name"`
	Market        string   `json:"market"`
	Side          string   `json:"side"`
	Line          float64  `json:"line"`
	Book          string   `json:"book"`
	SharpOdds     float64  `json:"sharp_odds"`
	OpposingOdds  *float64 `json:"opposing_odds,omitempty"`
	EdgePct       float64  `json:"edge_pct"`
	FairProb      *float64 `json:"fair_prob,omitempty"`
	Confidence    float64  `json:"confidence"`
	StakePct      float64  `json:"stake_pct"`
	AdjustedScore float64  `json:"adjusted_score"`
	Locked        bool     `json:"locked"`
}

// SlipEV es la valoración agregada de un slip por el solver.
type SlipEV struct {
	Book             string   `json:"book"`
	Mode             SlipMode `json:"mode"`
	Legs             int      `json:"slip_size"`
	WinProb          float64  `json:"win_probability"`
	EV               float64  `json:"expected_value"`
	PayoutMultiplier float64  `json:"payout_multiplier"`
	CombinedEdgePct  float64  `json:"combined_edge_pct"`
	AvgLegConfidence float64  `json:"avg_leg_confidence"`
}

// SlipSummary es la foto de un slip que se presenta al usuario.
type SlipSummary struct {
	ID       string    `json:"id"`
	Platform string    `json:"platform"`
	State    string    `json:"state"`
	Legs     []SlipLeg `json:"legs"`
	AvgEdge  float64   `json:"avg_edge_pct"`
	WinProb  float64   `json:"independent_win_probability"`
	Warnings []string  `json:"warnings"`
	EV       *SlipEV   `json:"ev,omitempty"`
}
