package domain

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	middleMinGap    = 2.0
	middleStrongGap = 3.0
)

// MiddleRequest describe una línea DFS fija frente a la línea de un book sharp.
type MiddleRequest struct {
	Stat             string  `json:"stat"`
	DFSLine          float64 `json:"dfs_line"`
	SharpLine        float64 `json:"sharp_line"`
	DFSOdds          float64 `json:"dfs_odds"`
	SharpOdds        float64 `json:"sharp_odds"`
	LineStd          float64 `json:"line_std,omitempty"` // 0 = sigma por familia de stat
	MarketConfidence float64 `json:"market_confidence"`  // 0-1, peso de la línea sharp en la media
}

// MiddleResult es la estimación de probabilidad y EV de un middle.
type MiddleResult struct {
	Gap              float64 `json:"gap"`
	Direction        string  `json:"direction"`
	IsMiddle         bool    `json:"is_middle"`
	Strength         string  `json:"strength"`
	Probability      float64 `json:"middle_probability_estimate"`
	EVUnits          float64 `json:"middle_ev_units"`
	BreakevenProb    float64 `json:"breakeven_middle_probability"`
	AssumedStdDev    float64 `json:"assumed_std_dev"`
	AssumedMean      float64 `json:"assumed_mean"`
	ConfidenceWeight float64 `json:"confidence_weight"`
}

// DetectMiddle estima la probabilidad de que el resultado caiga entre la línea
// DFS y la sharp, modelando el stat como una normal centrada en una mezcla de
// ambas líneas. Se apuesta 1 unidad a cada lado.
func DetectMiddle(req MiddleRequest) (MiddleResult, error) {
	dfsDec, err := AmericanToDecimal(req.DFSOdds)
	if err != nil {
		return MiddleResult{}, fmt.Errorf("domain.DetectMiddle: dfs odds: %w", err)
	}
	sharpDec, err := AmericanToDecimal(req.SharpOdds)
	if err != nil {
		return MiddleResult{}, fmt.Errorf("domain.DetectMiddle: sharp odds: %w", err)
	}

	gap := math.Abs(req.SharpLine - req.DFSLine)
	res := MiddleResult{
		Gap:       gap,
		Direction: "under_dfs",
		IsMiddle:  gap >= middleMinGap,
		Strength:  "weak",
	}
	if req.SharpLine > req.DFSLine {
		res.Direction = "over_dfs"
	}
	switch {
	case gap >= middleStrongGap:
		res.Strength = "strong"
	case gap >= middleMinGap:
		res.Strength = "moderate"
	}

	conf := clamp(req.MarketConfidence, 0, 1)
	sigma := req.LineStd
	if !(sigma > 0) {
		sigma = statSigma(req.Stat)
	}
	mu := conf*req.SharpLine + (1-conf)*req.DFSLine
	sigma *= 1 + (1-conf)*0.25

	lo, hi := math.Min(req.DFSLine, req.SharpLine), math.Max(req.DFSLine, req.SharpLine)
	if isWhole(lo) && isWhole(hi) {
		lo, hi = lo-0.5, hi+0.5
	}
	dist := distuv.Normal{Mu: mu, Sigma: sigma}
	pMiddle := clamp(dist.CDF(hi)-dist.CDF(lo), 0, 1)

	dfsProfit := dfsDec - 1
	sharpProfit := sharpDec - 1
	middleProfit := dfsProfit + sharpProfit
	oneSide := (dfsProfit - 1 + sharpProfit - 1) / 2

	breakeven := 1.0
	if d := middleProfit - oneSide; d != 0 {
		breakeven = -oneSide / d
	}

	res.Probability = pMiddle
	res.EVUnits = pMiddle*middleProfit + (1-pMiddle)*oneSide
	res.BreakevenProb = clamp(breakeven, 0, 1)
	res.AssumedStdDev = sigma
	res.AssumedMean = mu
	res.ConfidenceWeight = conf
	return res, nil
}

// statSigma es la desviación típica por defecto según la familia del stat.
func statSigma(stat string) float64 {
	s := strings.ToLower(stat)
	switch {
	case strings.Contains(s, "point"):
		return 7.5
	case strings.Contains(s, "yard"):
		return 18.0
	case strings.Contains(s, "assist"):
		return 3.5
	case strings.Contains(s, "rebound"):
		return 4.0
	}
	return 6.0
}

func isWhole(v float64) bool {
	return math.Abs(v-math.Round(v)) < 1e-9
}
