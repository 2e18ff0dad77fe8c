package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectMiddle_ModerateGap(t *testing.T) {
	res, err := DetectMiddle(MiddleRequest{
		Stat: "points", DFSLine: 24.5, SharpLine: 26.5,
		DFSOdds: -110, SharpOdds: -110, MarketConfidence: 0.7,
	})
	require.NoError(t, err)

	assert.True(t, res.IsMiddle)
	assert.Equal(t, "moderate", res.Strength)
	assert.Equal(t, "over_dfs", res.Direction)
	assert.InDelta(t, 25.9, res.AssumedMean, 1e-9)
	assert.InDelta(t, 8.0625, res.AssumedStdDev, 1e-9)
	assert.Greater(t, res.Probability, 0.0)
	assert.Less(t, res.Probability, 1.0)
	assert.GreaterOrEqual(t, res.BreakevenProb, 0.0)
	assert.LessOrEqual(t, res.BreakevenProb, 1.0)
}

func TestDetectMiddle_SmallGapIsWeak(t *testing.T) {
	res, err := DetectMiddle(MiddleRequest{
		Stat: "rebounds", DFSLine: 8.5, SharpLine: 7.5,
		DFSOdds: -110, SharpOdds: -110, MarketConfidence: 1,
	})
	require.NoError(t, err)

	assert.False(t, res.IsMiddle)
	assert.Equal(t, "weak", res.Strength)
	assert.Equal(t, "under_dfs", res.Direction)
	assert.InDelta(t, 4.0, res.AssumedStdDev, 1e-9)
}

func TestDetectMiddle_ExplicitStdDev(t *testing.T) {
	res, err := DetectMiddle(MiddleRequest{
		DFSLine: 20, SharpLine: 24, DFSOdds: 100, SharpOdds: 100,
		LineStd: 2, MarketConfidence: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "strong", res.Strength)
	assert.InDelta(t, 2.0, res.AssumedStdDev, 1e-9)
	// a +100 cada lado el one-side pierde 0 y el middle gana 2
	assert.InDelta(t, 0.0, res.BreakevenProb, 1e-9)
}

func TestDetectMiddle_InvalidOdds(t *testing.T) {
	_, err := DetectMiddle(MiddleRequest{DFSOdds: 0, SharpOdds: -110})
	assert.ErrorIs(t, err, ErrInvalidOdds)
}
