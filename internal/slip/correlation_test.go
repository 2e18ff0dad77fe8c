package slip_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/playscore/internal/profile"
	"github.com/alejandrodnm/playscore/internal/slip"
)

func TestCorrelationPenalty_Formula(t *testing.T) {
	legs := []slip.Leg{
		leg(t, prop("A", "player_points", "over")),
		leg(t, prop("B", "player_points", "over")),
		leg(t, prop("C", "player_rebounds", "over")),
	}
	candidate := leg(t, prop("D", "player_points", "over"))

	// 2 mismo mercado × 3.5 + (3 mismo lado − 1) × 1.2
	assert.InDelta(t, 2*3.5+2*1.2, slip.CorrelationPenalty(candidate, legs), 1e-12)
	assert.Zero(t, slip.CorrelationPenalty(candidate, nil))
}

func TestCorrelationPenalty_SkipsOwnKey(t *testing.T) {
	a := leg(t, prop("A", "player_points", "over"))
	b := leg(t, prop("B", "player_points", "under"))

	assert.InDelta(t, 3.5, slip.CorrelationPenalty(a, []slip.Leg{a, b}), 1e-12)
}

func TestCorrelationPenalty_MonotonicInSharedMarket(t *testing.T) {
	first := leg(t, prop("A", "player_points", "over"))
	third := leg(t, prop("C", "player_points", "over"))

	shared := []slip.Leg{first, leg(t, prop("B", "player_points", "under"))}
	distinct := []slip.Leg{first, leg(t, prop("B", "player_rebounds", "under"))}

	assert.Greater(t,
		slip.CorrelationPenalty(third, shared),
		slip.CorrelationPenalty(third, distinct),
	)
}

func TestAdjustedScores_DependOnOrder(t *testing.T) {
	a := leg(t, prop("A", "player_points", "over"))
	b := leg(t, prop("B", "player_points", "over"))
	p := profile.DFS.Default

	ab := slip.AdjustedScores([]slip.Leg{a, b}, p)
	ba := slip.AdjustedScores([]slip.Leg{b, a}, p)
	alone := slip.AdjustedScores([]slip.Leg{a}, p)

	require.Len(t, ab, 2)
	assert.Equal(t, alone[0], ab[0], "first leg sees an empty context")
	assert.Less(t, ab[1], ab[0])
	assert.Less(t, ba[1], alone[0], "a scored after b is penalized")

	p.UseCorrelationPenalty = false
	off := slip.AdjustedScores([]slip.Leg{a, b}, p)
	assert.Equal(t, off[0], off[1])
}

func TestCandidateScore(t *testing.T) {
	a := leg(t, prop("A", "player_points", "over"))
	b := leg(t, prop("B", "player_points", "over"))
	c := leg(t, prop("C", "player_points", "over"))
	p := profile.DFS.Default
	legs := []slip.Leg{a, b}

	assert.Equal(t, slip.AdjustedScores(legs, p)[0], slip.CandidateScore(a, legs, p))
	assert.Less(t, slip.CandidateScore(c, legs, p), slip.CandidateScore(b, legs, p),
		"an outside candidate is scored against the whole slip")
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name  string
		legs  [][2]string // market, side
		want  int
		first string
	}{
		{"empty", nil, 0, ""},
		{"two different markets", [][2]string{{"player_points", "over"}, {"player_rebounds", "over"}}, 0, ""},
		{"market repeat", [][2]string{{"player_points", "over"}, {"player_points", "under"}}, 1, "2 legs share market player_points: outcomes are correlated"},
		{"side concentration", [][2]string{{"player_points", "over"}, {"player_rebounds", "over"}, {"player_assists", "over"}}, 1, "3 legs on the over side: concentrated exposure"},
		{"both rules in order", [][2]string{{"player_points", "over"}, {"player_points", "over"}, {"player_assists", "over"}}, 2, "2 legs share market player_points: outcomes are correlated"},
		{"generic size notice", [][2]string{{"player_points", "over"}, {"player_rebounds", "under"}, {"player_assists", "over"}, {"player_threes", "under"}}, 1, "moderate correlation risk, diversify"},
		{"no generic when sharper applies", [][2]string{{"player_points", "over"}, {"player_points", "under"}, {"player_assists", "over"}, {"player_threes", "under"}}, 1, "2 legs share market player_points: outcomes are correlated"},
	}

	names := []string{"A", "B", "C", "D", "E", "F"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var legs []slip.Leg
			for i, ms := range tt.legs {
				legs = append(legs, leg(t, prop(names[i], ms[0], ms[1])))
			}
			got := slip.Warnings(legs)
			require.Len(t, got, tt.want)
			if tt.want > 0 {
				assert.Equal(t, tt.first, got[0])
			}
		})
	}
}
