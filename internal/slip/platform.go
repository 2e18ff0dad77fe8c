package slip

import (
	"strings"
	"unicode"

	"github.com/alejandrodnm/playscore/internal/domain"
)

// Platform es la plataforma DFS destino del slip.
type Platform string

const (
	Sleeper    Platform = "sleeper"
	PrizePicks Platform = "prizepicks"
	Underdog   Platform = "underdog"
)

var bookAliases = map[string]string{
	"sleeper":        "sleeper",
	"prizepicks":     "prizepicks",
	"underdog":       "underdog",
	"underdogsports": "underdog",
	"draftkings":     "draftkings",
	"fanduel":        "fanduel",
	"betmgm":         "betmgm",
	"mgm":            "betmgm",
	"pinnacle":       "pinnacle",
	"bookmaker":      "bookmaker",
}

// CanonicalBook normaliza alias de books: "Underdog Sports" → "underdog".
func CanonicalBook(book string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(book) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	raw := b.String()
	if alias, ok := bookAliases[raw]; ok {
		return alias
	}
	return raw
}

// ParsePlatform normaliza el nombre de una plataforma. Cualquier nombre es
// válido: las desconocidas no restringen mercados.
func ParsePlatform(s string) Platform {
	return Platform(CanonicalBook(s))
}

type marketSet map[string]struct{}

func setOf(markets ...string) marketSet {
	s := make(marketSet, len(markets))
	for _, m := range markets {
		s[m] = struct{}{}
	}
	return s
}

func union(a marketSet, extra ...string) marketSet {
	s := make(marketSet, len(a)+len(extra))
	for m := range a {
		s[m] = struct{}{}
	}
	for _, m := range extra {
		s[m] = struct{}{}
	}
	return s
}

var sleeperMarkets = map[string]marketSet{
	"nba": setOf(
		"player_points", "player_rebounds", "player_assists",
		"player_threes", "player_blocks", "player_steals",
		"player_turnovers", "player_points_rebounds_assists",
		"player_points_rebounds", "player_points_assists",
		"player_rebounds_assists", "player_double_double",
		"player_blocks_steals", "player_triple_double",
	),
	"nfl": setOf(
		"player_pass_yds", "player_pass_tds", "player_pass_completions",
		"player_pass_attempts", "player_pass_interceptions",
		"player_rush_yds", "player_rush_attempts", "player_rush_tds",
		"player_receptions", "player_reception_yds", "player_reception_tds",
		"player_rush_reception_yds", "player_rush_reception_tds",
		"player_anytime_td", "player_kicking_points",
	),
	"mlb": setOf(
		"pitcher_strikeouts", "pitcher_outs", "batter_hits",
		"batter_total_bases", "batter_rbis", "batter_runs_scored",
		"batter_walks", "batter_stolen_bases", "batter_home_runs",
	),
	"soccer": setOf("player_shots", "player_shots_on_target", "player_goal_scorer_anytime"),
}

// platformMarkets: plataforma → deporte → mercados ofrecidos.
var platformMarkets = func() map[Platform]map[string]marketSet {
	prizepicks := map[string]marketSet{
		"nba":    sleeperMarkets["nba"],
		"nfl":    sleeperMarkets["nfl"],
		"mlb":    union(sleeperMarkets["mlb"], "pitcher_hits_allowed", "pitcher_walks"),
		"soccer": sleeperMarkets["soccer"],
	}
	return map[Platform]map[string]marketSet{
		Sleeper:    sleeperMarkets,
		PrizePicks: prizepicks,
		Underdog:   prizepicks,
	}
}()

// Known indica si la plataforma tiene lista de mercados.
func (p Platform) Known() bool {
	_, ok := platformMarkets[p]
	return ok
}

// DefaultMode es el modo de pago habitual de la plataforma: standard en
// underdog, power en el resto.
func (p Platform) DefaultMode() domain.SlipMode {
	if p == Underdog {
		return domain.ModeStandard
	}
	return domain.ModePower
}

// Available indica si la pierna puede jugarse en la plataforma:
//  1. el book de la pierna o alguna de sus cuotas es la propia plataforma
//  2. el mercado está en la lista de la plataforma para el deporte
//
// Una plataforma o un deporte sin lista no restringen. Sin deporte se acepta
// el mercado si aparece en la lista de cualquier deporte.
func (p Platform) Available(l Leg) bool {
	bySport, ok := platformMarkets[p]
	if !ok {
		return true
	}
	target := string(p)
	if CanonicalBook(l.Book) == target {
		return true
	}
	for _, q := range l.BookOdds {
		if CanonicalBook(q.Book) == target {
			return true
		}
	}

	market := norm(l.Market)
	sport := norm(l.Sport)
	if sport == "" {
		for _, markets := range bySport {
			if _, ok := markets[market]; ok {
				return true
			}
		}
		return false
	}
	markets, ok := bySport[sport]
	if !ok {
		return true
	}
	_, ok = markets[market]
	return ok
}
