package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyRanking imprime el ranking en el modo configurado.
func (c *Console) NotifyRanking(_ context.Context, ranked []domain.Ranked) error {
	if len(ranked) == 0 {
		fmt.Fprintf(c.out, "[%s] no opportunities found\n", time.Now().Format("15:04:05"))
		return nil
	}

	if c.table {
		c.printFull(ranked)
	} else {
		c.printCompact(ranked)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(ranked []domain.Ranked) {
	now := time.Now().Format("15:04:05")
	counts := countByDomain(ranked)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d opps → stocks:%d events:%d dfs:%d", now, len(ranked),
		counts[domain.Stocks], counts[domain.Events], counts[domain.DFS])

	for i, r := range ranked {
		if i >= 4 {
			break
		}
		fmt.Fprintf(&sb, " | %s %.1f", compactName(r.Label, 25), r.Score)
		if edge, ok := r.EdgePct(); ok {
			fmt.Fprintf(&sb, " e%+.1f%% k%.2f%%", edge, r.StakePct())
		}
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla completa y el mejor de cada dominio.
func (c *Console) printFull(ranked []domain.Ranked) {
	now := time.Now().Format("15:04:05")
	counts := countByDomain(ranked)

	fmt.Fprintf(c.out, "\n[%s] %d opportunities, stocks:%d events:%d dfs:%d\n",
		now, len(ranked), counts[domain.Stocks], counts[domain.Events], counts[domain.DFS])

	c.printTable(ranked)
	c.printLeaders(ranked)
}

// printTable imprime la tabla de oportunidades.
func (c *Console) printTable(ranked []domain.Ranked) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Domain", "Opportunity", "Score", "Edge", "Stake", "Side")

	for i, r := range ranked {
		edge, stake := "-", "-"
		if e, ok := r.EdgePct(); ok {
			edge = fmt.Sprintf("%+.2f%%", e)
		}
		if r.Stake != nil {
			stake = fmt.Sprintf("%.2f%%", r.Stake.StakePct)
		}
		side := r.Side
		if side == "" {
			side = "-"
		}

		table.Append(
			fmt.Sprintf("%d", i+1),
			r.Domain.String(),
			truncate(r.Label, 40),
			fmt.Sprintf("%.1f", r.Score),
			edge,
			stake,
			side,
		)
	}

	table.Render()

	fmt.Fprintln(c.out, "  Score = play score 0-100 | Edge = prob. justa - implícita fija (pp)")
	fmt.Fprintln(c.out, "  Stake = Kelly fraccional en % del bankroll")
}

// printLeaders imprime la mejor oportunidad de cada dominio.
func (c *Console) printLeaders(ranked []domain.Ranked) {
	fmt.Fprintln(c.out, "\n=== TOP PER DOMAIN ===")
	for _, d := range domain.Domains() {
		for _, r := range ranked {
			if r.Domain != d {
				continue
			}
			fmt.Fprintf(c.out, "  %-6s %-40s score:%.1f\n", d, truncate(r.Label, 40), r.Score)
			break
		}
	}
	fmt.Fprintln(c.out)
}

// NotifySlip imprime las piernas del slip, sus estadísticas y los avisos.
func (c *Console) NotifySlip(_ context.Context, s domain.SlipSummary) error {
	fmt.Fprintf(c.out, "\n=== SLIP %s (%s, %s, %d legs) ===\n", shortID(s.ID), s.Platform, s.State, len(s.Legs))
	if len(s.Legs) == 0 {
		fmt.Fprintln(c.out, "  empty slip")
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Lock", "Player", "Market", "Pick", "Edge", "Conf", "Score")
	for i, l := range s.Legs {
		lock := ""
		if l.Locked {
			lock = "L"
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			lock,
			truncate(l.PlayerName, 24),
			l.Market,
			fmt.Sprintf("%s %g", strings.ToUpper(l.Side), l.Line),
			fmt.Sprintf("%+.2f%%", l.EdgePct),
			fmt.Sprintf("%.0f", l.Confidence),
			fmt.Sprintf("%.1f", l.AdjustedScore),
		)
	}
	table.Render()

	if s.State == "ready" {
		fmt.Fprintf(c.out, "  Avg edge: %+.2f%%  Win prob (independent): %.2f%%\n", s.AvgEdge, s.WinProb*100)
	}
	if s.EV != nil {
		fmt.Fprintf(c.out, "  %s %s x%.2f  EV: %+.3f  Combined edge: %+.2f%%\n",
			s.EV.Book, s.EV.Mode, s.EV.PayoutMultiplier, s.EV.EV, s.EV.CombinedEdgePct)
	}
	for _, w := range s.Warnings {
		fmt.Fprintf(c.out, "  ⚠ %s\n", w)
	}
	fmt.Fprintln(c.out)
	return nil
}

// --- helpers ---

func countByDomain(ranked []domain.Ranked) map[domain.Domain]int {
	counts := make(map[domain.Domain]int, 3)
	for _, r := range ranked {
		counts[r.Domain]++
	}
	return counts
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func compactName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
