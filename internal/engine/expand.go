package engine

import (
	"log/slog"

	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/features"
)

// DepthWindow es la distancia al midpoint que cuenta como profundidad al
// convertir un libro de órdenes en cotización.
const DepthWindow = 0.05

// BookFeed es el libro de órdenes de un contrato junto con los datos del
// mercado que el libro no trae.
type BookFeed struct {
	Venue      domain.Venue     `json:"venue"`
	Ticker     string           `json:"ticker"`
	Title      string           `json:"title,omitempty"`
	Volume     float64          `json:"volume"`
	Confidence float64          `json:"confidence"`
	Book       domain.OrderBook `json:"book"`
}

// TapeFeed son los ticks del subyacente, en orden cronológico, y los
// contratos de cierre que se comparan con su momentum.
type TapeFeed struct {
	Ticks     []features.Tick     `json:"ticks"`
	Contracts []features.Contract `json:"contracts"`
}

// Expand deriva de Charts los setups y la fila del scanner de cada símbolo,
// de Books una cotización por libro y de Tape las señales de scalping. El resultado ya no lleva datos en bruto,
// así que expandir dos veces no duplica nada. Un símbolo sin velas
// suficientes se descarta.
func (b Batch) Expand() Batch {
	if len(b.Charts) == 0 && len(b.Books) == 0 && b.Tape == nil {
		return b
	}
	out := b
	out.Charts, out.Books, out.Tape = nil, nil, nil
	out.Setups = append([]domain.StockSetup(nil), b.Setups...)
	out.Scanner = append([]domain.ScannerSignal(nil), b.Scanner...)
	out.Markets = append([]domain.MarketQuote(nil), b.Markets...)
	out.Scalps = append([]domain.ScalpSignal(nil), b.Scalps...)

	for _, c := range b.Charts {
		in, err := features.Compute(c.Symbol, c.Bars)
		if err != nil {
			slog.Debug("chart skipped", "symbol", c.Symbol, "err", err)
			continue
		}
		out.Setups = append(out.Setups, features.Setups(in)...)
		out.Scanner = append(out.Scanner, in.Scanner(c.AIScore))
	}

	for _, f := range b.Books {
		q := domain.QuoteFromBook(f.Venue, f.Ticker, f.Book, DepthWindow)
		if q.Bid <= 0 && q.Ask <= 0 {
			slog.Debug("empty book skipped", "ticker", f.Ticker)
			continue
		}
		q.Title, q.Volume, q.Confidence = f.Title, f.Volume, f.Confidence
		out.Markets = append(out.Markets, q)
	}

	if b.Tape != nil && len(b.Tape.Ticks) > 0 {
		tape := features.NewTape(max(len(b.Tape.Ticks), features.DefaultTapeSize))
		for _, t := range b.Tape.Ticks {
			tape.Add(t.Price, t.At)
		}
		out.Scalps = append(out.Scalps, tape.Signals(b.Tape.Contracts)...)
	}
	return out
}
