package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
)

// Portfolio summarizes a valuation: cash, holdings at market and the
// share of each holding in the portfolio.
func Portfolio(v ledger.Valuation, currency string) string {
	var b strings.Builder
	b.WriteString("# Portfolio\n\n")
	b.WriteString("| | |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Cash | %s |\n", Money(v.Balance, currency))
	fmt.Fprintf(&b, "| Portfolio value | %s |\n", Money(v.PortfolioValue, currency))
	fmt.Fprintf(&b, "| Total equity | %s |\n", Money(v.TotalEquity, currency))
	fmt.Fprintf(&b, "| P/L | %s |\n\n", Signed(v.ProfitLoss, currency))

	b.WriteString("## Holdings\n\n")
	if len(v.Holdings) == 0 {
		b.WriteString("_No holdings._\n")
		return b.String()
	}
	b.WriteString("| Symbol | Quantity | Price | Value | Allocation |\n")
	b.WriteString("|---|---:|---:|---:|---:|\n")
	for _, h := range v.Holdings {
		price := "n/a"
		if h.Priced {
			price = Price(h.Price)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			h.Symbol, Quantity(h.Quantity), price, Money(h.Value, currency), Percent(h.Allocation))
	}
	return b.String()
}

// Wallet lists cash and quantities without valuing them.
func Wallet(w ledger.Wallet, currency string) string {
	var b strings.Builder
	b.WriteString("# Wallet\n\n")
	fmt.Fprintf(&b, "**Balance:** %s\n\n", Money(w.Balance, currency))
	syms := w.Symbols()
	if len(syms) == 0 {
		b.WriteString("_No holdings._\n")
		return b.String()
	}
	b.WriteString("| Symbol | Quantity |\n|---|---:|\n")
	for _, s := range syms {
		fmt.Fprintf(&b, "| %s | %s |\n", s, Quantity(w.Quantity(s)))
	}
	return b.String()
}

// History lists trades newest first, filtered by side. An empty side
// shows all trades.
func History(trades []ledger.Trade, side ledger.Side, currency string) string {
	shown := ledger.Filter(trades, side)

	var b strings.Builder
	b.WriteString("# Trade history\n\n")
	if len(trades) == 0 {
		b.WriteString("_No trades yet._\n")
		return b.String()
	}
	if len(shown) > 0 {
		b.WriteString("| Time | Type | Symbol | Price | Quantity | Total |\n")
		b.WriteString("|---|---|---|---:|---:|---:|\n")
		for _, t := range shown {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				t.Timestamp(), t.Side, t.Symbol, t.Price.StringFixed(4), Quantity(t.Quantity), Money(t.Cost(), currency))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Showing %d of %d trades\n", len(shown), len(trades))

	s := ledger.Summarize(shown)
	fmt.Fprintf(&b, "\nBought %s, sold %s, net cash %s\n",
		Money(s.BuyVolume, currency), Money(s.SellVolume, currency), Signed(s.NetCash(), currency))
	return b.String()
}

// Ticker shows the tracked universe in feed order.
func Ticker(snap market.Snapshot, connected bool) string {
	var b strings.Builder
	status := "live"
	if !connected {
		status = "disconnected"
	}
	fmt.Fprintf(&b, "# Market (%s)\n\n", status)
	if snap.Len() == 0 {
		b.WriteString("_Waiting for prices._\n")
		return b.String()
	}
	b.WriteString("| Symbol | Price | 24h | |\n|---|---:|---:|---|\n")
	for _, q := range snap.List() {
		arrow := ""
		switch q.Direction() {
		case market.Up:
			arrow = "↑ from " + q.Previous.StringFixed(4)
		case market.Down:
			arrow = "↓ from " + q.Previous.StringFixed(4)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", q.Symbol, Price(q.Price), Change(q.ChangePercent), arrow)
	}
	if !snap.Time.IsZero() {
		fmt.Fprintf(&b, "\n_As of %s_\n", snap.Time.Local().Format(ledger.TimestampLayout))
	}
	return b.String()
}

// Render formats markdown for a terminal of the given width. plain
// returns md unchanged.
func Render(md string, plain bool, width int) (string, error) {
	if plain {
		return md, nil
	}
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return out, nil
}
