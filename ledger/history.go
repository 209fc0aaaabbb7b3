package ledger

import "github.com/shopspring/decimal"

// Filter returns the trades on side, keeping order. An empty side
// returns every trade.
func Filter(trades []Trade, side Side) []Trade {
	out := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if side == "" || t.Side == side {
			out = append(out, t)
		}
	}
	return out
}

// Summary aggregates a trade history.
type Summary struct {
	Count      int
	Buys       int
	Sells      int
	BuyVolume  decimal.Decimal // total cost of buys
	SellVolume decimal.Decimal // total proceeds of sells
	Symbols    int
}

// NetCash is the cash effect of the summarized trades.
func (s Summary) NetCash() decimal.Decimal {
	return s.SellVolume.Sub(s.BuyVolume)
}

// Summarize counts and totals trades.
func Summarize(trades []Trade) Summary {
	s := Summary{BuyVolume: decimal.Zero, SellVolume: decimal.Zero}
	syms := map[string]struct{}{}
	for _, t := range trades {
		s.Count++
		syms[t.Symbol] = struct{}{}
		switch t.Side {
		case Buy:
			s.Buys++
			s.BuyVolume = s.BuyVolume.Add(t.Cost())
		case Sell:
			s.Sells++
			s.SellVolume = s.SellVolume.Add(t.Cost())
		}
	}
	s.Symbols = len(syms)
	return s
}
