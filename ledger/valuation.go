package ledger

import (
	"github.com/shopspring/decimal"
)

// Holding is one position priced against the latest snapshot.
type Holding struct {
	Symbol     string
	Quantity   decimal.Decimal
	Price      decimal.Decimal // zero when Priced is false
	Priced     bool
	Value      decimal.Decimal
	Allocation decimal.Decimal // share of PortfolioValue, 0..1
}

// Valuation is derived on every call; nothing here is stored.
type Valuation struct {
	Initial        decimal.Decimal
	Balance        decimal.Decimal
	Holdings       []Holding // ordered by symbol
	PortfolioValue decimal.Decimal
	TotalEquity    decimal.Decimal
	ProfitLoss     decimal.Decimal // TotalEquity - Initial
}

// Holding returns the priced position for symbol.
func (v Valuation) Holding(symbol string) (Holding, bool) {
	for _, h := range v.Holdings {
		if h.Symbol == symbol {
			return h, true
		}
	}
	return Holding{}, false
}

// HoldingValue is quantity times the latest price, or zero when the
// symbol has no price.
func HoldingValue(w Wallet, prices map[string]decimal.Decimal, symbol string) decimal.Decimal {
	price, ok := prices[symbol]
	if !ok {
		return decimal.Zero
	}
	return w.Quantity(symbol).Mul(price)
}

// PortfolioValue sums the value of every holding.
func PortfolioValue(w Wallet, prices map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for sym := range w.Holdings {
		total = total.Add(HoldingValue(w, prices, sym))
	}
	return total
}

// TotalEquity is cash plus portfolio value.
func TotalEquity(w Wallet, prices map[string]decimal.Decimal) decimal.Decimal {
	return w.Balance.Add(PortfolioValue(w, prices))
}

// Allocation is the symbol's share of the portfolio value, zero when the
// portfolio is worth nothing.
func Allocation(w Wallet, prices map[string]decimal.Decimal, symbol string) decimal.Decimal {
	pv := PortfolioValue(w, prices)
	if pv.IsZero() {
		return decimal.Zero
	}
	return HoldingValue(w, prices, symbol).Div(pv)
}

// Value prices w against prices.
func Value(w Wallet, prices map[string]decimal.Decimal) Valuation {
	return value(w.Balance, w, prices)
}

func value(initial decimal.Decimal, w Wallet, prices map[string]decimal.Decimal) Valuation {
	v := Valuation{
		Initial:        initial,
		Balance:        w.Balance,
		Holdings:       make([]Holding, 0, len(w.Holdings)),
		PortfolioValue: decimal.Zero,
	}

	for _, sym := range w.Symbols() {
		qty := w.Holdings[sym]
		price, ok := prices[sym]
		h := Holding{
			Symbol:   sym,
			Quantity: qty,
			Priced:   ok,
			Value:    decimal.Zero,
		}
		if ok {
			h.Price = price
			h.Value = qty.Mul(price)
		}
		v.PortfolioValue = v.PortfolioValue.Add(h.Value)
		v.Holdings = append(v.Holdings, h)
	}

	for i := range v.Holdings {
		if v.PortfolioValue.IsZero() {
			v.Holdings[i].Allocation = decimal.Zero
			continue
		}
		v.Holdings[i].Allocation = v.Holdings[i].Value.Div(v.PortfolioValue)
	}

	v.TotalEquity = v.Balance.Add(v.PortfolioValue)
	v.ProfitLoss = v.TotalEquity.Sub(v.Initial)
	return v
}
