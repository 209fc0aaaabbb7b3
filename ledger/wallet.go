package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Wallet is the cash balance plus per-symbol holdings. A symbol present
// in Holdings always has a positive quantity.
type Wallet struct {
	Balance  decimal.Decimal            `json:"balance"`
	Holdings map[string]decimal.Decimal `json:"holdings"`
}

// NewWallet returns a wallet with balance and no holdings.
func NewWallet(balance decimal.Decimal) Wallet {
	return Wallet{
		Balance:  balance,
		Holdings: map[string]decimal.Decimal{},
	}
}

// Clone returns a deep copy.
func (w Wallet) Clone() Wallet {
	out := Wallet{
		Balance:  w.Balance,
		Holdings: make(map[string]decimal.Decimal, len(w.Holdings)),
	}
	for sym, qty := range w.Holdings {
		out.Holdings[sym] = qty
	}
	return out
}

// Quantity returns the held quantity of symbol, zero when absent.
func (w Wallet) Quantity(symbol string) decimal.Decimal {
	return w.Holdings[symbol]
}

// Symbols returns the held symbols in lexical order.
func (w Wallet) Symbols() []string {
	out := make([]string, 0, len(w.Holdings))
	for sym := range w.Holdings {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Equal compares balances and holdings by value.
func (w Wallet) Equal(o Wallet) bool {
	if !w.Balance.Equal(o.Balance) || len(w.Holdings) != len(o.Holdings) {
		return false
	}
	for sym, qty := range w.Holdings {
		other, ok := o.Holdings[sym]
		if !ok || !qty.Equal(other) {
			return false
		}
	}
	return true
}

// Apply returns the wallet that results from executing t. The receiver
// is left untouched. A SELL that leaves zero or less removes the entry.
// No funds or holdings checks are made.
func (w Wallet) Apply(t Trade) Wallet {
	next := w.Clone()
	cost := t.Cost()
	held := next.Holdings[t.Symbol]

	switch t.Side {
	case Buy:
		next.Balance = next.Balance.Sub(cost)
		next.Holdings[t.Symbol] = held.Add(t.Quantity)
	case Sell:
		next.Balance = next.Balance.Add(cost)
		left := held.Sub(t.Quantity)
		if left.IsPositive() {
			next.Holdings[t.Symbol] = left
		} else {
			delete(next.Holdings, t.Symbol)
		}
	}
	return next
}
