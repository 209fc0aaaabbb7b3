package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// State is everything the ledger persists: the starting balance, the
// current wallet and the trade history, newest first.
type State struct {
	Initial decimal.Decimal
	Wallet  Wallet
	Trades  []Trade
}

// NewState returns the state of a freshly initialized ledger.
func NewState(balance decimal.Decimal) State {
	return State{
		Initial: balance,
		Wallet:  NewWallet(balance),
		Trades:  []Trade{},
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	trades := make([]Trade, len(s.Trades))
	copy(trades, s.Trades)
	return State{
		Initial: s.Initial,
		Wallet:  s.Wallet.Clone(),
		Trades:  trades,
	}
}

// apply returns the state after t, with t at the front of the history.
func (s State) apply(t Trade) State {
	trades := make([]Trade, 0, len(s.Trades)+1)
	trades = append(trades, t)
	trades = append(trades, s.Trades...)
	return State{
		Initial: s.Initial,
		Wallet:  s.Wallet.Apply(t),
		Trades:  trades,
	}
}

func (s State) hasTrade(id string) bool {
	for _, t := range s.Trades {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Rebuild replays a newest-first history on top of a starting balance.
func Rebuild(initial decimal.Decimal, trades []Trade) Wallet {
	w := NewWallet(initial)
	for i := len(trades) - 1; i >= 0; i-- {
		w = w.Apply(trades[i])
	}
	return w
}

// Audit checks that the wallet is exactly what replaying the history
// from the starting balance gives.
func (s State) Audit() error {
	want := Rebuild(s.Initial, s.Trades)
	if !want.Equal(s.Wallet) {
		return fmt.Errorf("ledger audit: wallet balance %s holdings %v, history gives balance %s holdings %v",
			s.Wallet.Balance, s.Wallet.Holdings, want.Balance, want.Holdings)
	}
	return nil
}
