package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is how a quote moved relative to the previous snapshot.
type Direction int

const (
	Flat Direction = iota
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "flat"
	}
}

// Quote is the latest observed price for one symbol.
type Quote struct {
	Symbol        string
	Price         decimal.Decimal
	ChangePercent decimal.Decimal // 24h change reported by the source
	Previous      decimal.Decimal // price in the prior snapshot, zero if none
	Time          time.Time
}

// Valid reports whether the quote names a symbol and carries a usable
// price.
func (q Quote) Valid() bool {
	return q.Symbol != "" && q.Price.IsPositive()
}

// HasPrevious reports whether the prior snapshot carried this symbol.
func (q Quote) HasPrevious() bool {
	return !q.Previous.IsZero()
}

// Direction compares the price against the prior snapshot.
func (q Quote) Direction() Direction {
	if !q.HasPrevious() {
		return Flat
	}
	switch q.Price.Cmp(q.Previous) {
	case 1:
		return Up
	case -1:
		return Down
	default:
		return Flat
	}
}

// Snapshot is an immutable point-in-time view of the tracked universe.
// Symbols keeps the order the source delivered them in.
type Snapshot struct {
	Symbols []string
	Quotes  map[string]Quote
	Seq     uint64
	Time    time.Time
}

// Len is the number of tracked symbols.
func (s Snapshot) Len() int {
	return len(s.Symbols)
}

// Quote returns the quote for symbol.
func (s Snapshot) Quote(symbol string) (Quote, bool) {
	q, ok := s.Quotes[symbol]
	return q, ok
}

// Price returns the last price for symbol or ErrNoPrice.
func (s Snapshot) Price(symbol string) (decimal.Decimal, error) {
	q, ok := s.Quotes[symbol]
	if !ok || !q.Price.IsPositive() {
		return decimal.Zero, noPrice(symbol)
	}
	return q.Price, nil
}

// Prices returns a fresh {symbol -> price} map.
func (s Snapshot) Prices() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(s.Quotes))
	for sym, q := range s.Quotes {
		out[sym] = q.Price
	}
	return out
}

// List returns the quotes in source order.
func (s Snapshot) List() []Quote {
	out := make([]Quote, 0, len(s.Symbols))
	for _, sym := range s.Symbols {
		out = append(out, s.Quotes[sym])
	}
	return out
}
