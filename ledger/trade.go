package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// ParseSide accepts BUY or SELL in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	}
	return "", fmt.Errorf("%w: side %q", ErrInvalidTrade, s)
}

// Valid reports whether s is BUY or SELL.
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// ErrInvalidTrade is returned for structurally invalid trades.
var ErrInvalidTrade = errors.New("invalid trade")

// TimestampLayout is the wall-clock label shown next to each trade.
const TimestampLayout = "15:04:05"

// Trade is one executed BUY or SELL. Trades are never changed once
// logged.
type Trade struct {
	ID       string          `json:"id"`
	Symbol   string          `json:"symbol"`
	Side     Side            `json:"type"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Time     time.Time       `json:"timestamp"`
}

// Cost is price times quantity in quote currency.
func (t Trade) Cost() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}

// Timestamp returns the local time-of-day label of the trade.
func (t Trade) Timestamp() string {
	return t.Time.Local().Format(TimestampLayout)
}

// Validate checks the trade can be applied to a wallet.
func (t Trade) Validate() error {
	switch {
	case strings.TrimSpace(t.Symbol) == "":
		return fmt.Errorf("%w: empty symbol", ErrInvalidTrade)
	case !t.Side.Valid():
		return fmt.Errorf("%w: side %q", ErrInvalidTrade, t.Side)
	case !t.Quantity.IsPositive():
		return fmt.Errorf("%w: quantity %s must be positive", ErrInvalidTrade, t.Quantity)
	case !t.Price.IsPositive():
		return fmt.Errorf("%w: price %s must be positive", ErrInvalidTrade, t.Price)
	}
	return nil
}

func (t Trade) String() string {
	return fmt.Sprintf("%s %s %s @ %s", t.Side, t.Quantity, t.Symbol, t.Price)
}
