// Package desk is where orders meet prices: it validates user input,
// prices the order from the current market snapshot and hands a
// complete trade to the ledger.
package desk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/papertrade/internal/logging"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
)

// DefaultMinQuantity is the smallest order size accepted.
var DefaultMinQuantity = decimal.RequireFromString("0.0001")

var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidSide     = errors.New("invalid side")
)

// Ledger executes priced trades.
type Ledger interface {
	ExecuteTrade(ctx context.Context, symbol string, side ledger.Side, quantity, price decimal.Decimal) (ledger.Trade, error)
}

type Order struct {
	Symbol   string
	Side     ledger.Side
	Quantity decimal.Decimal
}

// Preview is what an order would cost at the current price.
type Preview struct {
	Symbol   string
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Total    decimal.Decimal
	AsOf     time.Time
}

type Desk struct {
	ledger Ledger
	prices market.PriceSource
	min    decimal.Decimal
	log    *logrus.Entry
}

type Option func(*Desk)

// WithMinQuantity sets the order size floor. Non-positive values are ignored.
func WithMinQuantity(q decimal.Decimal) Option {
	return func(d *Desk) {
		if q.IsPositive() {
			d.min = q
		}
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(d *Desk) { d.log = l }
}

func New(l Ledger, prices market.PriceSource, opts ...Option) *Desk {
	d := &Desk{
		ledger: l,
		prices: prices,
		min:    DefaultMinQuantity,
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MinQuantity returns the order size floor.
func (d *Desk) MinQuantity() decimal.Decimal {
	return d.min
}

// Submit prices o from the snapshot at call time and executes it. An
// order for a symbol with no price never reaches the ledger.
func (d *Desk) Submit(ctx context.Context, o Order) (ledger.Trade, error) {
	o.Symbol = normalize(o.Symbol)
	if !o.Side.Valid() {
		return ledger.Trade{}, fmt.Errorf("submit: %w: %q", ErrInvalidSide, o.Side)
	}
	if err := d.checkQuantity(o.Quantity); err != nil {
		return ledger.Trade{}, fmt.Errorf("submit: %w", err)
	}

	price, err := d.prices.Snapshot().Price(o.Symbol)
	if err != nil {
		d.log.WithField("symbol", o.Symbol).Warn("order rejected: no price")
		return ledger.Trade{}, fmt.Errorf("submit: %w", err)
	}

	return d.ledger.ExecuteTrade(ctx, o.Symbol, o.Side, o.Quantity, price)
}

func (d *Desk) Buy(ctx context.Context, symbol string, quantity decimal.Decimal) (ledger.Trade, error) {
	return d.Submit(ctx, Order{Symbol: symbol, Side: ledger.Buy, Quantity: quantity})
}

func (d *Desk) Sell(ctx context.Context, symbol string, quantity decimal.Decimal) (ledger.Trade, error) {
	return d.Submit(ctx, Order{Symbol: symbol, Side: ledger.Sell, Quantity: quantity})
}

// Preview prices quantity of symbol without trading. A zero quantity
// is allowed so the current price can be shown before input.
func (d *Desk) Preview(symbol string, quantity decimal.Decimal) (Preview, error) {
	symbol = normalize(symbol)
	if quantity.IsNegative() {
		return Preview{}, fmt.Errorf("preview: %w: %s", ErrInvalidQuantity, quantity)
	}
	snap := d.prices.Snapshot()
	q, ok := snap.Quote(symbol)
	if !ok {
		_, err := snap.Price(symbol)
		return Preview{}, fmt.Errorf("preview: %w", err)
	}
	return Preview{
		Symbol:   symbol,
		Price:    q.Price,
		Quantity: quantity,
		Total:    q.Price.Mul(quantity),
		AsOf:     q.Time,
	}, nil
}

func (d *Desk) checkQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidQuantity, q)
	}
	if q.LessThan(d.min) {
		return fmt.Errorf("%w: %s below minimum %s", ErrInvalidQuantity, q, d.min)
	}
	return nil
}

// ParseOrder builds an order from text input such as command arguments.
func ParseOrder(side, symbol, quantity string) (Order, error) {
	s, err := ledger.ParseSide(side)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}
	q, err := decimal.NewFromString(strings.TrimSpace(quantity))
	if err != nil {
		return Order{}, fmt.Errorf("%w: %q", ErrInvalidQuantity, quantity)
	}
	return Order{Symbol: normalize(symbol), Side: s, Quantity: q}, nil
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
