package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/papertrade/internal/logging"
	"github.com/rustyeddy/papertrade/pkg/id"
)

// Engine is the only writer of a ledger. Trades are serialized by a
// mutex; reads load an immutable state without locking and always see
// the last committed trade.
type Engine struct {
	mu    sync.Mutex
	state atomic.Pointer[State]
	store Store

	now   func() time.Time
	newID func() string
	log   *logrus.Entry
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used to stamp trades.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDs sets the trade ID generator.
func WithIDs(next func() string) Option {
	return func(e *Engine) { e.newID = next }
}

// WithLogger sets the engine logger.
func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) { e.log = l }
}

func newEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
		log:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init creates a new ledger with balance and no holdings in store.
func Init(ctx context.Context, store Store, balance decimal.Decimal, opts ...Option) (*Engine, error) {
	if !balance.IsPositive() {
		return nil, fmt.Errorf("init ledger: starting balance %s must be positive", balance)
	}

	s := NewState(balance)
	if err := store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("init ledger: %w", err)
	}

	e := newEngine(store, opts...)
	e.state.Store(&s)
	e.log.WithField("balance", balance.String()).Info("ledger initialized")
	return e, nil
}

// Open loads an existing ledger from store.
func Open(ctx context.Context, store Store, opts ...Option) (*Engine, error) {
	s, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if s.Wallet.Holdings == nil {
		s.Wallet.Holdings = map[string]decimal.Decimal{}
	}
	if s.Trades == nil {
		s.Trades = []Trade{}
	}

	e := newEngine(store, opts...)
	e.state.Store(&s)
	e.log.WithFields(logrus.Fields{
		"balance": s.Wallet.Balance.String(),
		"trades":  len(s.Trades),
	}).Debug("ledger opened")
	return e, nil
}

// OpenOrInit opens the ledger in store, creating it with balance when
// the store is empty.
func OpenOrInit(ctx context.Context, store Store, balance decimal.Decimal, opts ...Option) (*Engine, error) {
	e, err := Open(ctx, store, opts...)
	if errors.Is(err, ErrNotInitialized) {
		return Init(ctx, store, balance, opts...)
	}
	return e, err
}

// ExecuteTrade applies a BUY or SELL of quantity at price. The price is
// whatever the caller resolved; the engine never consults a feed.
//
// The wallet and trade are persisted before they become visible. If the
// store fails, the ledger is left exactly as it was.
func (e *Engine) ExecuteTrade(ctx context.Context, symbol string, side Side, quantity, price decimal.Decimal) (Trade, error) {
	return e.execute(ctx, Trade{
		Symbol:   symbol,
		Side:     side,
		Price:    price,
		Quantity: quantity,
	})
}

// AddTrade applies a trade built by the caller. Missing ID and time are
// filled in. An ID already in the history is rejected with ErrInvalidTrade.
func (e *Engine) AddTrade(ctx context.Context, t Trade) error {
	_, err := e.execute(ctx, t)
	return err
}

func (e *Engine) execute(ctx context.Context, t Trade) (Trade, error) {
	if err := ctx.Err(); err != nil {
		return Trade{}, err
	}
	if err := t.Validate(); err != nil {
		return Trade{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if t.Time.IsZero() {
		t.Time = e.now()
	}

	cur := e.state.Load()
	if t.ID == "" {
		v, err := e.nextID(t.Time)
		if err != nil {
			return Trade{}, fmt.Errorf("%w: %w", ErrInvalidTrade, err)
		}
		t.ID = v
	} else if cur.hasTrade(t.ID) {
		return Trade{}, fmt.Errorf("%w: duplicate id %q", ErrInvalidTrade, t.ID)
	}

	next := cur.apply(t)

	// Once started a trade runs to completion; cancellation only stops it
	// from starting.
	if err := e.store.Commit(context.WithoutCancel(ctx), next, t); err != nil {
		e.log.WithError(err).WithField("trade", t.String()).Error("trade not persisted")
		return Trade{}, fmt.Errorf("execute trade: %w: %w", ErrPersist, err)
	}
	e.state.Store(&next)

	e.log.WithFields(logrus.Fields{
		"trade_id": t.ID,
		"symbol":   t.Symbol,
		"side":     string(t.Side),
		"price":    t.Price.String(),
		"quantity": t.Quantity.String(),
		"balance":  next.Wallet.Balance.String(),
	}).Info("trade executed")

	return t, nil
}

// nextID stamps the ID with the trade time unless WithIDs replaced the
// generator.
func (e *Engine) nextID(at time.Time) (string, error) {
	if e.newID != nil {
		return e.newID(), nil
	}
	return id.NewAt(at)
}

// GetWallet returns a copy of the current wallet.
func (e *Engine) GetWallet() Wallet {
	return e.state.Load().Wallet.Clone()
}

// GetTrades returns a copy of the trade history, newest first.
func (e *Engine) GetTrades() []Trade {
	s := e.state.Load()
	out := make([]Trade, len(s.Trades))
	copy(out, s.Trades)
	return out
}

// State returns a copy of the whole ledger.
func (e *Engine) State() State {
	return e.state.Load().Clone()
}

// InitialBalance is the balance the ledger was created with.
func (e *Engine) InitialBalance() decimal.Decimal {
	return e.state.Load().Initial
}

// Value prices the current wallet against prices.
func (e *Engine) Value(prices map[string]decimal.Decimal) Valuation {
	s := e.state.Load()
	return value(s.Initial, s.Wallet, prices)
}

// Audit verifies the wallet against the trade history.
func (e *Engine) Audit() error {
	return e.state.Load().Audit()
}
