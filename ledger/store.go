package ledger

import (
	"context"
	"errors"
)

var (
	// ErrNotInitialized is returned by Load when the store holds no ledger.
	ErrNotInitialized = errors.New("ledger not initialized")
	// ErrAlreadyInitialized is returned by Create when a ledger exists.
	ErrAlreadyInitialized = errors.New("ledger already initialized")
	// ErrPersist wraps store failures during a trade.
	ErrPersist = errors.New("persist ledger")
)

// Store is the durable home of a ledger.
//
// Commit must make the new wallet and trade visible together: a reader
// of the store sees either the state before the trade or the state after
// it, never half.
type Store interface {
	// Load returns the stored state, or ErrNotInitialized.
	Load(ctx context.Context) (State, error)
	// Create stores a fresh state, or fails with ErrAlreadyInitialized.
	Create(ctx context.Context, s State) error
	// Commit stores next, which is the previous state plus t at the
	// front of next.Trades.
	Commit(ctx context.Context, next State, t Trade) error
}
