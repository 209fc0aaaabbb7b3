package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrade/ledger"
)

// SQLite keeps the ledger in a sqlite database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	// One connection serializes writers inside this process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Load returns the stored ledger, trades newest first.
func (j *SQLite) Load(ctx context.Context) (ledger.State, error) {
	var s ledger.State

	err := j.db.QueryRowContext(ctx, `SELECT initial, balance FROM wallet WHERE id = 1`).
		Scan(&s.Initial, &s.Wallet.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.State{}, ledger.ErrNotInitialized
	}
	if err != nil {
		return ledger.State{}, fmt.Errorf("load wallet: %w", err)
	}

	s.Wallet.Holdings, err = j.holdings(ctx)
	if err != nil {
		return ledger.State{}, err
	}

	s.Trades, err = j.queryTrades(ctx, `
		SELECT trade_id, symbol, side, price, quantity, time
		FROM trades
		ORDER BY seq DESC`)
	if err != nil {
		return ledger.State{}, err
	}
	return s, nil
}

// Create stores a fresh ledger.
func (j *SQLite) Create(ctx context.Context, s ledger.State) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM wallet`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ledger.ErrAlreadyInitialized
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wallet (id, initial, balance) VALUES (1, ?, ?)`,
		s.Initial, s.Wallet.Balance); err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	for sym, qty := range s.Wallet.Holdings {
		if err := upsertHolding(ctx, tx, sym, qty); err != nil {
			return err
		}
	}
	for i := len(s.Trades) - 1; i >= 0; i-- {
		if err := insertTrade(ctx, tx, s.Trades[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Commit writes the new balance, the traded symbol's holding and the
// trade in a single transaction.
func (j *SQLite) Commit(ctx context.Context, next ledger.State, t ledger.Trade) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE wallet SET balance = ? WHERE id = 1`, next.Wallet.Balance)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotInitialized
	}

	if qty, ok := next.Wallet.Holdings[t.Symbol]; ok {
		err = upsertHolding(ctx, tx, t.Symbol, qty)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM holdings WHERE symbol = ?`, t.Symbol)
	}
	if err != nil {
		return fmt.Errorf("update holding %s: %w", t.Symbol, err)
	}

	if err := insertTrade(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func (j *SQLite) holdings(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT symbol, quantity FROM holdings`)
	if err != nil {
		return nil, fmt.Errorf("load holdings: %w", err)
	}
	defer rows.Close()

	out := map[string]decimal.Decimal{}
	for rows.Next() {
		var sym string
		var qty decimal.Decimal
		if err := rows.Scan(&sym, &qty); err != nil {
			return nil, err
		}
		out[sym] = qty
	}
	return out, rows.Err()
}

func (j *SQLite) queryTrades(ctx context.Context, query string, args ...any) ([]ledger.Trade, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	out := []ledger.Trade{}
	for rows.Next() {
		var t ledger.Trade
		var side string
		if err := rows.Scan(&t.ID, &t.Symbol, &side, &t.Price, &t.Quantity, &t.Time); err != nil {
			return nil, err
		}
		t.Side = ledger.Side(side)
		out = append(out, t)
	}
	return out, rows.Err()
}

func upsertHolding(ctx context.Context, tx *sql.Tx, symbol string, qty decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO holdings (symbol, quantity) VALUES (?, ?)
		ON CONFLICT(symbol) DO UPDATE SET quantity = excluded.quantity`,
		symbol, qty)
	return err
}

func insertTrade(ctx context.Context, tx *sql.Tx, t ledger.Trade) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO trades (trade_id, symbol, side, price, quantity, time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Symbol, string(t.Side), t.Price, t.Quantity, t.Time.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", t.ID, err)
	}
	return nil
}
