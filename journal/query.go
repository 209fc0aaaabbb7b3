package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/papertrade/ledger"
)

// Trade returns a single trade by ID.
func (j *SQLite) Trade(ctx context.Context, tradeID string) (ledger.Trade, error) {
	trades, err := j.queryTrades(ctx, `
		SELECT trade_id, symbol, side, price, quantity, time
		FROM trades
		WHERE trade_id = ?`, tradeID)
	if err != nil {
		return ledger.Trade{}, err
	}
	if len(trades) == 0 {
		return ledger.Trade{}, fmt.Errorf("trade %q not found", tradeID)
	}
	return trades[0], nil
}

// TradesBySymbol returns the trades of one symbol, newest first.
func (j *SQLite) TradesBySymbol(ctx context.Context, symbol string) ([]ledger.Trade, error) {
	return j.queryTrades(ctx, `
		SELECT trade_id, symbol, side, price, quantity, time
		FROM trades
		WHERE symbol = ?
		ORDER BY seq DESC`, symbol)
}

// TradesBetween returns trades executed within [start, end), newest first.
func (j *SQLite) TradesBetween(ctx context.Context, start, end time.Time) ([]ledger.Trade, error) {
	return j.queryTrades(ctx, `
		SELECT trade_id, symbol, side, price, quantity, time
		FROM trades
		WHERE time >= ? AND time < ?
		ORDER BY seq DESC`, start.UTC(), end.UTC())
}
