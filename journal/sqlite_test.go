package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/ledger"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('wallet','holdings','trades')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["wallet"])
	assert.True(t, found["holdings"])
	assert.True(t, found["trades"])
}

func TestSQLiteCommitWritesOneUnit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Create(ctx, ledger.NewState(dec("1000"))))

	tr := ledger.Trade{
		ID:       "T1",
		Symbol:   "BTCUSDT",
		Side:     ledger.Buy,
		Price:    dec("43123.45678901"),
		Quantity: dec("0.0001"),
		Time:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	next := ledger.State{
		Initial: dec("1000"),
		Wallet:  ledger.NewWallet(dec("1000")).Apply(tr),
		Trades:  []ledger.Trade{tr},
	}
	require.NoError(t, j.Commit(ctx, next, tr))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var balance string
	require.NoError(t, db.QueryRow(`SELECT balance FROM wallet WHERE id = 1`).Scan(&balance))
	assert.Equal(t, "995.687654321099", balance)

	var qty string
	require.NoError(t, db.QueryRow(`SELECT quantity FROM holdings WHERE symbol = 'BTCUSDT'`).Scan(&qty))
	assert.Equal(t, "0.0001", qty)

	var (
		id, sym, side, price string
		at                   time.Time
	)
	require.NoError(t, db.QueryRow(`SELECT trade_id, symbol, side, price, time FROM trades`).
		Scan(&id, &sym, &side, &price, &at))
	assert.Equal(t, "T1", id)
	assert.Equal(t, "BUY", side)
	assert.Equal(t, "43123.45678901", price)
	assert.True(t, at.Equal(tr.Time))
}

func TestSQLiteCommitFailureLeavesNothingBehind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	require.NoError(t, j.Create(ctx, ledger.NewState(dec("1000"))))

	tr := ledger.Trade{ID: "DUP", Symbol: "ETHUSDT", Side: ledger.Buy, Price: dec("10"), Quantity: dec("1"), Time: time.Now()}
	first := ledger.State{Initial: dec("1000"), Wallet: ledger.NewWallet(dec("1000")).Apply(tr), Trades: []ledger.Trade{tr}}
	require.NoError(t, j.Commit(ctx, first, tr))

	// Same trade ID violates the unique constraint; the balance and
	// holding updates of this commit must roll back with it.
	second := ledger.State{Initial: dec("1000"), Wallet: first.Wallet.Apply(tr), Trades: []ledger.Trade{tr, tr}}
	err := j.Commit(ctx, second, tr)
	require.Error(t, err)

	s, err := j.Load(ctx)
	require.NoError(t, err)
	assert.True(t, s.Wallet.Equal(first.Wallet), "wallet %v", s.Wallet)
	assert.Len(t, s.Trades, 1)
}

func TestSQLiteCommitWithoutInit(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	tr := ledger.Trade{ID: "T1", Symbol: "X", Side: ledger.Buy, Price: dec("1"), Quantity: dec("1"), Time: time.Now()}
	err := j.Commit(context.Background(), ledger.State{Wallet: ledger.NewWallet(decimal.Zero)}, tr)
	assert.ErrorIs(t, err, ledger.ErrNotInitialized)
}

func TestSQLiteSellRemovesHolding(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	e, err := ledger.Init(ctx, j, dec("1000"))
	require.NoError(t, err)

	_, err = e.ExecuteTrade(ctx, "SOLUSDT", ledger.Buy, dec("2"), dec("100"))
	require.NoError(t, err)
	_, err = e.ExecuteTrade(ctx, "SOLUSDT", ledger.Sell, dec("2"), dec("110"))
	require.NoError(t, err)

	s, err := j.Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, s.Wallet.Holdings, "SOLUSDT")
	assert.True(t, dec("1020").Equal(s.Wallet.Balance))
	require.Len(t, s.Trades, 2)
	assert.Equal(t, ledger.Sell, s.Trades[0].Side)
}

func TestSQLiteQueries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	day := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	clock := day
	e, err := ledger.Init(ctx, j, dec("100000"), ledger.WithClock(func() time.Time {
		clock = clock.Add(6 * time.Hour)
		return clock
	}))
	require.NoError(t, err)

	a, err := e.ExecuteTrade(ctx, "BTCUSDT", ledger.Buy, dec("0.1"), dec("40000")) // 06:00
	require.NoError(t, err)
	_, err = e.ExecuteTrade(ctx, "ETHUSDT", ledger.Buy, dec("1"), dec("2000")) // 12:00
	require.NoError(t, err)
	_, err = e.ExecuteTrade(ctx, "BTCUSDT", ledger.Sell, dec("0.05"), dec("41000")) // 18:00
	require.NoError(t, err)
	_, err = e.ExecuteTrade(ctx, "BTCUSDT", ledger.Sell, dec("0.05"), dec("42000")) // next day 00:00
	require.NoError(t, err)

	got, err := j.Trade(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", got.Symbol)
	assert.True(t, got.Price.Equal(dec("40000")))

	_, err = j.Trade(ctx, "nonexistent")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	btc, err := j.TradesBySymbol(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Len(t, btc, 3)

	inDay, err := j.TradesBetween(ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, inDay, 3)
	assert.Equal(t, ledger.Sell, inDay[0].Side)
	assert.Equal(t, a.ID, inDay[2].ID)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
