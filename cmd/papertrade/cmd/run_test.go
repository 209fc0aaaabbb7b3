package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/desk"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
)

type staticMarket struct {
	*market.Board
	live bool
}

func (m staticMarket) Connected() bool { return m.live }

func newConsole(t *testing.T, live bool) (*console, *bytes.Buffer, *ledger.Engine) {
	t.Helper()
	plain = true

	eng, err := ledger.Init(context.Background(), ledger.NewMemoryStore(), decimal.NewFromInt(1_000_000_000))
	require.NoError(t, err)

	board := market.NewBoard()
	board.Replace([]market.Quote{
		{Symbol: "BTCUSDT", Price: decimal.RequireFromString("43000"), ChangePercent: decimal.RequireFromString("1.2")},
		{Symbol: "ETHUSDT", Price: decimal.RequireFromString("2300"), ChangePercent: decimal.RequireFromString("-0.5")},
	})

	var out bytes.Buffer
	c := &console{
		ledger:   eng,
		desk:     desk.New(eng, board),
		market:   staticMarket{Board: board, live: live},
		currency: "USDT",
		out:      &out,
	}
	return c, &out, eng
}

func TestConsoleSession(t *testing.T) {
	c, out, eng := newConsole(t, true)

	in := strings.NewReader(strings.Join([]string{
		"buy btcusdt 0.5",
		"sell BTCUSDT 0.2",
		"wallet",
		"history sell",
		"quit",
		"buy ETHUSDT 1", // never read
	}, "\n"))
	require.NoError(t, c.loop(context.Background(), in))

	s := out.String()
	assert.Contains(t, s, "✓ BUY 0.5000 BTCUSDT @ 43000.0000 = 21,500.00 USDT")
	assert.Contains(t, s, "✓ SELL 0.2000 BTCUSDT @ 43000.0000 = 8,600.00 USDT")
	assert.Contains(t, s, "| BTCUSDT | 0.3000 |")
	assert.Contains(t, s, "Showing 1 of 2 trades")

	assert.Len(t, eng.GetTrades(), 2)
	assert.True(t, decimal.RequireFromString("999987100").Equal(eng.GetWallet().Balance))
}

func TestConsoleErrorsKeepGoing(t *testing.T) {
	c, out, eng := newConsole(t, true)

	in := strings.NewReader("buy DOGEUSDT 1\nbuy BTCUSDT 0\nfly\nbuy BTCUSDT\nhistory maybe\nbuy ETHUSDT 1\n")
	require.NoError(t, c.loop(context.Background(), in))

	s := out.String()
	assert.Contains(t, s, "error: submit: price not found: \"DOGEUSDT\"")
	assert.Contains(t, s, "invalid quantity")
	assert.Contains(t, s, `unknown command "fly"`)
	assert.Contains(t, s, "usage: buy <symbol> <quantity>")
	assert.Len(t, eng.GetTrades(), 1)
}

func TestConsolePriceAndTicker(t *testing.T) {
	c, out, _ := newConsole(t, false)
	ctx := context.Background()

	require.NoError(t, c.exec(ctx, "price ETHUSDT 2"))
	assert.Contains(t, out.String(), "ETHUSDT 2300.0000 x 2.0000 = 4,600.00 USDT (stale)")

	out.Reset()
	require.NoError(t, c.exec(ctx, "ticker"))
	assert.Contains(t, out.String(), "# Market (disconnected)")
	assert.Contains(t, out.String(), "| ETHUSDT | 2300.0000 | -0.50% |")

	assert.Error(t, c.exec(ctx, "price"))
	assert.ErrorIs(t, c.exec(ctx, "price XRPUSDT"), market.ErrNoPrice)
	assert.NoError(t, c.exec(ctx, "   "))
	assert.ErrorIs(t, c.exec(ctx, "exit"), errQuit)
}

func TestConsolePortfolio(t *testing.T) {
	c, out, _ := newConsole(t, true)
	ctx := context.Background()

	require.NoError(t, c.exec(ctx, "buy ETHUSDT 10"))
	out.Reset()
	require.NoError(t, c.exec(ctx, "portfolio"))
	assert.Contains(t, out.String(), "| Portfolio value | 23,000.00 USDT |")
	assert.Contains(t, out.String(), "| Total equity | 1,000,000,000.00 USDT |")
	assert.Contains(t, out.String(), "| ETHUSDT | 10.0000 | 2300.0000 | 23,000.00 USDT | 100.0% |")
}
