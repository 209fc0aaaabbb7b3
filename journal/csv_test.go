package journal

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/ledger"
)

func TestWriteTradesCSV(t *testing.T) {
	t.Parallel()

	trades := []ledger.Trade{
		{ID: "T2", Symbol: "ETHUSDT", Side: ledger.Sell, Price: dec("2000.5"), Quantity: dec("0.5"),
			Time: time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC)},
		{ID: "T1", Symbol: "BTCUSDT", Side: ledger.Buy, Price: dec("43000"), Quantity: dec("0.0001"),
			Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, trades))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"trade_id", "time", "symbol", "type", "price", "quantity", "cost"}, rows[0])
	assert.Equal(t, []string{"T2", "2024-01-02T04:00:00Z", "ETHUSDT", "SELL", "2000.5", "0.5", "1000.25"}, rows[1])
	assert.Equal(t, []string{"T1", "2024-01-02T03:04:05Z", "BTCUSDT", "BUY", "43000", "0.0001", "4.3"}, rows[2])
}

func TestWriteTradesCSVEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, nil))
	assert.Equal(t, "trade_id,time,symbol,type,price,quantity,cost\n", buf.String())
}
