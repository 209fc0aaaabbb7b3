package journal

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/rustyeddy/papertrade/ledger"
)

var csvHeader = []string{"trade_id", "time", "symbol", "type", "price", "quantity", "cost"}

// WriteTradesCSV writes trades in the given order, one row each.
func WriteTradesCSV(w io.Writer, trades []ledger.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, t := range trades {
		err := cw.Write([]string{
			t.ID,
			t.Time.UTC().Format(time.RFC3339Nano),
			t.Symbol,
			string(t.Side),
			t.Price.String(),
			t.Quantity.String(),
			t.Cost().String(),
		})
		if err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
