package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List executed trades, newest first",
	Long: `List the trade history with an optional BUY/SELL filter.

Examples:
  papertrade history
  papertrade history --side buy
  papertrade history --day 2024-01-15 --symbol BTCUSDT
  papertrade history --csv > trades.csv`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var (
	historySide   string
	historyDay    string
	historySymbol string
	historyCSV    bool
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historySide, "side", "s", "all", "all, buy or sell")
	historyCmd.Flags().StringVarP(&historyDay, "day", "d", "", "only trades on this local day (YYYY-MM-DD)")
	historyCmd.Flags().StringVar(&historySymbol, "symbol", "", "only trades of this symbol")
	historyCmd.Flags().BoolVar(&historyCSV, "csv", false, "write CSV instead of a table")
}

func runHistory(cmd *cobra.Command, args []string) error {
	side, err := parseSideFilter(historySide)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	eng, store, err := a.openLedger(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	trades, err := selectTrades(ctx, store, eng.GetTrades(), historyDay, historySymbol)
	if err != nil {
		return err
	}

	if historyCSV {
		return journal.WriteTradesCSV(cmd.OutOrStdout(), ledger.Filter(trades, side))
	}
	return show(cmd.OutOrStdout(), report.History(trades, side, a.cfg.Account.Currency))
}

// parseSideFilter maps "all" or "" to no filter.
func parseSideFilter(s string) (ledger.Side, error) {
	if s == "" || strings.EqualFold(s, "all") {
		return "", nil
	}
	return ledger.ParseSide(s)
}

// selectTrades narrows the history by day and symbol. The SQLite
// journal answers from its indexes; other stores filter in memory.
func selectTrades(ctx context.Context, store journal.Store, all []ledger.Trade, day, symbol string) ([]ledger.Trade, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if day == "" && symbol == "" {
		return all, nil
	}

	var start, end time.Time
	if day != "" {
		var err error
		start, end, err = dayBounds(time.Local, day)
		if err != nil {
			return nil, fmt.Errorf("day: %w", err)
		}
	}

	if sq, ok := store.(*journal.SQLite); ok {
		var (
			trades []ledger.Trade
			err    error
		)
		if day != "" {
			trades, err = sq.TradesBetween(ctx, start, end)
		} else {
			trades, err = sq.TradesBySymbol(ctx, symbol)
		}
		if err != nil {
			return nil, fmt.Errorf("query trades: %w", err)
		}
		if day != "" && symbol != "" {
			trades = bySymbol(trades, symbol)
		}
		return trades, nil
	}

	out := all
	if day != "" {
		out = make([]ledger.Trade, 0, len(all))
		for _, t := range all {
			if !t.Time.Before(start) && t.Time.Before(end) {
				out = append(out, t)
			}
		}
	}
	if symbol != "" {
		out = bySymbol(out, symbol)
	}
	return out, nil
}

func bySymbol(trades []ledger.Trade, symbol string) []ledger.Trade {
	out := make([]ledger.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Symbol == symbol {
			out = append(out, t)
		}
	}
	return out
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
