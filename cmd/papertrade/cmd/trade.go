package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/desk"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/report"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Buy or sell at the current market price",
	Long: `Execute a market order priced from the live feed.

There are no funds or holdings checks: the balance may go negative and
selling more than you hold simply removes the position.

Subcommands:
  buy   - Buy a quantity of a symbol
  sell  - Sell a quantity of a symbol
  show  - Show one trade by ID

Examples:
  papertrade trade buy BTCUSDT 0.01
  papertrade trade sell ETHUSDT 0.5
  papertrade trade show 01HN7Q0ZK3F7Z9Z1V3Q4JH3N9R`,
}

var tradeBuyCmd = &cobra.Command{
	Use:   "buy <symbol> <quantity>",
	Short: "Buy at the current price",
	Args:  cobra.ExactArgs(2),
	RunE:  func(cmd *cobra.Command, args []string) error { return runTrade(cmd, ledger.Buy, args) },
}

var tradeSellCmd = &cobra.Command{
	Use:   "sell <symbol> <quantity>",
	Short: "Sell at the current price",
	Args:  cobra.ExactArgs(2),
	RunE:  func(cmd *cobra.Command, args []string) error { return runTrade(cmd, ledger.Sell, args) },
}

var tradeShowCmd = &cobra.Command{
	Use:   "show <trade-id>",
	Short: "Show one trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeShow,
}

func init() {
	rootCmd.AddCommand(tradeCmd)
	tradeCmd.AddCommand(tradeBuyCmd)
	tradeCmd.AddCommand(tradeSellCmd)
	tradeCmd.AddCommand(tradeShowCmd)
}

func runTrade(cmd *cobra.Command, side ledger.Side, args []string) error {
	order, err := desk.ParseOrder(string(side), args[0], args[1])
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

	ad, _, err := a.prices(ctx)
	if ad != nil {
		defer ad.Disconnect()
	}
	if err != nil {
		return err
	}

	tr, err := a.desk(eng, ad).Submit(ctx, order)
	if err != nil {
		return err
	}

	cur := a.cfg.Account.Currency
	w := eng.GetWallet()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ %s %s %s @ %s = %s\n",
		tr.Side, report.Quantity(tr.Quantity), tr.Symbol, report.Price(tr.Price), report.Money(tr.Cost(), cur))
	fmt.Fprintf(out, "  Balance: %s\n", report.Money(w.Balance, cur))
	fmt.Fprintf(out, "  %s held: %s\n", tr.Symbol, report.Quantity(w.Quantity(tr.Symbol)))
	fmt.Fprintf(out, "  Trade ID: %s\n", tr.ID)
	return nil
}

func runTradeShow(cmd *cobra.Command, args []string) error {
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

	var tr ledger.Trade
	if sq, ok := store.(*journal.SQLite); ok {
		tr, err = sq.Trade(ctx, args[0])
	} else {
		tr, err = findTrade(eng.GetTrades(), args[0])
	}
	if err != nil {
		return err
	}

	return show(cmd.OutOrStdout(), report.History([]ledger.Trade{tr}, "", a.cfg.Account.Currency))
}

func findTrade(trades []ledger.Trade, id string) (ledger.Trade, error) {
	for _, t := range trades {
		if t.ID == id {
			return t, nil
		}
	}
	return ledger.Trade{}, fmt.Errorf("trade %q not found", id)
}
