package cmd

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/report"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Value holdings at the current market price",
	Long: `Price every holding from the live feed and show portfolio value,
total equity, profit/loss against the starting balance and the
allocation of each holding.

Holdings the feed does not track are shown unpriced and count as zero.`,
	Args: cobra.NoArgs,
	RunE: runPortfolio,
}

var portfolioOffline bool

func init() {
	rootCmd.AddCommand(portfolioCmd)

	portfolioCmd.Flags().BoolVar(&portfolioOffline, "offline", false, "skip the feed; all holdings unpriced")
}

func runPortfolio(cmd *cobra.Command, args []string) error {
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

	var prices map[string]decimal.Decimal
	if !portfolioOffline {
		ad, snap, err := a.prices(ctx)
		if ad != nil {
			defer ad.Disconnect()
		}
		if err != nil {
			a.log.WithError(err).Warn("no live prices; holdings shown unpriced")
		}
		prices = snap.Prices()
	}

	return show(cmd.OutOrStdout(), report.Portfolio(eng.Value(prices), a.cfg.Account.Currency))
}
