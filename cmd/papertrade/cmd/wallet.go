package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/report"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Show cash balance and holdings",
	Args:  cobra.NoArgs,
	RunE:  runWallet,
}

func init() {
	rootCmd.AddCommand(walletCmd)
}

func runWallet(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	eng, store, err := a.openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	return show(cmd.OutOrStdout(), report.Wallet(eng.GetWallet(), a.cfg.Account.Currency))
}
