package cmd

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/report"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new paper-trading ledger",
	Long: `Create the ledger in the configured journal with the starting
balance from the config (1,000,000,000 USDT by default).

An existing ledger is never overwritten.

Examples:
  papertrade init
  papertrade init --balance 10000`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initBalance string

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initBalance, "balance", "", "starting balance (overrides account.balance)")
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if a.cfg.Journal.Type == "memory" {
		return fmt.Errorf("journal type memory keeps nothing between runs; use 'papertrade run'")
	}

	balance := a.cfg.Account.StartingBalance()
	if initBalance != "" {
		balance, err = decimal.NewFromString(initBalance)
		if err != nil {
			return fmt.Errorf("balance %q: %w", initBalance, err)
		}
	}

	store, err := journal.Open(a.cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	_, err = ledger.Init(cmd.Context(), store, balance, ledger.WithLogger(a.component("ledger")))
	if errors.Is(err, ledger.ErrAlreadyInitialized) {
		return fmt.Errorf("%w: remove the journal to start over", err)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Ledger created with %s\n", report.Money(balance, a.cfg.Account.Currency))
	return nil
}
