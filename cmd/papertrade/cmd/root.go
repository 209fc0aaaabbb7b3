package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "papertrade",
	Short: "Paper-trade crypto spot markets against a live price feed",
	Long: `Papertrade keeps a simulated spot wallet priced by the Binance
all-market ticker stream.

It provides tools for:
  - Watching the top of the live ticker
  - Buying and selling at the current market price
  - Valuing holdings, total equity and allocation
  - Browsing and exporting the trade history

The ledger is stored locally (SQLite by default). Nothing is sent to
an exchange.`,
	SilenceUsage: true,
}

var (
	cfgFile  string
	logLevel string
	plain    bool
	waitFor  time.Duration
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); built-in defaults when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "print markdown without terminal rendering")
	rootCmd.PersistentFlags().DurationVar(&waitFor, "wait", 10*time.Second, "how long to wait for the first prices")
}
