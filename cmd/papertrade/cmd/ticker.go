package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/feed"
	"github.com/rustyeddy/papertrade/report"
)

var tickerCmd = &cobra.Command{
	Use:   "ticker",
	Short: "Show the top of the live ticker",
	Long: `Connect to the price feed and print the tracked symbols with their
last price and 24h change.

With --watch the table is reprinted on every update until interrupted;
the feed reconnects on its own when the stream drops.

Examples:
  papertrade ticker
  papertrade ticker --watch`,
	Args: cobra.NoArgs,
	RunE: runTicker,
}

var tickerWatch bool

func init() {
	rootCmd.AddCommand(tickerCmd)

	tickerCmd.Flags().BoolVarP(&tickerWatch, "watch", "w", false, "keep streaming updates")
}

func runTicker(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if !tickerWatch {
		ad, snap, err := a.prices(cmd.Context())
		if ad != nil {
			defer ad.Disconnect()
		}
		if err != nil {
			return err
		}
		return show(out, report.Ticker(snap, ad.Connected()))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ad, backoff, err := a.newFeed()
	if err != nil {
		return err
	}
	updates, cancel := ad.Board().Subscribe(1)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- feed.Supervise(ctx, ad, backoff) }()

	for {
		select {
		case err := <-errc:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case snap := <-updates:
			if err := show(out, report.Ticker(snap, ad.Connected())); err != nil {
				return err
			}
		}
	}
}
