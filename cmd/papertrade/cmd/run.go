package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/desk"
	"github.com/rustyeddy/papertrade/feed"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Trade interactively against the streaming feed",
	Long: `Start the price feed and read commands from standard input.

Commands:
  ticker                   show tracked prices
  price <symbol> [qty]     show the price and cost of an order
  buy <symbol> <qty>       buy at the current price
  sell <symbol> <qty>      sell at the current price
  wallet                   show balance and holdings
  portfolio                value holdings at current prices
  history [all|buy|sell]   list trades
  quit                     leave

The feed reconnects with backoff when the stream drops; trades keep
using the last known prices meanwhile.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	eng, store, err := a.openLedger(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	ad, backoff, err := a.newFeed()
	if err != nil {
		return err
	}
	feedErr := make(chan error, 1)
	go func() { feedErr <- feed.Supervise(ctx, ad, backoff) }()

	c := &console{
		ledger:   eng,
		desk:     a.desk(eng, ad),
		market:   ad,
		currency: a.cfg.Account.Currency,
		out:      cmd.OutOrStdout(),
	}

	done := make(chan error, 1)
	go func() { done <- c.loop(ctx, cmd.InOrStdin()) }()

	select {
	case err = <-done:
	case <-ctx.Done():
	}
	stop()
	if ferr := <-feedErr; ferr != nil && !errors.Is(ferr, context.Canceled) {
		a.log.WithError(ferr).Warn("feed stopped")
	}
	return err
}

// marketView is what the console reads from the feed.
type marketView interface {
	Snapshot() market.Snapshot
	Connected() bool
}

type console struct {
	ledger   *ledger.Engine
	desk     *desk.Desk
	market   marketView
	currency string
	out      io.Writer
}

var errQuit = errors.New("quit")

func (c *console) loop(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	fmt.Fprint(c.out, "> ")
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		err := c.exec(ctx, sc.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
		fmt.Fprint(c.out, "> ")
	}
	return sc.Err()
}

// exec runs one command line.
func (c *console) exec(ctx context.Context, line string) error {
	f := strings.Fields(line)
	if len(f) == 0 {
		return nil
	}
	verb, args := strings.ToLower(f[0]), f[1:]

	switch verb {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		fmt.Fprintln(c.out, "commands: ticker, price <sym> [qty], buy <sym> <qty>, sell <sym> <qty>, wallet, portfolio, history [all|buy|sell], quit")
		return nil
	case "ticker":
		return show(c.out, report.Ticker(c.market.Snapshot(), c.market.Connected()))
	case "price":
		return c.price(args)
	case "buy", "sell":
		if len(args) != 2 {
			return fmt.Errorf("usage: %s <symbol> <quantity>", verb)
		}
		o, err := desk.ParseOrder(verb, args[0], args[1])
		if err != nil {
			return err
		}
		tr, err := c.desk.Submit(ctx, o)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "✓ %s %s %s @ %s = %s\n",
			tr.Side, report.Quantity(tr.Quantity), tr.Symbol, report.Price(tr.Price), report.Money(tr.Cost(), c.currency))
		return nil
	case "wallet":
		return show(c.out, report.Wallet(c.ledger.GetWallet(), c.currency))
	case "portfolio":
		v := c.ledger.Value(c.market.Snapshot().Prices())
		return show(c.out, report.Portfolio(v, c.currency))
	case "history":
		side := ledger.Side("")
		if len(args) > 0 {
			s, err := parseSideFilter(args[0])
			if err != nil {
				return err
			}
			side = s
		}
		return show(c.out, report.History(c.ledger.GetTrades(), side, c.currency))
	default:
		return fmt.Errorf("unknown command %q (try help)", verb)
	}
}

func (c *console) price(args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("usage: price <symbol> [quantity]")
	}
	qty := decimal.Zero
	if len(args) == 2 {
		q, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("%w: %q", desk.ErrInvalidQuantity, args[1])
		}
		qty = q
	}
	p, err := c.desk.Preview(args[0], qty)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s %s", p.Symbol, report.Price(p.Price))
	if qty.IsPositive() {
		fmt.Fprintf(c.out, " x %s = %s", report.Quantity(qty), report.Money(p.Total, c.currency))
	}
	if !c.market.Connected() {
		fmt.Fprint(c.out, " (stale)")
	}
	fmt.Fprintln(c.out)
	return nil
}
