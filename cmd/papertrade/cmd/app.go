package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/papertrade/config"
	"github.com/rustyeddy/papertrade/desk"
	"github.com/rustyeddy/papertrade/feed"
	"github.com/rustyeddy/papertrade/internal/logging"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/report"
)

// replayInterval paces recorded batches like the live stream.
const replayInterval = time.Second

// app carries what every command needs: the loaded configuration and
// the process logger.
type app struct {
	cfg *config.Config
	log *logrus.Logger
}

func newApp() (*app, error) {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log}, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}

	cfg := config.Default()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (a *app) component(name string) *logrus.Entry {
	return logging.Component(a.log, name)
}

// openLedger opens the configured store and loads the ledger from it.
// A memory store has nothing to load and starts a fresh ledger.
func (a *app) openLedger(ctx context.Context) (*ledger.Engine, journal.Store, error) {
	store, err := journal.Open(a.cfg.Journal)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}

	opts := []ledger.Option{ledger.WithLogger(a.component("ledger"))}

	var eng *ledger.Engine
	if a.cfg.Journal.Type == "memory" {
		eng, err = ledger.OpenOrInit(ctx, store, a.cfg.Account.StartingBalance(), opts...)
	} else {
		eng, err = ledger.Open(ctx, store, opts...)
	}
	if err != nil {
		store.Close()
		if errors.Is(err, ledger.ErrNotInitialized) {
			return nil, nil, fmt.Errorf("%w: run 'papertrade init' first", err)
		}
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	return eng, store, nil
}

// newFeed builds a disconnected adapter for the configured source.
func (a *app) newFeed() (*feed.Adapter, feed.Backoff, error) {
	fc := a.cfg.Feed

	var src feed.Source
	if fc.ReplayFile != "" {
		src = feed.NewReplay(fc.ReplayFile, replayInterval)
	} else {
		hs, err := fc.Handshake()
		if err != nil {
			return nil, feed.Backoff{}, err
		}
		src = feed.NewBinance(fc.URL, hs)
	}

	lo, hi, err := fc.Backoff()
	if err != nil {
		return nil, feed.Backoff{}, err
	}

	ad := feed.New(src,
		feed.WithMaxSymbols(fc.MaxSymbols),
		feed.WithLogger(a.component("feed")),
	)
	return ad, feed.Backoff{Min: lo, Max: hi}, nil
}

// prices connects a feed and waits for its first snapshot. The caller
// disconnects the returned adapter.
func (a *app) prices(ctx context.Context) (*feed.Adapter, market.Snapshot, error) {
	ad, _, err := a.newFeed()
	if err != nil {
		return nil, market.Snapshot{}, err
	}
	if err := ad.Connect(ctx); err != nil {
		return ad, market.Snapshot{}, err
	}

	wctx, cancel := context.WithTimeout(ctx, waitFor)
	defer cancel()
	snap, err := ad.WaitSnapshot(wctx)
	if err != nil {
		return ad, market.Snapshot{}, fmt.Errorf("waiting for prices: %w", err)
	}
	return ad, snap, nil
}

func (a *app) desk(eng *ledger.Engine, prices market.PriceSource) *desk.Desk {
	return desk.New(eng, prices,
		desk.WithMinQuantity(a.cfg.Trading.MinimumQuantity()),
		desk.WithLogger(a.component("desk")),
	)
}

// show renders md for the terminal unless --plain is set.
func show(w io.Writer, md string) error {
	out, err := report.Render(md, plain, 0)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, out)
	return err
}
