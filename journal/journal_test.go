package journal

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/config"
	"github.com/rustyeddy/papertrade/ledger"
)

func TestOpenByType(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	cases := []config.JournalConfig{
		{Type: "sqlite", DBPath: filepath.Join(dir, "l.sqlite")},
		{Type: "file", FilePath: filepath.Join(dir, "l.json")},
		{Type: "memory"},
	}

	for _, cfg := range cases {
		cfg := cfg
		t.Run(cfg.Type, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			store, err := Open(cfg)
			require.NoError(t, err)
			defer store.Close()

			_, err = ledger.Open(ctx, store)
			assert.ErrorIs(t, err, ledger.ErrNotInitialized)

			e, err := ledger.Init(ctx, store, dec("1000"))
			require.NoError(t, err)

			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := e.ExecuteTrade(ctx, "BTCUSDT", ledger.Buy, dec("0.5"), dec("10"))
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			reopened, err := ledger.Open(ctx, store)
			require.NoError(t, err)
			assert.True(t, dec("950").Equal(reopened.GetWallet().Balance))
			assert.True(t, dec("5").Equal(reopened.GetWallet().Quantity("BTCUSDT")))
			assert.Len(t, reopened.GetTrades(), 10)
			for i, tr := range e.GetTrades() {
				assert.Equal(t, tr.ID, reopened.GetTrades()[i].ID)
			}
			assert.NoError(t, reopened.Audit())
		})
	}
}

func TestOpenUnknownType(t *testing.T) {
	t.Parallel()

	_, err := Open(config.JournalConfig{Type: "postgres"})
	assert.Error(t, err)
}
