// Package journal stores the ledger durably.
package journal

import (
	"fmt"

	"github.com/rustyeddy/papertrade/config"
	"github.com/rustyeddy/papertrade/ledger"
)

// Store is a ledger.Store that holds resources until closed.
type Store interface {
	ledger.Store
	Close() error
}

// Open returns the store selected by cfg.Type.
func Open(cfg config.JournalConfig) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLite(cfg.DBPath)
	case "file":
		return NewFile(cfg.FilePath), nil
	case "memory":
		return memory{ledger.NewMemoryStore()}, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}

type memory struct {
	*ledger.MemoryStore
}

func (memory) Close() error { return nil }
