package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrade/ledger"
)

const fileVersion = 1

// File keeps the ledger as one JSON document. Every write replaces the
// whole document through a rename, so a reader sees the old or the new
// wallet and trades together, never a mix. Last write wins.
type File struct {
	mu   sync.Mutex
	path string
}

type fileDoc struct {
	Version int             `json:"version"`
	Initial decimal.Decimal `json:"initial"`
	Wallet  ledger.Wallet   `json:"wallet"`
	Trades  []ledger.Trade  `json:"trades"`
}

// NewFile returns a store backed by path. Nothing is touched until the
// first call.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path is the backing file.
func (f *File) Path() string {
	return f.path
}

func (f *File) Load(ctx context.Context) (ledger.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return ledger.State{}, err
	}
	s := ledger.State{
		Initial: doc.Initial,
		Wallet:  doc.Wallet,
		Trades:  doc.Trades,
	}
	if s.Wallet.Holdings == nil {
		s.Wallet.Holdings = map[string]decimal.Decimal{}
	}
	if s.Trades == nil {
		s.Trades = []ledger.Trade{}
	}
	return s, nil
}

func (f *File) Create(ctx context.Context, s ledger.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, err := os.Stat(f.path)
	if err == nil {
		return ledger.ErrAlreadyInitialized
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return f.write(s)
}

func (f *File) Commit(ctx context.Context, next ledger.State, t ledger.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(f.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ledger.ErrNotInitialized
		}
		return err
	}
	return f.write(next)
}

func (f *File) Close() error { return nil }

func (f *File) read() (fileDoc, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileDoc{}, ledger.ErrNotInitialized
	}
	if err != nil {
		return fileDoc{}, fmt.Errorf("read ledger file: %w", err)
	}

	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fileDoc{}, fmt.Errorf("parse ledger file %s: %w", f.path, err)
	}
	if doc.Version > fileVersion {
		return fileDoc{}, fmt.Errorf("ledger file %s: unsupported version %d", f.path, doc.Version)
	}
	return doc, nil
}

func (f *File) write(s ledger.State) error {
	doc := fileDoc{
		Version: fileVersion,
		Initial: s.Initial,
		Wallet:  s.Wallet,
		Trades:  s.Trades,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
