package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrade/market"
)

// Replay plays recorded ticker batches from a CSV file:
//
//	batch,symbol,price,change_percent
//
// Consecutive rows with the same batch value form one update. The
// session ends with io.EOF after the last batch.
type Replay struct {
	Path     string
	Interval time.Duration
}

// NewReplay returns a source reading path, pausing interval between batches.
func NewReplay(path string, interval time.Duration) *Replay {
	return &Replay{Path: path, Interval: interval}
}

func (r *Replay) Name() string { return "replay" }

// Open loads every batch up front so a bad file fails at connect time.
func (r *Replay) Open(ctx context.Context) (Session, error) {
	f, err := os.Open(r.Path)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	defer f.Close()

	batches, err := ReadBatches(f)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", r.Path, err)
	}
	return &replaySession{batches: batches, interval: r.Interval, closed: make(chan struct{})}, nil
}

// ReadBatches parses the replay CSV format.
func ReadBatches(rd io.Reader) ([][]market.Quote, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		batches [][]market.Quote
		cur     []market.Quote
		curID   string
		line    int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "batch") {
			continue
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("line %d: want batch,symbol,price[,change_percent], got %d fields", line, len(rec))
		}

		price, err := decimal.NewFromString(strings.TrimSpace(rec[2]))
		if err != nil {
			return nil, fmt.Errorf("line %d: price %q: %w", line, rec[2], err)
		}
		change := decimal.Zero
		if len(rec) > 3 && strings.TrimSpace(rec[3]) != "" {
			change, err = decimal.NewFromString(strings.TrimSpace(rec[3]))
			if err != nil {
				return nil, fmt.Errorf("line %d: change %q: %w", line, rec[3], err)
			}
		}

		id := strings.TrimSpace(rec[0])
		if id != curID && len(cur) > 0 {
			batches = append(batches, cur)
			cur = nil
		}
		curID = id
		cur = append(cur, market.Quote{
			Symbol:        strings.TrimSpace(rec[1]),
			Price:         price,
			ChangePercent: change,
		})
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches, nil
}

type replaySession struct {
	batches  [][]market.Quote
	interval time.Duration
	next     int
	closed   chan struct{}
	once     sync.Once
}

func (s *replaySession) Next(ctx context.Context) ([]market.Quote, error) {
	if s.next >= len(s.batches) {
		return nil, io.EOF
	}
	if s.next > 0 && s.interval > 0 {
		t := time.NewTimer(s.interval)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.closed:
			return nil, net.ErrClosed
		case <-t.C:
		}
	}
	select {
	case <-s.closed:
		return nil, net.ErrClosed
	default:
	}

	b := s.batches[s.next]
	s.next++
	return b, nil
}

func (s *replaySession) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
