package market

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNoPrice is returned when no price is known for a symbol.
var ErrNoPrice = errors.New("price not found")

func noPrice(symbol string) error {
	return fmt.Errorf("%w: %q", ErrNoPrice, symbol)
}

// PriceSource resolves the latest snapshot. The feed adapter and the
// board both satisfy it.
type PriceSource interface {
	Snapshot() Snapshot
}

// Board holds the freshest snapshot and fans changes out to subscribers.
// Reads never take a lock; writers are serialized.
type Board struct {
	mu   sync.Mutex
	cur  atomic.Pointer[Snapshot]
	seq  uint64
	now  func() time.Time
	subs map[int]chan Snapshot
	next int
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	b := &Board{
		now:  time.Now,
		subs: make(map[int]chan Snapshot),
	}
	b.cur.Store(&Snapshot{Quotes: map[string]Quote{}})
	return b
}

// Replace swaps the whole tracked universe for quotes. Symbols missing
// from quotes drop out, as do entries without a symbol or a positive
// price. Later duplicates of a symbol win over earlier ones but keep the
// first position.
func (b *Board) Replace(quotes []Quote) Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.cur.Load()
	now := b.now()

	next := Snapshot{
		Symbols: make([]string, 0, len(quotes)),
		Quotes:  make(map[string]Quote, len(quotes)),
		Time:    now,
	}
	for _, q := range quotes {
		if !q.Valid() {
			continue
		}
		if old, ok := prev.Quotes[q.Symbol]; ok {
			q.Previous = old.Price
		}
		if q.Time.IsZero() {
			q.Time = now
		}
		if _, seen := next.Quotes[q.Symbol]; !seen {
			next.Symbols = append(next.Symbols, q.Symbol)
		}
		next.Quotes[q.Symbol] = q
	}

	b.seq++
	next.Seq = b.seq
	b.cur.Store(&next)

	for _, ch := range b.subs {
		// Drop the oldest pending snapshot rather than block the feed.
		select {
		case ch <- next:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- next:
			default:
			}
		}
	}
	return next
}

// Snapshot returns the current view. It never blocks.
func (b *Board) Snapshot() Snapshot {
	return *b.cur.Load()
}

// Quote returns the latest quote for symbol.
func (b *Board) Quote(symbol string) (Quote, error) {
	q, ok := b.Snapshot().Quote(symbol)
	if !ok {
		return Quote{}, noPrice(symbol)
	}
	return q, nil
}

// Subscribe registers for change notifications. A subscriber that falls
// behind only sees the most recent snapshots. cancel closes the channel.
func (b *Board) Subscribe(buf int) (<-chan Snapshot, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Snapshot, buf)

	b.mu.Lock()
	key := b.next
	b.next++
	b.subs[key] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, key)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
