// Package feed turns a push-based price stream into market snapshots.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/papertrade/internal/logging"
	"github.com/rustyeddy/papertrade/market"
)

// DefaultMaxSymbols caps the tracked universe.
const DefaultMaxSymbols = 15

// ErrNotConnected is returned when an operation needs a live session.
var ErrNotConnected = errors.New("feed not connected")

// Status is the connectivity of the adapter.
type Status int32

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Session is one open stream. Next blocks until a batch arrives or the
// stream fails; Close unblocks a pending Next and may be called more
// than once.
type Session interface {
	Next(ctx context.Context) ([]market.Quote, error)
	Close() error
}

// Source opens sessions against an external price stream.
type Source interface {
	Name() string
	Open(ctx context.Context) (Session, error)
}

// Adapter keeps the freshest quote per symbol from a Source. When the
// stream drops, the last snapshot stays readable and Connected reports
// false. The adapter does not reconnect by itself; see Supervise.
type Adapter struct {
	src      Source
	board    *market.Board
	max      int
	log      *logrus.Entry
	onStatus func(Status, error)

	lifecycle sync.Mutex // serializes Connect and Disconnect

	mu     sync.Mutex
	gen    uint64
	sess   Session
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	status atomic.Int32
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithMaxSymbols caps how many entries of each batch are kept.
func WithMaxSymbols(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.max = n
		}
	}
}

// WithBoard publishes into b instead of a private board.
func WithBoard(b *market.Board) Option {
	return func(a *Adapter) { a.board = b }
}

// WithLogger sets the adapter logger.
func WithLogger(l *logrus.Entry) Option {
	return func(a *Adapter) { a.log = l }
}

// WithStatusHook is called on every status change. err is the reason
// for a disconnect, nil for a requested one. The hook runs on the reader
// goroutine and must not call Connect or Disconnect.
func WithStatusHook(fn func(Status, error)) Option {
	return func(a *Adapter) { a.onStatus = fn }
}

// New returns a disconnected adapter over src.
func New(src Source, opts ...Option) *Adapter {
	a := &Adapter{
		src:  src,
		max:  DefaultMaxSymbols,
		log:  logging.Discard(),
		done: closedChan(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.board == nil {
		a.board = market.NewBoard()
	}
	a.log = a.log.WithField("source", src.Name())
	return a
}

// Connect opens a new session, closing any previous one first.
func (a *Adapter) Connect(ctx context.Context) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.disconnect()
	a.setStatus(Connecting, nil)

	sess, err := a.src.Open(ctx)
	if err != nil {
		a.mu.Lock()
		a.err = err
		a.mu.Unlock()
		a.setStatus(Disconnected, err)
		return fmt.Errorf("connect %s: %w", a.src.Name(), err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	a.mu.Lock()
	a.gen++
	gen := a.gen
	a.sess = sess
	a.cancel = cancel
	a.done = done
	a.err = nil
	a.mu.Unlock()

	a.setStatus(Connected, nil)
	go a.read(runCtx, cancel, gen, sess, done)
	return nil
}

// Disconnect closes the current session, if any, and waits for its
// reader to stop. The last snapshot is kept.
func (a *Adapter) Disconnect() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	a.disconnect()
}

func (a *Adapter) disconnect() {
	a.mu.Lock()
	sess, cancel, done := a.sess, a.cancel, a.done
	a.mu.Unlock()

	if sess == nil {
		return
	}
	cancel()
	_ = sess.Close()
	<-done

	a.mu.Lock()
	if a.sess == sess {
		a.sess = nil
		a.cancel = nil
	}
	a.mu.Unlock()
}

func (a *Adapter) read(ctx context.Context, cancel context.CancelFunc, gen uint64, sess Session, done chan struct{}) {
	defer cancel()

	var err error
	for {
		var batch []market.Quote
		batch, err = sess.Next(ctx)
		if err != nil {
			break
		}
		a.OnUpdate(batch)
	}

	// A requested disconnect is not a failure.
	if ctx.Err() != nil {
		err = nil
	}
	_ = sess.Close()

	// The session stays registered until done is closed, so a Connect
	// racing with this exit blocks on done before it publishes a status.
	a.mu.Lock()
	if a.gen == gen {
		a.err = err
	}
	a.mu.Unlock()

	a.setStatus(Disconnected, err)
	close(done)
}

// OnUpdate applies one batch from the stream: the first max entries
// replace the tracked universe.
func (a *Adapter) OnUpdate(batch []market.Quote) market.Snapshot {
	if len(batch) > a.max {
		batch = batch[:a.max]
	}
	snap := a.board.Replace(batch)
	a.log.WithFields(logrus.Fields{
		"symbols": snap.Len(),
		"seq":     snap.Seq,
	}).Trace("snapshot updated")
	return snap
}

// Snapshot returns the current view without blocking.
func (a *Adapter) Snapshot() market.Snapshot {
	return a.board.Snapshot()
}

// WaitSnapshot returns once the board holds at least one batch. It
// fails with ErrNotConnected if no session is running or the session
// ends first.
func (a *Adapter) WaitSnapshot(ctx context.Context) (market.Snapshot, error) {
	updates, cancel := a.board.Subscribe(1)
	defer cancel()

	if snap := a.board.Snapshot(); snap.Seq > 0 {
		return snap, nil
	}
	done := a.Done()
	for {
		select {
		case <-ctx.Done():
			return market.Snapshot{}, ctx.Err()
		case snap := <-updates:
			if snap.Seq > 0 {
				return snap, nil
			}
		case <-done:
			if snap := a.board.Snapshot(); snap.Seq > 0 {
				return snap, nil
			}
			if err := a.Err(); err != nil {
				return market.Snapshot{}, fmt.Errorf("%w: %w", ErrNotConnected, err)
			}
			return market.Snapshot{}, ErrNotConnected
		}
	}
}

// Board exposes the underlying board for subscriptions.
func (a *Adapter) Board() *market.Board {
	return a.board
}

// Status reports the connectivity.
func (a *Adapter) Status() Status {
	return Status(a.status.Load())
}

// Connected reports whether a session is live.
func (a *Adapter) Connected() bool {
	return a.Status() == Connected
}

// Done is closed when the current session ends.
func (a *Adapter) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// Err is the reason the last session ended, nil if it was closed on
// request or is still running.
func (a *Adapter) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *Adapter) setStatus(s Status, err error) {
	prev := Status(a.status.Swap(int32(s)))
	if prev == s {
		return
	}

	entry := a.log.WithField("status", s.String())
	switch {
	case err != nil:
		entry.WithError(err).Warn("feed disconnected")
	case s == Connected:
		entry.Info("feed connected")
	default:
		entry.Debug("feed status")
	}

	if a.onStatus != nil {
		a.onStatus(s, err)
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
