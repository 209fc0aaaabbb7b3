package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/market"
)

// fakeSource hands out sessions fed from a channel the test controls.
type fakeSource struct {
	mu       sync.Mutex
	openErrs []error
	sessions []*fakeSession
	live     atomic.Int32
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Open(ctx context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.openErrs) > 0 {
		err := f.openErrs[0]
		f.openErrs = f.openErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	s := &fakeSession{
		batches: make(chan []market.Quote, 16),
		fail:    make(chan error, 1),
		closed:  make(chan struct{}),
		src:     f,
	}
	f.live.Add(1)
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeSource) session(i int) *fakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[i]
}

func (f *fakeSource) opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fakeSession struct {
	batches chan []market.Quote
	fail    chan error
	closed  chan struct{}
	once    sync.Once
	src     *fakeSource
}

func (s *fakeSession) Next(ctx context.Context) ([]market.Quote, error) {
	select {
	case b := <-s.batches:
		return b, nil
	case err := <-s.fail:
		return nil, err
	case <-s.closed:
		return nil, errors.New("use of closed session")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeSession) Close() error {
	s.once.Do(func() {
		close(s.closed)
		s.src.live.Add(-1)
	})
	return nil
}

func quotes(n int) []market.Quote {
	out := make([]market.Quote, n)
	for i := range out {
		out[i] = market.Quote{
			Symbol: fmt.Sprintf("SYM%02dUSDT", i),
			Price:  decimal.NewFromInt(int64(100 + i)),
		}
	}
	return out
}

// waitSeq blocks until the board publishes a snapshot with seq >= want.
func waitSeq(t *testing.T, a *Adapter, want uint64) market.Snapshot {
	t.Helper()
	var snap market.Snapshot
	require.Eventually(t, func() bool {
		snap = a.Snapshot()
		return snap.Seq >= want
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestAdapterStartsDisconnected(t *testing.T) {
	a := New(&fakeSource{})
	assert.False(t, a.Connected())
	assert.Equal(t, Disconnected, a.Status())
	assert.Equal(t, 0, a.Snapshot().Len())
	assert.NoError(t, a.Err())

	select {
	case <-a.Done():
	default:
		t.Fatal("Done should be closed before the first connect")
	}

	a.Disconnect() // no-op
}

func TestAdapterOnUpdateCapsBatch(t *testing.T) {
	a := New(&fakeSource{})
	snap := a.OnUpdate(quotes(40))

	require.Equal(t, DefaultMaxSymbols, snap.Len())
	assert.Equal(t, "SYM00USDT", snap.Symbols[0])
	assert.Equal(t, "SYM14USDT", snap.Symbols[14])
	_, err := snap.Price("SYM15USDT")
	assert.ErrorIs(t, err, market.ErrNoPrice)
}

func TestAdapterOnUpdateReplacesUniverse(t *testing.T) {
	a := New(&fakeSource{}, WithMaxSymbols(3))
	a.OnUpdate(quotes(3))

	next := []market.Quote{{Symbol: "NEWUSDT", Price: decimal.NewFromInt(5)}}
	snap := a.OnUpdate(next)

	assert.Equal(t, []string{"NEWUSDT"}, snap.Symbols)
	assert.Equal(t, snap, a.Snapshot())
}

func TestAdapterStreamsBatches(t *testing.T) {
	src := &fakeSource{}
	var statuses []Status
	var mu sync.Mutex
	a := New(src, WithStatusHook(func(s Status, _ error) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
	}))

	require.NoError(t, a.Connect(context.Background()))
	assert.True(t, a.Connected())

	src.session(0).batches <- quotes(2)
	snap := waitSeq(t, a, 1)
	assert.Equal(t, 2, snap.Len())

	a.Disconnect()
	assert.False(t, a.Connected())
	assert.NoError(t, a.Err())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{Connecting, Connected, Disconnected}, statuses)
}

func TestAdapterKeepsStaleSnapshotOnError(t *testing.T) {
	src := &fakeSource{}
	a := New(src)
	require.NoError(t, a.Connect(context.Background()))

	src.session(0).batches <- quotes(3)
	before := waitSeq(t, a, 1)

	boom := errors.New("connection reset")
	src.session(0).fail <- boom

	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
	}

	assert.False(t, a.Connected())
	assert.ErrorIs(t, a.Err(), boom)
	assert.Equal(t, before, a.Snapshot())
	assert.Equal(t, int32(0), src.live.Load())
}

func TestAdapterConnectFailure(t *testing.T) {
	boom := errors.New("dial refused")
	src := &fakeSource{openErrs: []error{boom}}
	a := New(src)

	err := a.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, a.Connected())
	assert.ErrorIs(t, a.Err(), boom)
}

func TestAdapterReconnectReplacesSession(t *testing.T) {
	src := &fakeSource{}
	a := New(src)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Connect(ctx))
		assert.Equal(t, int32(1), src.live.Load(), "cycle %d", i)
	}
	assert.Equal(t, 5, src.opened())

	// Only the newest session drives the board.
	src.session(4).batches <- quotes(1)
	waitSeq(t, a, 1)

	a.Disconnect()
	assert.Equal(t, int32(0), src.live.Load())
}

func TestAdapterConcurrentReaders(t *testing.T) {
	src := &fakeSource{}
	a := New(src)
	require.NoError(t, a.Connect(context.Background()))
	defer a.Disconnect()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				snap := a.Snapshot()
				assert.Equal(t, len(snap.Symbols), snap.Len())
				_ = a.Connected()
			}
		}()
	}
	for i := 1; i <= 10; i++ {
		src.session(0).batches <- quotes(i)
	}
	wg.Wait()
	waitSeq(t, a, 10)
}

func TestAdapterWaitSnapshot(t *testing.T) {
	src := &fakeSource{}
	a := New(src)

	_, err := a.WaitSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, a.Connect(context.Background()))
	defer a.Disconnect()

	go func() { src.session(0).batches <- quotes(4) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := a.WaitSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Len())
}

func TestAdapterWaitSnapshotSessionFails(t *testing.T) {
	src := &fakeSource{}
	a := New(src)
	require.NoError(t, a.Connect(context.Background()))

	boom := errors.New("handshake lost")
	src.session(0).fail <- boom

	_, err := a.WaitSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, err, boom)
}

func TestAdapterReconnectAfterFailureStaysConnected(t *testing.T) {
	src := &fakeSource{}
	var mu sync.Mutex
	var last Status
	a := New(src, WithStatusHook(func(s Status, _ error) {
		mu.Lock()
		last = s
		mu.Unlock()
	}))
	ctx := context.Background()
	require.NoError(t, a.Connect(ctx))

	for i := 0; i < 100; i++ {
		// The old reader is still unwinding when Connect runs.
		src.session(i).fail <- errors.New("connection reset")
		require.NoError(t, a.Connect(ctx))

		assert.True(t, a.Connected(), "cycle %d", i)
		assert.NoError(t, a.Err(), "cycle %d", i)
		assert.Equal(t, int32(1), src.live.Load(), "cycle %d", i)
		mu.Lock()
		assert.Equal(t, Connected, last, "cycle %d", i)
		mu.Unlock()
	}

	a.Disconnect()
	assert.False(t, a.Connected())
	assert.Equal(t, int32(0), src.live.Load())
}
