package feed

import (
	"context"
	"errors"
	"io"
	"time"
)

// Backoff bounds the delay between reconnect attempts.
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

func (b Backoff) next(cur time.Duration) time.Duration {
	if cur <= 0 {
		cur = b.Min
	} else {
		cur *= 2
	}
	if cur <= 0 {
		cur = time.Second
	}
	if b.Max > 0 && cur > b.Max {
		cur = b.Max
	}
	return cur
}

// Supervise keeps a connected until ctx is done, reconnecting with
// exponential backoff whenever the session fails. A source that ends
// with io.EOF, or a session closed through Disconnect, ends supervision
// with a nil error.
func Supervise(ctx context.Context, a *Adapter, b Backoff) error {
	defer a.Disconnect()

	var delay time.Duration
	for {
		if err := a.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			delay = b.next(delay)
			a.log.WithError(err).WithField("retry_in", delay.String()).Warn("feed connect failed")
			if !sleep(ctx, delay) {
				return ctx.Err()
			}
			continue
		}
		delay = 0

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.Done():
		}

		err := a.Err()
		if err == nil || errors.Is(err, io.EOF) {
			// closed on request or the source ran dry
			return nil
		}
		delay = b.next(delay)
		a.log.WithError(err).WithField("retry_in", delay.String()).Info("feed reconnecting")
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
