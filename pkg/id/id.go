// Package id hands out trade identifiers.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Monotonic entropy keeps IDs minted in the same millisecond ordered,
	// so trade IDs sort the same way the trades were executed.
	entropy = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID stamped with the current time.
func New() string {
	v, err := NewAt(time.Now())
	if err != nil {
		// The wall clock is always inside the ULID time range and the
		// monotonic reader only overflows after 2^80 IDs in one millisecond.
		panic(err)
	}
	return v
}

// NewAt returns a ULID stamped with t. ULIDs carry unsigned milliseconds
// since the Unix epoch in 48 bits, so t must fall between 1970 and the
// year 10889.
func NewAt(t time.Time) (string, error) {
	if t.Before(time.Unix(0, 0)) || t.UnixMilli() > int64(ulid.MaxTime()) {
		return "", fmt.Errorf("id time %s: %w", t.UTC().Format(time.RFC3339), ulid.ErrBigTime)
	}

	mu.Lock()
	defer mu.Unlock()

	v, err := ulid.New(ulid.Timestamp(t.UTC()), entropy)
	if err != nil {
		return "", fmt.Errorf("id time %s: %w", t.UTC().Format(time.RFC3339), err)
	}
	return v.String(), nil
}

// Time extracts the millisecond timestamp embedded in an ID.
func Time(s string) (time.Time, error) {
	v, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse id %q: %w", s, err)
	}
	return ulid.Time(v.Time()).UTC(), nil
}
