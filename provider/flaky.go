package provider

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/krisalay/advert-resolver/types"
)

// ErrUnavailable is what Flaky returns for a simulated outage.
var ErrUnavailable = errors.New("provider unavailable")

/*
Flaky wraps another provider and fails on demand.

  - FailFirst(n): the next n calls fail, later calls pass through
  - SetDown(true): every call fails until SetDown(false)
*/
type Flaky struct {
	next      types.Provider
	remaining atomic.Int64
	down      atomic.Bool
	calls     atomic.Int64
}

func NewFlaky(next types.Provider) *Flaky {
	return &Flaky{next: next}
}

func (f *Flaky) FailFirst(n int) *Flaky {
	f.remaining.Store(int64(n))
	return f
}

func (f *Flaky) SetDown(down bool) {
	f.down.Store(down)
}

func (f *Flaky) Fetch(ctx context.Context, id string) (*types.Advertisement, error) {
	f.calls.Add(1)
	if f.down.Load() {
		return nil, ErrUnavailable
	}
	if f.remaining.Add(-1) >= 0 {
		return nil, ErrUnavailable
	}
	return f.next.Fetch(ctx, id)
}

// Calls returns how many times Fetch was invoked, failed calls included.
func (f *Flaky) Calls() int64 {
	return f.calls.Load()
}
