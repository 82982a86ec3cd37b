// Package provider holds in-memory advertisement providers for demos, load
// tests and unit tests.
package provider

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/krisalay/advert-resolver/types"
)

// Static serves advertisements from a map. It returns types.ErrNotFound for
// unknown IDs and can simulate latency.
type Static struct {
	mu    sync.RWMutex
	ads   map[string]*types.Advertisement
	delay atomic.Int64
	calls atomic.Int64
}

func NewStatic(ads ...*types.Advertisement) *Static {
	s := &Static{ads: make(map[string]*types.Advertisement, len(ads))}
	for _, ad := range ads {
		s.ads[ad.ID] = ad
	}
	return s
}

// WithDelay makes every later Fetch take at least d, or until ctx is done.
// It may be changed while fetches are in flight.
func (s *Static) WithDelay(d time.Duration) *Static {
	s.delay.Store(int64(d))
	return s
}

func (s *Static) Fetch(ctx context.Context, id string) (*types.Advertisement, error) {
	s.calls.Add(1)
	if d := time.Duration(s.delay.Load()); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	ad, ok := s.ads[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return ad, nil
}

func (s *Static) Put(ad *types.Advertisement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ads[ad.ID] = ad
}

func (s *Static) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ads, id)
}

// Calls returns how many times Fetch was invoked.
func (s *Static) Calls() int64 {
	return s.calls.Load()
}
