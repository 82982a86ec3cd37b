package shard

import (
	"sync/atomic"

	"github.com/krisalay/advert-resolver/types"
)

/*
This file defines how entries are stored inside a shard.

Lookups happen on every resolution while writes only follow a provider
round-trip, so the store is copy-on-write:
  - readers load an immutable map snapshot without locking
  - writers build a new map and swap it in atomically

Writers must be serialised by the caller (Shard.Mu).
*/

// Store is used by a shard to keep its entries.
type Store[V any] interface {

	// Get retrieves an entry by key.
	Get(string) (*types.CacheEntry[V], bool)

	// Put inserts or replaces an entry.
	Put(string, *types.CacheEntry[V])

	// Delete removes an entry.
	Delete(string)

	// DeleteFunc removes every entry for which fn returns true, in one copy,
	// and returns the removed keys.
	DeleteFunc(fn func(*types.CacheEntry[V]) bool) []string

	// Size returns how many entries are stored.
	Size() int
}

type entries[V any] map[string]*types.CacheEntry[V]

type cowStore[V any] struct {
	data atomic.Pointer[entries[V]]
}

func NewCOWStore[V any]() Store[V] {
	s := &cowStore[V]{}
	m := make(entries[V])
	s.data.Store(&m)
	return s
}

func (s *cowStore[V]) snapshot() entries[V] {
	return *s.data.Load()
}

func (s *cowStore[V]) Get(key string) (*types.CacheEntry[V], bool) {
	ent, ok := s.snapshot()[key]
	return ent, ok
}

func (s *cowStore[V]) Put(key string, ent *types.CacheEntry[V]) {
	old := s.snapshot()
	n := make(entries[V], len(old)+1)
	for k, v := range old {
		n[k] = v
	}
	n[key] = ent
	s.data.Store(&n)
}

func (s *cowStore[V]) Delete(key string) {
	old := s.snapshot()
	if _, ok := old[key]; !ok {
		return
	}
	n := make(entries[V], len(old))
	for k, v := range old {
		if k != key {
			n[k] = v
		}
	}
	s.data.Store(&n)
}

func (s *cowStore[V]) DeleteFunc(fn func(*types.CacheEntry[V]) bool) []string {
	old := s.snapshot()
	var removed []string
	n := make(entries[V], len(old))
	for k, v := range old {
		if fn(v) {
			removed = append(removed, k)
			continue
		}
		n[k] = v
	}
	if len(removed) > 0 {
		s.data.Store(&n)
	}
	return removed
}

func (s *cowStore[V]) Size() int {
	return len(s.snapshot())
}
