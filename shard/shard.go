package shard

import (
	"sync"

	"github.com/krisalay/advert-resolver/eviction"
)

/*
A Shard is a small, independent piece of the result cache.

Instead of one map behind one lock, the cache is split into shards. Each shard:
  - holds the entries whose keys hash to it
  - has its own eviction policy instance
  - has its own lock for writes

Readers of one shard never wait on writers of another.
*/
type Shard[V any] struct {

	// Store holds the entries. Reads are lock-free (copy-on-write).
	Store Store[V]

	// Eviction decides which key goes when the shard is full.
	// It is only touched while Mu is held.
	Eviction eviction.Policy

	// Mu serialises writes to Store and every call into Eviction.
	Mu sync.Mutex
}

func NewShard[V any](ev eviction.Policy) *Shard[V] {
	return &Shard[V]{
		Store:    NewCOWStore[V](),
		Eviction: ev,
	}
}
