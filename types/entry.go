package types

import "time"

// CacheEntry is one cached value plus its absolute expiry.
// Entries are never mutated after they are published to a shard.
type CacheEntry[V any] struct {
	Key       string
	Value     V
	CreatedAt time.Time
	ExpireAt  time.Time // zero => no TTL
}
