// Package cache implements the result cache: a sharded key/value store with
// per-entry absolute expiration.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/krisalay/advert-resolver/eviction"
	"github.com/krisalay/advert-resolver/expiration"
	"github.com/krisalay/advert-resolver/shard"
	"github.com/krisalay/advert-resolver/types"
)

const defaultShards = 16

// Options configures a ResultCache. The zero value is a usable unbounded cache.
type Options struct {
	// Shards is the number of independent shards. Defaults to 16.
	Shards int

	// Capacity bounds the total number of entries, split evenly across shards.
	// Zero means no bound besides TTL.
	Capacity int

	// Eviction picks the victim when a shard is full. Ignored without Capacity.
	Eviction eviction.PolicyType

	// DefaultTTL applies to Set calls with a non-positive ttl.
	DefaultTTL time.Duration

	Metrics types.Metrics
	Clock   func() time.Time
}

/*
ResultCache memoises resolved values for a short time.

It connects:
  - shards, each with its own lock and copy-on-write store
  - an absolute expiration strategy
  - an optional per-shard eviction policy
  - metrics for expirations and evictions

Expired entries are never returned. They are removed lazily on read, and in
bulk by Sweep or a running sweeper.
*/
type ResultCache[V any] struct {
	shards     []*shard.Shard[V]
	selector   shard.Selector
	expiration expiration.Strategy
	perShard   int
	metrics    types.Metrics
	clock      func() time.Time

	sweepMu   sync.Mutex
	stopSweep context.CancelFunc
	wg        sync.WaitGroup
}

func New[V any](opts Options) *ResultCache[V] {
	n := opts.Shards
	if n <= 0 {
		n = defaultShards
	}
	policy := eviction.None
	perShard := 0
	if opts.Capacity > 0 {
		policy = opts.Eviction
		if policy == eviction.None {
			policy = eviction.LRU
		}
		perShard = max(opts.Capacity/n, 1)
	}

	s := make([]*shard.Shard[V], n)
	for i := range s {
		// each shard gets its own policy instance
		s[i] = shard.NewShard[V](eviction.NewEvictionPolicy(policy))
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &ResultCache[V]{
		shards:     s,
		selector:   shard.FNV,
		expiration: expiration.Absolute{DefaultTTL: opts.DefaultTTL},
		perShard:   perShard,
		metrics:    metrics,
		clock:      clock,
	}
}

func (c *ResultCache[V]) shardFor(key string) *shard.Shard[V] {
	return c.shards[c.selector(key, len(c.shards))]
}

/*
Get returns the value stored under key.

A missing entry and an expired one look the same to the caller. An expired
entry found here is removed on the spot.
*/
func (c *ResultCache[V]) Get(key string) (V, bool) {
	var zero V
	sh := c.shardFor(key)

	ent, ok := sh.Store.Get(key)
	if !ok {
		return zero, false
	}
	if c.expiration.IsExpired(ent.ExpireAt, c.clock()) {
		c.metrics.Expire()
		c.removeEntry(sh, ent)
		return zero, false
	}

	if c.perShard > 0 {
		sh.Mu.Lock()
		sh.Eviction.OnGet(key)
		sh.Mu.Unlock()
	}
	return ent.Value, true
}

/*
Set stores value under key, visible until now+ttl. Any existing entry for the
key is replaced unconditionally.

When the shard is at capacity, expired entries are swept first and the
eviction policy only picks a victim if that did not free room.
*/
func (c *ResultCache[V]) Set(key string, value V, ttl time.Duration) {
	now := c.clock()
	ent := &types.CacheEntry[V]{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpireAt:  c.expiration.ExpireAt(now, ttl),
	}

	sh := c.shardFor(key)
	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	if _, exists := sh.Store.Get(key); !exists && c.perShard > 0 && sh.Store.Size() >= c.perShard {
		c.sweepShard(sh, now)
		if sh.Store.Size() >= c.perShard {
			if evicted := sh.Eviction.Evict(); evicted != "" {
				sh.Store.Delete(evicted)
				c.metrics.Eviction()
			}
		}
	}

	sh.Store.Put(key, ent)
	sh.Eviction.OnPut(key)
}

// Remove deletes key immediately. Removing a missing key is a no-op.
func (c *ResultCache[V]) Remove(key string) {
	sh := c.shardFor(key)
	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	sh.Store.Delete(key)
	sh.Eviction.Remove(key)
}

/*
TTL returns the remaining time-to-live of key, Redis style:

	> 0 : time left
	 -1 : key exists without a TTL
	 -2 : key is missing or already expired
*/
func (c *ResultCache[V]) TTL(key string) time.Duration {
	ent, ok := c.shardFor(key).Store.Get(key)
	if !ok {
		return -2
	}
	if ent.ExpireAt.IsZero() {
		return -1
	}
	now := c.clock()
	if c.expiration.IsExpired(ent.ExpireAt, now) {
		return -2
	}
	return ent.ExpireAt.Sub(now)
}

// Len returns the number of stored entries, including expired ones that have
// not been swept yet.
func (c *ResultCache[V]) Len() int {
	n := 0
	for _, sh := range c.shards {
		n += sh.Store.Size()
	}
	return n
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *ResultCache[V]) Sweep() int {
	now := c.clock()
	removed := 0
	for _, sh := range c.shards {
		sh.Mu.Lock()
		removed += c.sweepShard(sh, now)
		sh.Mu.Unlock()
	}
	return removed
}

// sweepShard must be called with sh.Mu held.
func (c *ResultCache[V]) sweepShard(sh *shard.Shard[V], now time.Time) int {
	keys := sh.Store.DeleteFunc(func(ent *types.CacheEntry[V]) bool {
		return c.expiration.IsExpired(ent.ExpireAt, now)
	})
	for _, k := range keys {
		sh.Eviction.Remove(k)
		c.metrics.Expire()
	}
	return len(keys)
}

// removeEntry deletes ent only if it is still the live entry for its key,
// so a concurrent Set is never undone.
func (c *ResultCache[V]) removeEntry(sh *shard.Shard[V], ent *types.CacheEntry[V]) {
	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	if cur, ok := sh.Store.Get(ent.Key); ok && cur == ent {
		sh.Store.Delete(ent.Key)
		sh.Eviction.Remove(ent.Key)
	}
}

/*
StartSweeper runs Sweep every interval in a background goroutine until ctx is
done or Close is called. Calling it while a sweeper is running restarts it.
*/
func (c *ResultCache[V]) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	c.stopLocked()
	ctx, cancel := context.WithCancel(ctx)
	c.stopSweep = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}

// Close stops the sweeper, if any, and waits for it to exit.
func (c *ResultCache[V]) Close() {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	c.stopLocked()
}

func (c *ResultCache[V]) stopLocked() {
	if c.stopSweep != nil {
		c.stopSweep()
		c.stopSweep = nil
	}
	c.wg.Wait()
}
