package cache_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/advert-resolver/cache"
	"github.com/krisalay/advert-resolver/eviction"
	"github.com/krisalay/advert-resolver/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingMetrics struct {
	types.NoopMetrics
	expired   atomic.Int64
	evictions atomic.Int64
}

func (m *countingMetrics) Expire()   { m.expired.Add(1) }
func (m *countingMetrics) Eviction() { m.evictions.Add(1) }

func TestSetAndGet(t *testing.T) {
	c := cache.New[string](cache.Options{})

	c.Set("key1", "value1", time.Minute)
	v, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, "value1", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	c := cache.New[string](cache.Options{})

	c.Set("key1", "value1", time.Minute)
	c.Set("key1", "value2", time.Minute)

	v, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, "value2", v)
	assert.Equal(t, 1, c.Len())
}

func TestExpiry(t *testing.T) {
	clock := newFakeClock()
	metrics := &countingMetrics{}
	c := cache.New[string](cache.Options{Clock: clock.Now, Metrics: metrics})

	c.Set("ad", "payload", 5*time.Minute)

	clock.Advance(5*time.Minute - time.Second)
	_, ok := c.Get("ad")
	assert.True(t, ok, "still visible before expiry")

	clock.Advance(time.Second)
	_, ok = c.Get("ad")
	assert.False(t, ok, "hidden once now reaches expiresAt")
	assert.Equal(t, int64(1), metrics.expired.Load())
	assert.Equal(t, 0, c.Len(), "expired entry is removed lazily")
}

func TestOverwriteResetsExpiry(t *testing.T) {
	clock := newFakeClock()
	c := cache.New[string](cache.Options{Clock: clock.Now})

	c.Set("ad", "v1", time.Minute)
	clock.Advance(50 * time.Second)
	c.Set("ad", "v2", time.Minute)
	clock.Advance(50 * time.Second)

	v, ok := c.Get("ad")
	require.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestDefaultTTL(t *testing.T) {
	clock := newFakeClock()
	c := cache.New[int](cache.Options{Clock: clock.Now, DefaultTTL: time.Minute})

	c.Set("n", 1, 0)
	assert.Equal(t, time.Minute, c.TTL("n"))

	clock.Advance(time.Minute)
	_, ok := c.Get("n")
	assert.False(t, ok)
}

func TestTTL(t *testing.T) {
	clock := newFakeClock()
	c := cache.New[int](cache.Options{Clock: clock.Now})

	c.Set("forever", 1, 0)
	c.Set("short", 2, 10*time.Second)

	assert.Equal(t, time.Duration(-1), c.TTL("forever"))
	assert.Equal(t, 10*time.Second, c.TTL("short"))
	assert.Equal(t, time.Duration(-2), c.TTL("missing"))

	clock.Advance(10 * time.Second)
	assert.Equal(t, time.Duration(-2), c.TTL("short"))
}

func TestRemove(t *testing.T) {
	c := cache.New[string](cache.Options{})

	c.Set("key1", "value1", time.Minute)
	c.Remove("key1")
	c.Remove("never-set")

	_, ok := c.Get("key1")
	assert.False(t, ok)
}

func TestEvictionOnCapacity(t *testing.T) {
	metrics := &countingMetrics{}
	c := cache.New[string](cache.Options{
		Shards:   1,
		Capacity: 2,
		Eviction: eviction.LRU,
		Metrics:  metrics,
	})

	c.Set("key1", "value1", time.Minute)
	c.Set("key2", "value2", time.Minute)
	_, _ = c.Get("key1")
	c.Set("key3", "value3", time.Minute) // evicts key2

	_, ok := c.Get("key2")
	assert.False(t, ok)
	_, ok = c.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, int64(1), metrics.evictions.Load())
}

func TestFullShardDropsExpiredBeforeEvicting(t *testing.T) {
	clock := newFakeClock()
	metrics := &countingMetrics{}
	c := cache.New[string](cache.Options{
		Shards:   1,
		Capacity: 2,
		Eviction: eviction.FIFO,
		Clock:    clock.Now,
		Metrics:  metrics,
	})

	c.Set("old", "x", time.Second)
	c.Set("live", "y", time.Hour)
	clock.Advance(2 * time.Second)
	c.Set("new", "z", time.Hour)

	_, ok := c.Get("live")
	assert.True(t, ok, "live entry survives because the expired one made room")
	assert.Equal(t, int64(0), metrics.evictions.Load())
	assert.Equal(t, int64(1), metrics.expired.Load())
}

func TestSweep(t *testing.T) {
	clock := newFakeClock()
	c := cache.New[int](cache.Options{Clock: clock.Now, Shards: 4})

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("k%d", i), i, time.Duration(i+1)*time.Second)
	}
	clock.Advance(5 * time.Second)

	assert.Equal(t, 5, c.Sweep())
	assert.Equal(t, 5, c.Len())
}

func TestSweeperRunsInBackground(t *testing.T) {
	c := cache.New[int](cache.Options{})
	c.Set("gone", 1, time.Millisecond)

	c.StartSweeper(context.Background(), 5*time.Millisecond)
	defer c.Close()

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestConcurrentAccess(t *testing.T) {
	c := cache.New[int](cache.Options{Capacity: 64, Eviction: eviction.LRU})

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%100)
				c.Set(key, i, time.Minute)
				_, _ = c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 64)
}
