package eviction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/krisalay/advert-resolver/eviction"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	p := eviction.NewEvictionPolicy(eviction.LRU)
	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")
	p.OnGet("a")

	assert.Equal(t, "b", p.Evict())
	assert.Equal(t, "c", p.Evict())
	assert.Equal(t, "a", p.Evict())
	assert.Equal(t, "", p.Evict())
}

func TestLRUOverwriteCountsAsUse(t *testing.T) {
	p := eviction.NewEvictionPolicy(eviction.LRU)
	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("a")

	assert.Equal(t, "b", p.Evict())
}

func TestFIFOIgnoresReadsAndOverwrites(t *testing.T) {
	p := eviction.NewEvictionPolicy(eviction.FIFO)
	p.OnPut("a")
	p.OnPut("b")
	p.OnGet("a")
	p.OnPut("a")

	assert.Equal(t, "a", p.Evict())
	assert.Equal(t, "b", p.Evict())
}

func TestRemoveForgetsKey(t *testing.T) {
	for _, pt := range []eviction.PolicyType{eviction.LRU, eviction.FIFO} {
		t.Run(string(pt), func(t *testing.T) {
			p := eviction.NewEvictionPolicy(pt)
			p.OnPut("a")
			p.OnPut("b")
			p.Remove("a")
			p.Remove("missing")

			assert.Equal(t, "b", p.Evict())
			assert.Equal(t, "", p.Evict())
		})
	}
}

func TestPolicyTypeValid(t *testing.T) {
	assert.True(t, eviction.None.Valid())
	assert.True(t, eviction.LRU.Valid())
	assert.True(t, eviction.FIFO.Valid())
	assert.False(t, eviction.PolicyType("LFU").Valid())
	assert.Panics(t, func() { eviction.NewEvictionPolicy("LFU") })
}
