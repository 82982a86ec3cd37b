package shard_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/advert-resolver/shard"
	"github.com/krisalay/advert-resolver/types"
)

func TestCOWStorePutGetDelete(t *testing.T) {
	s := shard.NewCOWStore[string]()
	s.Put("a", &types.CacheEntry[string]{Key: "a", Value: "alpha"})
	s.Put("b", &types.CacheEntry[string]{Key: "b", Value: "beta"})

	ent, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", ent.Value)
	assert.Equal(t, 2, s.Size())

	s.Delete("a")
	s.Delete("missing")
	_, ok = s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Size())
}

func TestCOWStoreDeleteFunc(t *testing.T) {
	now := time.Now()
	s := shard.NewCOWStore[int]()
	s.Put("old", &types.CacheEntry[int]{Key: "old", ExpireAt: now.Add(-time.Second)})
	s.Put("new", &types.CacheEntry[int]{Key: "new", ExpireAt: now.Add(time.Hour)})

	removed := s.DeleteFunc(func(e *types.CacheEntry[int]) bool {
		return e.ExpireAt.Before(now)
	})
	assert.Equal(t, []string{"old"}, removed)
	assert.Equal(t, 1, s.Size())
}

func TestFNVIsStableAndInRange(t *testing.T) {
	for _, key := range []string{"", "a", "advert:42", "advert:43"} {
		idx := shard.FNV(key, 7)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 7)
		assert.Equal(t, idx, shard.FNV(key, 7))
	}
}
