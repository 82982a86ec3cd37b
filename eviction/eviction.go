package eviction

import "fmt"

/*
This file defines how the result cache decides what to drop when a shard runs
out of room. Eviction only matters when the cache is built with a capacity;
TTL expiry is handled separately and always applies.
*/

/*
Policy is the interface that all eviction strategies must follow.

Policies are not safe for concurrent use. The owning shard calls them while
holding its lock.
*/
type Policy interface {

	// OnGet is called whenever a key is served from the cache.
	// LRU moves the key to the front; FIFO ignores reads.
	OnGet(string)

	// OnPut is called whenever a key is written to the cache.
	OnPut(string)

	// Remove is called when a key leaves the cache for any reason other than
	// Evict, so the policy can drop its bookkeeping.
	Remove(string)

	// Evict picks the key to drop and forgets it. It returns "" when nothing
	// is tracked.
	Evict() string
}

// PolicyType is a simple identifier for supported eviction strategies.
type PolicyType string

const (
	// None keeps no bookkeeping; the cache is bounded by TTL only.
	None PolicyType = ""

	// LRU (Least Recently Used): evicts the key that has not been read or
	// written for the longest time.
	LRU PolicyType = "LRU"

	// FIFO (First In First Out): evicts the oldest inserted key, regardless of access.
	FIFO PolicyType = "FIFO"
)

// Valid reports whether t names a supported policy.
func (t PolicyType) Valid() bool {
	switch t {
	case None, LRU, FIFO:
		return true
	}
	return false
}

// NewEvictionPolicy is a small factory function.
// Given a PolicyType, it creates the correct eviction policy.
func NewEvictionPolicy(t PolicyType) Policy {
	switch t {
	case None:
		return noop{}
	case LRU:
		return newLRU()
	case FIFO:
		return newFIFO()
	default:
		panic(fmt.Sprintf("unknown eviction policy %q", t))
	}
}

type noop struct{}

func (noop) OnGet(string)  {}
func (noop) OnPut(string)  {}
func (noop) Remove(string) {}
func (noop) Evict() string { return "" }
