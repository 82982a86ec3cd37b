// Package window implements a sliding-window event counter.
package window

import (
	"slices"
	"sort"
	"sync"
	"time"
)

/*
Counter records discrete events as timestamps and answers
"how many happened after T".

The queue never grows without bound: Prune drops old events from the oldest
end, but it always keeps at least minRetained of the most recent events,
whatever their age.

Timestamps are kept in non-decreasing order. Prune relies on this to work
from the head only, and CountSince uses it to binary search.

All methods are safe for concurrent use. One mutex guards each counter, so
Record, Prune, CountSince and Clear are mutually exclusive on an instance.
*/
type Counter struct {
	mu          sync.Mutex
	events      []time.Time
	minRetained int
}

// New returns an empty counter whose default retention floor is minRetained.
// Negative values are treated as zero.
func New(minRetained int) *Counter {
	return &Counter{minRetained: max(minRetained, 0)}
}

// MinRetained returns the retention floor the counter was built with.
func (c *Counter) MinRetained() int {
	return c.minRetained
}

/*
Record appends one event.

Events nearly always arrive in time order. When one does not (two goroutines
read the clock, then race for the lock), it is inserted at its sorted
position, scanning back from the tail.
*/
func (c *Counter) Record(ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := len(c.events)
	for i > 0 && c.events[i-1].After(ts) {
		i--
	}
	c.events = slices.Insert(c.events, i, ts)
}

/*
Prune removes events from the head while both hold:
  - more than minRetained events remain
  - the head event is older than threshold

It stops at the first event that fails either check and returns how many
events were removed.
*/
func (c *Counter) Prune(threshold time.Time, minRetained int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for len(c.events)-n > minRetained && c.events[n].Before(threshold) {
		n++
	}
	if n > 0 {
		c.events = slices.Delete(c.events, 0, n)
	}
	return n
}

// CountSince returns how many events are strictly newer than threshold.
// It does not mutate the counter.
func (c *Counter) CountSince(threshold time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := sort.Search(len(c.events), func(i int) bool {
		return c.events[i].After(threshold)
	})
	return len(c.events) - idx
}

// Clear removes every recorded event.
func (c *Counter) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// Len returns the number of retained events.
func (c *Counter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
