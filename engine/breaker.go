package engine

import (
	"time"

	"github.com/krisalay/advert-resolver/window"
)

/*
Breaker decides whether the primary provider may be tried.

It keeps no state of its own. The circuit is derived on demand from a shared
failure counter:

	closed  <=>  failures newer than now-Window  <  Threshold

Several breakers (one per resolver) may share one counter; they then all see
the same failure history.
*/
type Breaker struct {
	counter   *window.Counter
	window    time.Duration
	threshold int
	clock     func() time.Time
}

func NewBreaker(counter *window.Counter, window time.Duration, threshold int, clock func() time.Time) *Breaker {
	if clock == nil {
		clock = time.Now
	}
	return &Breaker{
		counter:   counter,
		window:    window,
		threshold: threshold,
		clock:     clock,
	}
}

// Allow prunes the counter down to the window, then reports whether the
// circuit is closed.
func (b *Breaker) Allow() bool {
	since := b.clock().Add(-b.window)
	b.counter.Prune(since, b.counter.MinRetained())
	return b.counter.CountSince(since) < b.threshold
}

// Open reports whether the circuit is currently open, without pruning.
func (b *Breaker) Open() bool {
	return b.counter.CountSince(b.clock().Add(-b.window)) >= b.threshold
}

// RecordFailure registers one primary failure at the current time.
func (b *Breaker) RecordFailure() {
	b.counter.Record(b.clock())
}

// Failures returns how many failures fall inside the current window.
func (b *Breaker) Failures() int {
	return b.counter.CountSince(b.clock().Add(-b.window))
}

// Reset forgets every recorded failure, closing the circuit.
func (b *Breaker) Reset() {
	b.counter.Clear()
}
