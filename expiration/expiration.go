// This file defines how cache entries expire over time.

package expiration

import "time"

/*
Strategy is the interface that all expiration rules must follow. Instead of
hard-coding expiration logic into the cache, we define a strategy so the rule
can be swapped without touching storage.
*/
type Strategy interface {

	// ExpireAt returns the absolute expiry for a value written at now with the
	// requested ttl. A zero time means the value never expires.
	ExpireAt(now time.Time, ttl time.Duration) time.Time

	// IsExpired reports whether a value with the given expiry is hidden at now.
	IsExpired(expireAt, now time.Time) bool
}
