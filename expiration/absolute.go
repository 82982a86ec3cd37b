package expiration

import "time"

/*
Absolute implements fixed, write-time expiration.

A value written at T with ttl D is visible strictly before T+D and hidden from
T+D onwards. Reads never push the deadline forward.
*/
type Absolute struct {

	// DefaultTTL is applied when a write does not carry its own ttl.
	// Zero means such writes never expire.
	DefaultTTL time.Duration
}

// ExpireAt returns now+ttl, falling back to DefaultTTL when ttl is not positive.
func (a Absolute) ExpireAt(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = a.DefaultTTL
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// IsExpired is true once now has reached expireAt.
func (a Absolute) IsExpired(expireAt, now time.Time) bool {
	return !expireAt.IsZero() && !now.Before(expireAt)
}
