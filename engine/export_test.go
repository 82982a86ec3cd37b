package engine

import "github.com/cenkalti/backoff/v4"

// SetTimer swaps the backoff timer so tests can observe waits.
func (e *Engine) SetTimer(t backoff.Timer) {
	e.timer = t
}
