package types

// This file defines how the resolver reports what it is doing.

/*
Metrics is the set of events the resolver and its cache emit.
Each method represents one event in the resolution lifecycle.
*/
type Metrics interface {

	// Hit is called when a resolution is answered from the cache.
	Hit()

	// Miss is called when the cache has nothing usable and the providers are consulted.
	Miss()

	// Eviction is called when the cache drops an entry to stay within capacity.
	Eviction()

	// Expire is called when the cache drops an entry because its TTL passed.
	Expire()

	// PrimaryFailure is called once per failed attempt against the primary provider.
	PrimaryFailure()

	// CircuitOpen is called when the primary provider is skipped because
	// too many failures were recorded inside the error window.
	CircuitOpen()

	// BackupUsed is called when the backup provider produced the result.
	BackupUsed()

	// NotFound is called when neither provider produced a result.
	NotFound()
}

/*
NoopMetrics ignores every event.

Callers that do not care about metrics get a working resolver without nil
checks sprinkled through the hot path.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit()            {}
func (NoopMetrics) Miss()           {}
func (NoopMetrics) Eviction()       {}
func (NoopMetrics) Expire()         {}
func (NoopMetrics) PrimaryFailure() {}
func (NoopMetrics) CircuitOpen()    {}
func (NoopMetrics) BackupUsed()     {}
func (NoopMetrics) NotFound()       {}
