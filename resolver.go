package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	slogcontext "github.com/veqryn/slog-context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/krisalay/advert-resolver/api"
	"github.com/krisalay/advert-resolver/cache"
	"github.com/krisalay/advert-resolver/engine"
	"github.com/krisalay/advert-resolver/types"
	"github.com/krisalay/advert-resolver/window"
)

const (
	tracerName = "github.com/krisalay/advert-resolver"
	keyPrefix  = "advert:"
)

var (
	// ErrNotFound is returned when neither the cache nor any provider had the
	// advertisement. It does not tell "absent" apart from "providers down".
	ErrNotFound = types.ErrNotFound
	// ErrInvalidID is returned for an empty or blank identifier.
	ErrInvalidID = types.ErrInvalidID
)

var _ api.Service = (*Resolver)(nil)

// Config holds the resolution policy. DefaultConfig returns the reference values.
type Config struct {
	RetryCount     int
	CacheTTL       time.Duration
	ErrorWindow    time.Duration
	ErrorThreshold int

	// MinRetainedErrors is the retention floor of the error counter. A counter
	// passed with WithErrorCounter must have been built with the same floor.
	MinRetainedErrors int

	RetryBackoff time.Duration

	// Serialize runs every resolution under one resolver-wide lock, cache
	// check included. Off by default: calls are coalesced per ID instead.
	Serialize bool
}

func DefaultConfig() Config {
	return Config{
		RetryCount:        3,
		CacheTTL:          5 * time.Minute,
		ErrorWindow:       time.Hour,
		ErrorThreshold:    10,
		MinRetainedErrors: 20,
		RetryBackoff:      time.Second,
	}
}

func (c Config) validate() error {
	switch {
	case c.RetryCount < 0:
		return fmt.Errorf("retry count must be >= 0, got %d", c.RetryCount)
	case c.CacheTTL <= 0:
		return fmt.Errorf("cache ttl must be positive, got %s", c.CacheTTL)
	case c.ErrorWindow <= 0:
		return fmt.Errorf("error window must be positive, got %s", c.ErrorWindow)
	case c.ErrorThreshold < 1:
		return fmt.Errorf("error threshold must be >= 1, got %d", c.ErrorThreshold)
	case c.MinRetainedErrors < 0:
		return fmt.Errorf("min retained errors must be >= 0, got %d", c.MinRetainedErrors)
	case c.RetryBackoff < 0:
		return fmt.Errorf("retry backoff must be >= 0, got %s", c.RetryBackoff)
	}
	return nil
}

// Option customises a Resolver. Shared collaborators are injected here.
type Option func(*Resolver)

// WithCache makes the resolver use a cache owned by the caller, typically
// shared with other resolvers.
func WithCache(c *cache.ResultCache[*types.Advertisement]) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithErrorCounter makes the resolver record primary failures into a counter
// owned by the caller. Every resolver sharing it sees the same circuit.
func WithErrorCounter(c *window.Counter) Option {
	return func(r *Resolver) { r.counter = c }
}

func WithMetrics(m types.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Resolver) { r.tracer = tp.Tracer(tracerName) }
}

func WithClock(clock func() time.Time) Option {
	return func(r *Resolver) { r.clock = clock }
}

/*
Resolver answers GetAdvertisement calls.

This struct is the orchestrator that connects:
  - the result cache
  - the resolution engine (circuit breaker, primary retries, backup)
  - per-ID call coalescing
  - metrics and tracing
*/
type Resolver struct {
	cache    *cache.ResultCache[*types.Advertisement]
	counter  *window.Counter
	breaker  *engine.Breaker
	engine   *engine.Engine
	cacheTTL time.Duration
	metrics  types.Metrics
	tracer   trace.Tracer
	clock    func() time.Time

	ownsCache bool
	serialize bool
	mu        sync.Mutex

	// sf makes concurrent misses for one ID share a single pipeline run.
	sf singleflight.Group

	// flights holds the context each running pipeline uses, keyed like sf.
	flightMu sync.Mutex
	flights  map[string]*flight
}

// flight is the context of one shared pipeline run. It outlives any single
// caller and is cancelled when the last waiting caller gives up.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// New builds a resolver over the primary and backup providers. Without
// WithCache and WithErrorCounter it creates private instances of both.
func New(primary, backup types.Provider, cfg Config, opts ...Option) (*Resolver, error) {
	if primary == nil || backup == nil {
		return nil, errors.New("primary and backup providers are required")
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid resolver config: %w", err)
	}

	r := &Resolver{
		cacheTTL:  cfg.CacheTTL,
		serialize: cfg.Serialize,
		flights:   make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.metrics == nil {
		r.metrics = types.NoopMetrics{}
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	if r.cache == nil {
		r.cache = cache.New[*types.Advertisement](cache.Options{
			Metrics: r.metrics,
			Clock:   r.clock,
		})
		r.ownsCache = true
	}
	if r.counter == nil {
		r.counter = window.New(cfg.MinRetainedErrors)
	} else if got := r.counter.MinRetained(); got != cfg.MinRetainedErrors {
		return nil, fmt.Errorf("error counter retains %d events, config asks for %d", got, cfg.MinRetainedErrors)
	}

	r.breaker = engine.NewBreaker(r.counter, cfg.ErrorWindow, cfg.ErrorThreshold, r.clock)
	r.engine = engine.New(primary, backup, r.breaker, engine.Config{
		RetryCount:   cfg.RetryCount,
		RetryBackoff: cfg.RetryBackoff,
	}, r.metrics)

	return r, nil
}

func cacheKey(id string) string {
	return keyPrefix + id
}

/*
Resolve returns the advertisement for id.

 1. A live cache entry is returned at once; no provider is consulted.
 2. Otherwise the engine runs: circuit check, primary retries, backup.
 3. A found advertisement is cached for the configured TTL.

Concurrent misses for the same id share one engine run. Misses for different
ids proceed in parallel unless the resolver was built with Serialize.

It returns ErrNotFound when nothing was found, ErrInvalidID for a blank id,
and the context error when ctx ends first. Another caller's cancellation
never reaches this one.
*/
func (r *Resolver) Resolve(ctx context.Context, id string) (*types.Advertisement, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidID
	}

	ctx, span := r.tracer.Start(ctx, "advert.resolve",
		trace.WithAttributes(attribute.String("advert.id", id)))
	defer span.End()

	if r.serialize {
		r.mu.Lock()
		defer r.mu.Unlock()
	}

	key := cacheKey(id)
	if ad, ok := r.cache.Get(key); ok {
		r.metrics.Hit()
		span.SetAttributes(attribute.String("advert.source", engine.SourceCache.String()))
		return ad, nil
	}
	r.metrics.Miss()

	logger := slogcontext.FromCtx(ctx)
	logger.Debug("advertisement cache miss", "id", id)

	res, err, shared := r.coalesce(ctx, key, id)

	span.SetAttributes(
		attribute.String("advert.source", res.Source.String()),
		attribute.Int("advert.primary_attempts", res.Attempts),
		attribute.Bool("advert.circuit_open", res.CircuitOpen),
		attribute.Bool("advert.shared", shared),
	)

	switch {
	case errors.Is(err, ErrNotFound):
		logger.Info("advertisement not found", "id", id, "circuit_open", res.CircuitOpen)
		return nil, ErrNotFound
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("resolve advertisement %q: %w", id, err)
	}
	return res.Ad, nil
}

/*
coalesce runs the engine for id, sharing the run with every concurrent caller
for the same key.

The run does not use any caller's context for cancellation. It keeps the
values of ctx (logger, span) but is only cancelled once every caller waiting
on it has gone. A caller whose own ctx ends gets its context error at once;
the others keep waiting for the result.
*/
func (r *Resolver) coalesce(ctx context.Context, key, id string) (engine.Result, error, bool) {
	f := r.join(ctx, key)
	defer r.leave(key, f)

	for {
		ch := r.sf.DoChan(key, func() (any, error) {
			// a previous flight may have filled the cache after our miss
			if ad, ok := r.cache.Get(key); ok {
				return engine.Result{Ad: ad, Source: engine.SourceCache}, nil
			}
			res, err := r.engine.Resolve(f.ctx, id)
			if err != nil {
				return res, err
			}
			r.cache.Set(key, res.Ad, r.cacheTTL)
			return res, nil
		})

		select {
		case <-ctx.Done():
			return engine.Result{}, ctx.Err(), false
		case out := <-ch:
			// we joined a run its own callers had abandoned
			if errors.Is(out.Err, context.Canceled) && ctx.Err() == nil {
				continue
			}
			res, _ := out.Val.(engine.Result)
			return res, out.Err, out.Shared
		}
	}
}

func (r *Resolver) join(ctx context.Context, key string) *flight {
	r.flightMu.Lock()
	defer r.flightMu.Unlock()

	f, ok := r.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		r.flights[key] = f
	}
	f.waiters++
	return f
}

// leave drops one waiter. The last one out cancels the run and forgets it.
func (r *Resolver) leave(key string, f *flight) {
	r.flightMu.Lock()
	defer r.flightMu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if r.flights[key] == f {
		delete(r.flights, key)
	}
}

// GetAdvertisement is the public entry point; it is Resolve.
func (r *Resolver) GetAdvertisement(ctx context.Context, id string) (*types.Advertisement, error) {
	return r.Resolve(ctx, id)
}

// CircuitOpen reports whether the primary provider is currently being skipped.
func (r *Resolver) CircuitOpen() bool {
	return r.breaker.Open()
}

// ResetCircuit forgets every recorded primary failure. With a shared error
// counter this closes the circuit for every resolver using it.
func (r *Resolver) ResetCircuit() {
	r.breaker.Reset()
}

// Invalidate drops the cached advertisement for id, if any.
func (r *Resolver) Invalidate(id string) {
	r.cache.Remove(cacheKey(id))
}

// Close releases the cache when the resolver created it. A cache passed in
// with WithCache is left to its owner.
func (r *Resolver) Close() {
	if r.ownsCache {
		r.cache.Close()
	}
}
