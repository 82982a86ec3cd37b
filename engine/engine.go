package engine

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/krisalay/advert-resolver/types"
)

// errEmptyResult marks a primary call that returned neither a value nor an error.
var errEmptyResult = errors.New("primary provider returned no advertisement")

// Source identifies where a resolution came from.
type Source int

const (
	SourceNone Source = iota
	SourceCache
	SourcePrimary
	SourceBackup
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourcePrimary:
		return "primary"
	case SourceBackup:
		return "backup"
	default:
		return "none"
	}
}

// Result describes one pass through the provider pipeline.
type Result struct {
	Ad     *types.Advertisement
	Source Source

	// Attempts is the number of primary calls made (0 when the circuit was open).
	Attempts int

	// CircuitOpen is set when the primary provider was skipped.
	CircuitOpen bool
}

// Config holds the retry policy. Zero RetryCount means a single attempt.
type Config struct {
	RetryCount   int
	RetryBackoff time.Duration
}

/*
Engine is the policy layer of the resolver. It owns the provider side of a
resolution and nothing else: it does not cache and it does not coordinate
callers.

It decides:
  - whether the primary provider may be tried (Breaker)
  - how often it is retried and how long to wait in between
  - when to fall back to the backup provider
*/
type Engine struct {
	primary types.Provider
	backup  types.Provider
	breaker *Breaker
	metrics types.Metrics
	cfg     Config

	// timer is nil outside tests; each resolution then gets its own realTimer.
	timer backoff.Timer
}

func New(primary, backup types.Provider, breaker *Breaker, cfg Config, metrics types.Metrics) *Engine {
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	return &Engine{
		primary: primary,
		backup:  backup,
		breaker: breaker,
		metrics: metrics,
		cfg:     cfg,
	}
}

/*
Resolve runs the provider pipeline for id:

 1. Ask the breaker. An open circuit skips straight to step 3.
 2. Call the primary up to RetryCount+1 times. Every failure is recorded in
    the breaker's counter, then the fixed backoff elapses. This includes the
    last failure, so the backup is never called right after a failed attempt.
 3. Call the backup once.

It returns types.ErrNotFound when no source produced an advertisement, and
the context error when ctx ends first. Primary failures are never returned.
*/
func (e *Engine) Resolve(ctx context.Context, id string) (Result, error) {
	logger := slogcontext.FromCtx(ctx)
	var res Result

	if e.breaker.Allow() {
		ad, attempts, err := e.tryPrimary(ctx, id)
		res.Attempts = attempts
		if err != nil {
			return res, err
		}
		if ad != nil {
			res.Ad, res.Source = ad, SourcePrimary
			return res, nil
		}
		logger.Info("primary provider exhausted, falling back", "id", id, "attempts", attempts)
	} else {
		res.CircuitOpen = true
		e.metrics.CircuitOpen()
		logger.Info("primary provider skipped, circuit open", "id", id, "failures", e.breaker.Failures())
	}

	ad, err := e.backup.Fetch(ctx, id)
	if err == nil && ad != nil {
		res.Ad, res.Source = ad, SourceBackup
		e.metrics.BackupUsed()
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		logger.Warn("backup provider failed", "id", id, "error", err)
	}

	e.metrics.NotFound()
	return res, types.ErrNotFound
}

// tryPrimary returns the advertisement, or nil once the retries are used up.
// The error is only ever a context error.
func (e *Engine) tryPrimary(ctx context.Context, id string) (*types.Advertisement, int, error) {
	logger := slogcontext.FromCtx(ctx)

	var (
		ad       *types.Advertisement
		attempts int
	)
	op := func() error {
		attempts++
		got, err := e.primary.Fetch(ctx, id)
		if err == nil && got == nil {
			err = errEmptyResult
		}
		if err != nil {
			// an aborted caller says nothing about the provider's health
			if ctxErr := ctx.Err(); ctxErr != nil {
				return backoff.Permanent(ctxErr)
			}
			e.breaker.RecordFailure()
			e.metrics.PrimaryFailure()
			logger.Warn("primary provider failed", "id", id, "attempt", attempts, "error", err)
			return err
		}
		ad = got
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(e.cfg.RetryBackoff), uint64(max(e.cfg.RetryCount, 0))),
		ctx,
	)
	timer := e.timer
	if timer == nil {
		timer = &realTimer{}
	}
	_ = backoff.RetryNotifyWithTimer(op, policy, nil, timer)

	if ad != nil {
		return ad, attempts, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, attempts, ctxErr
	}
	// backoff stops before sleeping once the retries are spent
	if err := wait(ctx, timer, e.cfg.RetryBackoff); err != nil {
		return nil, attempts, err
	}
	return nil, attempts, nil
}

// wait blocks for d on t, or until ctx is done.
func wait(ctx context.Context, t backoff.Timer, d time.Duration) error {
	t.Start(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

// realTimer is a backoff.Timer over time.Timer. It is not shared between
// resolutions.
type realTimer struct {
	t *time.Timer
}

func (r *realTimer) Start(d time.Duration) {
	if r.t == nil {
		r.t = time.NewTimer(d)
		return
	}
	r.t.Reset(d)
}

func (r *realTimer) Stop() {
	if r.t != nil {
		r.t.Stop()
	}
}

func (r *realTimer) C() <-chan time.Time {
	return r.t.C
}
