package types

import (
	"context"
	"errors"
)

// ErrNotFound is the typed "absent" result. Providers return it when they have
// no advertisement for an ID, and the resolver returns it when every source
// came back empty.
var ErrNotFound = errors.New("advertisement not found")

/*
Provider is the contract between the resolver and a remote data source.

The resolver talks to two of them:
 1. Primary: consulted first, retried, and skipped while the circuit is open.
 2. Backup: consulted once when the primary path was skipped or exhausted.

Fetch returns either a non-nil advertisement and a nil error, or an error.
A nil advertisement with a nil error is treated by the resolver exactly like an
error from the primary provider, and like ErrNotFound from the backup.
*/
type Provider interface {
	Fetch(ctx context.Context, id string) (*Advertisement, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context, id string) (*Advertisement, error)

// Fetch calls f(ctx, id).
func (f ProviderFunc) Fetch(ctx context.Context, id string) (*Advertisement, error) {
	return f(ctx, id)
}

// ErrInvalidID is returned for an empty or blank advertisement ID. No
// provider is consulted for it.
var ErrInvalidID = errors.New("advertisement id is required")
