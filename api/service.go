package api

import (
	"context"

	"github.com/krisalay/advert-resolver/types"
)

/*
Service defines the PUBLIC API of the advertisement resolver.
Caching, circuit breaking, retries and provider fallback are all hidden behind
this one call.
*/
type Service interface {

	/*
		GetAdvertisement returns the advertisement identified by id.

		BEHAVIOR:
		---------
		1. A cached, unexpired advertisement is returned immediately.
		2. Otherwise the primary provider is tried (with retries) unless it
		   failed too often within the recent error window.
		3. If the primary path was skipped or exhausted, the backup provider
		   is tried once.
		4. A found advertisement is cached for a fixed TTL.

		ERRORS:
		-------
		- types.ErrNotFound when no source produced the advertisement.
		  This deliberately covers both "no such advertisement" and
		  "every provider failed".
		- types.ErrInvalidID when id is empty or blank. Nothing is looked up.
		- the context error when ctx is cancelled mid-resolution. Only the
		  caller whose ctx ended sees it; concurrent callers for the same
		  id keep waiting for the shared result.
	*/
	GetAdvertisement(ctx context.Context, id string) (*types.Advertisement, error)
}
