package identity

import (
	"context"
	"log/slog"
)

// cachingResolver wraps a base resolver with caching
type cachingResolver struct {
	base   Resolver
	cache  IdentityCache
	logger *slog.Logger
}

func newCachingResolver(base Resolver, cache IdentityCache, logger *slog.Logger) Resolver {
	return &cachingResolver{
		base:   base,
		cache:  cache,
		logger: logger,
	}
}

// Resolve checks the cache, then falls back to the base resolver
func (r *cachingResolver) Resolve(ctx context.Context, identifier string) (*Identity, error) {
	if cached, err := r.cache.Get(ctx, identifier); err == nil {
		return cached, nil
	}

	identity, err := r.base.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if cacheErr := r.cache.Set(ctx, identity); cacheErr != nil {
		r.logger.Warn("failed to cache identity",
			"identifier", identifier,
			"error", cacheErr)
	}

	r.logger.Debug("identity resolved",
		"identifier", identifier,
		"did", identity.DID,
		"pds", identity.PDSURL)

	return identity, nil
}

// ResolveHandle resolves a handle to its DID and PDS URL
func (r *cachingResolver) ResolveHandle(ctx context.Context, handle string) (did, pdsURL string, err error) {
	identity, err := r.Resolve(ctx, handle)
	if err != nil {
		return "", "", err
	}
	return identity.DID, identity.PDSURL, nil
}

// ResolveDID serves a DID document from cache when possible
func (r *cachingResolver) ResolveDID(ctx context.Context, did string) (*DIDDocument, error) {
	if cached, err := r.cache.Get(ctx, did); err == nil {
		return documentFor(cached), nil
	}
	return r.base.ResolveDID(ctx, did)
}

// Purge removes an identifier from the cache and propagates to base
func (r *cachingResolver) Purge(ctx context.Context, identifier string) error {
	if err := r.cache.Purge(ctx, identifier); err != nil {
		return err
	}
	return r.base.Purge(ctx, identifier)
}
