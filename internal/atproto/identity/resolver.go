package identity

import "context"

// Resolver provides methods for resolving atProto identities
type Resolver interface {
	// Resolve resolves a handle or DID to complete identity information
	// The identifier can be either:
	// - A handle (e.g., "alice.bsky.social" or "@alice.bsky.social")
	// - A DID (e.g., "did:plc:abc123")
	Resolve(ctx context.Context, identifier string) (*Identity, error)

	// ResolveHandle resolves a handle to its DID and PDS URL
	ResolveHandle(ctx context.Context, handle string) (did, pdsURL string, err error)

	// ResolveDID retrieves a DID document and extracts the PDS endpoint
	ResolveDID(ctx context.Context, did string) (*DIDDocument, error)

	// Purge drops any cached state for an identifier (handle or DID)
	Purge(ctx context.Context, identifier string) error
}

// IdentityCache provides caching for resolved identities
type IdentityCache interface {
	// Get retrieves a cached identity by handle or DID.
	// A miss is *ErrCacheMiss.
	Get(ctx context.Context, identifier string) (*Identity, error)

	// Set caches an identity under both its handle and its DID
	Set(ctx context.Context, identity *Identity) error

	// Delete removes a single cache key
	Delete(ctx context.Context, identifier string) error

	// Purge removes all cache entries associated with an identifier
	// (both handle and DID if applicable)
	Purge(ctx context.Context, identifier string) error
}
