package identity

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// memoryCache implements IdentityCache with an expiring in-process LRU
type memoryCache struct {
	entries *expirable.LRU[string, Identity]
}

// NewMemoryCache creates an identity cache holding up to size keys for ttl.
// Each identity takes two keys (handle and DID).
func NewMemoryCache(size int, ttl time.Duration) IdentityCache {
	return &memoryCache{
		entries: expirable.NewLRU[string, Identity](size, nil, ttl),
	}
}

// Get retrieves a cached identity by handle or DID
func (c *memoryCache) Get(ctx context.Context, identifier string) (*Identity, error) {
	key := normalizeIdentifier(identifier)
	ident, ok := c.entries.Get(key)
	if !ok {
		return nil, &ErrCacheMiss{Identifier: key}
	}
	ident.Method = MethodCache
	return &ident, nil
}

// Set caches an identity bidirectionally (by handle and by DID)
func (c *memoryCache) Set(ctx context.Context, i *Identity) error {
	if i.Handle != "" {
		c.entries.Add(normalizeIdentifier(i.Handle), *i)
	}
	c.entries.Add(normalizeIdentifier(i.DID), *i)
	return nil
}

// Delete removes a cached identity by identifier
func (c *memoryCache) Delete(ctx context.Context, identifier string) error {
	c.entries.Remove(normalizeIdentifier(identifier))
	return nil
}

// Purge removes the entry for identifier along with its handle/DID counterpart
func (c *memoryCache) Purge(ctx context.Context, identifier string) error {
	key := normalizeIdentifier(identifier)
	if ident, ok := c.entries.Peek(key); ok {
		c.entries.Remove(normalizeIdentifier(ident.DID))
		if ident.Handle != "" {
			c.entries.Remove(normalizeIdentifier(ident.Handle))
		}
	}
	c.entries.Remove(key)
	return nil
}

// normalizeIdentifier lowercases handles and strips a leading "@".
// DIDs are case-sensitive and kept as-is.
func normalizeIdentifier(identifier string) string {
	identifier = strings.TrimPrefix(strings.TrimSpace(identifier), "@")
	if strings.HasPrefix(identifier, "did:") {
		return identifier
	}
	return strings.ToLower(identifier)
}
