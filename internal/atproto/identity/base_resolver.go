package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	indigoIdentity "github.com/bluesky-social/indigo/atproto/identity"
	"github.com/bluesky-social/indigo/atproto/syntax"
)

// directory is the part of indigo's identity.Directory the resolver uses.
type directory interface {
	Lookup(ctx context.Context, id syntax.AtIdentifier) (*indigoIdentity.Identity, error)
	LookupDID(ctx context.Context, did syntax.DID) (*indigoIdentity.Identity, error)
}

// baseResolver implements Resolver using Indigo's identity resolution
type baseResolver struct {
	directory directory
	now       func() time.Time
}

func newBaseResolver(dir directory) *baseResolver {
	return &baseResolver{
		directory: dir,
		now:       time.Now,
	}
}

// Resolve resolves a handle or DID to complete identity information
func (r *baseResolver) Resolve(ctx context.Context, identifier string) (*Identity, error) {
	atID, err := parseIdentifier(identifier)
	if err != nil {
		return nil, err
	}

	ident, err := r.directory.Lookup(ctx, *atID)
	if err != nil {
		return nil, classifyLookupError(identifier, err)
	}

	return r.toIdentity(ident), nil
}

// ResolveHandle resolves a handle to its DID and PDS URL
func (r *baseResolver) ResolveHandle(ctx context.Context, handle string) (did, pdsURL string, err error) {
	ident, err := r.Resolve(ctx, handle)
	if err != nil {
		return "", "", err
	}
	return ident.DID, ident.PDSURL, nil
}

// ResolveDID retrieves a DID document and extracts the PDS endpoint
func (r *baseResolver) ResolveDID(ctx context.Context, didStr string) (*DIDDocument, error) {
	did, err := syntax.ParseDID(strings.TrimSpace(didStr))
	if err != nil {
		return nil, &ErrInvalidIdentifier{
			Identifier: didStr,
			Reason:     fmt.Sprintf("invalid DID format: %v", err),
		}
	}

	ident, err := r.directory.LookupDID(ctx, did)
	if err != nil {
		return nil, classifyLookupError(didStr, err)
	}

	return documentFor(r.toIdentity(ident)), nil
}

// Purge is a no-op: the base resolver keeps no state
func (r *baseResolver) Purge(ctx context.Context, identifier string) error {
	return nil
}

func (r *baseResolver) toIdentity(ident *indigoIdentity.Identity) *Identity {
	handle := ident.Handle.String()
	if ident.Handle == syntax.HandleInvalid {
		handle = ""
	}
	return &Identity{
		DID:        ident.DID.String(),
		Handle:     handle,
		PDSURL:     ident.PDSEndpoint(),
		ResolvedAt: r.now().UTC(),
		Method:     MethodDirectory,
	}
}

// parseIdentifier accepts a DID or a handle, with or without a leading "@".
func parseIdentifier(identifier string) (*syntax.AtIdentifier, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(identifier), "@")
	if trimmed == "" {
		return nil, &ErrInvalidIdentifier{
			Identifier: identifier,
			Reason:     "identifier cannot be empty",
		}
	}

	atID, err := syntax.ParseAtIdentifier(trimmed)
	if err != nil {
		return nil, &ErrInvalidIdentifier{
			Identifier: identifier,
			Reason:     fmt.Sprintf("invalid identifier format: %v", err),
		}
	}
	return atID, nil
}

func classifyLookupError(identifier string, err error) error {
	if errors.Is(err, indigoIdentity.ErrHandleNotFound) || errors.Is(err, indigoIdentity.ErrDIDNotFound) {
		return &ErrNotFound{Identifier: identifier, Cause: err}
	}

	errStr := err.Error()
	if strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "NoRecordsFound") ||
		strings.Contains(errStr, "404") {
		return &ErrNotFound{Identifier: identifier, Cause: err}
	}

	return &ErrResolutionFailed{Identifier: identifier, Cause: err}
}

func documentFor(ident *Identity) *DIDDocument {
	doc := &DIDDocument{
		DID:     ident.DID,
		Service: []Service{},
	}
	if ident.PDSURL != "" {
		doc.Service = append(doc.Service, Service{
			ID:              "#atproto_pds",
			Type:            "AtprotoPersonalDataServer",
			ServiceEndpoint: ident.PDSURL,
		})
	}
	return doc
}
