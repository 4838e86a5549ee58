// Package pds provides an abstraction layer for record operations against AT Protocol PDSs.
// The same Client runs over Plover's own XRPC transport (bearer auth) or over
// indigo's atclient.APIClient (OAuth with DPoP), so callers never see which is in use.
package pds

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Plover/internal/atproto/xrpc"

	atclient "github.com/bluesky-social/indigo/atproto/client"
	"github.com/bluesky-social/indigo/atproto/syntax"
)

// Client provides access to AT Protocol repositories on a PDS.
// Every method names the repository explicitly: writes go to the
// authenticated account, reads may target any account hosted there.
type Client interface {
	// CreateRecord creates a record in repo.
	// If rkey is empty, the PDS generates a TID.
	// Returns the record URI and CID.
	CreateRecord(ctx context.Context, repo, collection, rkey string, record any) (uri string, cid string, err error)

	// DeleteRecord deletes a record from repo.
	DeleteRecord(ctx context.Context, repo, collection, rkey string) error

	// ListRecords lists records in a collection with pagination.
	// Returns records, next cursor (empty if no more), and error.
	ListRecords(ctx context.Context, repo, collection string, limit int, cursor string) (*ListRecordsResponse, error)

	// GetRecord retrieves a single record. A missing record is ErrNotFound.
	GetRecord(ctx context.Context, repo, collection, rkey string) (*RecordResponse, error)

	// PutRecord creates or updates a record at rkey.
	// If swapRecord CID is provided, the operation fails if the current CID doesn't match.
	PutRecord(ctx context.Context, repo, collection, rkey string, record any, swapRecord string) (uri string, cid string, err error)

	// DID returns the authenticated account's DID.
	DID() string

	// HostURL returns the PDS host URL.
	HostURL() string
}

// ListRecordsResponse contains the result of a ListRecords call.
type ListRecordsResponse struct {
	Cursor  string
	Records []RecordEntry
}

// RecordEntry represents a single record from a list operation.
type RecordEntry struct {
	Value map[string]any
	URI   string
	CID   string
}

// RecordResponse contains a single record retrieved from the PDS.
type RecordResponse struct {
	Value map[string]any
	URI   string
	CID   string
}

// apiClient is the call surface shared by xrpc.Client and atclient.APIClient.
type apiClient interface {
	Get(ctx context.Context, endpoint syntax.NSID, params map[string]any, out any) error
	Post(ctx context.Context, endpoint syntax.NSID, body any, out any) error
}

var (
	_ apiClient = (*xrpc.Client)(nil)
	_ apiClient = (*atclient.APIClient)(nil)
)

// client implements Client over an apiClient.
type client struct {
	api  apiClient
	did  string
	host string
}

// Ensure client implements Client interface.
var _ Client = (*client)(nil)

// errorNameNotFound is the XRPC error name a PDS returns for missing records
// (with HTTP 400, not 404).
const errorNameNotFound = "RecordNotFound"

// wrapAPIError inspects an error from the API client and wraps it with our typed errors.
// This allows callers to use errors.Is() for reliable error detection.
func wrapAPIError(err error, operation string) error {
	if err == nil {
		return nil
	}

	status, name, message := 0, "", ""
	var xerr *xrpc.Error
	var apiErr *atclient.APIError
	switch {
	case errors.As(err, &xerr):
		status, name, message = xerr.StatusCode, xerr.Name, xerr.Message
	case errors.As(err, &apiErr):
		status, message = apiErr.StatusCode, apiErr.Message
	default:
		return fmt.Errorf("%s failed: %w", operation, err)
	}

	if name == errorNameNotFound || strings.Contains(message, "Could not locate record") {
		return fmt.Errorf("%s: %w: %s", operation, ErrNotFound, message)
	}

	switch status {
	case 400:
		return fmt.Errorf("%s: %w: %s", operation, ErrBadRequest, message)
	case 401:
		return fmt.Errorf("%s: %w: %s", operation, ErrUnauthorized, message)
	case 403:
		return fmt.Errorf("%s: %w: %s", operation, ErrForbidden, message)
	case 404:
		return fmt.Errorf("%s: %w: %s", operation, ErrNotFound, message)
	case 409:
		return fmt.Errorf("%s: %w: %s", operation, ErrConflict, message)
	case 413:
		return fmt.Errorf("%s: %w: %s", operation, ErrPayloadTooLarge, message)
	case 429:
		return fmt.Errorf("%s: %w: %s", operation, ErrRateLimited, message)
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}

// DID returns the authenticated account's DID.
func (c *client) DID() string {
	return c.did
}

// HostURL returns the PDS host URL.
func (c *client) HostURL() string {
	return c.host
}

// CreateRecord creates a record per com.atproto.repo.createRecord.
func (c *client) CreateRecord(ctx context.Context, repo, collection, rkey string, record any) (string, string, error) {
	payload := map[string]any{
		"repo":       repo,
		"collection": collection,
		"record":     record,
	}

	// Only include rkey if provided (PDS will generate TID if not)
	if rkey != "" {
		payload["rkey"] = rkey
	}

	var result struct {
		URI string `json:"uri"`
		CID string `json:"cid"`
	}

	err := c.api.Post(ctx, syntax.NSID("com.atproto.repo.createRecord"), payload, &result)
	if err != nil {
		return "", "", wrapAPIError(err, "createRecord")
	}

	return result.URI, result.CID, nil
}

// DeleteRecord deletes a record per com.atproto.repo.deleteRecord.
func (c *client) DeleteRecord(ctx context.Context, repo, collection, rkey string) error {
	payload := map[string]any{
		"repo":       repo,
		"collection": collection,
		"rkey":       rkey,
	}

	// deleteRecord returns an empty (or commit-only) response on success
	err := c.api.Post(ctx, syntax.NSID("com.atproto.repo.deleteRecord"), payload, nil)
	if err != nil {
		return wrapAPIError(err, "deleteRecord")
	}

	return nil
}

// ListRecords lists records per com.atproto.repo.listRecords.
func (c *client) ListRecords(ctx context.Context, repo, collection string, limit int, cursor string) (*ListRecordsResponse, error) {
	params := map[string]any{
		"repo":       repo,
		"collection": collection,
	}
	if limit > 0 {
		params["limit"] = limit
	}
	if cursor != "" {
		params["cursor"] = cursor
	}

	var result struct {
		Cursor  string `json:"cursor"`
		Records []struct {
			Value map[string]any `json:"value"`
			URI   string         `json:"uri"`
			CID   string         `json:"cid"`
		} `json:"records"`
	}

	err := c.api.Get(ctx, syntax.NSID("com.atproto.repo.listRecords"), params, &result)
	if err != nil {
		return nil, wrapAPIError(err, "listRecords")
	}

	response := &ListRecordsResponse{
		Cursor:  result.Cursor,
		Records: make([]RecordEntry, len(result.Records)),
	}
	for i, rec := range result.Records {
		response.Records[i] = RecordEntry{
			URI:   rec.URI,
			CID:   rec.CID,
			Value: rec.Value,
		}
	}

	return response, nil
}

// GetRecord retrieves a record per com.atproto.repo.getRecord.
func (c *client) GetRecord(ctx context.Context, repo, collection, rkey string) (*RecordResponse, error) {
	params := map[string]any{
		"repo":       repo,
		"collection": collection,
		"rkey":       rkey,
	}

	var result struct {
		Value map[string]any `json:"value"`
		URI   string         `json:"uri"`
		CID   string         `json:"cid"`
	}

	err := c.api.Get(ctx, syntax.NSID("com.atproto.repo.getRecord"), params, &result)
	if err != nil {
		return nil, wrapAPIError(err, "getRecord")
	}

	return &RecordResponse{
		URI:   result.URI,
		CID:   result.CID,
		Value: result.Value,
	}, nil
}

// PutRecord writes a record per com.atproto.repo.putRecord.
func (c *client) PutRecord(ctx context.Context, repo, collection, rkey string, record any, swapRecord string) (string, string, error) {
	payload := map[string]any{
		"repo":       repo,
		"collection": collection,
		"rkey":       rkey,
		"record":     record,
	}

	// Optional: optimistic locking via CID swap check
	if swapRecord != "" {
		payload["swapRecord"] = swapRecord
	}

	var result struct {
		URI string `json:"uri"`
		CID string `json:"cid"`
	}

	err := c.api.Post(ctx, syntax.NSID("com.atproto.repo.putRecord"), payload, &result)
	if err != nil {
		return "", "", wrapAPIError(err, "putRecord")
	}

	return result.URI, result.CID, nil
}
