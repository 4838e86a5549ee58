package pds

import (
	"context"
	"fmt"

	"Plover/internal/atproto/xrpc"

	"github.com/bluesky-social/indigo/atproto/auth/oauth"
	"github.com/bluesky-social/indigo/atproto/syntax"
)

// NewFromOAuthSession creates a PDS client from an OAuth session.
// This uses DPoP authentication - the correct method for OAuth tokens.
//
// The oauthClient is used to resume the session and get a properly configured
// APIClient that handles DPoP proof generation and nonce rotation automatically.
func NewFromOAuthSession(ctx context.Context, oauthClient *oauth.ClientApp, sessionData *oauth.ClientSessionData) (Client, error) {
	if oauthClient == nil {
		return nil, fmt.Errorf("oauthClient is required")
	}
	if sessionData == nil {
		return nil, fmt.Errorf("sessionData is required")
	}

	sess, err := oauthClient.ResumeSession(ctx, sessionData.AccountDID, sessionData.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to resume OAuth session for DID=%s, sessionID=%s: %w",
			sessionData.AccountDID.String(), sessionData.SessionID, err)
	}

	return &client{
		api:  sess.APIClient(),
		did:  sessionData.AccountDID.String(),
		host: sessionData.HostURL,
	}, nil
}

// NewFromTransport creates a PDS client whose calls run through transport
// with Bearer token authentication. A nil transport uses the default
// HTTP transport.
func NewFromTransport(host, did, accessToken string, transport xrpc.Transport) (Client, error) {
	if host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if did == "" {
		return nil, fmt.Errorf("did is required")
	}
	if accessToken == "" {
		return nil, fmt.Errorf("accessToken is required")
	}

	api := xrpc.NewClient(host, transport)
	api.SetAuthToken(accessToken)

	return &client{
		api:  api,
		did:  did,
		host: host,
	}, nil
}

// NewFromAccessToken creates a PDS client from an existing access token.
// This is useful when you already have a valid Bearer token (e.g., from createSession)
// and don't want to re-authenticate.
//
// WARNING: This creates a client with Bearer auth only. Do NOT use this with
// OAuth access tokens - those require DPoP proofs. Use NewFromOAuthSession instead.
func NewFromAccessToken(host, did, accessToken string) (Client, error) {
	return NewFromTransport(host, did, accessToken, nil)
}

// NewFromPasswordAuth creates a PDS client using password authentication.
// It calls com.atproto.server.createSession through transport (nil for the
// default HTTP transport) and keeps the returned access token.
//
// Primarily used for:
// - The CLI
// - Development/debugging tools
// - E2E tests with a local PDS
func NewFromPasswordAuth(ctx context.Context, host, handle, password string, transport xrpc.Transport) (Client, error) {
	if host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if handle == "" {
		return nil, fmt.Errorf("handle is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	api := xrpc.NewClient(host, transport)

	var session struct {
		AccessJwt string `json:"accessJwt"`
		DID       string `json:"did"`
	}
	err := api.Post(ctx, syntax.NSID("com.atproto.server.createSession"), map[string]any{
		"identifier": handle,
		"password":   password,
	}, &session)
	if err != nil {
		return nil, fmt.Errorf("failed to login with password: %w", wrapAPIError(err, "createSession"))
	}
	if session.AccessJwt == "" || session.DID == "" {
		return nil, fmt.Errorf("failed to login with password: createSession returned no session")
	}

	api.SetAuthToken(session.AccessJwt)

	return &client{
		api:  api,
		did:  session.DID,
		host: host,
	}, nil
}
