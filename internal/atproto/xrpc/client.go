package xrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

const userAgent = "plover/0.1"

// Client issues XRPC queries and procedures against one host through a
// Transport. Its Get/Post signatures mirror indigo's atclient.APIClient so
// callers can run on either.
type Client struct {
	transport Transport
	host      string
	token     string
}

// NewClient creates a client for host (e.g. "https://pds.example.com").
// A nil transport uses an HTTPTransport over http.DefaultClient.
func NewClient(host string, transport Transport) *Client {
	if transport == nil {
		transport = NewHTTPTransport(nil).Transport()
	}
	return &Client{
		host:      strings.TrimRight(host, "/"),
		transport: transport,
	}
}

// Host returns the host the client talks to.
func (c *Client) Host() string {
	return c.host
}

// SetAuthToken sets the bearer token attached to every call. Empty clears it.
func (c *Client) SetAuthToken(token string) {
	c.token = token
}

// Get executes an XRPC query and decodes the JSON result into out.
func (c *Client) Get(ctx context.Context, endpoint syntax.NSID, params map[string]any, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, params, nil, out)
}

// Post executes an XRPC procedure with a JSON body and decodes the JSON
// result into out. out may be nil when the procedure returns nothing.
func (c *Client) Post(ctx context.Context, endpoint syntax.NSID, body any, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, nil, body, out)
}

func (c *Client) do(ctx context.Context, method string, endpoint syntax.NSID, params map[string]any, body any, out any) error {
	call := &Call{
		URI:    c.host + "/xrpc/" + endpoint.String() + encodeParams(params),
		Method: method,
	}
	call.Headers.Set("User-Agent", userAgent)
	call.Headers.Set("Accept", mimeJSON)
	if method == http.MethodPost {
		call.Headers.Set("Content-Type", mimeJSON)
		call.Body = body
	}
	if c.token != "" {
		call.Headers.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.transport(ctx, call)
	if err != nil {
		return err
	}
	if res.Status >= 400 {
		return newError(res)
	}

	return decodeInto(res.Body, out)
}

// encodeParams renders query parameters in key order.
func encodeParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		switch v := params[k].(type) {
		case nil:
		case []string:
			for _, s := range v {
				values.Add(k, s)
			}
		case fmt.Stringer:
			values.Add(k, v.String())
		default:
			values.Add(k, fmt.Sprint(v))
		}
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

// decodeInto copies a decoded JSON value into a typed destination.
func decodeInto(value any, out any) error {
	if out == nil || value == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to re-encode response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}
