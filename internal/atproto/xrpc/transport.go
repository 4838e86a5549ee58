// Package xrpc implements the wire side of AT Protocol XRPC calls: a transport
// adapter that turns an abstract call into one HTTP exchange with
// content-type driven encoding, and a small client that builds XRPC calls on
// top of any Transport.
package xrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	mimeJSON     = "application/json"
	mimeTextType = "text/"
)

// Call describes one abstract request. The caller owns it; transports never
// retain it after Execute returns.
type Call struct {
	URI     string
	Method  string
	Headers Headers
	// Body is either a structured value, serialized when the request
	// content type is JSON, or a raw payload ([]byte, string, io.Reader).
	Body any
}

// Result is the decoded response of a call.
type Result struct {
	Headers Headers
	// Body is the parsed JSON value for JSON responses, a string for text/*
	// responses, and nil when the response carried no content type.
	Body   any
	Status int
}

// Transport executes a single call.
type Transport func(ctx context.Context, call *Call) (*Result, error)

// HTTPTransport executes calls over an http.Client. Retries, redirects,
// timeouts and TLS are left to the client.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport. A nil client uses http.DefaultClient.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{client: client}
}

// Transport returns Execute as a Transport function.
func (t *HTTPTransport) Transport() Transport {
	return t.Execute
}

// Execute performs exactly one HTTP exchange for the call.
func (t *HTTPTransport) Execute(ctx context.Context, call *Call) (*Result, error) {
	body, err := encodeBody(call.Headers, call.Body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, call.URI, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for _, hdr := range call.Headers {
		req.Header.Set(hdr.Name, hdr.Value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransportFailure, call.Method, call.URI, err)
	}
	defer func() { _ = resp.Body.Close() }()

	headers := headersFromHTTP(resp.Header)
	decoded, err := decodeBody(headers, resp.Body)
	if err != nil {
		return nil, err
	}

	return &Result{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    decoded,
	}, nil
}

// isJSON reports whether a content type is the JSON media type.
func isJSON(contentType string) bool {
	return strings.HasPrefix(contentType, mimeJSON)
}

// encodeBody serializes structured bodies for JSON requests and passes every
// other body through untouched.
func encodeBody(headers Headers, body any) (io.Reader, error) {
	if contentType, ok := headers.ContentType(); ok && isJSON(contentType) {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode json body: %w", err)
		}
		return bytes.NewReader(data), nil
	}

	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	case io.Reader:
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnencodableBody, body)
	}
}

// decodeBody decodes a response payload according to its content type.
func decodeBody(headers Headers, r io.Reader) (any, error) {
	contentType, ok := headers.ContentType()
	if !ok {
		return nil, nil
	}

	switch {
	case isJSON(contentType):
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: reading response: %w", ErrTransportFailure, err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, nil
		}
		var value any
		if err := json.Unmarshal(data, &value); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		return value, nil
	case strings.HasPrefix(contentType, mimeTextType):
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: reading response: %w", ErrTransportFailure, err)
		}
		return string(data), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, contentType)
	}
}
