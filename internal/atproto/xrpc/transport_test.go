package xrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

// captureServer records the last request body and content type, then replies
// with the given content type and payload.
func captureServer(t *testing.T, respType string, respBody []byte) (*httptest.Server, *[]byte) {
	t.Helper()
	var captured []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read request body: %v", err)
		}
		captured = data
		if respType != "" {
			w.Header().Set("Content-Type", respType)
		} else {
			// Suppress net/http content sniffing.
			w.Header()["Content-Type"] = nil
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(respBody)
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

func TestExecute_EncodesRequestBody(t *testing.T) {
	structured := map[string]any{
		"repo":       "did:plc:alice",
		"collection": "app.bsky.feed.like",
		"record":     map[string]any{"createdAt": "2024-01-01T00:00:00Z"},
	}
	wantJSON, err := json.Marshal(structured)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	tests := []struct {
		name     string
		headers  Headers
		body     any
		wantBody []byte
	}{
		{
			name:     "json content type serializes body",
			headers:  Headers{{Name: "Content-Type", Value: "application/json"}},
			body:     structured,
			wantBody: wantJSON,
		},
		{
			name:     "json with charset parameter serializes body",
			headers:  Headers{{Name: "content-type", Value: "application/json; charset=utf-8"}},
			body:     structured,
			wantBody: wantJSON,
		},
		{
			name:     "binary content type passes bytes through",
			headers:  Headers{{Name: "Content-Type", Value: "image/png"}},
			body:     []byte{0x89, 'P', 'N', 'G', 0x00, 0xff},
			wantBody: []byte{0x89, 'P', 'N', 'G', 0x00, 0xff},
		},
		{
			name:     "text content type passes string through",
			headers:  Headers{{Name: "Content-Type", Value: "text/plain"}},
			body:     `{"not":"re-encoded"}`,
			wantBody: []byte(`{"not":"re-encoded"}`),
		},
		{
			name:     "no content type passes reader through",
			body:     strings.NewReader("raw"),
			wantBody: []byte("raw"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, captured := captureServer(t, "", nil)
			tr := NewHTTPTransport(server.Client())

			_, err := tr.Execute(context.Background(), &Call{
				URI:     server.URL,
				Method:  http.MethodPost,
				Headers: tt.headers,
				Body:    tt.body,
			})
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if !bytes.Equal(*captured, tt.wantBody) {
				t.Errorf("outbound body = %q, want %q", *captured, tt.wantBody)
			}
		})
	}
}

func TestExecute_StructuredBodyWithoutJSONType(t *testing.T) {
	tr := NewHTTPTransport(nil)
	_, err := tr.Execute(context.Background(), &Call{
		URI:     "http://127.0.0.1:1",
		Method:  http.MethodPost,
		Headers: Headers{{Name: "Content-Type", Value: "text/plain"}},
		Body:    map[string]any{"a": 1},
	})
	if !errors.Is(err, ErrUnencodableBody) {
		t.Fatalf("error = %v, want ErrUnencodableBody", err)
	}
}

func TestExecute_DecodesResponseBody(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		payload     []byte
		want        any
		wantErr     error
	}{
		{
			name:        "json is parsed",
			contentType: "application/json; charset=utf-8",
			payload:     []byte(`{"uri":"at://did:plc:alice/app.bsky.feed.post/3k","count":2,"tags":["a","b"]}`),
			want: map[string]any{
				"uri":   "at://did:plc:alice/app.bsky.feed.post/3k",
				"count": float64(2),
				"tags":  []any{"a", "b"},
			},
		},
		{
			name:        "empty json payload is absent",
			contentType: "application/json",
			payload:     nil,
			want:        nil,
		},
		{
			name:        "text is returned as string",
			contentType: "text/html",
			payload:     []byte("<p>hi</p>"),
			want:        "<p>hi</p>",
		},
		{
			name:    "missing content type yields no body",
			payload: []byte("ignored bytes that are present"),
			want:    nil,
		},
		{
			name:        "octet stream is unsupported",
			contentType: "application/octet-stream",
			payload:     []byte{0x00, 0x01},
			wantErr:     ErrUnsupportedMediaType,
		},
		{
			name:        "image is unsupported",
			contentType: "image/jpeg",
			payload:     []byte{0xff, 0xd8},
			wantErr:     ErrUnsupportedMediaType,
		},
		{
			name:        "broken json",
			contentType: "application/json",
			payload:     []byte(`{"uri":`),
			wantErr:     ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := captureServer(t, tt.contentType, tt.payload)
			tr := NewHTTPTransport(server.Client())

			res, err := tr.Execute(context.Background(), &Call{URI: server.URL, Method: http.MethodGet})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if res.Status != http.StatusOK {
				t.Errorf("status = %d, want 200", res.Status)
			}
			if !reflect.DeepEqual(res.Body, tt.want) {
				t.Errorf("body = %#v, want %#v", res.Body, tt.want)
			}
		})
	}
}

func TestExecute_EmptyContentTypeIsAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = []string{""}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte{0x00, 0x01})
	}))
	t.Cleanup(server.Close)

	res, err := NewHTTPTransport(server.Client()).Execute(context.Background(), &Call{URI: server.URL, Method: http.MethodGet})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Body != nil {
		t.Errorf("body = %#v, want nil", res.Body)
	}

	// The request side resolves the same way: raw bodies pass through.
	echo, captured := captureServer(t, "", nil)
	_, err = NewHTTPTransport(echo.Client()).Execute(context.Background(), &Call{
		URI:     echo.URL,
		Method:  http.MethodPost,
		Headers: Headers{{Name: "Content-Type", Value: ""}},
		Body:    []byte("raw"),
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if string(*captured) != "raw" {
		t.Errorf("outbound body = %q, want %q", *captured, "raw")
	}
}

func TestHeaders_ContentTypeEmpty(t *testing.T) {
	tests := []struct {
		name    string
		headers Headers
		want    string
		wantOK  bool
	}{
		{name: "missing", headers: nil},
		{name: "empty value", headers: Headers{{Name: "Content-Type", Value: ""}}},
		{name: "present", headers: Headers{{Name: "content-type", Value: "text/plain"}}, want: "text/plain", wantOK: true},
	}
	for _, tt := range tests {
		got, ok := tt.headers.ContentType()
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("%s: ContentType() = %q, %v, want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestExecute_JSONRoundTrip(t *testing.T) {
	payload := []byte(`{"records":[{"uri":"at://did:plc:bob/app.bsky.actor.profile/self","value":{"displayName":"Bob"}}],"cursor":"abc"}`)
	server, _ := captureServer(t, "application/json", payload)
	tr := NewHTTPTransport(server.Client())

	res, err := tr.Execute(context.Background(), &Call{URI: server.URL, Method: http.MethodGet})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	reencoded, err := json.Marshal(res.Body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var a, b any
	if err := json.Unmarshal(payload, &a); err != nil {
		t.Fatalf("unmarshal original: %v", err)
	}
	if err := json.Unmarshal(reencoded, &b); err != nil {
		t.Fatalf("unmarshal reencoded: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("round trip mismatch: %s vs %s", payload, reencoded)
	}
}

func TestExecute_CapturesResponseHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Ratelimit-Remaining", "99")
		w.Header().Add("X-Multi", "first")
		w.Header().Add("X-Multi", "second")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	res, err := NewHTTPTransport(server.Client()).Execute(context.Background(), &Call{URI: server.URL, Method: http.MethodGet})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Status != http.StatusCreated {
		t.Errorf("status = %d, want 201", res.Status)
	}
	if v, _ := res.Headers.Get("ratelimit-remaining"); v != "99" {
		t.Errorf("Ratelimit-Remaining = %q, want 99", v)
	}
	if v, _ := res.Headers.Get("X-Multi"); v != "second" {
		t.Errorf("X-Multi = %q, want last value", v)
	}
}

func TestExecute_SendsRequestHeaders(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	_, err := NewHTTPTransport(server.Client()).Execute(context.Background(), &Call{
		URI:     server.URL,
		Method:  http.MethodGet,
		Headers: Headers{{Name: "authorization", Value: "Bearer tok"}},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok")
	}
}

func TestExecute_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewHTTPTransport(nil).Execute(context.Background(), &Call{URI: url, Method: http.MethodGet})
	if !errors.Is(err, ErrTransportFailure) {
		t.Fatalf("error = %v, want ErrTransportFailure", err)
	}
}
