package xrpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/xrpc/com.atproto.repo.getRecord" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("repo") != "did:plc:alice" || q.Get("rkey") != "3k" || q.Get("limit") != "5" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"uri": "at://did:plc:alice/app.bsky.feed.post/3k", "cid": "bafy"})
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", NewHTTPTransport(server.Client()).Transport())
	c.SetAuthToken("secret")

	var out struct {
		URI string `json:"uri"`
		CID string `json:"cid"`
	}
	err := c.Get(context.Background(), syntax.NSID("com.atproto.repo.getRecord"), map[string]any{
		"repo":  "did:plc:alice",
		"rkey":  "3k",
		"limit": 5,
	}, &out)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if out.URI != "at://did:plc:alice/app.bsky.feed.post/3k" || out.CID != "bafy" {
		t.Errorf("out = %+v", out)
	}
}

func TestClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if payload["collection"] != "app.bsky.graph.follow" {
			t.Errorf("collection = %v", payload["collection"])
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, NewHTTPTransport(server.Client()).Transport())
	err := c.Post(context.Background(), syntax.NSID("com.atproto.repo.deleteRecord"), map[string]any{
		"collection": "app.bsky.graph.follow",
	}, nil)
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
}

func TestClient_ErrorResponse(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantName    string
		wantMessage string
	}{
		{
			name:        "json error body",
			status:      http.StatusBadRequest,
			contentType: "application/json",
			body:        `{"error":"RecordNotFound","message":"Could not locate record"}`,
			wantName:    "RecordNotFound",
			wantMessage: "Could not locate record",
		},
		{
			name:        "text error body",
			status:      http.StatusBadGateway,
			contentType: "text/plain",
			body:        "upstream down",
			wantMessage: "upstream down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(server.URL, NewHTTPTransport(server.Client()).Transport())
			err := c.Get(context.Background(), syntax.NSID("com.atproto.repo.getRecord"), nil, nil)

			var xerr *Error
			if !errors.As(err, &xerr) {
				t.Fatalf("error = %v, want *Error", err)
			}
			if xerr.StatusCode != tt.status || xerr.Name != tt.wantName || xerr.Message != tt.wantMessage {
				t.Errorf("error = %+v", xerr)
			}
		})
	}
}

func TestClient_UsesInjectedTransport(t *testing.T) {
	var seen *Call
	fake := func(ctx context.Context, call *Call) (*Result, error) {
		seen = call
		return &Result{Status: http.StatusOK, Body: map[string]any{"did": "did:plc:alice"}}, nil
	}

	c := NewClient("https://pds.example.com", fake)
	var out struct {
		DID string `json:"did"`
	}
	if err := c.Post(context.Background(), syntax.NSID("com.atproto.server.createSession"), map[string]any{"identifier": "alice"}, &out); err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if out.DID != "did:plc:alice" {
		t.Errorf("did = %q", out.DID)
	}
	if seen.URI != "https://pds.example.com/xrpc/com.atproto.server.createSession" {
		t.Errorf("uri = %q", seen.URI)
	}
	if ct, _ := seen.Headers.ContentType(); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if _, ok := seen.Headers.Get("Authorization"); ok {
		t.Error("authorization header should be absent without a token")
	}
}

func TestEncodeParams(t *testing.T) {
	got := encodeParams(map[string]any{
		"repo":   syntax.DID("did:plc:alice"),
		"limit":  100,
		"cursor": nil,
		"ids":    []string{"a", "b"},
	})
	want := "?ids=a&ids=b&limit=100&repo=did%3Aplc%3Aalice"
	if got != want {
		t.Errorf("encodeParams = %q, want %q", got, want)
	}
	if encodeParams(nil) != "" {
		t.Error("empty params should encode to empty string")
	}
}
