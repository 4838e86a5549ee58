package xrpc

import (
	"net/http"
	"sort"
	"strings"
)

// Header is a single request or response header.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered header list. Names are unique when compared
// case-insensitively; Set enforces that.
type Headers []Header

// Get resolves a header value by name. An exact name match wins; otherwise the
// first case-insensitive match in insertion order is returned.
func (h Headers) Get(name string) (string, bool) {
	for _, hdr := range h {
		if hdr.Name == name {
			return hdr.Value, true
		}
	}
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			return hdr.Value, true
		}
	}
	return "", false
}

// Set replaces the value of an existing header (matched case-insensitively,
// keeping its original casing) or appends a new one.
func (h *Headers) Set(name, value string) {
	for i, hdr := range *h {
		if strings.EqualFold(hdr.Name, name) {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, Header{Name: name, Value: value})
}

// Map returns the headers as a plain map keyed by the stored names.
func (h Headers) Map() map[string]string {
	m := make(map[string]string, len(h))
	for _, hdr := range h {
		m[hdr.Name] = hdr.Value
	}
	return m
}

// ContentType returns the resolved Content-Type header. An empty value
// counts as absent.
func (h Headers) ContentType() (string, bool) {
	value, ok := h.Get("Content-Type")
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// headersFromHTTP flattens an http.Header into Headers. Multi-valued headers
// keep their last value. Names are sorted so the result is deterministic.
func headersFromHTTP(src http.Header) Headers {
	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Headers, 0, len(names))
	for _, name := range names {
		values := src[name]
		if len(values) == 0 {
			continue
		}
		out = append(out, Header{Name: name, Value: values[len(values)-1]})
	}
	return out
}
