package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

// ErrMalformedIdentifier indicates an AT-URI that cannot address a record.
var ErrMalformedIdentifier = errors.New("malformed identifier")

// RecordLocator is the addressable part of a record AT-URI.
// Format: at://authority/collection/rkey
type RecordLocator struct {
	Authority  string
	Collection string
	RKey       string
}

// ParseRecordURI splits a record AT-URI into authority and record key.
// The URI must name an authority, a collection and a record key; anything
// less is ErrMalformedIdentifier.
func ParseRecordURI(raw string) (RecordLocator, error) {
	uri, err := syntax.ParseATURI(raw)
	if err != nil {
		return RecordLocator{}, fmt.Errorf("%w: %q: %w", ErrMalformedIdentifier, raw, err)
	}

	authority := uri.Authority().String()
	collection := uri.Collection().String()
	rkey := uri.RecordKey().String()
	if authority == "" || collection == "" || rkey == "" {
		return RecordLocator{}, fmt.Errorf("%w: %q does not address a record", ErrMalformedIdentifier, raw)
	}

	return RecordLocator{
		Authority:  authority,
		Collection: collection,
		RKey:       rkey,
	}, nil
}

// ExtractRKeyFromURI extracts the record key from an AT-URI
// Format: at://did/collection/rkey -> rkey
// Returns empty string if the URI does not address a record.
func ExtractRKeyFromURI(uri string) string {
	loc, err := ParseRecordURI(uri)
	if err != nil {
		return ""
	}
	return loc.RKey
}

// createdAtLayout is RFC 3339 in UTC with millisecond precision.
const createdAtLayout = "2006-01-02T15:04:05.000Z"

// FormatCreatedAt renders a record createdAt timestamp.
func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format(createdAtLayout)
}

// ParseCreatedAt extracts and parses the createdAt timestamp from an atProto record
// Returns the zero time if the field is missing or invalid
func ParseCreatedAt(record map[string]any) time.Time {
	if record == nil {
		return time.Time{}
	}

	createdAtStr, ok := record["createdAt"].(string)
	if !ok || createdAtStr == "" {
		return time.Time{}
	}

	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return time.Time{}
	}

	return createdAt
}
