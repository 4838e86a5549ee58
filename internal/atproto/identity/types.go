package identity

import "time"

// ResolutionMethod indicates how an identity was resolved
type ResolutionMethod string

const (
	MethodCache     ResolutionMethod = "cache"
	MethodDirectory ResolutionMethod = "directory"
)

// Identity represents a resolved atProto identity
type Identity struct {
	ResolvedAt time.Time        // When this identity was resolved
	DID        string           // e.g. "did:plc:abc123"
	Handle     string           // e.g. "alice.bsky.social"; empty if the handle did not verify
	PDSURL     string           // Personal Data Server URL
	Method     ResolutionMethod // directory or cache
}

// DIDDocument is the subset of a DID document Plover reads: its service entries.
type DIDDocument struct {
	DID     string
	Service []Service
}

// Service represents a service entry in a DID document
type Service struct {
	ID              string
	Type            string
	ServiceEndpoint string
}

// PDSEndpoint returns the atproto_pds service endpoint, if any.
func (d *DIDDocument) PDSEndpoint() string {
	for _, svc := range d.Service {
		if svc.ID == "#atproto_pds" {
			return svc.ServiceEndpoint
		}
	}
	return ""
}
