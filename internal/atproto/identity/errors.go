package identity

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a handle or DID does not exist
type ErrNotFound struct {
	Cause      error
	Identifier string
}

func (e *ErrNotFound) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("identity not found: %s (%v)", e.Identifier, e.Cause)
	}
	return fmt.Sprintf("identity not found: %s", e.Identifier)
}

func (e *ErrNotFound) Unwrap() error { return e.Cause }

// ErrInvalidIdentifier is returned for malformed handles or DIDs
type ErrInvalidIdentifier struct {
	Identifier string
	Reason     string
}

func (e *ErrInvalidIdentifier) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Identifier, e.Reason)
}

// ErrCacheMiss is returned when an identifier is not in the cache
type ErrCacheMiss struct {
	Identifier string
}

func (e *ErrCacheMiss) Error() string {
	return fmt.Sprintf("cache miss: %s", e.Identifier)
}

// ErrResolutionFailed is returned when resolution fails for reasons other than not found
type ErrResolutionFailed struct {
	Cause      error
	Identifier string
}

func (e *ErrResolutionFailed) Error() string {
	return fmt.Sprintf("resolution failed for %s: %v", e.Identifier, e.Cause)
}

func (e *ErrResolutionFailed) Unwrap() error { return e.Cause }

// IsNotFound reports whether err means the identity does not exist.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// IsInvalidIdentifier reports whether err is a malformed handle or DID.
func IsInvalidIdentifier(err error) bool {
	var inv *ErrInvalidIdentifier
	return errors.As(err, &inv)
}
