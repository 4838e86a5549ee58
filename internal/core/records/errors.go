package records

import (
	"errors"

	"Plover/internal/atproto/utils"
)

var (
	// ErrMalformedIdentifier indicates a record URI that cannot be parsed into
	// authority and record key. No network call is made.
	ErrMalformedIdentifier = utils.ErrMalformedIdentifier

	// ErrMissingIdentity indicates an empty acting identity
	ErrMissingIdentity = errors.New("acting identity is required")

	// ErrInvalidSubject indicates a like/repost/follow subject that is not a valid reference
	ErrInvalidSubject = errors.New("invalid subject")
)

// IsValidationError checks if an error was raised before any network call
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMalformedIdentifier) ||
		errors.Is(err, ErrMissingIdentity) ||
		errors.Is(err, ErrInvalidSubject)
}
