// Package sweep scans whole collections in a repository and bulk-deletes
// records matching a predicate.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Plover/internal/atproto/pds"
	"Plover/internal/atproto/utils"
)

// PageSize is the listRecords limit used while scanning.
const PageSize = 100

var (
	// ErrStop can be returned by an IterateAll callback to end the scan early
	// without an error.
	ErrStop = errors.New("stop iteration")

	// ErrCursorStalled means the PDS returned the cursor it was given, which
	// would otherwise loop forever.
	ErrCursorStalled = errors.New("listRecords cursor did not advance")
)

// Predicate selects records for deletion.
type Predicate func(pds.RecordEntry) bool

// IterateAll calls fn for every record in collection, following the cursor
// until the PDS returns an empty one.
func IterateAll(ctx context.Context, client pds.Client, repo, collection string, fn func(pds.RecordEntry) error) error {
	cursor := ""
	for {
		page, err := client.ListRecords(ctx, repo, collection, PageSize, cursor)
		if err != nil {
			return fmt.Errorf("failed to list %s records: %w", collection, err)
		}

		for _, rec := range page.Records {
			if err := fn(rec); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
		}

		if page.Cursor == "" {
			return nil
		}
		if page.Cursor == cursor {
			return fmt.Errorf("%w: %q", ErrCursorStalled, cursor)
		}
		cursor = page.Cursor
	}
}

// DeleteWhere deletes every record in collection for which pred is true and
// returns how many were deleted. Matching keys are collected over the full
// scan before the first delete so that deletions cannot shift the listing.
// Records whose URI does not parse are skipped.
func DeleteWhere(ctx context.Context, client pds.Client, repo, collection string, pred Predicate) (int, error) {
	var rkeys []string
	err := IterateAll(ctx, client, repo, collection, func(rec pds.RecordEntry) error {
		loc, err := utils.ParseRecordURI(rec.URI)
		if err != nil {
			return nil
		}
		if pred(rec) {
			rkeys = append(rkeys, loc.RKey)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, rkey := range rkeys {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := client.DeleteRecord(ctx, repo, collection, rkey); err != nil {
			return deleted, fmt.Errorf("failed to delete %s/%s: %w", collection, rkey, err)
		}
		deleted++
	}
	return deleted, nil
}

// CreatedBefore matches records whose createdAt is earlier than cutoff.
// Records without a parsable createdAt never match.
func CreatedBefore(cutoff time.Time) Predicate {
	return func(rec pds.RecordEntry) bool {
		created := utils.ParseCreatedAt(rec.Value)
		return !created.IsZero() && created.Before(cutoff)
	}
}
