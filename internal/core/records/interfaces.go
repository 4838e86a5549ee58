package records

import (
	"context"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

// Service writes records into repositories on the actor's PDS.
// Create operations take the acting account explicitly; delete operations
// address the record solely by its URI.
type Service interface {
	// Post creates a post. When replyTo is set, the parent is fetched to build
	// the thread reference; if the parent no longer exists the post is
	// created top-level instead of failing.
	Post(ctx context.Context, actor syntax.DID, text string, replyTo *RecordRef) (RecordRef, error)

	// DeletePost deletes the post at uri.
	DeletePost(ctx context.Context, uri string) error

	// Like creates a like of subject.
	Like(ctx context.Context, actor syntax.DID, subject RecordRef) (RecordRef, error)

	// Unlike deletes the like record at likeURI.
	Unlike(ctx context.Context, likeURI string) error

	// Repost creates a repost of subject.
	Repost(ctx context.Context, actor syntax.DID, subject RecordRef) (RecordRef, error)

	// Unrepost deletes the repost record at repostURI.
	Unrepost(ctx context.Context, repostURI string) error

	// Follow creates a follow of subject.
	Follow(ctx context.Context, actor syntax.DID, subject syntax.DID) (RecordRef, error)

	// Unfollow deletes the follow record at followURI.
	Unfollow(ctx context.Context, followURI string) error

	// UpdateProfile finds the actor's profile record and overwrites it in place
	// with modify(existing), or creates one with modify(nil) if none exists.
	// Concurrent updates are last-write-wins.
	UpdateProfile(ctx context.Context, actor syntax.DID, modify ProfileModifier) (RecordRef, error)
}
