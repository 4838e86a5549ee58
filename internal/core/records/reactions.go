package records

import (
	"context"
	"fmt"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/ipfs/go-cid"

	"Plover/internal/atproto/utils"
)

// validateSubject checks a strong reference before it is written into a record
func validateSubject(subject RecordRef) error {
	if _, err := utils.ParseRecordURI(subject.URI); err != nil {
		return err
	}
	if _, err := cid.Decode(subject.CID); err != nil {
		return fmt.Errorf("%w: cid %q: %w", ErrInvalidSubject, subject.CID, err)
	}
	return nil
}

func (s *recordService) createSubjectRecord(ctx context.Context, actor syntax.DID, collection string, subject RecordRef) (RecordRef, error) {
	if err := requireActor(actor); err != nil {
		return RecordRef{}, err
	}
	if err := validateSubject(subject); err != nil {
		return RecordRef{}, err
	}

	record := SubjectRecord{
		Type:      collection,
		Subject:   subject,
		CreatedAt: s.createdAt(),
	}

	return s.create(ctx, actor, collection, s.nextRKey(), record)
}

// Like creates a like of subject
func (s *recordService) Like(ctx context.Context, actor syntax.DID, subject RecordRef) (RecordRef, error) {
	return s.createSubjectRecord(ctx, actor, LikeCollection, subject)
}

// Unlike deletes the like at likeURI
func (s *recordService) Unlike(ctx context.Context, likeURI string) error {
	return s.deleteByURI(ctx, LikeCollection, likeURI)
}

// Repost creates a repost of subject
func (s *recordService) Repost(ctx context.Context, actor syntax.DID, subject RecordRef) (RecordRef, error) {
	return s.createSubjectRecord(ctx, actor, RepostCollection, subject)
}

// Unrepost deletes the repost at repostURI
func (s *recordService) Unrepost(ctx context.Context, repostURI string) error {
	return s.deleteByURI(ctx, RepostCollection, repostURI)
}

// Follow creates a follow of subject
func (s *recordService) Follow(ctx context.Context, actor syntax.DID, subject syntax.DID) (RecordRef, error) {
	if err := requireActor(actor); err != nil {
		return RecordRef{}, err
	}
	if _, err := syntax.ParseDID(subject.String()); err != nil {
		return RecordRef{}, fmt.Errorf("%w: %w", ErrInvalidSubject, err)
	}

	record := FollowRecord{
		Type:      FollowCollection,
		Subject:   subject.String(),
		CreatedAt: s.createdAt(),
	}

	return s.create(ctx, actor, FollowCollection, s.nextRKey(), record)
}

// Unfollow deletes the follow at followURI
func (s *recordService) Unfollow(ctx context.Context, followURI string) error {
	return s.deleteByURI(ctx, FollowCollection, followURI)
}
