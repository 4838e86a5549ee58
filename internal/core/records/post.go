package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"Plover/internal/atproto/pds"
	"Plover/internal/atproto/utils"
)

// Post creates a post, resolving its thread reference from replyTo
func (s *recordService) Post(ctx context.Context, actor syntax.DID, text string, replyTo *RecordRef) (RecordRef, error) {
	if err := requireActor(actor); err != nil {
		return RecordRef{}, err
	}

	var reply *ReplyRef
	if replyTo != nil {
		var err error
		reply, err = s.fetchReply(ctx, *replyTo)
		if err != nil {
			return RecordRef{}, err
		}
	}

	record := PostRecord{
		Type:      PostCollection,
		Text:      text,
		Reply:     reply,
		Entities:  s.extract(text),
		CreatedAt: s.createdAt(),
	}

	return s.create(ctx, actor, PostCollection, s.nextRKey(), record)
}

// fetchReply fetches the parent post and derives the reply reference.
// A parent that cannot be found yields no reply reference, not an error.
func (s *recordService) fetchReply(ctx context.Context, replyTo RecordRef) (*ReplyRef, error) {
	loc, err := utils.ParseRecordURI(replyTo.URI)
	if err != nil {
		return nil, err
	}

	parent, err := s.client.GetRecord(ctx, loc.Authority, PostCollection, loc.RKey)
	if err != nil {
		if errors.Is(err, pds.ErrNotFound) {
			s.logger.Info("reply parent not found, creating top-level post",
				"parent", replyTo.URI)
			return nil, nil
		}
		s.logger.Error("failed to fetch reply parent from PDS",
			"error", err,
			"parent", replyTo.URI)
		return nil, fmt.Errorf("failed to fetch reply parent: %w", err)
	}

	stored, ok := storedReply(parent.Value)
	if !ok {
		s.logger.Warn("ignoring malformed reply reference on parent post",
			"parent", parent.URI)
	}

	return ResolveReply(&RecordRef{URI: parent.URI, CID: parent.CID}, stored), nil
}

// DeletePost deletes the post at uri
func (s *recordService) DeletePost(ctx context.Context, uri string) error {
	return s.deleteByURI(ctx, PostCollection, uri)
}
