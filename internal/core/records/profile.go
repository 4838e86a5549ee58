package records

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"Plover/internal/atproto/utils"
)

// UpdateProfile finds the actor's profile and rewrites it in place, or creates it
func (s *recordService) UpdateProfile(ctx context.Context, actor syntax.DID, modify ProfileModifier) (RecordRef, error) {
	if err := requireActor(actor); err != nil {
		return RecordRef{}, err
	}

	// An account has at most one profile record.
	res, err := s.client.ListRecords(ctx, actor.String(), ProfileCollection, 1, "")
	if err != nil {
		s.logger.Error("failed to list profile records on PDS",
			"error", err,
			"actor", actor)
		return RecordRef{}, fmt.Errorf("failed to list profile records: %w", err)
	}

	if len(res.Records) == 0 {
		return s.create(ctx, actor, ProfileCollection, profileRKey, withProfileType(modify(nil)))
	}

	existing := res.Records[0]
	loc, err := utils.ParseRecordURI(existing.URI)
	if err != nil {
		return RecordRef{}, err
	}

	current, err := decodeProfile(existing.Value)
	if err != nil {
		return RecordRef{}, fmt.Errorf("failed to decode existing profile %s: %w", existing.URI, err)
	}

	// No swapRecord: concurrent updates are last-write-wins.
	uri, cid, err := s.client.PutRecord(ctx, actor.String(), ProfileCollection, loc.RKey, withProfileType(modify(current)), "")
	if err != nil {
		s.logger.Error("failed to update profile on PDS",
			"error", err,
			"actor", actor,
			"uri", existing.URI)
		return RecordRef{}, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.Info("profile updated",
		"actor", actor,
		"uri", uri,
		"new_cid", cid,
		"old_cid", existing.CID)

	return RecordRef{URI: uri, CID: cid}, nil
}

// withProfileType fills in the record type when the modifier left it empty.
func withProfileType(p ProfileRecord) ProfileRecord {
	if p.Type == "" {
		p.Type = ProfileCollection
	}
	return p
}

func decodeProfile(value map[string]any) (*ProfileRecord, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var profile ProfileRecord
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// profileFields are the JSON keys ProfileRecord models directly.
var profileFields = []string{"avatar", "banner", "$type", "displayName", "description"}

// MarshalJSON writes the modelled fields over Extra. A modelled field left
// empty is dropped even when Extra carries the same key.
func (p ProfileRecord) MarshalJSON() ([]byte, error) {
	type plain ProfileRecord
	known, err := json.Marshal(plain(p))
	if err != nil || len(p.Extra) == 0 {
		return known, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	merged := make(map[string]any, len(p.Extra)+len(fields))
	for k, v := range p.Extra {
		merged[k] = v
	}
	for _, k := range profileFields {
		delete(merged, k)
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON keeps every unmodelled field in Extra.
func (p *ProfileRecord) UnmarshalJSON(data []byte) error {
	type plain ProfileRecord
	var known plain
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range profileFields {
		delete(all, k)
	}
	if len(all) > 0 {
		known.Extra = all
	}
	*p = ProfileRecord(known)
	return nil
}
