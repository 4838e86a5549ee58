package records

import (
	"encoding/json"
)

// ResolveReply builds the thread reference for a reply to parent.
//
//   - parent == nil (no reply, or parent no longer exists): nil
//   - parent is top-level (stored == nil): root and parent are both parent
//   - parent is itself a reply: root is inherited from the parent's own root
//
// parent is the fetched record's own (uri, cid); stored is the reply
// reference found in the parent's record value, if any.
func ResolveReply(parent *RecordRef, stored *ReplyRef) *ReplyRef {
	if parent == nil {
		return nil
	}

	root := *parent
	if stored != nil && stored.Root.URI != "" {
		root = stored.Root
	}

	return &ReplyRef{
		Root:   root,
		Parent: *parent,
	}
}

// storedReply extracts the reply reference from a post record value.
// ok is false when the field is present but malformed.
func storedReply(value map[string]any) (*ReplyRef, bool) {
	raw, present := value["reply"]
	if !present || raw == nil {
		return nil, true
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}
	var reply ReplyRef
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, false
	}
	return &reply, true
}
