package records

import (
	"Plover/internal/core/richtext"
)

// Record collections written by the façade.
const (
	PostCollection    = "app.bsky.feed.post"
	LikeCollection    = "app.bsky.feed.like"
	RepostCollection  = "app.bsky.feed.repost"
	FollowCollection  = "app.bsky.graph.follow"
	ProfileCollection = "app.bsky.actor.profile"

	// profileRKey is the key of a newly created profile record.
	profileRKey = "self"
)

// RecordRef represents a strong reference to one version of a record (URI + CID)
// Matches com.atproto.repo.strongRef
type RecordRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// ReplyRef represents the threading structure of a post
// Root always points to the top of the thread, parent to the immediate parent
type ReplyRef struct {
	Root   RecordRef `json:"root"`
	Parent RecordRef `json:"parent"`
}

// PostRecord is the app.bsky.feed.post record written to the author's repository
type PostRecord struct {
	Reply     *ReplyRef         `json:"reply,omitempty"`
	Type      string            `json:"$type"`
	Text      string            `json:"text"`
	CreatedAt string            `json:"createdAt"`
	Entities  []richtext.Entity `json:"entities,omitempty"`
}

// SubjectRecord is the shape shared by app.bsky.feed.like and app.bsky.feed.repost
type SubjectRecord struct {
	Type      string    `json:"$type"`
	Subject   RecordRef `json:"subject"`
	CreatedAt string    `json:"createdAt"`
}

// FollowRecord is the app.bsky.graph.follow record; Subject is the followed DID
type FollowRecord struct {
	Type      string `json:"$type"`
	Subject   string `json:"subject"`
	CreatedAt string `json:"createdAt"`
}

// ProfileRecord is the app.bsky.actor.profile record. Extra holds every
// stored field the struct does not model (pinnedPost, labels, createdAt, ...)
// and is written back alongside the modelled fields.
type ProfileRecord struct {
	Avatar      map[string]any `json:"avatar,omitempty"`
	Banner      map[string]any `json:"banner,omitempty"`
	Extra       map[string]any `json:"-"`
	Type        string         `json:"$type"`
	DisplayName string         `json:"displayName,omitempty"`
	Description string         `json:"description,omitempty"`
}

// ProfileModifier builds the new profile from the existing one (nil when the
// account has no profile yet). Its result is written as-is, so a modifier
// that starts from a copy of *existing keeps the unmodelled fields in Extra.
type ProfileModifier func(existing *ProfileRecord) ProfileRecord

// EntityExtractor finds embedded entities in post text. It must be pure.
type EntityExtractor func(text string) []richtext.Entity
