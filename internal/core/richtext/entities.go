// Package richtext finds mentions and links in post text.
package richtext

import (
	"regexp"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

const (
	EntityMention = "mention"
	EntityLink    = "link"
)

// TextSlice is a byte range [Start, End) within the post text.
type TextSlice struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Entity is a mention or link embedded in post text.
// For mentions Value is the handle without the leading '@'.
type Entity struct {
	Type  string    `json:"type"`
	Value string    `json:"value"`
	Index TextSlice `json:"index"`
}

var (
	mentionRegex = regexp.MustCompile(`(?:^|\s)(@([a-zA-Z0-9.-]+))\b`)
	linkRegex    = regexp.MustCompile(`(?:^|\s)(https?://\S+)\b`)
)

// ExtractEntities returns the mentions followed by the links found in text,
// or nil when there are none. It has no side effects.
func ExtractEntities(text string) []Entity {
	var entities []Entity

	for _, m := range mentionRegex.FindAllStringSubmatchIndex(text, -1) {
		handle := text[m[4]:m[5]]
		if _, err := syntax.ParseHandle(handle); err != nil {
			continue
		}
		entities = append(entities, Entity{
			Type:  EntityMention,
			Value: handle,
			Index: TextSlice{Start: m[2], End: m[3]},
		})
	}

	for _, m := range linkRegex.FindAllStringSubmatchIndex(text, -1) {
		entities = append(entities, Entity{
			Type:  EntityLink,
			Value: text[m[2]:m[3]],
			Index: TextSlice{Start: m[2], End: m[3]},
		})
	}

	return entities
}
