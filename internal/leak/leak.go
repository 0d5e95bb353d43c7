// Package leak canonicalizes free-form weakness labels into allow-listed leak tags.
package leak

import (
	"strings"
	"unicode"
)

// Tag is a canonical leak tag. Values returned by Normalize are always allow-listed.
type Tag string

// DefaultTag is used for anything that is not recognized.
const DefaultTag Tag = "fundamentals"

const separator = '_'

var allowed = map[Tag]struct{}{
	DefaultTag:           {},
	"preflop_ranges":     {},
	"open_raise_sizing":  {},
	"three_bet_defense":  {},
	"cbet_sizing":        {},
	"overfolding":        {},
	"overcalling":        {},
	"position_awareness": {},
	"board_texture":      {},
	"stack_depth":        {},
	"bluff_catching":     {},
	"river_aggression":   {},
}

// Normalize maps raw to its canonical tag.
// Runs of whitespace, dashes and underscores collapse into a single underscore.
func Normalize(raw string) Tag {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return DefaultTag
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		if unicode.IsSpace(r) || r == '-' || r == separator {
			pendingSep = true
			continue
		}
		if pendingSep && b.Len() > 0 {
			b.WriteRune(separator)
		}
		pendingSep = false
		b.WriteRune(r)
	}

	tag := Tag(b.String())
	if !IsAllowed(tag) {
		return DefaultTag
	}
	return tag
}

// IsAllowed reports whether tag is in the allow-list as-is.
func IsAllowed(tag Tag) bool {
	_, ok := allowed[tag]
	return ok
}

// Allowed returns the allow-listed tags in no particular order.
func Allowed() []Tag {
	tags := make([]Tag, 0, len(allowed))
	for t := range allowed {
		tags = append(tags, t)
	}
	return tags
}

func (t Tag) String() string {
	return string(t)
}
