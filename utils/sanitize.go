package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.UGCPolicy()

// Sanitize strips markup from user submitted content before insert. Titles,
// bodies, replies and report reasons all pass through here. The policy
// entity-encodes its output, but templates escape again at render time, so
// the entities are unescaped here and plain text ("fins & masks") round-trips
// unchanged.
func Sanitize(input string) string {
	return html.UnescapeString(sanitizer.Sanitize(input))
}
