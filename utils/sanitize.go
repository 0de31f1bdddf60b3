package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.UGCPolicy()

// Sanitize strips unsafe HTML from post bodies and comment text before they
// are stored, so rendered pages never replay scripts submitted by an author.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
