// Package security cleans user supplied free text before it is stored.
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer strips all markup. A bluemonday policy is safe for
// concurrent use once built.
type TextSanitizer struct {
	policy *bluemonday.Policy
}

func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean removes tags and trims surrounding space. The policy escapes
// entities, which are decoded again since the result is plain text.
func (s *TextSanitizer) Clean(in string) string {
	if in == "" {
		return ""
	}
	out := s.policy.Sanitize(in)
	return strings.TrimSpace(html.UnescapeString(out))
}

var defaultSanitizer = NewTextSanitizer()

func CleanText(in string) string {
	return defaultSanitizer.Clean(in)
}
