package normalize

import (
	"regexp"
	"strings"
)

var multiSpace = regexp.MustCompile(`\s+`)

// CleanCategory trims and collapses whitespace in a category label such as an
// insurer or episode class. Case is preserved. Returns "" for blank input.
func CleanCategory(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return multiSpace.ReplaceAllString(s, " ")
}
