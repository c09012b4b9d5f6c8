package content

import (
	"regexp"
	"strings"
)

// UnknownEntityID is used when none of a record's identifying fields are set.
// Every unresolved change from one source therefore shares a cooldown.
const UnknownEntityID = "unknown"

// ResolveEntityID tries each accessor in order and returns the first
// non-blank result.
func ResolveEntityID(accessors ...func() string) string {
	for _, get := range accessors {
		if v := strings.TrimSpace(get()); v != "" {
			return v
		}
	}
	return UnknownEntityID
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a title into a URL-friendly slug.
func Slugify(title string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}
