package domain

import (
	"regexp"
	"strings"
)

// UnknownTitle is used when the source reports no title
const UnknownTitle = "Unknown Title"

var (
	invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots     = regexp.MustCompile(`\.+$`)
	repeatedSpace    = regexp.MustCompile(`\s+`)
)

// SanitizeTitle turns a fetched title into a safe filename stem.
//
// Path separators and characters Windows rejects become underscores, runs of
// whitespace collapse to a single space, and trailing dots and spaces are
// dropped. The result never contains '/' or '\'.
func SanitizeTitle(title string) string {
	name := invalidFileChars.ReplaceAllString(title, "_")
	name = repeatedSpace.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = trailingDots.ReplaceAllString(name, "")
	name = strings.TrimRight(name, " ")
	if name == "" {
		return UnknownTitle
	}
	return name
}
