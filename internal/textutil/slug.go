package textutil

import (
	"strings"
	"unicode"
)

// maxSlugLength bounds slugs so derived filenames stay portable.
const maxSlugLength = 100

// Slugify converts free text into a filesystem-safe token: lowercased,
// whitespace runs collapsed to single underscores, characters outside
// [a-z0-9_-] stripped, and the result truncated to 100 bytes. Returns
// "untitled" when nothing survives.
func Slugify(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "untitled"
	}

	var b strings.Builder
	b.Grow(len(value))
	inSpace := false
	for _, r := range value {
		switch {
		case unicode.IsSpace(r):
			inSpace = true
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			if inSpace && b.Len() > 0 {
				b.WriteByte('_')
			}
			inSpace = false
			b.WriteRune(r)
		default:
			// Stripped characters do not break a whitespace run.
		}
	}

	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "untitled"
	}
	if len(out) > maxSlugLength {
		out = strings.Trim(out[:maxSlugLength], "_-")
	}
	return out
}
