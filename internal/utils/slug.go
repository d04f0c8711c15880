package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	SlugMaxLen   = 100
	SlugFallback = "post"
)

// Slugify lower-cases the title, strips accents and anything outside
// [a-z0-9], and joins the words with single hyphens.
func Slugify(title string) string {
	var b strings.Builder
	pendingDash := false

	for _, r := range norm.NFD.String(strings.ToLower(title)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pendingDash = true
		}
	}

	s := b.String()
	if len(s) > SlugMaxLen {
		s = strings.TrimRight(s[:SlugMaxLen], "-")
	}
	if s == "" {
		return SlugFallback
	}
	return s
}
