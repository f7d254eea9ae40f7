package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/nstogner/diagrammer/pkg/domain"
)

const (
	// MaxSlugLength caps suggested session file names.
	MaxSlugLength = 50
	// DefaultFilename is used when nothing meaningful can be derived.
	DefaultFilename = "diagram-session"
)

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "into": true, "show": true, "draw": true,
	"create": true, "make": true, "diagram": true, "please": true, "about": true,
	"how": true, "what": true, "between": true, "using": true, "are": true,
}

// SanitizeSlug lower-cases s and reduces it to [a-z0-9-]: other characters
// become hyphens, runs of hyphens collapse and edge hyphens are trimmed.
func SanitizeSlug(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, c := range strings.ToLower(s) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "-")
	}
	return slug
}

// FallbackFilename derives a slug from the first three meaningful words of
// the first user text, suffixed with kind when known. It is pure and never
// returns an empty string.
func FallbackFilename(userTexts []string, kind domain.Kind) string {
	var words []string
	if len(userTexts) > 0 {
		for _, w := range strings.Fields(strings.ToLower(userTexts[0])) {
			w = SanitizeSlug(w)
			if utf8.RuneCountInString(w) <= 2 || stopWords[w] {
				continue
			}
			words = append(words, w)
			if len(words) == 3 {
				break
			}
		}
	}
	if len(words) == 0 {
		return DefaultFilename
	}
	if kind.Specified() {
		words = append(words, string(kind))
	}
	if slug := SanitizeSlug(strings.Join(words, "-")); slug != "" {
		return slug
	}
	return DefaultFilename
}
