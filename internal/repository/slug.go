package repository

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// slugify builds the unique tag key: lowercase ASCII with hyphen separators.
func slugify(value string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	stripped, _, err := transform.String(slugStripper, lowered)
	if err != nil {
		stripped = lowered
	}

	var b strings.Builder
	lastHyphen := true
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}
