package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticsStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText lowercases, strips diacritics and replaces every
// non-alphanumeric rune with a space. Queries written as "saúde" and notice
// text written as "saude" must land on the same tokens.
func normalizeText(s string) string {
	lowered := strings.ToLower(s)
	stripped, _, err := transform.String(diacriticsStripper, lowered)
	if err != nil {
		stripped = lowered
	}
	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// queryTokens normalizes the query and returns its distinct tokens of at
// least minLen runes, preserving first-appearance order.
func queryTokens(query string, minLen int) []string {
	fields := strings.Fields(normalizeText(query))
	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < minLen {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}
