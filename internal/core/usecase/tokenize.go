package usecase

import (
	"strings"
	"unicode"
)

// QueryTerms tokenizes a raw query the same way the corpus side does:
// lowercase alphanumeric runs, everything else is a separator.
func QueryTerms(query string) []string {
	return splitAlphaNumLower(query)
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
