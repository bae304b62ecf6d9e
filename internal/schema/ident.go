package schema

import "strings"

// QuoteIdent quotes a SQL identifier, escaping embedded double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SanitizeIdent strips every character outside [A-Za-z0-9_]. An empty result
// means the identifier must be rejected by the caller.
func SanitizeIdent(raw string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return -1
	}, raw)
}

// SanitizeKey lowercases and keeps [a-z0-9_-], the shape of taxonomy and
// record type names.
func SanitizeKey(raw string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return -1
	}, raw)
}

// SanitizeText trims the value and drops control characters, the treatment
// every free-text field of a document gets before it reaches a query.
func SanitizeText(raw string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, raw))
}
