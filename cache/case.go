package cache

import "unicode"

// toSnake converts a key scope to snake_case. Scopes arrive as Go-ish
// identifiers ("BookReviews") or already-normalized names ("activity_feed");
// a uniform key namespace keeps the durable tier's key prefix and any
// prefix-based tooling predictable.
func toSnake(s string) string {
	runes := []rune(s)
	out := make([]rune, 0, len(runes)+4)

	separate := func() {
		if len(out) > 0 && out[len(out)-1] != '_' {
			out = append(out, '_')
		}
	}

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			// An upper rune starts a word when it follows a lower/digit rune
			// or leads into a lower one (the "S" in both "bookSearch" and
			// "HTTPServer").
			startsWord := i > 0 && (unicode.IsLower(runes[i-1]) ||
				unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1])))
			if startsWord {
				separate()
			}
			out = append(out, unicode.ToLower(r))

		case unicode.IsLower(r) || unicode.IsDigit(r):
			out = append(out, r)

		default:
			// Underscores, dashes, spaces, and anything else collapse into a
			// single separator.
			separate()
		}
	}

	for len(out) > 0 && out[len(out)-1] == '_' {
		out = out[:len(out)-1]
	}
	return string(out)
}
