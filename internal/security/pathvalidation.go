// Package security holds input sanitizers for values that end up in file
// paths.
package security

import "strings"

// maxFilenameLen caps sanitized names to avoid overly long paths.
const maxFilenameLen = 128

// SanitizeFilename makes a safe filename from an arbitrary string, such as a
// catalog region identifier. Characters other than ASCII letters, digits,
// dot, underscore and dash become a single underscore per run. Leading and
// trailing dots and underscores are trimmed, so the result can never be "."
// or "..". Empty results become "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
