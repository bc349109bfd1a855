// Package wildcard matches glob patterns where '*' matches any run of symbols
// (including none) and '?' matches exactly one symbol.
package wildcard

import (
	"strings"

	"github.com/tidwall/match"
)

const (
	Star     = '*'
	Question = '?'
)

func IsWildcard(r rune) bool { return r == Star || r == Question }

// Match reports whether str matches pattern.
func Match(str, pattern string) bool {
	return match.Match(str, pattern)
}

// HasWildcard reports whether pattern contains '*' or '?'.
func HasWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?")
}

// Compact collapses runs of '*'; "a**b" and "a*b" match the same strings.
func Compact(pattern string) string {
	if !strings.Contains(pattern, "**") {
		return pattern
	}
	var b strings.Builder
	b.Grow(len(pattern))
	prevStar := false
	for _, r := range pattern {
		if r == Star && prevStar {
			continue
		}
		prevStar = r == Star
		b.WriteRune(r)
	}
	return b.String()
}
