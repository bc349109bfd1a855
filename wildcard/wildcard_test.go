package wildcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		str, pattern string
		want         bool
	}{
		{"abc", "a*c", true},
		{"ac", "a*c", true},
		{"abbbc", "a*c", true},
		{"abcd", "a*c", false},
		{"abc", "a?c", true},
		{"ac", "a?c", false},
		{"abbc", "a?c", false},
		{"", "*", true},
		{"", "?", false},
		{"中文", "中?", true},
		{"apple", "ap*", true},
		{"banana", "ap*", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Match(c.str, c.pattern), "%q ~ %q", c.str, c.pattern)
	}
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "a*b", Compact("a**b"))
	assert.Equal(t, "*", Compact("***"))
	assert.Equal(t, "a?*?b", Compact("a?**?b"))
	assert.Equal(t, "abc", Compact("abc"))
}

func TestHasWildcard(t *testing.T) {
	assert.True(t, HasWildcard("a*"))
	assert.True(t, HasWildcard("?"))
	assert.False(t, HasWildcard("abc"))
	assert.True(t, IsWildcard('*'))
	assert.False(t, IsWildcard('a'))
}
