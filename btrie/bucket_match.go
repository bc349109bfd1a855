package btrie

import (
	"unicode/utf8"

	"BTrieDB/alphabet"
	"BTrieDB/wildcard"
)

// FindMatches reports every pair whose sym+rest matches pattern. prefix is
// the key path consumed above this bucket and is prepended to emitted keys.
// A literal first pattern symbol narrows the scan to one group.
func (b *Bucket) FindMatches(alpha *alphabet.Alphabet, pattern, prefix string, emit func(key string, value int64)) {
	if pattern == "" {
		return
	}
	first, n := utf8.DecodeRuneInString(pattern)
	if !wildcard.IsWildcard(first) {
		idx, ok := alpha.Index(first)
		if !ok {
			return
		}
		gi, ok := b.findGroup(uint16(idx))
		if !ok {
			return
		}
		tail := pattern[n:]
		head := prefix + string(first)
		for _, e := range b.groups[gi].entries {
			if wildcard.Match(e.rest, tail) {
				emit(head+e.rest, e.value)
			}
		}
		return
	}

	for _, g := range b.groups {
		s := string(alpha.Symbol(int(g.sym)))
		for _, e := range g.entries {
			if wildcard.Match(s+e.rest, pattern) {
				emit(prefix+s+e.rest, e.value)
			}
		}
	}
}

// each calls fn for the pairs of group sym in order.
func (b *Bucket) each(sym uint16, fn func(rest string, value int64)) {
	gi, ok := b.findGroup(sym)
	if !ok {
		return
	}
	for _, e := range b.groups[gi].entries {
		fn(e.rest, e.value)
	}
}
