package btrie

import (
	"sort"
	"strings"
	"unicode/utf8"

	"BTrieDB/wildcard"

	"github.com/cockroachdb/errors"
)

// FindRegExp returns every key matching pattern, sorted by key. '*' matches
// any run of symbols and '?' exactly one; every other rune must be in the
// alphabet.
func (t *BTrie) FindRegExp(pattern string) ([]Match, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return nil, err
	}
	for off, r := range pattern {
		if wildcard.IsWildcard(r) {
			continue
		}
		if _, ok := t.alpha.Index(r); !ok {
			return nil, errors.Wrapf(ErrInvalidPattern, "%q: symbol %q at byte %d", pattern, r, off)
		}
	}
	pattern = wildcard.Compact(pattern)
	if !wildcard.HasWildcard(pattern) {
		return t.matchLiteral(pattern)
	}

	found := make(map[string]int64)
	if v, ok := t.fallback.Get(""); ok && wildcard.Match("", pattern) {
		found[""] = v
	}
	if err := t.matchNode(t.rootOffset, "", pattern, found); err != nil {
		return nil, t.fail(err)
	}

	out := make([]Match, 0, len(found))
	for k, v := range found {
		out = append(out, Match{Key: k, Addr: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// matchLiteral answers a pattern without wildcards with a single lookup.
func (t *BTrie) matchLiteral(key string) ([]Match, error) {
	k, err := t.parseKey(key)
	if err != nil {
		return nil, err
	}
	addr, found, err := t.get(k)
	if err != nil {
		if t.brokenChain("match", key, err) {
			return []Match{}, nil
		}
		return nil, t.fail(err)
	}
	if !found {
		return []Match{}, nil
	}
	return []Match{{Key: key, Addr: addr}}, nil
}

/*
matchNode matches pattern against the keys below the node at off. prefix is
the key consumed above it.

	literal c  -> slot c only
	'?'        -> every slot, one symbol consumed
	'*'        -> the same node with the '*' dropped (zero symbols consumed),
	              plus every slot with the '*' still pending

Buckets receive the pattern before the slot symbol is consumed and are
scanned once per distinct bucket. The pin is released before recursing so
deep patterns never hold more than one node.
*/
func (t *BTrie) matchNode(off int64, prefix, pattern string, found map[string]int64) error {
	if pattern == "" {
		return nil
	}
	node, h, err := t.nodes.get(off, noHandle)
	if err != nil {
		return err
	}
	refs := node.snapshot()
	t.nodes.release(h)

	t.matchFallback(prefix, pattern, found)

	first, n := utf8.DecodeRuneInString(pattern)
	switch first {
	case wildcard.Star:
		if err := t.matchNode(off, prefix, pattern[n:], found); err != nil {
			return err
		}
		return t.matchChildren(refs, prefix, pattern, pattern, found)
	case wildcard.Question:
		return t.matchChildren(refs, prefix, pattern, pattern[n:], found)
	default:
		idx, _ := t.alpha.Index(first)
		switch ref := refs[idx]; ref.Kind {
		case RefNode:
			return t.matchNode(ref.Offset, prefix+string(first), pattern[n:], found)
		case RefBucket:
			return t.matchBucket(ref.Offset, prefix, pattern, found)
		}
		return nil
	}
}

func (t *BTrie) matchChildren(refs []Ref, prefix, bucketPattern, nodePattern string, found map[string]int64) error {
	var last int64 = -1
	for i, ref := range refs {
		switch ref.Kind {
		case RefNode:
			if err := t.matchNode(ref.Offset, prefix+string(t.alpha.Symbol(i)), nodePattern, found); err != nil {
				return err
			}
		case RefBucket:
			// a bucket covers one contiguous run of slots
			if ref.Offset == last {
				continue
			}
			last = ref.Offset
			if err := t.matchBucket(ref.Offset, prefix, bucketPattern, found); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *BTrie) matchBucket(off int64, prefix, pattern string, found map[string]int64) error {
	b, h, err := t.buckets.get(off, noHandle)
	if err != nil {
		return err
	}
	defer t.buckets.release(h)
	b.FindMatches(t.alpha, pattern, prefix, func(key string, value int64) {
		found[key] = value
	})
	return nil
}

// matchFallback checks the fallback keys that end one symbol below prefix.
func (t *BTrie) matchFallback(prefix, pattern string, found map[string]int64) {
	if t.fallback.Len() == 0 {
		return
	}
	first, _ := utf8.DecodeRuneInString(pattern)
	if !wildcard.IsWildcard(first) {
		key := prefix + string(first)
		if v, ok := t.fallback.Get(key); ok && wildcard.Match(string(first), pattern) {
			found[key] = v
		}
		return
	}

	if t.alpha.Size() <= t.fallback.Len() {
		for i := 0; i < t.alpha.Size(); i++ {
			s := string(t.alpha.Symbol(i))
			if v, ok := t.fallback.Get(prefix + s); ok && wildcard.Match(s, pattern) {
				found[prefix+s] = v
			}
		}
		return
	}

	depth := utf8.RuneCountInString(prefix)
	for _, key := range t.fallback.Keys() {
		if !strings.HasPrefix(key, prefix) || utf8.RuneCountInString(key) != depth+1 {
			continue
		}
		if wildcard.Match(key[len(prefix):], pattern) {
			v, _ := t.fallback.Get(key)
			found[key] = v
		}
	}
}
