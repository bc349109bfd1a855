package btrie

import (
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// keyPath is a key resolved against the alphabet.
type keyPath struct {
	key  string
	syms []uint16
	offs []int // byte offset of each symbol, plus len(key)
}

func (t *BTrie) parseKey(key string) (keyPath, error) {
	k := keyPath{
		key:  key,
		syms: make([]uint16, 0, len(key)),
		offs: make([]int, 0, len(key)+1),
	}
	for off, r := range key {
		if r == utf8.RuneError {
			return keyPath{}, errors.Wrapf(ErrInvalidKey, "%q: invalid utf-8 at byte %d", key, off)
		}
		i, ok := t.alpha.Index(r)
		if !ok {
			return keyPath{}, errors.Wrapf(ErrInvalidKey, "%q: symbol %q at byte %d", key, r, off)
		}
		k.syms = append(k.syms, uint16(i))
		k.offs = append(k.offs, off)
	}
	k.offs = append(k.offs, len(key))
	return k, nil
}

// fitsBucket reports whether the longest rest of key fits an empty bucket.
func (t *BTrie) fitsBucket(key string) bool {
	return entrySize(key) <= t.opts.BucketSize-bucketHeaderSize
}

// remaining is the number of symbols not yet consumed at depth d.
func (k keyPath) remaining(d int) int { return len(k.syms) - d }

// prefix is the key consumed above depth d.
func (k keyPath) prefix(d int) string { return k.key[:k.offs[d]] }

// rest is what a bucket stores for the key when reached at depth d.
func (k keyPath) rest(d int) string { return k.key[k.offs[d+1]:] }
