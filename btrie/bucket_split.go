package btrie

import (
	"unicode/utf8"

	"BTrieDB/alphabet"

	"github.com/cockroachdb/errors"
)

// leftover is a pair whose rest ran out while moving a bucket one level down.
// rest is the single symbol that was left; the caller re-attaches the path.
type leftover struct {
	rest  string
	value int64
}

/*
Split a bucket holding at least two groups.

	before:  [from ........................ to]   g0 g1 g2 g3
	after:   [from ... g1.sym]  (g1.sym ... to]   g0 g1 | g2 g3

The boundary is the first group at which the running count reaches
count*ratio/100. The last group always moves, so both halves are non-empty.
Groups after the boundary move to out, a freshly acquired empty bucket.
*/
func (b *Bucket) SplitByGroup(ratio int, out *Bucket) (splitSym uint16, err error) {
	if len(b.groups) < 2 {
		return 0, errors.AssertionFailedf("bucket %d: split by group needs two groups, have %d", b.offset, len(b.groups))
	}
	if out.count != 0 {
		return 0, errors.AssertionFailedf("bucket %d: split target %d is not empty", b.offset, out.offset)
	}
	target := b.count * ratio / 100
	if target < 1 {
		target = 1
	}
	boundary, acc := len(b.groups)-2, 0
	for i := 0; i < len(b.groups)-1; i++ {
		acc += len(b.groups[i].entries)
		if acc >= target {
			boundary = i
			break
		}
	}
	splitSym = b.groups[boundary].sym

	out.from, out.to = splitSym+1, b.to
	out.groups = append([]stringGroup(nil), b.groups[boundary+1:]...)
	out.recount()
	out.dirty = true

	b.groups = b.groups[: boundary+1 : boundary+1]
	b.to = splitSym
	b.recount()
	b.dirty = true
	return splitSym, nil
}

// Narrow shrinks a single-group bucket to a pure bucket on that group and
// returns the range it used to cover.
func (b *Bucket) Narrow() (oldFrom, oldTo uint16, err error) {
	if len(b.groups) != 1 {
		return 0, 0, errors.AssertionFailedf("bucket %d: narrow needs one group, have %d", b.offset, len(b.groups))
	}
	oldFrom, oldTo = b.from, b.to
	b.from, b.to = b.groups[0].sym, b.groups[0].sym
	b.dirty = true
	return oldFrom, oldTo, nil
}

// Deepen moves a pure bucket one level down: every (rest, v) of its group
// becomes (rest[0], rest[1:], v) and the bucket then covers the whole
// alphabet of a new node. Pairs whose rest is a single symbol cannot stay
// and come back as leftovers.
func (b *Bucket) Deepen(alpha *alphabet.Alphabet) ([]leftover, error) {
	if !b.IsPure() || len(b.groups) > 1 {
		return nil, errors.AssertionFailedf("bucket %d: deepen needs a pure bucket, have range [%d, %d] with %d groups",
			b.offset, b.from, b.to, len(b.groups))
	}
	var old []entry
	if len(b.groups) == 1 {
		old = b.groups[0].entries
	}

	var out []leftover
	var groups []stringGroup
	for _, e := range old {
		r, n := utf8.DecodeRuneInString(e.rest)
		if n == len(e.rest) {
			out = append(out, leftover{rest: e.rest, value: e.value})
			continue
		}
		idx, ok := alpha.Index(r)
		if !ok {
			return nil, errors.Wrapf(ErrCorrupt, "bucket %d: rune %q outside the alphabet", b.offset, r)
		}
		sym := uint16(idx)
		// rests are sorted, so first symbols arrive in order
		if k := len(groups); k == 0 || groups[k-1].sym != sym {
			groups = append(groups, stringGroup{sym: sym})
		}
		g := &groups[len(groups)-1]
		g.entries = append(g.entries, entry{rest: e.rest[n:], value: e.value})
	}

	b.groups = groups
	b.from, b.to = 0, uint16(alpha.Size()-1)
	b.recount()
	b.dirty = true
	return out, nil
}
