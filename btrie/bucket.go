package btrie

import (
	"encoding/binary"
	"sort"

	"github.com/cockroachdb/errors"
)

/*
Bucket record (exactly BucketSize bytes):
──────────────────────────────────────────────────────────
| from (2) | to (2) | count (4) | size (4) | stringBuf ... |
──────────────────────────────────────────────────────────

Each entry in stringBuf:
──────────────────────────────────────────────────────
| restLen (4) | sym (2) | rest (restLen) | value (8) |
──────────────────────────────────────────────────────
*/
const (
	bucketHeaderSize = 12
	entryOverhead    = 4 + 2 + 8
)

func entrySize(rest string) int { return entryOverhead + len(rest) }

type entry struct {
	rest  string
	value int64
}

// stringGroup holds the pairs whose next symbol is sym, sorted by rest.
type stringGroup struct {
	sym     uint16
	entries []entry
}

type Bucket struct {
	offset   int64
	from, to uint16
	groups   []stringGroup // sorted by sym
	count    int
	size     int
	capacity int // payload bytes available for entries
	dirty    bool
}

func newBucket(bucketSize int, from, to uint16) *Bucket {
	return &Bucket{
		offset:   -1,
		from:     from,
		to:       to,
		capacity: bucketSize - bucketHeaderSize,
		dirty:    true,
	}
}

func (b *Bucket) Offset() int64            { return b.offset }
func (b *Bucket) Range() (from, to uint16) { return b.from, b.to }
func (b *Bucket) Count() int               { return b.count }
func (b *Bucket) Size() int                { return b.size }
func (b *Bucket) IsPure() bool             { return b.from == b.to }
func (b *Bucket) IsFull() bool             { return b.size >= b.capacity }

func (b *Bucket) diskOffset() int64 { return b.offset }
func (b *Bucket) isDirty() bool     { return b.dirty }
func (b *Bucket) setClean()         { b.dirty = false }

func (b *Bucket) findGroup(sym uint16) (int, bool) {
	i := sort.Search(len(b.groups), func(i int) bool { return b.groups[i].sym >= sym })
	return i, i < len(b.groups) && b.groups[i].sym == sym
}

func (g *stringGroup) find(rest string) (int, bool) {
	i := sort.Search(len(g.entries), func(i int) bool { return g.entries[i].rest >= rest })
	return i, i < len(g.entries) && g.entries[i].rest == rest
}

// Add inserts (sym, rest) -> value in sorted position. It fails with
// errDuplicate if the pair exists and errBucketFull if it would not fit;
// the bucket is unchanged in both cases.
func (b *Bucket) Add(sym uint16, rest string, value int64) error {
	if sym < b.from || sym > b.to {
		return errors.AssertionFailedf("bucket %d: symbol %d outside range [%d, %d]", b.offset, sym, b.from, b.to)
	}
	if rest == "" {
		return errors.AssertionFailedf("bucket %d: empty rest for symbol %d", b.offset, sym)
	}
	gi, found := b.findGroup(sym)
	var ei int
	if found {
		var exists bool
		ei, exists = b.groups[gi].find(rest)
		if exists {
			return errDuplicate
		}
	}
	es := entrySize(rest)
	if b.size+es > b.capacity {
		return errBucketFull
	}
	if !found {
		b.groups = append(b.groups, stringGroup{})
		copy(b.groups[gi+1:], b.groups[gi:])
		b.groups[gi] = stringGroup{sym: sym}
		ei = 0
	}
	g := &b.groups[gi]
	g.entries = append(g.entries, entry{})
	copy(g.entries[ei+1:], g.entries[ei:])
	g.entries[ei] = entry{rest: rest, value: value}

	b.count++
	b.size += es
	b.dirty = true
	return nil
}

func (b *Bucket) Get(sym uint16, rest string) (int64, bool) {
	gi, ok := b.findGroup(sym)
	if !ok {
		return 0, false
	}
	ei, ok := b.groups[gi].find(rest)
	if !ok {
		return 0, false
	}
	return b.groups[gi].entries[ei].value, true
}

// Update replaces the value of an existing pair and reports whether it existed.
func (b *Bucket) Update(sym uint16, rest string, value int64) bool {
	gi, ok := b.findGroup(sym)
	if !ok {
		return false
	}
	ei, ok := b.groups[gi].find(rest)
	if !ok {
		return false
	}
	e := &b.groups[gi].entries[ei]
	if e.value != value {
		e.value = value
		b.dirty = true
	}
	return true
}

// Remove deletes a pair and reports whether it existed. Emptied groups go too.
func (b *Bucket) Remove(sym uint16, rest string) bool {
	gi, ok := b.findGroup(sym)
	if !ok {
		return false
	}
	g := &b.groups[gi]
	ei, ok := g.find(rest)
	if !ok {
		return false
	}
	g.entries = append(g.entries[:ei], g.entries[ei+1:]...)
	if len(g.entries) == 0 {
		b.groups = append(b.groups[:gi], b.groups[gi+1:]...)
	}
	b.count--
	b.size -= entrySize(rest)
	b.dirty = true
	return true
}

// recount recomputes count and size from the groups.
func (b *Bucket) recount() {
	b.count, b.size = 0, 0
	for _, g := range b.groups {
		for _, e := range g.entries {
			b.count++
			b.size += entrySize(e.rest)
		}
	}
}

func (b *Bucket) encode() []byte {
	buf := make([]byte, bucketHeaderSize+b.capacity)
	binary.LittleEndian.PutUint16(buf[0:], b.from)
	binary.LittleEndian.PutUint16(buf[2:], b.to)
	binary.LittleEndian.PutUint32(buf[4:], uint32(b.count))
	binary.LittleEndian.PutUint32(buf[8:], uint32(b.size))
	off := bucketHeaderSize
	for _, g := range b.groups {
		for _, e := range g.entries {
			binary.LittleEndian.PutUint32(buf[off:], uint32(len(e.rest)))
			binary.LittleEndian.PutUint16(buf[off+4:], g.sym)
			off += 6
			off += copy(buf[off:], e.rest)
			binary.LittleEndian.PutUint64(buf[off:], uint64(e.value))
			off += 8
		}
	}
	return buf
}

func decodeBucket(offset int64, buf []byte, bucketSize int) (*Bucket, error) {
	if len(buf) != bucketSize {
		return nil, errors.Wrapf(ErrCorrupt, "bucket %d: record size %d, want %d", offset, len(buf), bucketSize)
	}
	b := &Bucket{
		offset:   offset,
		from:     binary.LittleEndian.Uint16(buf[0:]),
		to:       binary.LittleEndian.Uint16(buf[2:]),
		capacity: bucketSize - bucketHeaderSize,
	}
	count := int(binary.LittleEndian.Uint32(buf[4:]))
	size := int(binary.LittleEndian.Uint32(buf[8:]))
	if b.from > b.to || size > b.capacity {
		return nil, errors.Wrapf(ErrCorrupt, "bucket %d: range [%d, %d] size %d", offset, b.from, b.to, size)
	}

	off := bucketHeaderSize
	end := bucketHeaderSize + size
	for i := 0; i < count; i++ {
		if off+6 > end {
			return nil, errors.Wrapf(ErrCorrupt, "bucket %d: entry %d header overflows", offset, i)
		}
		restLen := int(binary.LittleEndian.Uint32(buf[off:]))
		sym := binary.LittleEndian.Uint16(buf[off+4:])
		off += 6
		if restLen == 0 || off+restLen+8 > end {
			return nil, errors.Wrapf(ErrCorrupt, "bucket %d: entry %d body overflows", offset, i)
		}
		rest := string(buf[off : off+restLen])
		off += restLen
		value := int64(binary.LittleEndian.Uint64(buf[off:]))
		off += 8

		if sym < b.from || sym > b.to {
			return nil, errors.Wrapf(ErrCorrupt, "bucket %d: entry %d symbol %d outside range", offset, i, sym)
		}
		n := len(b.groups)
		switch {
		case n == 0 || b.groups[n-1].sym < sym:
			b.groups = append(b.groups, stringGroup{sym: sym})
		case b.groups[n-1].sym > sym:
			return nil, errors.Wrapf(ErrCorrupt, "bucket %d: groups out of order at entry %d", offset, i)
		}
		g := &b.groups[len(b.groups)-1]
		if k := len(g.entries); k > 0 && g.entries[k-1].rest >= rest {
			return nil, errors.Wrapf(ErrCorrupt, "bucket %d: entries out of order at entry %d", offset, i)
		}
		g.entries = append(g.entries, entry{rest: rest, value: value})
	}
	if off != end {
		return nil, errors.Wrapf(ErrCorrupt, "bucket %d: size %d but entries end at %d", offset, size, off-bucketHeaderSize)
	}
	b.count, b.size = count, size
	return b, nil
}
