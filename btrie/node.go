package btrie

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// childSlotSize is one encoded child: tag(1) + offset(8).
const childSlotSize = 9

type childSlot struct {
	ref Ref
	mem handle // cache slot of the child when last resolved; only a hint
}

// TrieNode has one child slot per alphabet symbol.
/*
Node record:
───────────────────────────────────────────────────────────
| tag(1) offset(8) | ... N child slots ... | level (4) |
───────────────────────────────────────────────────────────
*/
type TrieNode struct {
	offset   int64
	level    uint32
	children []childSlot
	dirty    bool
}

func nodeRecordSize(symbols int) int {
	return symbols*childSlotSize + 4
}

func newTrieNode(symbols int, level uint32) *TrieNode {
	n := &TrieNode{
		offset:   -1,
		level:    level,
		children: make([]childSlot, symbols),
		dirty:    true,
	}
	for i := range n.children {
		n.children[i].mem = noHandle
	}
	return n
}

func (n *TrieNode) Offset() int64 { return n.offset }
func (n *TrieNode) Level() uint32 { return n.level }

func (n *TrieNode) Child(i int) Ref { return n.children[i].ref }

func (n *TrieNode) childMem(i int) handle { return n.children[i].mem }

func (n *TrieNode) setChildMem(i int, h handle) { n.children[i].mem = h }

// SetChild points slot i at ref and reports whether anything changed.
func (n *TrieNode) SetChild(i int, ref Ref) bool {
	if n.children[i].ref == ref {
		return false
	}
	n.children[i] = childSlot{ref: ref, mem: noHandle}
	n.dirty = true
	return true
}

// SetChildRange fans slots from..to (inclusive) to the same child.
func (n *TrieNode) SetChildRange(from, to int, ref Ref) {
	for i := from; i <= to; i++ {
		n.SetChild(i, ref)
	}
}

// emptyRun returns the widest run of empty slots around i.
func (n *TrieNode) emptyRun(i int) (from, to int) {
	from, to = i, i
	for from > 0 && n.children[from-1].ref.Kind == RefEmpty {
		from--
	}
	for to < len(n.children)-1 && n.children[to+1].ref.Kind == RefEmpty {
		to++
	}
	return from, to
}

// snapshot copies the child refs so they can be used after the pin is released.
func (n *TrieNode) snapshot() []Ref {
	refs := make([]Ref, len(n.children))
	for i, c := range n.children {
		refs[i] = c.ref
	}
	return refs
}

func (n *TrieNode) diskOffset() int64 { return n.offset }
func (n *TrieNode) isDirty() bool     { return n.dirty }
func (n *TrieNode) setClean()         { n.dirty = false }

func (n *TrieNode) encode() []byte {
	buf := make([]byte, nodeRecordSize(len(n.children)))
	off := 0
	for _, c := range n.children {
		buf[off] = byte(c.ref.Kind)
		binary.LittleEndian.PutUint64(buf[off+1:], uint64(c.ref.Offset))
		off += childSlotSize
	}
	binary.LittleEndian.PutUint32(buf[off:], n.level)
	return buf
}

func decodeTrieNode(offset int64, buf []byte, symbols int) (*TrieNode, error) {
	if len(buf) != nodeRecordSize(symbols) {
		return nil, errors.Wrapf(ErrCorrupt, "node %d: record size %d, want %d", offset, len(buf), nodeRecordSize(symbols))
	}
	n := &TrieNode{offset: offset, children: make([]childSlot, symbols)}
	off := 0
	for i := range n.children {
		kind := RefKind(buf[off])
		if kind > RefBucket {
			return nil, errors.Wrapf(ErrCorrupt, "node %d: slot %d has tag %d", offset, i, kind)
		}
		ref := Ref{Kind: kind, Offset: int64(binary.LittleEndian.Uint64(buf[off+1:]))}
		if kind == RefEmpty {
			ref.Offset = 0
		}
		n.children[i] = childSlot{ref: ref, mem: noHandle}
		off += childSlotSize
	}
	n.level = binary.LittleEndian.Uint32(buf[off:])
	return n, nil
}
