package btrie

import (
	recordfile "BTrieDB/recordfile_manager"

	"go.uber.org/zap"
)

// NodeCache pages TrieNodes. Evicting a node first evicts its resident,
// unpinned child nodes, depth first, so children reach disk before parents.
type NodeCache struct {
	*pagedCache[*TrieNode]
	symbols int
}

func newNodeCache(capacity int, file *recordfile.File, symbols int, policy Policy, log *zap.Logger) *NodeCache {
	decode := func(off int64, buf []byte) (*TrieNode, error) {
		return decodeTrieNode(off, buf, symbols)
	}
	nc := &NodeCache{
		pagedCache: newPagedCache[*TrieNode]("node", capacity, file, policy, decode, log),
		symbols:    symbols,
	}
	nc.beforeEvict = nc.kickOutChildren
	return nc
}

// kickOutChildren evicts every resident child of the node in slot h.
// Pinned children stay; the parent's memory hints for them simply go stale.
func (nc *NodeCache) kickOutChildren(h handle) error {
	n := nc.slots[h].obj
	for i := range n.children {
		ref := n.children[i].ref
		if ref.Kind != RefNode {
			continue
		}
		ch, ok := nc.lookup(ref.Offset, n.children[i].mem)
		if !ok || ch == h || nc.slots[ch].pins > 0 {
			continue
		}
		if err := nc.evict(ch); err != nil {
			return err
		}
		n.children[i].mem = noHandle
	}
	return nil
}

func (nc *NodeCache) newNode(level uint32) (*TrieNode, handle, error) {
	n := newTrieNode(nc.symbols, level)
	h, err := nc.allocate(n, func(off int64) { n.offset = off })
	if err != nil {
		return nil, noHandle, err
	}
	return n, h, nil
}
