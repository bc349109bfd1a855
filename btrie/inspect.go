package btrie

import (
	"fmt"
	"io"

	recordfile "BTrieDB/recordfile_manager"

	"github.com/dustin/go-humanize"
)

// Dump writes a level-by-level view of the trie to w: every node with its
// non-empty slot runs, every bucket with its range and load, then the
// fallback keys. Intended for debugging small tries.
func (t *BTrie) Dump(w io.Writer) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return err
	}
	p := func(format string, args ...interface{}) { fmt.Fprintf(w, format, args...) }

	p("Trie: %s\n", t.dir)
	p("  alphabet: %d symbols, bucket size %s, policy %s\n",
		t.alpha.Size(), humanize.IBytes(uint64(t.opts.BucketSize)), t.opts.Policy)
	for _, f := range []*recordfile.File{t.nodeFile, t.bucketFile} {
		p("  %s: %d records of %s (%s)\n", f.Path(), f.Records(),
			humanize.IBytes(uint64(f.RecordSize())), humanize.IBytes(uint64(f.Size())))
	}

	type item struct {
		off    int64
		prefix string
	}
	queue := []item{{off: t.rootOffset}}
	level := 0
	for len(queue) > 0 {
		size := len(queue)
		p("  Level %d:\n", level)
		for _, it := range queue[:size] {
			node, h, err := t.nodes.get(it.off, noHandle)
			if err != nil {
				p("    [node %d] read error: %v\n", it.off, err)
				continue
			}
			refs := node.snapshot()
			t.nodes.release(h)

			p("    [node %d] prefix=%q level=%d\n", it.off, it.prefix, node.level)
			for from := 0; from < len(refs); {
				to := from
				for to+1 < len(refs) && refs[to+1] == refs[from] {
					to++
				}
				ref := refs[from]
				lo, hi := string(t.alpha.Symbol(from)), string(t.alpha.Symbol(to))
				switch ref.Kind {
				case RefNode:
					p("      %q -> node %d\n", lo, ref.Offset)
					queue = append(queue, item{off: ref.Offset, prefix: it.prefix + lo})
				case RefBucket:
					b, bh, err := t.buckets.get(ref.Offset, noHandle)
					if err != nil {
						p("      [%q-%q] bucket %d read error: %v\n", lo, hi, ref.Offset, err)
						break
					}
					p("      [%q-%q] -> bucket %d groups=%d count=%d used=%s/%s\n",
						lo, hi, ref.Offset, len(b.groups), b.count,
						humanize.IBytes(uint64(b.size)), humanize.IBytes(uint64(b.capacity)))
					t.buckets.release(bh)
				}
				from = to + 1
			}
		}
		p("  ---\n")
		queue = queue[size:]
		level++
	}

	keys := t.fallback.Keys()
	p("  Fallback (%d keys):\n", len(keys))
	for _, k := range keys {
		v, _ := t.fallback.Get(k)
		p("    %q -> %d\n", k, v)
	}
	return nil
}
