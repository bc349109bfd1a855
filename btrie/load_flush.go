package btrie

import (
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Load warms both caches breadth first from the root and stops once they are
// full. It never evicts what is already resident.
func (t *BTrie) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return err
	}
	return t.fail(t.load())
}

func (t *BTrie) load() error {
	start := time.Now()
	var nodes, buckets int

	queue := []int64{t.rootOffset}
	for len(queue) > 0 && !(t.nodes.isFull() && t.buckets.isFull()) {
		off := queue[0]
		queue = queue[1:]

		if !t.nodes.resident(off) && t.nodes.isFull() {
			continue
		}
		node, h, err := t.nodes.get(off, noHandle)
		if err != nil {
			if errors.Is(err, ErrCacheExhausted) {
				break
			}
			return err
		}
		nodes++
		refs := node.snapshot()

		var last int64 = -1
		for i, ref := range refs {
			switch ref.Kind {
			case RefNode:
				queue = append(queue, ref.Offset)
			case RefBucket:
				if ref.Offset == last || t.buckets.resident(ref.Offset) || t.buckets.isFull() {
					continue
				}
				last = ref.Offset
				_, bh, err := t.buckets.get(ref.Offset, node.childMem(i))
				if err != nil {
					t.nodes.release(h)
					if errors.Is(err, ErrCacheExhausted) {
						return nil
					}
					return err
				}
				node.setChildMem(i, bh)
				t.buckets.release(bh)
				buckets++
			}
		}
		t.nodes.release(h)
	}

	t.log.Info("trie loaded",
		zap.Int("nodes", nodes), zap.Int("buckets", buckets),
		zap.Duration("took", time.Since(start)))
	return nil
}

// Flush writes every dirty node and bucket, saves the fallback table and
// syncs both record files.
func (t *BTrie) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return err
	}
	return t.fail(t.flush())
}

func (t *BTrie) flush() error {
	if err := t.nodes.flush(); err != nil {
		return err
	}
	if err := t.buckets.flush(); err != nil {
		return err
	}
	if err := t.fallback.Save(); err != nil {
		return err
	}
	if err := t.nodeFile.Sync(); err != nil {
		return err
	}
	return t.bucketFile.Sync()
}
