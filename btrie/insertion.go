package btrie

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Insert maps key to addr. It returns false, and changes nothing, if key is
// already present; use Update to change an existing value.
func (t *BTrie) Insert(key string, addr int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return false, err
	}
	if addr < 0 {
		return false, errors.Wrapf(ErrInvalidAddress, "insert %q: %d", key, addr)
	}
	k, err := t.parseKey(key)
	if err != nil {
		return false, err
	}
	if !t.fitsBucket(key) {
		return false, errors.Wrapf(ErrKeyTooLong, "%d bytes, bucket size %d", len(key), t.opts.BucketSize)
	}
	ok, err := t.insert(k, addr)
	return ok, t.fail(err)
}

/*
insert walks one symbol per node, keeping only the current node pinned.

	empty slot   -> new bucket over the widest empty run of slots around it
	node slot    -> descend
	bucket slot  -> add; if the pair does not fit, split the bucket and retry
	                from the same node (the slot may now lead somewhere new)
*/
func (t *BTrie) insert(k keyPath, addr int64) (bool, error) {
	node, h, err := t.nodes.get(t.rootOffset, noHandle)
	if err != nil {
		return false, err
	}
	defer func() { t.nodes.release(h) }()

	depth := 0
	for {
		if k.remaining(depth) <= 1 {
			return t.fallback.Insert(k.key, addr), nil
		}
		sym := int(k.syms[depth])
		child := node.Child(sym)

		switch child.Kind {
		case RefEmpty:
			from, to := node.emptyRun(sym)
			b, bh, err := t.buckets.newBucket(uint16(from), uint16(to))
			if err != nil {
				return false, err
			}
			node.SetChildRange(from, to, bucketRef(b.offset))
			node.setChildMem(sym, bh)
			err = b.Add(uint16(sym), k.rest(depth), addr)
			t.buckets.release(bh)
			if err != nil {
				return false, errors.WithAssertionFailure(err)
			}
			return true, nil

		case RefNode:
			next, nh, err := t.nodes.get(child.Offset, node.childMem(sym))
			if err != nil {
				return false, err
			}
			node.setChildMem(sym, nh)
			t.nodes.release(h)
			node, h = next, nh
			depth++

		case RefBucket:
			b, bh, err := t.buckets.get(child.Offset, node.childMem(sym))
			if err != nil {
				return false, err
			}
			node.setChildMem(sym, bh)
			err = b.Add(uint16(sym), k.rest(depth), addr)
			switch {
			case err == nil:
				t.buckets.release(bh)
				return true, nil
			case errors.Is(err, errDuplicate):
				t.buckets.release(bh)
				return false, nil
			case errors.Is(err, errBucketFull):
				err = t.splitBucket(node, k, depth, b)
				t.buckets.release(bh)
				if err != nil {
					return false, err
				}
			default:
				t.buckets.release(bh)
				return false, err
			}

		default:
			return false, errors.AssertionFailedf("node %d: slot %d has kind %s", node.offset, sym, child.Kind)
		}
	}
}

// splitBucket makes room in b, which parent reaches at depth. Each call
// makes exactly one structural change:
//   - two or more groups: move the upper groups into a new bucket
//   - one group over a range: narrow the bucket to that group's slot
//   - pure bucket: push it under a new node one level deeper
func (t *BTrie) splitBucket(parent *TrieNode, k keyPath, depth int, b *Bucket) error {
	switch {
	case len(b.groups) >= 2:
		oldTo := b.to
		right, rh, err := t.buckets.newBucket(0, 0)
		if err != nil {
			return err
		}
		defer t.buckets.release(rh)
		before := b.count
		splitSym, err := b.SplitByGroup(t.opts.SplitRatio, right)
		if err != nil {
			return err
		}
		parent.SetChildRange(int(splitSym)+1, int(oldTo), bucketRef(right.offset))
		t.log.Debug("bucket split",
			zap.Int64("bucket", b.offset), zap.Int64("right", right.offset),
			zap.Uint16("split_sym", splitSym), zap.Int("before", before),
			zap.Int("left", b.count), zap.Int("right_count", right.count))

	case len(b.groups) == 1 && !b.IsPure():
		oldFrom, oldTo, err := b.Narrow()
		if err != nil {
			return err
		}
		for i := int(oldFrom); i <= int(oldTo); i++ {
			if i != int(b.from) {
				parent.SetChild(i, Ref{})
			}
		}
		t.log.Debug("bucket narrowed", zap.Int64("bucket", b.offset), zap.Uint16("sym", b.from))

	case b.IsPure():
		pureSym := int(b.from)
		q, qh, err := t.nodes.newNode(parent.level + 1)
		if err != nil {
			return err
		}
		defer t.nodes.release(qh)
		leftovers, err := b.Deepen(t.alpha)
		if err != nil {
			return err
		}
		q.SetChildRange(0, t.alpha.Size()-1, bucketRef(b.offset))
		parent.SetChild(pureSym, nodeRef(q.offset))
		parent.setChildMem(pureSym, qh)

		head := k.prefix(depth) + string(t.alpha.Symbol(pureSym))
		for _, lo := range leftovers {
			if !t.fallback.Insert(head+lo.rest, lo.value) {
				return errors.AssertionFailedf("leftover %q already in fallback table", head+lo.rest)
			}
		}
		t.log.Debug("bucket deepened",
			zap.Int64("bucket", b.offset), zap.Int64("node", q.offset),
			zap.Uint32("level", q.level), zap.Int("leftovers", len(leftovers)))

	default:
		return errors.AssertionFailedf("bucket %d: full with no groups (range [%d, %d], size %d)", b.offset, b.from, b.to, b.size)
	}
	return nil
}
