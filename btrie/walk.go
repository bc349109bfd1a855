package btrie

// Walk calls fn for every key in key order until fn returns false.
// fn runs with the trie locked and must not call back into it.
func (t *BTrie) Walk(fn func(key string, addr int64) bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return err
	}
	if v, ok := t.fallback.Get(""); ok && !fn("", v) {
		return nil
	}
	_, err := t.walkNode(t.rootOffset, "", fn)
	return t.fail(err)
}

// walkNode visits slot by slot: the fallback key ending at the slot symbol
// sorts before everything below the slot.
func (t *BTrie) walkNode(off int64, prefix string, fn func(string, int64) bool) (bool, error) {
	node, h, err := t.nodes.get(off, noHandle)
	if err != nil {
		return false, err
	}
	refs := node.snapshot()
	t.nodes.release(h)

	for i, ref := range refs {
		head := prefix + string(t.alpha.Symbol(i))
		if v, ok := t.fallback.Get(head); ok && !fn(head, v) {
			return false, nil
		}
		switch ref.Kind {
		case RefNode:
			more, err := t.walkNode(ref.Offset, head, fn)
			if err != nil || !more {
				return more, err
			}
		case RefBucket:
			b, bh, err := t.buckets.get(ref.Offset, noHandle)
			if err != nil {
				return false, err
			}
			var group []entry
			b.each(uint16(i), func(rest string, value int64) {
				group = append(group, entry{rest: rest, value: value})
			})
			t.buckets.release(bh)
			for _, e := range group {
				if !fn(head+e.rest, e.value) {
					return false, nil
				}
			}
		}
	}
	return true, nil
}

// Len returns the number of keys stored.
func (t *BTrie) Len() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return 0, err
	}
	n, err := t.countNode(t.rootOffset)
	if err != nil {
		return 0, t.fail(err)
	}
	return n + t.fallback.Len(), nil
}

func (t *BTrie) countNode(off int64) (int, error) {
	node, h, err := t.nodes.get(off, noHandle)
	if err != nil {
		return 0, err
	}
	refs := node.snapshot()
	t.nodes.release(h)

	total := 0
	var last int64 = -1
	for _, ref := range refs {
		switch ref.Kind {
		case RefNode:
			n, err := t.countNode(ref.Offset)
			if err != nil {
				return 0, err
			}
			total += n
		case RefBucket:
			if ref.Offset == last {
				continue
			}
			last = ref.Offset
			b, bh, err := t.buckets.get(ref.Offset, noHandle)
			if err != nil {
				return 0, err
			}
			total += b.Count()
			t.buckets.release(bh)
		}
	}
	return total, nil
}
