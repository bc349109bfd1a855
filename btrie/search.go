package btrie

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// descend walks k from the root the same way insert does. At the node where
// k has at most one symbol left it calls atFallback; at a bucket it calls
// atBucket with the pinned bucket, the group symbol and the rest. An empty
// slot ends the walk with false.
func (t *BTrie) descend(k keyPath, atBucket func(b *Bucket, sym uint16, rest string) bool, atFallback func() bool) (bool, error) {
	node, h, err := t.nodes.get(t.rootOffset, noHandle)
	if err != nil {
		return false, err
	}
	defer func() { t.nodes.release(h) }()

	for depth := 0; ; depth++ {
		if k.remaining(depth) <= 1 {
			return atFallback(), nil
		}
		sym := int(k.syms[depth])
		child := node.Child(sym)

		switch child.Kind {
		case RefEmpty:
			return false, nil

		case RefBucket:
			b, bh, err := t.buckets.get(child.Offset, node.childMem(sym))
			if err != nil {
				return false, err
			}
			node.setChildMem(sym, bh)
			ok := atBucket(b, uint16(sym), k.rest(depth))
			t.buckets.release(bh)
			return ok, nil

		case RefNode:
			next, nh, err := t.nodes.get(child.Offset, node.childMem(sym))
			if err != nil {
				return false, err
			}
			node.setChildMem(sym, nh)
			t.nodes.release(h)
			node, h = next, nh

		default:
			return false, errors.AssertionFailedf("node %d: slot %d has kind %s", node.offset, sym, child.Kind)
		}
	}
}

// Find returns the address stored for key, or ErrNotFound. Keys outside
// the alphabet and broken child chains are reported as ErrNotFound too; the
// underlying error stays in the chain.
func (t *BTrie) Find(key string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return 0, err
	}
	if t.lookup != nil {
		if v, ok := t.lookup.Get(key); ok {
			return v, nil
		}
	}
	k, err := t.parseKey(key)
	if err != nil {
		return 0, asNotFound(err)
	}

	addr, found, err := t.get(k)
	if err != nil {
		if t.brokenChain("find", key, err) {
			return 0, asNotFound(err)
		}
		return 0, t.fail(err)
	}
	if !found {
		return 0, ErrNotFound
	}

	if t.lookup != nil {
		t.lookup.Set(key, addr, 1)
		t.lookup.Wait()
	}
	return addr, nil
}

func (t *BTrie) get(k keyPath) (addr int64, found bool, err error) {
	found, err = t.descend(k,
		func(b *Bucket, sym uint16, rest string) bool {
			v, ok := b.Get(sym, rest)
			addr = v
			return ok
		},
		func() bool {
			v, ok := t.fallback.Get(k.key)
			addr = v
			return ok
		})
	return addr, found, err
}

// brokenChain reports whether err is a child reference that leads nowhere.
// Lookups treat that as a missing key.
func (t *BTrie) brokenChain(op, key string, err error) bool {
	if !errors.Is(err, ErrBrokenChain) {
		return false
	}
	t.log.Warn("broken chain", zap.String("op", op), zap.String("key", key), zap.Error(err))
	return true
}
