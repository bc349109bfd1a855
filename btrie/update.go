package btrie

import (
	"github.com/cockroachdb/errors"
)

// Update replaces the address of an existing key and reports whether the key
// was present. Update(key, Tombstone) is Delete(key).
func (t *BTrie) Update(key string, addr int64) (bool, error) {
	if addr == Tombstone {
		return t.Delete(key)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return false, err
	}
	if addr < 0 {
		return false, errors.Wrapf(ErrInvalidAddress, "update %q: %d", key, addr)
	}
	k, err := t.parseKey(key)
	if err != nil {
		return false, err
	}

	t.forget(key)
	ok, err := t.descend(k,
		func(b *Bucket, sym uint16, rest string) bool { return b.Update(sym, rest, addr) },
		func() bool { return t.fallback.Update(key, addr) })
	if err != nil && t.brokenChain("update", key, err) {
		return false, nil
	}
	return ok, t.fail(err)
}

// Delete removes key. The pair is dropped from its bucket or from the
// fallback table; nothing is left behind to be mistaken for a value.
func (t *BTrie) Delete(key string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return false, err
	}
	k, err := t.parseKey(key)
	if err != nil {
		return false, err
	}

	t.forget(key)
	ok, err := t.descend(k,
		func(b *Bucket, sym uint16, rest string) bool { return b.Remove(sym, rest) },
		func() bool { return t.fallback.Delete(key) })
	if err != nil && t.brokenChain("delete", key, err) {
		return false, nil
	}
	return ok, t.fail(err)
}

// forget drops key from the lookup cache.
func (t *BTrie) forget(key string) {
	if t.lookup != nil {
		t.lookup.Del(key)
	}
}
