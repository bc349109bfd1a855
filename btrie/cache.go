package btrie

import (
	recordfile "BTrieDB/recordfile_manager"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

/*
pagedCache is a fixed-capacity arena of slots over one record file.

slot lifecycle:  empty -> loaded (clean) -> loaded (dirty) -> evicting -> empty

- get loads on miss and pins the slot; the caller releases the pin when the
  traversal frame that borrowed it returns (usually with defer)
- pinned slots are never chosen as victims
- a victim is written back before its slot is reused
*/

type cacheable interface {
	diskOffset() int64
	isDirty() bool
	setClean()
	encode() []byte
}

type cacheSlot[T cacheable] struct {
	obj   T
	used  bool
	pins  int
	score Score
}

type CacheStats struct {
	Capacity   int
	Resident   int
	Pinned     int
	Dirty      int
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	WriteBacks uint64
}

type pagedCache[T cacheable] struct {
	kind     string
	slots    []cacheSlot[T]
	free     []handle
	index    map[int64]handle // disk offset -> slot
	capacity int
	file     *recordfile.File
	decode   func(off int64, buf []byte) (T, error)
	policy   Policy
	clock    uint64
	log      *zap.Logger

	// beforeEvict runs before a victim is written back and dropped.
	beforeEvict func(h handle) error

	stats CacheStats
}

func newPagedCache[T cacheable](kind string, capacity int, file *recordfile.File, policy Policy,
	decode func(int64, []byte) (T, error), log *zap.Logger) *pagedCache[T] {
	return &pagedCache[T]{
		kind:     kind,
		slots:    make([]cacheSlot[T], 0, capacity),
		index:    make(map[int64]handle, capacity),
		capacity: capacity,
		file:     file,
		decode:   decode,
		policy:   policy,
		log:      log,
	}
}

func (c *pagedCache[T]) touch(h handle) {
	c.clock++
	c.policy.Visit(&c.slots[h].score, c.clock)
}

// lookup resolves a resident object without loading or pinning it.
func (c *pagedCache[T]) lookup(off int64, hint handle) (handle, bool) {
	if hint >= 0 && int(hint) < len(c.slots) {
		s := &c.slots[hint]
		if s.used && s.obj.diskOffset() == off {
			return hint, true
		}
	}
	h, ok := c.index[off]
	return h, ok
}

// get returns the object at off pinned. hint is the slot the caller last saw
// it in; it is checked against the object's own offset before use.
func (c *pagedCache[T]) get(off int64, hint handle) (T, handle, error) {
	var zero T
	if h, ok := c.lookup(off, hint); ok {
		c.stats.Hits++
		c.touch(h)
		c.slots[h].pins++
		return c.slots[h].obj, h, nil
	}

	c.stats.Misses++
	buf, err := c.file.ReadRecord(off)
	if err != nil {
		if errors.Is(err, recordfile.ErrBadOffset) {
			return zero, noHandle, errors.WithSecondaryError(
				errors.Wrapf(ErrBrokenChain, "load %s %d", c.kind, off), err)
		}
		return zero, noHandle, errors.Wrapf(err, "load %s %d", c.kind, off)
	}
	obj, err := c.decode(off, buf)
	if err != nil {
		return zero, noHandle, err
	}
	h, err := c.place(obj)
	if err != nil {
		return zero, noHandle, err
	}
	c.slots[h].pins++
	c.log.Debug("cache miss", zap.String("cache", c.kind), zap.Int64("offset", off), zap.Int32("slot", h))
	return obj, h, nil
}

// allocate reserves a record for obj, places it and returns it pinned.
// assign stores the reserved offset in obj.
func (c *pagedCache[T]) allocate(obj T, assign func(off int64)) (handle, error) {
	off, err := c.file.Reserve()
	if err != nil {
		return noHandle, errors.Wrapf(err, "reserve %s", c.kind)
	}
	assign(off)
	h, err := c.place(obj)
	if err != nil {
		return noHandle, err
	}
	c.slots[h].pins++
	return h, nil
}

// place puts obj in a free slot, evicting if the cache is at capacity.
func (c *pagedCache[T]) place(obj T) (handle, error) {
	h, err := c.takeSlot()
	if err != nil {
		return noHandle, err
	}
	c.slots[h] = cacheSlot[T]{obj: obj, used: true}
	c.index[obj.diskOffset()] = h
	c.touch(h)
	return h, nil
}

func (c *pagedCache[T]) takeSlot() (handle, error) {
	if n := len(c.free); n > 0 {
		h := c.free[n-1]
		c.free = c.free[:n-1]
		return h, nil
	}
	if len(c.slots) < c.capacity {
		c.slots = append(c.slots, cacheSlot[T]{})
		return handle(len(c.slots) - 1), nil
	}
	victim, err := c.findSwitchOut()
	if err != nil {
		return noHandle, err
	}
	if err := c.evict(victim); err != nil {
		return noHandle, err
	}
	return c.takeSlot()
}

// findSwitchOut picks the unpinned slot the policy ranks lowest.
func (c *pagedCache[T]) findSwitchOut() (handle, error) {
	victim := noHandle
	for i := range c.slots {
		s := &c.slots[i]
		if !s.used || s.pins > 0 {
			continue
		}
		if victim == noHandle || c.policy.Less(s.score, c.slots[victim].score, c.clock) {
			victim = handle(i)
		}
	}
	if victim == noHandle {
		return noHandle, errors.Wrapf(ErrCacheExhausted, "%s cache: %d slots all pinned", c.kind, len(c.slots))
	}
	return victim, nil
}

// evict writes back and drops slot h.
func (c *pagedCache[T]) evict(h handle) error {
	if c.beforeEvict != nil {
		if err := c.beforeEvict(h); err != nil {
			return err
		}
	}
	s := &c.slots[h]
	if s.obj.isDirty() {
		if err := c.writeBack(h); err != nil {
			return err
		}
	}
	off := s.obj.diskOffset()
	delete(c.index, off)
	c.slots[h] = cacheSlot[T]{}
	c.free = append(c.free, h)
	c.stats.Evictions++
	c.log.Debug("cache evict", zap.String("cache", c.kind), zap.Int64("offset", off), zap.Int32("slot", h))
	return nil
}

func (c *pagedCache[T]) writeBack(h handle) error {
	obj := c.slots[h].obj
	if err := c.file.WriteRecord(obj.diskOffset(), obj.encode()); err != nil {
		return errors.Wrapf(err, "write back %s %d", c.kind, obj.diskOffset())
	}
	obj.setClean()
	c.stats.WriteBacks++
	return nil
}

func (c *pagedCache[T]) release(h handle) {
	if h < 0 || int(h) >= len(c.slots) {
		return
	}
	if s := &c.slots[h]; s.used && s.pins > 0 {
		s.pins--
	}
}

// flush writes back every dirty slot without evicting it.
func (c *pagedCache[T]) flush() error {
	for i := range c.slots {
		s := &c.slots[i]
		if s.used && s.obj.isDirty() {
			if err := c.writeBack(handle(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *pagedCache[T]) isFull() bool { return len(c.index) >= c.capacity }

func (c *pagedCache[T]) resident(off int64) bool {
	_, ok := c.index[off]
	return ok
}

func (c *pagedCache[T]) Stats() CacheStats {
	st := c.stats
	st.Capacity = c.capacity
	for i := range c.slots {
		s := &c.slots[i]
		if !s.used {
			continue
		}
		st.Resident++
		if s.pins > 0 {
			st.Pinned++
		}
		if s.obj.isDirty() {
			st.Dirty++
		}
	}
	return st
}
