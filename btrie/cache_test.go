package btrie

import (
	"path/filepath"
	"testing"

	recordfile "BTrieDB/recordfile_manager"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestFile(t *testing.T, name string, recordSize int) *recordfile.File {
	t.Helper()
	f, created, err := recordfile.Open(filepath.Join(t.TempDir(), name), recordfile.Header{
		Magic:      [4]byte{'T', 'E', 'S', 'T'},
		Version:    formatVersion,
		RecordSize: uint32(recordSize),
	})
	require.NoError(t, err)
	require.True(t, created)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestBucketCachePinsBlockEviction(t *testing.T) {
	file := openTestFile(t, "trie.buckets", 128)
	bc := newBucketCache(2, file, 128, lruPolicy{}, zap.NewNop())

	b1, h1, err := bc.newBucket(0, 3)
	require.NoError(t, err)
	require.NoError(t, b1.Add(1, "hello", 42))
	_, h2, err := bc.newBucket(4, 9)
	require.NoError(t, err)
	assert.True(t, bc.isFull())

	_, _, err = bc.newBucket(10, 12)
	assert.ErrorIs(t, err, ErrCacheExhausted)

	bc.release(h1)
	_, h3, err := bc.newBucket(10, 12)
	require.NoError(t, err)
	assert.False(t, bc.resident(b1.Offset()))
	st := bc.Stats()
	assert.Equal(t, uint64(1), st.Evictions)
	assert.Equal(t, uint64(1), st.WriteBacks)
	assert.Equal(t, 2, st.Pinned)

	bc.release(h2)
	bc.release(h3)
	again, h, err := bc.get(b1.Offset(), h1)
	require.NoError(t, err)
	defer bc.release(h)
	v, ok := again.Get(1, "hello")
	require.True(t, ok)
	assert.Equal(t, int64(42), v)
	assert.NotSame(t, b1, again)
}

func TestCacheHintIsRevalidated(t *testing.T) {
	file := openTestFile(t, "trie.buckets", 128)
	bc := newBucketCache(4, file, 128, lruPolicy{}, zap.NewNop())

	b1, h1, err := bc.newBucket(0, 0)
	require.NoError(t, err)
	b2, h2, err := bc.newBucket(1, 1)
	require.NoError(t, err)
	bc.release(h1)
	bc.release(h2)

	// a hint pointing at another object's slot falls back to the index
	got, h, err := bc.get(b2.Offset(), h1)
	require.NoError(t, err)
	assert.Same(t, b2, got)
	assert.Equal(t, h2, h)
	bc.release(h)

	got, h, err = bc.get(b1.Offset(), 99)
	require.NoError(t, err)
	assert.Same(t, b1, got)
	bc.release(h)

	_, _, err = bc.get(b2.Offset()+1, noHandle)
	assert.ErrorIs(t, err, ErrBrokenChain)
}

func TestNodeCacheKicksOutChildren(t *testing.T) {
	file := openTestFile(t, "trie.nodes", nodeRecordSize(4))
	nc := newNodeCache(3, file, 4, lruPolicy{}, zap.NewNop())

	parent, hp, err := nc.newNode(0)
	require.NoError(t, err)
	child, hc, err := nc.newNode(1)
	require.NoError(t, err)
	parent.SetChild(2, nodeRef(child.Offset()))
	parent.setChildMem(2, hc)
	_, hx, err := nc.newNode(0)
	require.NoError(t, err)
	nc.release(hp)
	nc.release(hc)
	nc.release(hx)

	// parent is the LRU victim and takes its child with it
	_, hy, err := nc.newNode(0)
	require.NoError(t, err)
	defer nc.release(hy)

	assert.False(t, nc.resident(parent.Offset()))
	assert.False(t, nc.resident(child.Offset()))
	st := nc.Stats()
	assert.Equal(t, uint64(2), st.Evictions)
	assert.Equal(t, 2, st.Resident)

	reloaded, h, err := nc.get(parent.Offset(), noHandle)
	require.NoError(t, err)
	defer nc.release(h)
	assert.Equal(t, nodeRef(child.Offset()), reloaded.Child(2))
}

func TestCacheFlushKeepsResident(t *testing.T) {
	file := openTestFile(t, "trie.nodes", nodeRecordSize(4))
	nc := newNodeCache(4, file, 4, laruPolicy{}, zap.NewNop())

	n, h, err := nc.newNode(2)
	require.NoError(t, err)
	n.SetChild(0, bucketRef(64))
	nc.release(h)
	require.Equal(t, 1, nc.Stats().Dirty)

	require.NoError(t, nc.flush())
	st := nc.Stats()
	assert.Equal(t, 0, st.Dirty)
	assert.Equal(t, 1, st.Resident)
	assert.Equal(t, uint64(0), st.Evictions)

	buf, err := file.ReadRecord(n.Offset())
	require.NoError(t, err)
	got, err := decodeTrieNode(n.Offset(), buf, 4)
	require.NoError(t, err)
	assert.Equal(t, bucketRef(64), got.Child(0))
	assert.Equal(t, uint32(2), got.Level())
}
