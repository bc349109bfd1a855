package btrie

import (
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"BTrieDB/alphabet"
	"BTrieDB/wildcard"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallOptions forces frequent splits and evictions.
func smallOptions() Options {
	return Options{
		BucketSize:      128,
		NodeCacheSize:   16,
		BucketCacheSize: 16,
	}
}

func openTrie(t *testing.T, dir string, opts Options) *BTrie {
	t.Helper()
	tr, err := Open(dir, opts)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

// randomKeys returns n distinct keys over letters, mapped to their insertion index.
func randomKeys(seed int64, n int, letters string, maxLen int) ([]string, map[string]int64) {
	r := rand.New(rand.NewSource(seed))
	keys := make([]string, 0, n)
	addrs := make(map[string]int64, n)
	for len(keys) < n {
		l := 1 + r.Intn(maxLen)
		var sb strings.Builder
		for i := 0; i < l; i++ {
			sb.WriteByte(letters[r.Intn(len(letters))])
		}
		k := sb.String()
		if _, ok := addrs[k]; ok {
			continue
		}
		addrs[k] = int64(len(keys))
		keys = append(keys, k)
	}
	return keys, addrs
}

func TestScenarioWithForcedSplits(t *testing.T) {
	tr := openTrie(t, t.TempDir(), Options{BucketSize: 64})

	words := []string{"apple", "app", "application", "apt", "banana"}
	for i, w := range words {
		ok, err := tr.Insert(w, int64(i))
		require.NoError(t, err, w)
		require.True(t, ok, w)
	}
	for i, w := range words {
		v, err := tr.Find(w)
		require.NoError(t, err, w)
		assert.Equal(t, int64(i), v, w)
	}
	for _, w := range []string{"a", "ap", "appl", "b", "bananas"} {
		_, err := tr.Find(w)
		assert.ErrorIs(t, err, ErrNotFound, w)
	}

	matches, err := tr.FindRegExp("ap*")
	require.NoError(t, err)
	assert.Equal(t, []Match{
		{Key: "app", Addr: 1},
		{Key: "apple", Addr: 0},
		{Key: "application", Addr: 2},
		{Key: "apt", Addr: 3},
	}, matches)

	st, err := tr.Stats()
	require.NoError(t, err)
	assert.Greater(t, st.NodeRecords, int64(1), "splits should have created nodes")
}

func TestRoundTripAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	keys, addrs := randomKeys(1, 800, "abcde", 10)

	tr, err := Open(dir, smallOptions())
	require.NoError(t, err)
	for _, k := range keys {
		ok, err := tr.Insert(k, addrs[k])
		require.NoError(t, err, k)
		require.True(t, ok, k)
	}
	for _, k := range keys {
		v, err := tr.Find(k)
		require.NoError(t, err, k)
		require.Equal(t, addrs[k], v, k)
	}
	require.NoError(t, tr.Close())

	tr = openTrie(t, dir, smallOptions())
	for _, k := range keys {
		v, err := tr.Find(k)
		require.NoError(t, err, k)
		require.Equal(t, addrs[k], v, k)
	}
	n, err := tr.Len()
	require.NoError(t, err)
	assert.Equal(t, len(keys), n)
}

func TestDuplicateInsert(t *testing.T) {
	tr := openTrie(t, t.TempDir(), smallOptions())

	ok, err := tr.Insert("hello", 1)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = tr.Insert("hello", 2)
	require.NoError(t, err)
	assert.False(t, ok)
	v, err := tr.Find("hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestUpdateIsIdempotent(t *testing.T) {
	tr := openTrie(t, t.TempDir(), smallOptions())
	keys, addrs := randomKeys(2, 300, "abc", 8)
	for _, k := range keys {
		_, err := tr.Insert(k, addrs[k])
		require.NoError(t, err)
	}

	for round := 0; round < 2; round++ {
		for _, k := range keys {
			ok, err := tr.Update(k, addrs[k]+1000)
			require.NoError(t, err)
			require.True(t, ok, k)
		}
	}
	for _, k := range keys {
		v, err := tr.Find(k)
		require.NoError(t, err)
		require.Equal(t, addrs[k]+1000, v, k)
	}

	ok, err := tr.Update("zzzz", 5)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = tr.Find("zzzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	tr := openTrie(t, t.TempDir(), smallOptions())
	keys, addrs := randomKeys(3, 400, "abcd", 8)
	for _, k := range keys {
		_, err := tr.Insert(k, addrs[k])
		require.NoError(t, err)
	}

	for i, k := range keys {
		if i%2 == 1 {
			continue
		}
		var ok bool
		var err error
		if i%4 == 0 {
			ok, err = tr.Delete(k)
		} else {
			ok, err = tr.Update(k, Tombstone)
		}
		require.NoError(t, err)
		require.True(t, ok, k)
	}
	for i, k := range keys {
		v, err := tr.Find(k)
		if i%2 == 0 {
			assert.ErrorIs(t, err, ErrNotFound, k)
			continue
		}
		require.NoError(t, err, k)
		assert.Equal(t, addrs[k], v)
	}

	ok, err := tr.Delete(keys[0])
	require.NoError(t, err)
	assert.False(t, ok)

	// a deleted key can come back
	ok, err = tr.Insert(keys[0], 77)
	require.NoError(t, err)
	assert.True(t, ok)
	v, err := tr.Find(keys[0])
	require.NoError(t, err)
	assert.Equal(t, int64(77), v)

	n, err := tr.Len()
	require.NoError(t, err)
	assert.Equal(t, len(keys)/2+1, n)
}

func TestRejectsBadInput(t *testing.T) {
	tr := openTrie(t, t.TempDir(), Options{BucketSize: 64})

	_, err := tr.Insert("ab1", 1)
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = tr.Insert("ab", -5)
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = tr.Insert(strings.Repeat("k", 40), 1)
	assert.ErrorIs(t, err, ErrKeyTooLong)
	_, err = tr.Insert(strings.Repeat("k", 38), 1)
	assert.NoError(t, err)

	_, err = tr.Find("ab1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = tr.Update("ab", -3)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = tr.FindRegExp("a1*")
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestEmptyKey(t *testing.T) {
	tr := openTrie(t, t.TempDir(), smallOptions())

	ok, err := tr.Insert("", 9)
	require.NoError(t, err)
	require.True(t, ok)
	v, err := tr.Find("")
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)

	m, err := tr.FindRegExp("")
	require.NoError(t, err)
	assert.Equal(t, []Match{{Key: "", Addr: 9}}, m)
}

func collectWalk(t *testing.T, tr *BTrie) []Match {
	t.Helper()
	var out []Match
	require.NoError(t, tr.Walk(func(key string, addr int64) bool {
		out = append(out, Match{Key: key, Addr: addr})
		return true
	}))
	return out
}

func TestEvictionIsTransparent(t *testing.T) {
	keys, addrs := randomKeys(4, 600, "abcdef", 9)

	tiny := openTrie(t, t.TempDir(), Options{BucketSize: 128, NodeCacheSize: MinCacheSize, BucketCacheSize: MinCacheSize})
	large := openTrie(t, t.TempDir(), Options{BucketSize: 128, NodeCacheSize: 4096, BucketCacheSize: 4096})
	for _, k := range keys {
		for _, tr := range []*BTrie{tiny, large} {
			ok, err := tr.Insert(k, addrs[k])
			require.NoError(t, err, k)
			require.True(t, ok, k)
		}
	}

	for _, k := range keys {
		v, err := tiny.Find(k)
		require.NoError(t, err, k)
		require.Equal(t, addrs[k], v, k)
	}
	assert.Equal(t, collectWalk(t, large), collectWalk(t, tiny))

	for _, p := range []string{"a*", "?b*", "*f", "c?d*e"} {
		want, err := large.FindRegExp(p)
		require.NoError(t, err)
		got, err := tiny.FindRegExp(p)
		require.NoError(t, err)
		assert.Equal(t, want, got, p)
	}

	st, err := tiny.Stats()
	require.NoError(t, err)
	assert.NotZero(t, st.Nodes.Evictions+st.Buckets.Evictions)
	assert.Zero(t, st.Nodes.Pinned)
	assert.Zero(t, st.Buckets.Pinned)
}

func TestFindRegExpMatchesBruteForce(t *testing.T) {
	tr := openTrie(t, t.TempDir(), smallOptions())
	keys, addrs := randomKeys(5, 700, "abc", 7)
	for _, k := range keys {
		_, err := tr.Insert(k, addrs[k])
		require.NoError(t, err)
	}

	for _, p := range []string{"a*c", "a?c", "*", "?", "??", "b*", "*a", "a*b*c", "**c?", "abc", "c*c*c"} {
		var want []Match
		for _, k := range keys {
			if wildcard.Match(k, p) {
				want = append(want, Match{Key: k, Addr: addrs[k]})
			}
		}
		sort.Slice(want, func(i, j int) bool { return want[i].Key < want[j].Key })

		got, err := tr.FindRegExp(p)
		require.NoError(t, err, p)
		if len(want) == 0 {
			assert.Empty(t, got, p)
			continue
		}
		assert.Equal(t, want, got, p)
	}
}

func TestWalkOrderAndStop(t *testing.T) {
	tr := openTrie(t, t.TempDir(), smallOptions())
	keys, addrs := randomKeys(6, 300, "abcdxyz", 6)
	for _, k := range keys {
		_, err := tr.Insert(k, addrs[k])
		require.NoError(t, err)
	}

	got := collectWalk(t, tr)
	require.Len(t, got, len(keys))
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	for i, m := range got {
		assert.Equal(t, sorted[i], m.Key)
		assert.Equal(t, addrs[m.Key], m.Addr)
	}

	seen := 0
	require.NoError(t, tr.Walk(func(string, int64) bool {
		seen++
		return seen < 10
	}))
	assert.Equal(t, 10, seen)
}

func TestMultiByteAlphabet(t *testing.T) {
	alpha, err := alphabet.New([]rune("αβγδεζ"))
	require.NoError(t, err)
	tr := openTrie(t, t.TempDir(), Options{Alphabet: alpha, BucketSize: 96})

	words := []string{"αβγ", "αβγδ", "αβ", "α", "βγδεζ", "αααα", "ααβ", "ζζ", "αβγδεζα"}
	for i, w := range words {
		ok, err := tr.Insert(w, int64(i))
		require.NoError(t, err, w)
		require.True(t, ok, w)
	}
	for i, w := range words {
		v, err := tr.Find(w)
		require.NoError(t, err, w)
		assert.Equal(t, int64(i), v, w)
	}

	got, err := tr.FindRegExp("αβ*")
	require.NoError(t, err)
	keys := make([]string, len(got))
	for i, m := range got {
		keys[i] = m.Key
	}
	assert.Equal(t, []string{"αβ", "αβγ", "αβγδ", "αβγδεζα"}, keys)

	_, err = tr.Insert("abc", 1)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLookupCache(t *testing.T) {
	opts := smallOptions()
	opts.LookupCacheSize = 100
	tr := openTrie(t, t.TempDir(), opts)

	_, err := tr.Insert("cached", 1)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		v, err := tr.Find("cached")
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
	}

	_, err = tr.Update("cached", 2)
	require.NoError(t, err)
	v, err := tr.Find("cached")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v, "update must invalidate the lookup cache")

	_, err = tr.Delete("cached")
	require.NoError(t, err)
	_, err = tr.Find("cached")
	assert.ErrorIs(t, err, ErrNotFound)

	st, err := tr.Stats()
	require.NoError(t, err)
	assert.NotZero(t, st.LookupHits)
	assert.Contains(t, st.String(), "lookup cache")
}

func TestLoadWarmsCaches(t *testing.T) {
	dir := t.TempDir()
	keys, addrs := randomKeys(7, 500, "abcdef", 8)

	tr, err := Open(dir, smallOptions())
	require.NoError(t, err)
	for _, k := range keys {
		_, err := tr.Insert(k, addrs[k])
		require.NoError(t, err)
	}
	require.NoError(t, tr.Close())

	opts := smallOptions()
	opts.LoadOnOpen = true
	tr = openTrie(t, dir, opts)
	st, err := tr.Stats()
	require.NoError(t, err)
	assert.Equal(t, opts.NodeCacheSize, st.Nodes.Resident)
	assert.Zero(t, st.Nodes.Pinned)
	assert.NotZero(t, st.Buckets.Resident)

	// loading again with full caches is a no-op
	require.NoError(t, tr.Load())
	for _, k := range keys {
		v, err := tr.Find(k)
		require.NoError(t, err, k)
		require.Equal(t, addrs[k], v)
	}
}

func TestFlushPersistsWithoutClose(t *testing.T) {
	dir := t.TempDir()
	tr := openTrie(t, dir, smallOptions())
	_, err := tr.Insert("abc", 3)
	require.NoError(t, err)
	_, err = tr.Insert("a", 1)
	require.NoError(t, err)
	require.NoError(t, tr.Flush())

	st, err := tr.Stats()
	require.NoError(t, err)
	assert.Zero(t, st.Nodes.Dirty)
	assert.Zero(t, st.Buckets.Dirty)
	_, err = os.Stat(filepath.Join(dir, fallbackFileName))
	assert.NoError(t, err)
}

func TestDirectoryLock(t *testing.T) {
	dir := t.TempDir()
	tr, err := Open(dir, smallOptions())
	require.NoError(t, err)

	_, err = Open(dir, smallOptions())
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, tr.Close())
	again, err := Open(dir, smallOptions())
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestClosedTrie(t *testing.T) {
	tr, err := Open(t.TempDir(), smallOptions())
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, err = tr.Insert("a", 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = tr.Find("a")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBrokenTrieRefusesWork(t *testing.T) {
	tr := openTrie(t, t.TempDir(), smallOptions())
	_, err := tr.Insert("abc", 1)
	require.NoError(t, err)

	tr.mu.Lock()
	tr.fail(errors.AssertionFailedf("bucket %d: lost entries", 64))
	tr.mu.Unlock()

	_, err = tr.Find("abc")
	require.Error(t, err)
	assert.True(t, errors.HasAssertionFailure(err))
	_, err = tr.Insert("abd", 2)
	assert.True(t, errors.HasAssertionFailure(err))
}

func TestReopenWithOtherAlphabetFails(t *testing.T) {
	dir := t.TempDir()
	tr, err := Open(dir, smallOptions())
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	opts := smallOptions()
	opts.AlphabetName = "ascii"
	_, err = Open(dir, opts)
	assert.Error(t, err)
}

func TestDump(t *testing.T) {
	tr := openTrie(t, t.TempDir(), Options{BucketSize: 64})
	for i, w := range []string{"apple", "app", "application", "apt", "banana"} {
		_, err := tr.Insert(w, int64(i))
		require.NoError(t, err)
	}
	var sb strings.Builder
	require.NoError(t, tr.Dump(&sb))
	out := sb.String()
	assert.Contains(t, out, "Level 0:")
	assert.Contains(t, out, `"apt" -> 3`)
	assert.Contains(t, out, "bucket")
	assert.Contains(t, out, nodeFileName+": 3 records of")
}

func TestBrokenChainReadsAsNotFound(t *testing.T) {
	tr := openTrie(t, t.TempDir(), smallOptions())
	_, err := tr.Insert("abc", 1)
	require.NoError(t, err)
	_, err = tr.Insert("bcd", 2)
	require.NoError(t, err)

	// point slot 'a' of the root past the end of the bucket file
	func() {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		root, h, err := tr.nodes.get(tr.rootOffset, noHandle)
		require.NoError(t, err)
		defer tr.nodes.release(h)
		root.SetChild(int(symOf('a')), bucketRef(tr.bucketFile.Size()+int64(8*tr.opts.BucketSize)))
	}()

	_, err = tr.Find("abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrBrokenChain)

	ok, err := tr.Update("abc", 5)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = tr.Delete("abc")
	assert.NoError(t, err)
	assert.False(t, ok)

	m, err := tr.FindRegExp("abc")
	assert.NoError(t, err)
	assert.Empty(t, m)

	v, err := tr.Find("bcd")
	require.NoError(t, err, "a broken chain must not break the trie")
	assert.Equal(t, int64(2), v)
}

func TestFindRegExpLiteral(t *testing.T) {
	tr := openTrie(t, t.TempDir(), smallOptions())
	_, err := tr.Insert("abc", 4)
	require.NoError(t, err)

	m, err := tr.FindRegExp("abc")
	require.NoError(t, err)
	assert.Equal(t, []Match{{Key: "abc", Addr: 4}}, m)

	m, err = tr.FindRegExp("abd")
	require.NoError(t, err)
	assert.Empty(t, m)
}
