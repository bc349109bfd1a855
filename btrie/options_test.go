package btrie

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "btrie.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
alphabet: ascii
bucket_size: 4096
policy: lfu
lookup_cache_size: 512
load_on_open: true
`), 0644))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "ascii", opts.AlphabetName)
	assert.Equal(t, 4096, opts.BucketSize)
	assert.Equal(t, PolicyLFU, opts.Policy)
	assert.Equal(t, int64(512), opts.LookupCacheSize)
	assert.True(t, opts.LoadOnOpen)
	assert.Equal(t, DefaultSplitRatio, opts.SplitRatio, "unset fields keep defaults")
	require.NoError(t, opts.Validate())

	_, err = LoadOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Options{}.Validate())

	for name, o := range map[string]Options{
		"bucket too small": {BucketSize: 16},
		"ratio":            {SplitRatio: 100},
		"node cache":       {NodeCacheSize: 1},
		"lookup":           {LookupCacheSize: -1},
		"policy":           {Policy: "mru"},
		"alphabet":         {AlphabetName: "klingon"},
	} {
		assert.ErrorIs(t, o.Validate(), ErrInvalidOptions, name)
	}

	_, err := Open(t.TempDir(), Options{Policy: "mru"})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}
