package btrie

import (
	"os"
	"strings"

	"BTrieDB/alphabet"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBucketSize      = 16 << 10
	DefaultSplitRatio      = 75
	DefaultNodeCacheSize   = 4096
	DefaultBucketCacheSize = 1024

	MinBucketSize = 64
	MaxBucketSize = 1 << 24
	MinCacheSize  = 2
)

// Options configures a trie. Zero fields take their defaults.
type Options struct {
	// Alphabet wins over AlphabetName when both are set.
	Alphabet     *alphabet.Alphabet `yaml:"-"`
	AlphabetName string             `yaml:"alphabet"`

	BucketSize      int    `yaml:"bucket_size"`
	SplitRatio      int    `yaml:"split_ratio"`
	NodeCacheSize   int    `yaml:"node_cache_size"`
	BucketCacheSize int    `yaml:"bucket_cache_size"`
	Policy          string `yaml:"policy"`

	// LookupCacheSize is the number of Find results kept in a hot-key cache.
	// Zero disables it.
	LookupCacheSize int64 `yaml:"lookup_cache_size"`

	// LoadOnOpen warms the caches from the root when the trie is opened.
	LoadOnOpen bool `yaml:"load_on_open"`

	Logger *zap.Logger `yaml:"-"`
}

func DefaultOptions() Options {
	return Options{
		AlphabetName:    "latin",
		BucketSize:      DefaultBucketSize,
		SplitRatio:      DefaultSplitRatio,
		NodeCacheSize:   DefaultNodeCacheSize,
		BucketCacheSize: DefaultBucketCacheSize,
		Policy:          PolicyLARU,
	}
}

// LoadOptions reads YAML options from path on top of the defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, errors.Wrapf(err, "read options %s", path)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, errors.Wrapf(err, "parse options %s", path)
	}
	return opts, nil
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.AlphabetName == "" {
		o.AlphabetName = d.AlphabetName
	}
	if o.BucketSize == 0 {
		o.BucketSize = d.BucketSize
	}
	if o.SplitRatio == 0 {
		o.SplitRatio = d.SplitRatio
	}
	if o.NodeCacheSize == 0 {
		o.NodeCacheSize = d.NodeCacheSize
	}
	if o.BucketCacheSize == 0 {
		o.BucketCacheSize = d.BucketCacheSize
	}
	if o.Policy == "" {
		o.Policy = d.Policy
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// resolveAlphabet returns the configured alphabet.
func (o Options) resolveAlphabet() (*alphabet.Alphabet, error) {
	if o.Alphabet != nil {
		return o.Alphabet, nil
	}
	switch strings.ToLower(o.AlphabetName) {
	case "latin", "":
		return alphabet.Latin(), nil
	case "ascii":
		return alphabet.PrintableASCII(), nil
	case "cjk":
		return alphabet.CJK(), nil
	default:
		return nil, errors.Wrapf(ErrInvalidOptions, "unknown alphabet %q", o.AlphabetName)
	}
}

// Validate checks o after defaults are applied.
func (o Options) Validate() error {
	o = o.withDefaults()
	if o.BucketSize < MinBucketSize || o.BucketSize > MaxBucketSize {
		return errors.Wrapf(ErrInvalidOptions, "bucket size %d out of range [%d, %d]", o.BucketSize, MinBucketSize, MaxBucketSize)
	}
	if o.SplitRatio < 1 || o.SplitRatio > 99 {
		return errors.Wrapf(ErrInvalidOptions, "split ratio %d out of range [1, 99]", o.SplitRatio)
	}
	if o.NodeCacheSize < MinCacheSize || o.BucketCacheSize < MinCacheSize {
		return errors.Wrapf(ErrInvalidOptions, "cache sizes %d/%d below minimum %d", o.NodeCacheSize, o.BucketCacheSize, MinCacheSize)
	}
	if o.LookupCacheSize < 0 {
		return errors.Wrapf(ErrInvalidOptions, "negative lookup cache size %d", o.LookupCacheSize)
	}
	if _, err := PolicyByName(o.Policy); err != nil {
		return err
	}
	if _, err := o.resolveAlphabet(); err != nil {
		return err
	}
	return nil
}
