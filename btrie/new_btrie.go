package btrie

import (
	"os"
	"path/filepath"

	fallback "BTrieDB/fallback_table"
	recordfile "BTrieDB/recordfile_manager"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
)

// Open opens the trie stored in dir, creating it if dir holds none.
// Only one BTrie may have a directory open at a time.
func Open(dir string, opts Options) (*BTrie, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	alpha, err := opts.resolveAlphabet()
	if err != nil {
		return nil, err
	}
	policy, err := PolicyByName(opts.Policy)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create trie directory %s", dir)
	}
	lock, err := lockDir(dir)
	if err != nil {
		return nil, err
	}

	t := &BTrie{
		dir:   dir,
		opts:  opts,
		alpha: alpha,
		lock:  lock,
		log:   opts.Logger.With(zap.String("trie", dir)),
	}
	opened := false
	defer func() {
		if !opened {
			_ = t.closeFiles()
		}
	}()

	fp := alpha.Fingerprint()
	var nodeCreated, bucketCreated bool
	t.nodeFile, nodeCreated, err = recordfile.Open(filepath.Join(dir, nodeFileName), recordfile.Header{
		Magic:       nodeMagic,
		Version:     formatVersion,
		RecordSize:  uint32(nodeRecordSize(alpha.Size())),
		Fingerprint: fp,
	})
	if err != nil {
		return nil, err
	}
	t.bucketFile, bucketCreated, err = recordfile.Open(filepath.Join(dir, bucketFileName), recordfile.Header{
		Magic:       bucketMagic,
		Version:     formatVersion,
		RecordSize:  uint32(opts.BucketSize),
		Fingerprint: fp,
	})
	if err != nil {
		return nil, err
	}
	if nodeCreated != bucketCreated {
		return nil, errors.Wrapf(ErrCorrupt, "%s: node and bucket files out of step", dir)
	}

	t.nodes = newNodeCache(opts.NodeCacheSize, t.nodeFile, alpha.Size(), policy, t.log)
	t.buckets = newBucketCache(opts.BucketCacheSize, t.bucketFile, opts.BucketSize, policy, t.log)
	t.rootOffset = t.nodeFile.FirstRecord()

	if nodeCreated {
		root, h, err := t.nodes.newNode(0)
		if err != nil {
			return nil, err
		}
		t.nodes.release(h)
		if root.offset != t.rootOffset {
			return nil, errors.AssertionFailedf("root reserved at %d, want %d", root.offset, t.rootOffset)
		}
		if err := t.nodes.flush(); err != nil {
			return nil, err
		}
	} else if t.nodeFile.Records() == 0 {
		return nil, errors.Wrapf(ErrCorrupt, "%s: node file has no root", dir)
	}

	t.fallback, err = fallback.Open(filepath.Join(dir, fallbackFileName), t.log)
	if err != nil {
		return nil, err
	}

	if opts.LookupCacheSize > 0 {
		t.lookup, err = ristretto.NewCache(&ristretto.Config[string, int64]{
			NumCounters:        opts.LookupCacheSize * 10,
			MaxCost:            opts.LookupCacheSize,
			BufferItems:        64,
			IgnoreInternalCost: true,
			Metrics:            true,
		})
		if err != nil {
			return nil, errors.Wrap(err, "create lookup cache")
		}
	}

	if opts.LoadOnOpen {
		if err := t.load(); err != nil {
			return nil, err
		}
	}

	opened = true
	t.log.Info("trie opened",
		zap.Bool("created", nodeCreated),
		zap.Int("alphabet", alpha.Size()),
		zap.Int("bucket_size", opts.BucketSize),
		zap.String("policy", policy.Name()),
		zap.Int64("nodes", t.nodeFile.Records()),
		zap.Int64("buckets", t.bucketFile.Records()),
	)
	return t, nil
}

// Close flushes everything and releases the files and the directory lock.
// A trie broken by an invariant violation is closed without flushing.
func (t *BTrie) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	var err error
	if t.broken == nil {
		err = t.flush()
	} else {
		t.log.Warn("closing broken trie without flush", zap.Error(t.broken))
	}
	err = errors.CombineErrors(err, t.closeFiles())
	t.closed = true
	t.log.Info("trie closed", zap.Error(err))
	return err
}

func (t *BTrie) closeFiles() error {
	var err error
	if t.lookup != nil {
		t.lookup.Close()
		t.lookup = nil
	}
	if t.nodeFile != nil {
		err = errors.CombineErrors(err, t.nodeFile.Close())
	}
	if t.bucketFile != nil {
		err = errors.CombineErrors(err, t.bucketFile.Close())
	}
	return errors.CombineErrors(err, t.lock.release())
}

func (t *BTrie) usable() error {
	if t.closed {
		return ErrClosed
	}
	return t.broken
}

// fail records invariant violations so the trie refuses further work.
func (t *BTrie) fail(err error) error {
	if err != nil && errors.HasAssertionFailure(err) && t.broken == nil {
		t.broken = err
		t.log.Error("trie invariant violated", zap.Error(err))
	}
	return err
}
