package btrie

import (
	recordfile "BTrieDB/recordfile_manager"

	"go.uber.org/zap"
)

// BucketCache pages Buckets.
type BucketCache struct {
	*pagedCache[*Bucket]
	bucketSize int
}

func newBucketCache(capacity int, file *recordfile.File, bucketSize int, policy Policy, log *zap.Logger) *BucketCache {
	decode := func(off int64, buf []byte) (*Bucket, error) {
		return decodeBucket(off, buf, bucketSize)
	}
	return &BucketCache{
		pagedCache: newPagedCache[*Bucket]("bucket", capacity, file, policy, decode, log),
		bucketSize: bucketSize,
	}
}

// newBucket reserves a record for an empty bucket and returns it pinned.
func (bc *BucketCache) newBucket(from, to uint16) (*Bucket, handle, error) {
	b := newBucket(bc.bucketSize, from, to)
	h, err := bc.allocate(b, func(off int64) { b.offset = off })
	if err != nil {
		return nil, noHandle, err
	}
	return b, h, nil
}
