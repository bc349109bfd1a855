package btrie

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

type Stats struct {
	Nodes   CacheStats
	Buckets CacheStats

	NodeRecords   int64
	BucketRecords int64
	NodeBytes     int64
	BucketBytes   int64
	FallbackKeys  int

	LookupHits   uint64
	LookupMisses uint64
}

// Stats reports cache counters and file sizes. It does not touch the disk.
func (t *BTrie) Stats() (Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return Stats{}, err
	}
	st := Stats{
		Nodes:         t.nodes.Stats(),
		Buckets:       t.buckets.Stats(),
		NodeRecords:   t.nodeFile.Records(),
		BucketRecords: t.bucketFile.Records(),
		NodeBytes:     t.nodeFile.Size(),
		BucketBytes:   t.bucketFile.Size(),
		FallbackKeys:  t.fallback.Len(),
	}
	if t.lookup != nil && t.lookup.Metrics != nil {
		st.LookupHits = t.lookup.Metrics.Hits()
		st.LookupMisses = t.lookup.Metrics.Misses()
	}
	return st, nil
}

func (s Stats) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "nodes:    %s records, %s on disk\n",
		humanize.Comma(s.NodeRecords), humanize.IBytes(uint64(s.NodeBytes)))
	fmt.Fprintf(&sb, "buckets:  %s records, %s on disk\n",
		humanize.Comma(s.BucketRecords), humanize.IBytes(uint64(s.BucketBytes)))
	fmt.Fprintf(&sb, "fallback: %s keys\n", humanize.Comma(int64(s.FallbackKeys)))
	writeCacheStats(&sb, "node cache", s.Nodes)
	writeCacheStats(&sb, "bucket cache", s.Buckets)
	if s.LookupHits+s.LookupMisses > 0 {
		fmt.Fprintf(&sb, "lookup cache: %s hits, %s misses\n",
			humanize.Comma(int64(s.LookupHits)), humanize.Comma(int64(s.LookupMisses)))
	}
	return sb.String()
}

func writeCacheStats(sb *strings.Builder, name string, c CacheStats) {
	ratio := 0.0
	if total := c.Hits + c.Misses; total > 0 {
		ratio = float64(c.Hits) / float64(total) * 100
	}
	fmt.Fprintf(sb, "%s: %d/%d resident (%d pinned, %d dirty), hit rate %s%%, %s evictions, %s write-backs\n",
		name, c.Resident, c.Capacity, c.Pinned, c.Dirty,
		humanize.FormatFloat("#.#", ratio),
		humanize.Comma(int64(c.Evictions)), humanize.Comma(int64(c.WriteBacks)))
}
