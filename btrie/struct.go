// Structure of the B-trie
/*
BTrie
 ├── TrieNode (one child Ref per alphabet symbol)
 │      ├── TrieNode ...
 │      └── Bucket (leaf: suffixes grouped by their next symbol)
 └── fallback table (keys that end exactly at a node boundary)

- a node at level d has consumed d symbols of every key below it
- a bucket reached through slot s of a level-d node stores, for each key,
  group symbol key[d] and rest key[d+1:] (rest is never empty)
- a key with at most one symbol left at its node lives in the fallback table
- a bucket may be shared by a contiguous run of slots [from, to]
- nodes and buckets are paged through NodeCache / BucketCache
*/
package btrie

import (
	"sync"

	"BTrieDB/alphabet"
	fallback "BTrieDB/fallback_table"
	recordfile "BTrieDB/recordfile_manager"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
)

// Tombstone passed to Update deletes the key.
const Tombstone int64 = -1

const (
	nodeFileName     = "trie.nodes"
	bucketFileName   = "trie.buckets"
	fallbackFileName = "trie.fallback"
	lockFileName     = "LOCK"

	formatVersion = 1
)

var (
	nodeMagic   = [4]byte{'B', 'T', 'R', 'N'}
	bucketMagic = [4]byte{'B', 'T', 'R', 'B'}
)

type RefKind uint8

const (
	RefEmpty RefKind = iota
	RefNode
	RefBucket
)

func (k RefKind) String() string {
	switch k {
	case RefEmpty:
		return "empty"
	case RefNode:
		return "node"
	case RefBucket:
		return "bucket"
	default:
		return "unknown"
	}
}

// Ref is a child address: an offset in the node file or the bucket file.
type Ref struct {
	Kind   RefKind
	Offset int64
}

func nodeRef(off int64) Ref   { return Ref{Kind: RefNode, Offset: off} }
func bucketRef(off int64) Ref { return Ref{Kind: RefBucket, Offset: off} }

// handle indexes a cache slot. noHandle marks a missing memory hint.
type handle = int32

const noHandle handle = -1

// Match is one FindRegExp result.
type Match struct {
	Key  string
	Addr int64
}

type BTrie struct {
	dir   string
	opts  Options
	alpha *alphabet.Alphabet

	nodeFile   *recordfile.File
	bucketFile *recordfile.File
	nodes      *NodeCache
	buckets    *BucketCache
	fallback   *fallback.Table
	lookup     *ristretto.Cache[string, int64] // nil when disabled
	lock       *dirLock

	rootOffset int64
	log        *zap.Logger

	broken error // set after an invariant violation; every later call fails with it
	closed bool
	mu     sync.Mutex
}
