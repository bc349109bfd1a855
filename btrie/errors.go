package btrie

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrNotFound       = errors.New("btrie: key not found")
	ErrBrokenChain    = errors.New("btrie: child address missing mid-traversal")
	ErrCacheExhausted = errors.New("btrie: every cache slot is pinned")
	ErrInvalidKey     = errors.New("btrie: key has symbols outside the alphabet")
	ErrKeyTooLong     = errors.New("btrie: key does not fit in an empty bucket")
	ErrInvalidPattern = errors.New("btrie: pattern has symbols outside the alphabet")
	ErrInvalidAddress = errors.New("btrie: address must be non-negative")
	ErrClosed         = errors.New("btrie: trie is closed")
	ErrLocked         = errors.New("btrie: directory is locked by another process")
	ErrCorrupt        = errors.New("btrie: corrupt record")
	ErrInvalidOptions = errors.New("btrie: invalid options")

	// internal signals, never returned to callers
	errBucketFull = errors.New("btrie: bucket full")
	errDuplicate  = errors.New("btrie: duplicate key")
)

// notFoundError is a lookup that failed for a reason other than a missing
// key. It matches ErrNotFound and unwraps to the reason.
type notFoundError struct {
	cause error
}

func (e *notFoundError) Error() string        { return "btrie: key not found: " + e.cause.Error() }
func (e *notFoundError) Unwrap() error        { return e.cause }
func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }

func asNotFound(err error) error { return &notFoundError{cause: err} }
