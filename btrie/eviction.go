package btrie

import (
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	PolicyLRU  = "lru"
	PolicyLFU  = "lfu"
	PolicyLARU = "laru"
)

// Score is the per-slot bookkeeping an eviction policy ranks.
type Score struct {
	LastUse uint64 // cache clock at the last access
	Hits    uint64 // accesses since the slot was filled
}

// Policy ranks eviction candidates. Visit runs on every access; Less reports
// whether a is a better victim than b at clock now.
type Policy interface {
	Name() string
	Visit(s *Score, now uint64)
	Less(a, b Score, now uint64) bool
}

func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case PolicyLRU:
		return lruPolicy{}, nil
	case PolicyLFU:
		return lfuPolicy{}, nil
	case PolicyLARU, "":
		return laruPolicy{}, nil
	default:
		return nil, errors.Wrapf(ErrInvalidOptions, "unknown eviction policy %q", name)
	}
}

func visit(s *Score, now uint64) {
	s.LastUse = now
	s.Hits++
}

// recency only
type lruPolicy struct{}

func (lruPolicy) Name() string                   { return PolicyLRU }
func (lruPolicy) Visit(s *Score, now uint64)     { visit(s, now) }
func (lruPolicy) Less(a, b Score, _ uint64) bool { return a.LastUse < b.LastUse }

// frequency only, ties broken by recency
type lfuPolicy struct{}

func (lfuPolicy) Name() string               { return PolicyLFU }
func (lfuPolicy) Visit(s *Score, now uint64) { visit(s, now) }
func (lfuPolicy) Less(a, b Score, _ uint64) bool {
	if a.Hits != b.Hits {
		return a.Hits < b.Hits
	}
	return a.LastUse < b.LastUse
}

// laruPolicy evicts the slot with the fewest hits per tick of age.
// hits/age is compared by cross multiplication.
type laruPolicy struct{}

func (laruPolicy) Name() string               { return PolicyLARU }
func (laruPolicy) Visit(s *Score, now uint64) { visit(s, now) }
func (laruPolicy) Less(a, b Score, now uint64) bool {
	ageA := now - a.LastUse + 1
	ageB := now - b.LastUse + 1
	l, r := a.Hits*ageB, b.Hits*ageA
	if l != r {
		return l < r
	}
	return a.LastUse < b.LastUse
}
