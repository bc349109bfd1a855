// Package alphabet defines the ordered symbol sets a trie branches over.
/*
Alphabet
 ├── symbols: strictly increasing runes, index 0..N-1
 ├── contiguous alphabets (a-z, a CJK block) resolve an index in O(1)
 └── everything else resolves by binary search

The wildcard runes '*', '?' and '\' are reserved for patterns.
*/
package alphabet

import (
	"encoding/binary"
	"slices"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

const MaxSize = 1<<16 - 1

var ErrInvalidAlphabet = errors.New("alphabet: invalid symbol set")

type Alphabet struct {
	symbols    []rune
	contiguous bool
}

// New builds an alphabet from symbols, which must be strictly increasing.
func New(symbols []rune) (*Alphabet, error) {
	if len(symbols) == 0 || len(symbols) > MaxSize {
		return nil, errors.Wrapf(ErrInvalidAlphabet, "size %d out of range [1, %d]", len(symbols), MaxSize)
	}
	for i, r := range symbols {
		if IsReserved(r) {
			return nil, errors.Wrapf(ErrInvalidAlphabet, "symbol %q is reserved for patterns", r)
		}
		if !utf8.ValidRune(r) {
			return nil, errors.Wrapf(ErrInvalidAlphabet, "symbol %U is not a valid rune", r)
		}
		if i > 0 && symbols[i-1] >= r {
			return nil, errors.Wrapf(ErrInvalidAlphabet, "symbols not strictly increasing at index %d", i)
		}
	}
	a := &Alphabet{symbols: slices.Clone(symbols)}
	a.contiguous = int(symbols[len(symbols)-1]-symbols[0]) == len(symbols)-1
	return a, nil
}

// FromRange builds the contiguous alphabet lo..hi inclusive.
func FromRange(lo, hi rune) (*Alphabet, error) {
	if hi < lo {
		return nil, errors.Wrapf(ErrInvalidAlphabet, "empty range %U..%U", lo, hi)
	}
	symbols := make([]rune, 0, hi-lo+1)
	for r := lo; r <= hi; r++ {
		symbols = append(symbols, r)
	}
	return New(symbols)
}

// Latin is the 26 lowercase latin letters.
func Latin() *Alphabet {
	a, err := FromRange('a', 'z')
	if err != nil {
		panic(err)
	}
	return a
}

// PrintableASCII is ' '..'~' without the pattern runes. It is not contiguous.
func PrintableASCII() *Alphabet {
	symbols := make([]rune, 0, 95)
	for r := rune(' '); r <= '~'; r++ {
		if !IsReserved(r) {
			symbols = append(symbols, r)
		}
	}
	a, err := New(symbols)
	if err != nil {
		panic(err)
	}
	return a
}

// CJK is the CJK Unified Ideographs block U+4E00..U+9FFF.
func CJK() *Alphabet {
	a, err := FromRange(0x4E00, 0x9FFF)
	if err != nil {
		panic(err)
	}
	return a
}

func IsReserved(r rune) bool {
	return r == '*' || r == '?' || r == '\\'
}

func (a *Alphabet) Size() int { return len(a.symbols) }

func (a *Alphabet) Symbol(i int) rune { return a.symbols[i] }

// Index returns the position of r, or false if r is not in the alphabet.
func (a *Alphabet) Index(r rune) (int, bool) {
	if a.contiguous {
		i := int(r - a.symbols[0])
		if i < 0 || i >= len(a.symbols) {
			return 0, false
		}
		return i, true
	}
	if r < a.symbols[0] || r > a.symbols[len(a.symbols)-1] {
		return 0, false
	}
	return slices.BinarySearch(a.symbols, r)
}

// Fingerprint identifies the symbol set; it is stored in file headers.
func (a *Alphabet) Fingerprint() uint64 {
	d := xxhash.New()
	var b [4]byte
	for _, r := range a.symbols {
		binary.LittleEndian.PutUint32(b[:], uint32(r))
		_, _ = d.Write(b[:])
	}
	return d.Sum64()
}
