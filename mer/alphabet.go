// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package mer

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
)

const (
	// invalidBase marks symbols outside the alphabet in Alphabet.codes.
	invalidBase = uint8(255)

	// maxSize caps len(bases)^k so that per-code tables stay small.
	maxSize = 1 << 22

	// maxBases keeps base codes representable as int8.
	maxBases = 127

	// DNABases and DNAComplements define the default nucleotide alphabet.
	DNABases       = "ACGT"
	DNAComplements = "TGCA"
)

// Alphabet is the ordered set of all k-mers over a base set. It is immutable
// and safe for concurrent use.
type Alphabet struct {
	k     int
	bases string
	comp  []uint8 // comp[i] is the index of the complement of bases[i].
	codes [256]uint8
	size  int

	radix []int   // radix[i] = len(bases)^i
	rc    []int32 // rc[code] is the code of the reverse complement.
}

// NewAlphabet creates an alphabet of k-mers over bases. complements[i] is the
// complement of bases[i]; it must be a permutation of bases that is its own
// inverse. Bases are case-insensitive.
func NewAlphabet(k int, bases, complements string) (*Alphabet, error) {
	bases = strings.ToUpper(bases)
	complements = strings.ToUpper(complements)
	if k <= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("mer: k must be positive, got %d", k))
	}
	if len(bases) < 2 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("mer: need at least two bases, got %q", bases))
	}
	if len(bases) > maxBases {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("mer: at most %d bases, got %d", maxBases, len(bases)))
	}
	if len(complements) != len(bases) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("mer: complements %q do not match bases %q", complements, bases))
	}
	a := &Alphabet{k: k, bases: bases}
	for i := range a.codes {
		a.codes[i] = invalidBase
	}
	for i := 0; i < len(bases); i++ {
		b := bases[i]
		if a.codes[b] != invalidBase {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("mer: duplicate base %q", b))
		}
		a.codes[b] = uint8(i)
		a.codes[strings.ToLower(string(b))[0]] = uint8(i)
	}
	a.comp = make([]uint8, len(bases))
	for i := 0; i < len(complements); i++ {
		c := a.codes[complements[i]]
		if c == invalidBase {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("mer: complement %q is not a base", complements[i]))
		}
		a.comp[i] = c
	}
	for i, c := range a.comp {
		if int(a.comp[c]) != i {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("mer: complement map %q is not an involution", complements))
		}
	}
	size := 1
	a.radix = make([]int, k)
	for i := 0; i < k; i++ {
		a.radix[i] = size
		if size > maxSize/len(bases) {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("mer: alphabet too large for k=%d", k))
		}
		size *= len(bases)
	}
	a.size = size
	a.rc = make([]int32, size)
	n := len(bases)
	for code := 0; code < size; code++ {
		rc, c := 0, code
		for i := 0; i < k; i++ {
			d := c % n
			c /= n
			rc += int(a.comp[d]) * a.radix[k-1-i]
		}
		a.rc[code] = int32(rc)
	}
	return a, nil
}

// NewDNA creates the ACGT alphabet with Watson-Crick complements.
func NewDNA(k int) (*Alphabet, error) {
	return NewAlphabet(k, DNABases, DNAComplements)
}

// K returns the mer length.
func (a *Alphabet) K() int { return a.k }

// Bases returns the uppercase base set.
func (a *Alphabet) Bases() string { return a.bases }

// Size returns the number of distinct mers, len(bases)^k.
func (a *Alphabet) Size() int { return a.size }

// NumBases returns len(a.Bases()).
func (a *Alphabet) NumBases() int { return len(a.bases) }

// BaseCode returns the index of symbol b in the base set. ok is false if b is
// not a base.
func (a *Alphabet) BaseCode(b byte) (code int, ok bool) {
	c := a.codes[b]
	return int(c), c != invalidBase
}

// Radix returns len(bases)^i, the weight of the i'th position of a mer.
func (a *Alphabet) Radix(i int) int { return a.radix[i] }

// Enumerate returns every mer in code order.
func (a *Alphabet) Enumerate() []string {
	mers := make([]string, a.size)
	for code := range mers {
		mers[code] = a.Mer(code)
	}
	return mers
}

// Mer decodes a code produced by Code.
func (a *Alphabet) Mer(code int) string {
	buf := make([]byte, a.k)
	n := len(a.bases)
	for i := 0; i < a.k; i++ {
		buf[i] = a.bases[code%n]
		code /= n
	}
	return string(buf)
}

// Code encodes a mer. It returns an *InvalidBaseError if m contains a symbol
// outside the alphabet, or a configuration error if len(m) != K().
func (a *Alphabet) Code(m string) (int, error) {
	if len(m) != a.k {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("mer: length of %q is not %d", m, a.k))
	}
	code := 0
	for i := 0; i < len(m); i++ {
		c := a.codes[m[i]]
		if c == invalidBase {
			return 0, &InvalidBaseError{Base: m[i], Pos: i}
		}
		code += int(c) * a.radix[i]
	}
	return code, nil
}

// ReverseComplementCode returns the code of the reverse complement of the
// given mer code.
func (a *Alphabet) ReverseComplementCode(code int) int {
	return int(a.rc[code])
}

// CanonicalCode returns the code of canonical(Mer(code)).
func (a *Alphabet) CanonicalCode(code int) int {
	rc := int(a.rc[code])
	if rc == code {
		return code
	}
	if a.Mer(rc) < a.Mer(code) {
		return rc
	}
	return code
}

// ReverseComplement complements each base of m and reverses the result.
func (a *Alphabet) ReverseComplement(m string) (string, error) {
	buf := make([]byte, len(m))
	for i := 0; i < len(m); i++ {
		c := a.codes[m[i]]
		if c == invalidBase {
			return "", &InvalidBaseError{Base: m[i], Pos: i}
		}
		buf[len(m)-1-i] = a.bases[a.comp[c]]
	}
	return string(buf), nil
}

// Complement complements each base of s without reversing it.
func (a *Alphabet) Complement(s string) (string, error) {
	buf := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := a.codes[s[i]]
		if c == invalidBase {
			return "", &InvalidBaseError{Base: s[i], Pos: i}
		}
		buf[i] = a.bases[a.comp[c]]
	}
	return string(buf), nil
}

// ComplementBytes complements seq in place. Symbols outside the alphabet are
// left unchanged so that they keep failing to match any mer.
func (a *Alphabet) ComplementBytes(seq []byte) {
	for i, b := range seq {
		if c := a.codes[b]; c != invalidBase {
			seq[i] = a.bases[a.comp[c]]
		}
	}
}

// Canonical returns the lexicographically smaller of m and its reverse
// complement, in uppercase.
func (a *Alphabet) Canonical(m string) (string, error) {
	rc, err := a.ReverseComplement(m)
	if err != nil {
		return "", err
	}
	m = strings.ToUpper(m)
	if rc < m {
		return rc, nil
	}
	return m, nil
}

// CanonicalMap returns the mapping from every mer of the alphabet to its
// canonical representative.
func (a *Alphabet) CanonicalMap() map[string]string {
	m := make(map[string]string, a.size)
	for code := 0; code < a.size; code++ {
		m[a.Mer(code)] = a.Mer(a.CanonicalCode(code))
	}
	return m
}
