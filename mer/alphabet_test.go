// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package mer

import (
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerateOrder(t *testing.T) {
	a, err := NewDNA(3)
	require.NoError(t, err)
	mers := a.Enumerate()
	assert.Equal(t, 64, len(mers))
	assert.Equal(t, []string{"AAA", "CAA", "GAA", "TAA", "ACA"}, mers[:5])
	assert.Equal(t, "TTT", mers[63])
	for code, m := range mers {
		got, err := a.Code(m)
		require.NoError(t, err)
		assert.Equal(t, code, got, m)
	}
}

func TestNewAlphabetErrors(t *testing.T) {
	tests := []struct {
		k                 int
		bases, complement string
	}{
		{0, "ACGT", "TGCA"},
		{3, "A", "T"},
		{3, "ACGT", "TGC"},
		{3, "AACG", "TTGC"},
		{3, "ACGT", "TGCX"},
		{3, "ACGT", "CGTA"}, // A->C but C->G
		{12, "ACGT", "TGCA"},
	}
	for _, test := range tests {
		_, err := NewAlphabet(test.k, test.bases, test.complement)
		assert.Error(t, err, "%+v", test)
		assert.True(t, errors.Is(errors.Invalid, err), "%+v: %v", test, err)
	}
}

func TestTooManyBases(t *testing.T) {
	buf := make([]byte, 128)
	for i := range buf {
		buf[i] = byte(i)
	}
	_, err := NewAlphabet(1, string(buf), string(buf))
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
	assert.Contains(t, err.Error(), "at most 127 bases")
}

func TestReverseComplement(t *testing.T) {
	a, err := NewDNA(4)
	require.NoError(t, err)
	tests := []struct{ in, rc, comp, canon string }{
		{"AACG", "CGTT", "TTGC", "AACG"},
		{"TTTT", "AAAA", "AAAA", "AAAA"},
		{"ACGT", "ACGT", "TGCA", "ACGT"},
		{"gatc", "GATC", "CTAG", "GATC"},
		{"CCCA", "TGGG", "GGGT", "CCCA"},
		{"TGGG", "CCCA", "ACCC", "CCCA"},
	}
	for _, test := range tests {
		rc, err := a.ReverseComplement(test.in)
		require.NoError(t, err)
		assert.Equal(t, test.rc, rc, test.in)
		comp, err := a.Complement(test.in)
		require.NoError(t, err)
		assert.Equal(t, test.comp, comp, test.in)
		canon, err := a.Canonical(test.in)
		require.NoError(t, err)
		assert.Equal(t, test.canon, canon, test.in)
	}
}

func TestInvalidBase(t *testing.T) {
	a, err := NewDNA(3)
	require.NoError(t, err)
	_, err = a.Canonical("ANA")
	require.Error(t, err)
	ibe, ok := err.(*InvalidBaseError)
	require.True(t, ok, "%T", err)
	assert.Equal(t, byte('N'), ibe.Base)
	assert.Equal(t, 1, ibe.Pos)

	_, err = a.Code("ACN")
	assert.IsType(t, &InvalidBaseError{}, err)
	_, err = a.Code("AC")
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestCanonicalIdempotent(t *testing.T) {
	for k := 1; k <= 6; k++ {
		a, err := NewDNA(k)
		require.NoError(t, err)
		canon := a.CanonicalMap()
		groups := map[string]int{}
		for m, c := range canon {
			assert.Equal(t, c, canon[c], "k=%d mer %s", k, m)
			assert.True(t, c <= m, "k=%d mer %s canonical %s", k, m, c)
			groups[c]++
		}
		for c, n := range groups {
			rc, err := a.ReverseComplement(c)
			require.NoError(t, err)
			if rc == c {
				assert.Equal(t, 1, n, "palindrome %s", c)
			} else {
				assert.Equal(t, 2, n, "group %s", c)
			}
		}
	}
}

func TestCodeTables(t *testing.T) {
	a, err := NewDNA(5)
	require.NoError(t, err)
	for code := 0; code < a.Size(); code++ {
		m := a.Mer(code)
		rc, err := a.ReverseComplement(m)
		require.NoError(t, err)
		assert.Equal(t, rc, a.Mer(a.ReverseComplementCode(code)))
		canon, err := a.Canonical(m)
		require.NoError(t, err)
		assert.Equal(t, canon, a.Mer(a.CanonicalCode(code)))
	}
}

func TestCustomAlphabet(t *testing.T) {
	// A two-letter purine/pyrimidine alphabet.
	a, err := NewAlphabet(2, "RY", "YR")
	require.NoError(t, err)
	assert.Equal(t, []string{"RR", "YR", "RY", "YY"}, a.Enumerate())
	canon, err := a.Canonical("YY")
	require.NoError(t, err)
	assert.Equal(t, "RR", canon)
}
