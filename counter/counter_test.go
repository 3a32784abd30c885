// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package counter

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/grailbio/spectra/mer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dna(t *testing.T, k int) *mer.Alphabet {
	a, err := mer.NewDNA(k)
	require.NoError(t, err)
	return a
}

func sum(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}

func randomSeq(r *rand.Rand, n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = "ACGT"[r.Intn(4)]
	}
	return string(buf)
}

// naiveCount counts every occurrence of each mer by string comparison.
func naiveCount(a *mer.Alphabet, seq string, step int) map[string]float64 {
	m := map[string]float64{}
	for i := 0; i+a.K() <= len(seq); i += step {
		m[strings.ToUpper(seq[i:i+a.K()])]++
	}
	return m
}

func TestCountSums(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for k := 1; k <= 5; k++ {
		a := dna(t, k)
		over := New(a.Full(), Opts{Mode: Overlapping})
		non := New(a.Full(), Opts{Mode: NonOverlapping})
		for _, n := range []int{0, 1, k - 1, k, k + 1, 50, 101} {
			seq := randomSeq(r, n)
			c, err := over.Count(seq)
			require.NoError(t, err)
			want := n - k + 1
			if want < 0 {
				want = 0
			}
			assert.Equal(t, float64(want), sum(c), "k=%d n=%d", k, n)

			c, err = non.Count(seq)
			require.NoError(t, err)
			assert.Equal(t, float64(n/k), sum(c), "k=%d n=%d", k, n)
		}
	}
}

func TestCountMatchesNaive(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	a := dna(t, 3)
	seq := randomSeq(r, 300)
	for _, test := range []struct {
		mode Mode
		step int
	}{{Overlapping, 1}, {NonOverlapping, 3}} {
		c, err := New(a.Full(), Opts{Mode: test.mode}).Count(seq)
		require.NoError(t, err)
		want := naiveCount(a, seq, test.step)
		for col, m := range a.Enumerate() {
			assert.Equal(t, want[m], c[col], "%v %s", test.mode, m)
		}
	}
}

func TestCountOverlapExample(t *testing.T) {
	a := dna(t, 3)
	c, err := New(a.Full(), Opts{}).Count("AAAAA")
	require.NoError(t, err)
	aaa, _ := a.Code("AAA")
	assert.Equal(t, 3.0, c[aaa])
	assert.Equal(t, 3.0, sum(c))

	c, err = New(a.Full(), Opts{Mode: NonOverlapping}).Count("AAAAAAAC")
	require.NoError(t, err)
	assert.Equal(t, 2.0, c[aaa])
	assert.Equal(t, 2.0, sum(c))
}

func TestInvalidBases(t *testing.T) {
	a := dna(t, 3)
	aaa, _ := a.Code("AAA")

	// Skip: mers overlapping N match nothing.
	c, err := New(a.Full(), Opts{}).Count("AAANAAAA")
	require.NoError(t, err)
	assert.Equal(t, 3.0, c[aaa])
	assert.Equal(t, 3.0, sum(c))

	c, err = New(a.Full(), Opts{Mode: NonOverlapping}).Count("AAANAAAAA")
	require.NoError(t, err)
	assert.Equal(t, 2.0, c[aaa])

	c, err = New(a.CanonicalLayout(), Opts{}).Count("NNNN")
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum(c))

	_, err = New(a.Full(), Opts{Policy: mer.Reject}).Count("AAANAAAA")
	require.Error(t, err)
	ibe, ok := err.(*mer.InvalidBaseError)
	require.True(t, ok)
	assert.Equal(t, 3, ibe.Pos)
	assert.Equal(t, byte('N'), ibe.Base)
}

func TestLowercase(t *testing.T) {
	a := dna(t, 2)
	upper, err := New(a.Full(), Opts{}).Count("ACGTTGCA")
	require.NoError(t, err)
	lower, err := New(a.Full(), Opts{}).Count("acgttgca")
	require.NoError(t, err)
	assert.Equal(t, upper, lower)
}

func TestCanonical(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	a := dna(t, 3)
	seq := randomSeq(r, 500)
	full, err := New(a.Full(), Opts{}).Count(seq)
	require.NoError(t, err)
	canon, err := New(a.CanonicalLayout(), Opts{}).Count(seq)
	require.NoError(t, err)
	assert.Equal(t, 32, len(canon))
	assert.Equal(t, sum(full), sum(canon))
	l := a.CanonicalLayout()
	for col, m := range l.Columns() {
		code, _ := a.Code(m)
		want := full[code] + full[a.ReverseComplementCode(code)]
		assert.Equal(t, want, canon[col], m)
	}
}

func TestComplementStrand(t *testing.T) {
	a := dna(t, 3)
	c, err := New(a.Full(), Opts{Strand: Complement}).Count("AAAC")
	require.NoError(t, err)
	ttt, _ := a.Code("TTT")
	ttg, _ := a.Code("TTG")
	assert.Equal(t, 1.0, c[ttt])
	assert.Equal(t, 1.0, c[ttg])
	assert.Equal(t, 2.0, sum(c))
}

func TestProportions(t *testing.T) {
	a := dna(t, 3)
	p := New(a.Full(), Opts{Proportions: true})
	c, err := p.Count("AAAACCCC")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sum(c), 1e-12)
	aaa, _ := a.Code("AAA")
	assert.InDelta(t, 2.0/6, c[aaa], 1e-12)

	// Shorter than k: all zero, no division by zero.
	c, err = p.Count("AC")
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 64), c)
}

func TestQuery(t *testing.T) {
	a := dna(t, 3)
	l, err := a.QueryLayout([]string{"CCC", "AAA"}, false)
	require.NoError(t, err)
	c, err := New(l, Opts{}).Count("AAAACCCGT")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, c)
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Overlapping, NonOverlapping} {
		got, ok := ParseMode(m.String())
		assert.True(t, ok)
		assert.Equal(t, m, got)
	}
	_, ok := ParseMode("sideways")
	assert.False(t, ok)
}
