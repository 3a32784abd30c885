// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package segment

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/spectra/counter"
	"github.com/grailbio/spectra/mer"
	"github.com/grailbio/spectra/profile"
	"github.com/grailbio/spectra/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// profiles windows seq and counts 3-mers in each window.
func profiles(t *testing.T, seq string, width, spacing int) profile.Partition {
	a, err := mer.NewDNA(3)
	require.NoError(t, err)
	c := counter.New(a.Full(), counter.Opts{})
	g := window.Generator{Width: width, Spacing: spacing}
	p := profile.Partition{Key: profile.Key{Library: "lib", Sequence: "seq"}}
	for s := g.Scan(len(seq)); s.Scan(); {
		span := s.Span()
		v, err := c.Count(seq[span.Start:span.End])
		require.NoError(t, err)
		p.Windows = append(p.Windows, profile.NewWindow(span, v))
	}
	return p
}

func randomSeq(r *rand.Rand, n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = "ACGT"[r.Intn(4)]
	}
	return string(buf)
}

func TestTwoBlocks(t *testing.T) {
	seq := strings.Repeat("A", 500) + strings.Repeat("C", 500)
	p := profiles(t, seq, 50, 50)
	require.Equal(t, 20, len(p.Windows))
	for _, opts := range []Opts{
		{Penalty: 1000, MinSize: 5, Kernel: Linear},
		{Penalty: 1, MinSize: 5, Kernel: RBF},
		{Penalty: 1, MinSize: 5, Kernel: Cosine},
		{Penalty: 1, MinSize: 5, Kernel: RBF, Gamma: 1e-3},
	} {
		bkps, coords, err := Partition(p, opts)
		require.NoError(t, err, "%+v", opts)
		assert.Equal(t, []int{10, 20}, bkps, "%+v", opts)
		assert.Equal(t, []int{501, 1000}, coords, "%+v", opts)
	}
	// The default penalty is tuned for 3kb windows and finds nothing here.
	bkps, err := Breakpoints(p.Matrix(), DefaultOpts)
	require.NoError(t, err)
	assert.Equal(t, []int{20}, bkps)
}

func TestPenaltyMonotonic(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	p := profiles(t, randomSeq(r, 10000), 50, 50)
	require.Equal(t, 200, len(p.Windows))
	prev := -1
	for _, pen := range []float64{1e6, 1e4, 1e3, 300, 150, 100, 50, 20, 5} {
		bkps, err := Breakpoints(p.Matrix(), Opts{Penalty: pen, MinSize: 5})
		require.NoError(t, err)
		n := len(bkps) - 1
		if pen >= 1e3 {
			assert.True(t, n <= 1, "penalty %v: %d breakpoints", pen, n)
		}
		assert.True(t, n >= prev, "penalty %v: %d breakpoints after %d", pen, n, prev)
		prev = n
		checkSegments(t, bkps, 200, 5)
	}
	assert.True(t, prev > 0)
}

func checkSegments(t *testing.T, bkps []int, n, minSize int) {
	t.Helper()
	require.True(t, len(bkps) > 0)
	assert.Equal(t, n, bkps[len(bkps)-1])
	start := 0
	for _, b := range bkps {
		assert.True(t, b-start >= minSize, "segment [%d,%d)", start, b)
		start = b
	}
}

// bruteForce is the unpruned optimal partitioning recursion.
func bruteForce(c coster, n int, penalty float64, minSize int) (float64, []int) {
	f := make([]float64, n+1)
	prev := make([]int, n+1)
	for t := 1; t <= n; t++ {
		f[t] = math.Inf(1)
		for s := 0; s+minSize <= t; s++ {
			if s > 0 && s < minSize {
				continue
			}
			v := f[s] + c.cost(s, t)
			if s > 0 {
				v += penalty
			}
			if v < f[t] {
				f[t], prev[t] = v, s
			}
		}
	}
	var bkps []int
	for t := n; t > 0; t = prev[t] {
		bkps = append([]int{t}, bkps...)
	}
	return f[n], bkps
}

func TestPeltExact(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for trial := 0; trial < 30; trial++ {
		n := 10 + r.Intn(60)
		d := 1 + r.Intn(4)
		rows := make([][]float64, n)
		level := 0.0
		for i := range rows {
			if r.Intn(8) == 0 {
				level = r.Float64() * 10
			}
			rows[i] = make([]float64, d)
			for j := range rows[i] {
				rows[i][j] = level + r.NormFloat64()
			}
		}
		minSize := 1 + r.Intn(4)
		penalty := 1 + r.Float64()*20
		c := newLinearCost(rows)
		want, wantBkps := bruteForce(c, n, penalty, minSize)
		got := pelt(c, n, penalty, minSize)
		assert.Equal(t, wantBkps, got, "trial %d", trial)
		total, start := 0.0, 0
		for _, b := range got {
			total += c.cost(start, b)
			start = b
		}
		total += penalty * float64(len(got)-1)
		assert.InDelta(t, want, total, 1e-6, "trial %d", trial)
		checkSegments(t, got, n, minSize)
	}
}

func TestLinearCost(t *testing.T) {
	rows := [][]float64{{0, 0}, {2, 0}, {4, 3}}
	c := newLinearCost(rows)
	// Mean of the first two rows is (1,0).
	assert.InDelta(t, 2.0, c.cost(0, 2), 1e-12)
	assert.InDelta(t, 0.0, c.cost(1, 2), 1e-12)
	g := newGramCost(linearGram(rows), 3)
	for s := 0; s < 3; s++ {
		for e := s + 1; e <= 3; e++ {
			assert.InDelta(t, c.cost(s, e), g.cost(s, e), 1e-9, "[%d,%d)", s, e)
		}
	}
}

func TestSmallPartition(t *testing.T) {
	rows := make([][]float64, 9)
	for i := range rows {
		rows[i] = []float64{float64(i)}
	}
	bkps, err := Breakpoints(rows, Opts{Penalty: 1e-9, MinSize: 5})
	require.NoError(t, err)
	assert.Equal(t, []int{9}, bkps)

	bkps, err = Breakpoints(nil, Opts{Penalty: 1, MinSize: 5})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, bkps)
	assert.Nil(t, Coordinates(nil, bkps))
}

func TestOneBaseTail(t *testing.T) {
	seq := strings.Repeat("A", 50) + strings.Repeat("C", 50) + strings.Repeat("A", 50) + strings.Repeat("C", 50) + "G"
	p := profiles(t, seq, 50, 50)
	require.Equal(t, 5, len(p.Windows))
	require.Equal(t, 201, p.Windows[4].Start)
	require.Equal(t, 201, p.Windows[4].End)

	opts := Opts{Penalty: 1, MinSize: 1, Kernel: Linear}
	raw, err := Breakpoints(p.Matrix(), opts)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, raw)

	bkps, coords, err := Partition(p, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 5}, bkps)
	assert.Equal(t, []int{51, 101, 151, 201}, coords)
	for i := 1; i < len(coords); i++ {
		assert.True(t, coords[i-1] < coords[i], "coords %v", coords)
	}
	assert.Equal(t, coords, Coordinates(p.Windows, raw))
}

func TestFailures(t *testing.T) {
	opts := Opts{Penalty: 1, MinSize: 1}
	for _, rows := range [][][]float64{
		{{1, 2}, {1}},
		{{1}, {math.NaN()}},
		{{1}, {math.Inf(1)}},
		{{3, 3}, {3, 3}, {3, 3}},
		{{}, {}},
	} {
		_, err := Breakpoints(rows, opts)
		require.Error(t, err, "%v", rows)
		_, ok := err.(*Failure)
		assert.True(t, ok, "%v: %T", rows, err)
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultOpts.Validate())
	for _, o := range []Opts{
		{Penalty: 0, MinSize: 5},
		{Penalty: -1, MinSize: 5},
		{Penalty: math.NaN(), MinSize: 5},
		{Penalty: math.Inf(1), MinSize: 5},
		{Penalty: 1, MinSize: 0},
		{Penalty: 1, MinSize: 1, Gamma: -1},
		{Penalty: 1, MinSize: 1, Kernel: Kernel(7)},
	} {
		assert.True(t, errors.Is(errors.Invalid, o.Validate()), "%+v", o)
	}
}

func TestParseKernel(t *testing.T) {
	for _, k := range []Kernel{Linear, RBF, Cosine} {
		got, ok := ParseKernel(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := ParseKernel("poly")
	assert.False(t, ok)
}
