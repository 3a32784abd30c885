// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package segment

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Kernel selects the similarity measure between profile vectors.
type Kernel int

const (
	// Linear is the dot product. Its segment cost is the sum of squared
	// distances to the segment mean.
	Linear Kernel = iota
	// RBF is exp(-gamma*|x-y|^2).
	RBF
	// Cosine is x.y/(|x||y|).
	Cosine
)

// String implements fmt.Stringer.
func (k Kernel) String() string {
	switch k {
	case Linear:
		return "linear"
	case RBF:
		return "rbf"
	case Cosine:
		return "cosine"
	}
	return fmt.Sprintf("Kernel(%d)", int(k))
}

// ParseKernel parses the output of Kernel.String.
func ParseKernel(s string) (Kernel, bool) {
	switch s {
	case "linear":
		return Linear, true
	case "rbf":
		return RBF, true
	case "cosine":
		return Cosine, true
	}
	return Linear, false
}

// maxGramRows bounds the partition size for kernels that need the full Gram
// matrix.
const maxGramRows = 4096

// coster evaluates the cost of segment [s, t) of the rows it was built from.
type coster interface {
	cost(s, t int) float64
}

// linearCost uses prefix sums of the rows and of their squared norms, so each
// evaluation is O(dim).
type linearCost struct {
	sums *mat.Dense // row i holds the sum of rows [0, i)
	sq   []float64  // sq[i] is the sum of squared norms of rows [0, i)
	buf  []float64
}

func newLinearCost(rows [][]float64) *linearCost {
	n, d := len(rows), len(rows[0])
	c := &linearCost{
		sums: mat.NewDense(n+1, d, nil),
		sq:   make([]float64, n+1),
		buf:  make([]float64, d),
	}
	for i, row := range rows {
		floats.AddTo(c.sums.RawRowView(i+1), c.sums.RawRowView(i), row)
		c.sq[i+1] = c.sq[i] + floats.Dot(row, row)
	}
	return c
}

func (c *linearCost) cost(s, t int) float64 {
	floats.SubTo(c.buf, c.sums.RawRowView(t), c.sums.RawRowView(s))
	v := c.sq[t] - c.sq[s] - floats.Dot(c.buf, c.buf)/float64(t-s)
	if v < 0 {
		// Rounding; a dispersion is never negative.
		return 0
	}
	return v
}

// gramCost uses 2-D prefix sums of the Gram matrix, so each evaluation is
// O(1) after O(n^2) setup.
type gramCost struct {
	block *mat.Dense // block[i][j] is the sum of G[a][b] for a < i, b < j
	diag  []float64  // diag[i] is the sum of G[a][a] for a < i
}

func newGramCost(gram *mat.SymDense, n int) *gramCost {
	c := &gramCost{block: mat.NewDense(n+1, n+1, nil), diag: make([]float64, n+1)}
	for i := 0; i < n; i++ {
		c.diag[i+1] = c.diag[i] + gram.At(i, i)
		prev, cur := c.block.RawRowView(i), c.block.RawRowView(i+1)
		rowSum := 0.0
		for j := 0; j < n; j++ {
			rowSum += gram.At(i, j)
			cur[j+1] = prev[j+1] + rowSum
		}
	}
	return c
}

func (c *gramCost) cost(s, t int) float64 {
	within := c.block.At(t, t) - c.block.At(s, t) - c.block.At(t, s) + c.block.At(s, s)
	v := c.diag[t] - c.diag[s] - within/float64(t-s)
	if v < 0 {
		return 0
	}
	return v
}

func sqDist(a, b []float64) float64 {
	d := 0.0
	for i := range a {
		x := a[i] - b[i]
		d += x * x
	}
	return d
}

// medianGamma returns 1/median of the pairwise squared distances, or 0 if
// the median is zero.
func medianGamma(rows [][]float64) float64 {
	n := len(rows)
	dists := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dists = append(dists, sqDist(rows[i], rows[j]))
		}
	}
	if len(dists) == 0 {
		return 0
	}
	sort.Float64s(dists)
	med := stat.Quantile(0.5, stat.Empirical, dists, nil)
	if med == 0 {
		return 0
	}
	return 1 / med
}

func rbfGram(rows [][]float64, gamma float64) *mat.SymDense {
	n := len(rows)
	g := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		g.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			g.SetSym(i, j, math.Exp(-gamma*sqDist(rows[i], rows[j])))
		}
	}
	return g
}

func cosineGram(rows [][]float64) *mat.SymDense {
	n := len(rows)
	norms := make([]float64, n)
	for i, row := range rows {
		norms[i] = floats.Norm(row, 2)
	}
	g := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if norms[i] == 0 || norms[j] == 0 {
				continue
			}
			g.SetSym(i, j, floats.Dot(rows[i], rows[j])/(norms[i]*norms[j]))
		}
	}
	return g
}
