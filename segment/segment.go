// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package segment finds change points in an ordered sequence of profile
// vectors.
//
// The search minimizes the sum of per-segment kernel dispersion plus Penalty
// per segment boundary, with every segment at least MinSize rows long. It is
// an exact PELT search: candidate segment starts are discarded only once they
// provably cannot begin the last segment of an optimal segmentation.
package segment

import (
	"fmt"
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/spectra/profile"
)

// Opts configures a segmentation.
type Opts struct {
	// Penalty is added for each breakpoint. Larger values give fewer, longer
	// segments.
	Penalty float64
	// MinSize is the minimum number of windows per segment.
	MinSize int
	Kernel  Kernel
	// Gamma is the RBF bandwidth. Zero selects 1/median of the pairwise
	// squared distances.
	Gamma float64
}

// DefaultOpts are suitable for 3-mer count profiles of 3kb windows.
var DefaultOpts = Opts{
	Penalty: 1e6,
	MinSize: 5,
	Kernel:  Linear,
}

// Validate checks o.
func (o Opts) Validate() error {
	switch {
	case !(o.Penalty > 0) || math.IsInf(o.Penalty, 0):
		return errors.E(errors.Invalid, fmt.Sprintf("segment: penalty must be positive and finite, got %v", o.Penalty))
	case o.MinSize < 1:
		return errors.E(errors.Invalid, fmt.Sprintf("segment: minimum segment size must be positive, got %d", o.MinSize))
	case o.Gamma < 0 || math.IsNaN(o.Gamma) || math.IsInf(o.Gamma, 0):
		return errors.E(errors.Invalid, fmt.Sprintf("segment: bad gamma %v", o.Gamma))
	case o.Kernel < Linear || o.Kernel > Cosine:
		return errors.E(errors.Invalid, fmt.Sprintf("segment: unknown kernel %v", o.Kernel))
	}
	return nil
}

// Failure reports that a matrix could not be segmented.
type Failure struct {
	Reason string
}

// Error implements error.
func (f *Failure) Error() string {
	return "segmentation failed: " + f.Reason
}

// Breakpoints returns the ends of the segments of rows, as ascending row
// indexes. The last element is always len(rows). Partitions with fewer than
// 2*MinSize rows are not searched and yield the single breakpoint len(rows).
// opts must be valid.
func Breakpoints(rows [][]float64, opts Opts) ([]int, error) {
	n := len(rows)
	if n < 2*opts.MinSize {
		return []int{n}, nil
	}
	if err := check(rows); err != nil {
		return nil, err
	}
	var c coster
	switch opts.Kernel {
	case Linear:
		c = newLinearCost(rows)
	case RBF, Cosine:
		if n > maxGramRows {
			return nil, &Failure{Reason: fmt.Sprintf("%d rows exceed the %s kernel limit of %d", n, opts.Kernel, maxGramRows)}
		}
		if opts.Kernel == RBF {
			gamma := opts.Gamma
			if gamma == 0 {
				if gamma = medianGamma(rows); gamma == 0 {
					return nil, &Failure{Reason: "median pairwise distance is zero"}
				}
			}
			c = newGramCost(rbfGram(rows, gamma), n)
		} else {
			c = newGramCost(cosineGram(rows), n)
		}
	default:
		return nil, errors.E(errors.Invalid, fmt.Sprintf("segment: unknown kernel %v", opts.Kernel))
	}
	return pelt(c, n, opts.Penalty, opts.MinSize), nil
}

// check rejects ragged, non-finite and constant matrices.
func check(rows [][]float64) error {
	d := len(rows[0])
	if d == 0 {
		return &Failure{Reason: "rows have no columns"}
	}
	constant := true
	for i, row := range rows {
		if len(row) != d {
			return &Failure{Reason: fmt.Sprintf("row %d has %d columns, want %d", i, len(row), d)}
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &Failure{Reason: fmt.Sprintf("row %d column %d is %v", i, j, v)}
			}
			if v != rows[0][j] {
				constant = false
			}
		}
	}
	if constant {
		return &Failure{Reason: "all rows are identical"}
	}
	return nil
}

// pelt computes the optimal penalized segmentation of [0, n).
//
// f[t] is the optimal cost of [0, t), counting -penalty for the implicit
// first boundary. Start s stops being a candidate once
// f[s]+cost(s,t) > f[t] for some t; since t itself only becomes a legal
// segment start for ends >= t+minSize, the removal is deferred until then.
func pelt(c coster, n int, penalty float64, minSize int) []int {
	f := make([]float64, n+1)
	prev := make([]int, n+1)
	f[0] = -penalty
	for t := 1; t < minSize; t++ {
		f[t] = math.Inf(1)
	}
	alive := []int{0}
	dead := make([]bool, n+1)
	pending := make([][]int, n+1)
	var costs []float64
	for t := minSize; t <= n; t++ {
		if len(pending[t]) > 0 {
			for _, s := range pending[t] {
				dead[s] = true
			}
			kept := alive[:0]
			for _, s := range alive {
				if !dead[s] {
					kept = append(kept, s)
				}
			}
			alive = kept
		}
		best, arg := math.Inf(1), -1
		costs = costs[:0]
		for _, s := range alive {
			if t-s < minSize {
				break
			}
			v := f[s] + c.cost(s, t)
			costs = append(costs, v)
			if v+penalty < best {
				best, arg = v+penalty, s
			}
		}
		f[t], prev[t] = best, arg
		if next := t + minSize; next <= n {
			for i, v := range costs {
				if v > best {
					pending[next] = append(pending[next], alive[i])
				}
			}
		}
		alive = append(alive, t)
	}
	var bkps []int
	for t := n; t > 0; t = prev[t] {
		bkps = append(bkps, t)
	}
	for i, j := 0, len(bkps)-1; i < j; i, j = i+1, j-1 {
		bkps[i], bkps[j] = bkps[j], bkps[i]
	}
	return bkps
}

// mergeTail drops interior breakpoints whose segment would start at or past
// the End of the last window. That happens only when the last segment is a
// single one-base window, which is then merged into the segment before it.
func mergeTail(windows []profile.Window, bkps []int) []int {
	if len(windows) == 0 || len(bkps) < 2 {
		return bkps
	}
	end := windows[len(windows)-1].End
	out := bkps[:0:0]
	for _, b := range bkps[:len(bkps)-1] {
		if windows[b].Start < end {
			out = append(out, b)
		}
	}
	return append(out, bkps[len(bkps)-1])
}

// Coordinates converts breakpoints of a partition to window coordinates:
// the Start of the first window of every segment after the first, followed
// by the End of the last window. Breakpoints removed by mergeTail are
// skipped, so the result is strictly increasing when the windows are sorted
// and non-nested.
func Coordinates(windows []profile.Window, bkps []int) []int {
	if len(windows) == 0 {
		return nil
	}
	bkps = mergeTail(windows, bkps)
	coords := make([]int, 0, len(bkps))
	for _, b := range bkps[:len(bkps)-1] {
		coords = append(coords, windows[b].Start)
	}
	return append(coords, windows[len(windows)-1].End)
}

// Partition segments the windows of p and returns both the breakpoint
// indexes and their coordinates. A trailing one-base segment is merged into
// its predecessor.
func Partition(p profile.Partition, opts Opts) (bkps, coords []int, err error) {
	if bkps, err = Breakpoints(p.Matrix(), opts); err != nil {
		return nil, nil, err
	}
	bkps = mergeTail(p.Windows, bkps)
	return bkps, Coordinates(p.Windows, bkps), nil
}
