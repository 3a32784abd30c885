// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package counter computes per-window k-mer count vectors.
package counter

import (
	"fmt"

	"github.com/grailbio/spectra/mer"
	"gonum.org/v1/gonum/floats"
)

// Mode selects which mer positions of a window are counted.
type Mode int

const (
	// Overlapping counts a mer at every start position, len-k+1 in total.
	Overlapping Mode = iota
	// NonOverlapping cuts the window into consecutive k-length pieces, starting
	// at the first base, and counts each piece. A trailing piece shorter than k
	// is ignored.
	NonOverlapping
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case Overlapping:
		return "overlapping"
	case NonOverlapping:
		return "nonoverlapping"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses the output of Mode.String.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "overlapping", "overlap":
		return Overlapping, true
	case "nonoverlapping", "non-overlapping", "nonoverlap":
		return NonOverlapping, true
	}
	return Overlapping, false
}

// Strand selects the strand that is counted.
type Strand int

const (
	// Forward counts the window as given.
	Forward Strand = iota
	// Complement counts the complement of the window, without reversing it.
	Complement
)

// Opts configures a Counter.
type Opts struct {
	Mode Mode
	// Proportions divides each count by the total count of the window.
	Proportions bool
	Strand      Strand
	// Policy decides what happens to symbols outside the alphabet.
	Policy mer.BasePolicy
}

// Counter counts the mers of a layout in window subsequences. It holds no
// mutable state and may be shared by concurrent goroutines.
type Counter struct {
	layout *mer.Layout
	opts   Opts
}

// New creates a counter for the columns of the given layout.
func New(layout *mer.Layout, opts Opts) *Counter {
	return &Counter{layout: layout, opts: opts}
}

// Layout returns the column layout of the vectors produced by Count.
func (c *Counter) Layout() *mer.Layout { return c.layout }

// Count returns the profile of seq: one value per layout column. With
// Policy == mer.Reject, a symbol outside the alphabet yields an
// *mer.InvalidBaseError whose position is relative to seq.
func (c *Counter) Count(seq string) ([]float64, error) {
	counts := make([]float64, c.layout.Len())
	if err := c.CountInto(counts, seq); err != nil {
		return nil, err
	}
	return counts, nil
}

// CountInto is like Count, but writes into counts, which must have
// c.Layout().Len() elements.
func (c *Counter) CountInto(counts []float64, seq string) error {
	for i := range counts {
		counts[i] = 0
	}
	a := c.layout.Alphabet()
	if c.opts.Policy == mer.Reject {
		for i := 0; i < len(seq); i++ {
			if _, ok := a.BaseCode(seq[i]); !ok {
				return &mer.InvalidBaseError{Base: seq[i], Pos: i}
			}
		}
	}
	codes := make([]int8, len(seq))
	for i := 0; i < len(seq); i++ {
		code, ok := a.BaseCode(seq[i])
		if !ok {
			codes[i] = -1
			continue
		}
		codes[i] = int8(code)
	}
	if c.opts.Strand == Complement {
		comp := complementTable(a)
		for i, code := range codes {
			if code >= 0 {
				codes[i] = comp[code]
			}
		}
	}
	switch c.opts.Mode {
	case NonOverlapping:
		c.countNonOverlapping(counts, codes)
	default:
		c.countOverlapping(counts, codes)
	}
	if c.opts.Proportions {
		toProportions(counts)
	}
	return nil
}

func complementTable(a *mer.Alphabet) []int8 {
	comp := make([]int8, a.NumBases())
	bases := a.Bases()
	for i := range comp {
		rc, _ := a.Complement(bases[i : i+1])
		code, _ := a.BaseCode(rc[0])
		comp[i] = int8(code)
	}
	return comp
}

// countOverlapping rolls a mer code across the window. A symbol outside the
// alphabet restarts the roll, so no mer containing it is counted.
func (c *Counter) countOverlapping(counts []float64, codes []int8) {
	a := c.layout.Alphabet()
	k, n := a.K(), a.NumBases()
	top := a.Radix(k - 1)
	code, run := 0, 0
	for _, b := range codes {
		if b < 0 {
			code, run = 0, 0
			continue
		}
		if run < k {
			code += int(b) * a.Radix(run)
			run++
			if run < k {
				continue
			}
		} else {
			code = (code-code%n)/n + int(b)*top
		}
		if col := c.layout.Column(code); col >= 0 {
			counts[col]++
		}
	}
}

func (c *Counter) countNonOverlapping(counts []float64, codes []int8) {
	a := c.layout.Alphabet()
	k := a.K()
next:
	for i := 0; i+k <= len(codes); i += k {
		code := 0
		for j := 0; j < k; j++ {
			b := codes[i+j]
			if b < 0 {
				continue next
			}
			code += int(b) * a.Radix(j)
		}
		if col := c.layout.Column(code); col >= 0 {
			counts[col]++
		}
	}
}

// toProportions scales v to sum to one. An all-zero v is left as is.
func toProportions(v []float64) {
	total := floats.Sum(v)
	if total == 0 {
		return
	}
	floats.Scale(1/total, v)
}
