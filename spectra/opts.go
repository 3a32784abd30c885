// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package spectra runs the windowed k-mer pipeline: counting the windows of
// every sequence of a source into a profile table, and segmenting each
// partition of a table into compositionally homogeneous bins.
package spectra

import (
	"fmt"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/spectra/counter"
	"github.com/grailbio/spectra/freq"
	"github.com/grailbio/spectra/mer"
	"github.com/grailbio/spectra/profile"
	"github.com/grailbio/spectra/segment"
	"github.com/grailbio/spectra/window"
)

// Opts holds every tunable of a run.
type Opts struct {
	// K is the mer length.
	K int
	// Width, Spacing, Offset and ChunkSize define the windows; see
	// window.Generator.
	Width     int
	Spacing   int
	Offset    int
	ChunkSize int

	Mode counter.Mode
	// Proportions produces a frequency table with each window divided by its
	// total count.
	Proportions bool
	Strand      counter.Strand
	Policy      mer.BasePolicy
	// Canonical folds reverse complements into one column.
	Canonical bool
	// Query, if set, restricts the columns to these mers, in this order.
	Query []string
	// SplitLibrary takes the library from a "LIBRARY_name" sequence name
	// instead of the library passed to Count.
	SplitLibrary bool

	Penalty        float64
	MinSegmentSize int
	Kernel         segment.Kernel
	Gamma          float64

	// Threshold is the chi-square p-value at or above which a window is an
	// outlier.
	Threshold float64

	// Parallelism bounds the number of concurrent jobs. Zero means NumCPU.
	Parallelism int
}

// DefaultOpts are the defaults of the command line tool.
var DefaultOpts = Opts{
	K:              3,
	Width:          3000,
	Spacing:        3000,
	Mode:           counter.Overlapping,
	Policy:         mer.Skip,
	Penalty:        segment.DefaultOpts.Penalty,
	MinSegmentSize: segment.DefaultOpts.MinSize,
	Kernel:         segment.DefaultOpts.Kernel,
	Threshold:      freq.DefaultThreshold,
}

// frequencyPenalty replaces penalties above one when segmenting frequency
// tables, whose dispersions are orders of magnitude smaller than those of
// counts.
const frequencyPenalty = 0.5

// Validate returns an errors.Invalid error describing the first bad field.
func (o Opts) Validate() error {
	if _, err := o.Layout(); err != nil {
		return err
	}
	if err := o.Generator().Validate(); err != nil {
		return err
	}
	if err := o.SegmentOpts(profile.Counts).Validate(); err != nil {
		return err
	}
	if err := freq.ValidateThreshold(o.Threshold); err != nil {
		return err
	}
	if o.Parallelism < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("spectra: negative parallelism %d", o.Parallelism))
	}
	return nil
}

// Layout returns the column layout selected by K, Canonical and Query.
func (o Opts) Layout() (*mer.Layout, error) {
	a, err := mer.NewDNA(o.K)
	if err != nil {
		return nil, err
	}
	switch {
	case len(o.Query) > 0:
		return a.QueryLayout(o.Query, o.Canonical)
	case o.Canonical:
		return a.CanonicalLayout(), nil
	default:
		return a.Full(), nil
	}
}

// Generator returns the window generator of o.
func (o Opts) Generator() window.Generator {
	return window.Generator{Width: o.Width, Spacing: o.Spacing, Offset: o.Offset, ChunkSize: o.ChunkSize}
}

// CounterOpts returns the counter options of o.
func (o Opts) CounterOpts() counter.Opts {
	return counter.Opts{Mode: o.Mode, Proportions: o.Proportions, Strand: o.Strand, Policy: o.Policy}
}

// SegmentOpts returns the segmentation options for a table of the given kind.
func (o Opts) SegmentOpts(kind profile.Kind) segment.Opts {
	s := segment.Opts{Penalty: o.Penalty, MinSize: o.MinSegmentSize, Kernel: o.Kernel, Gamma: o.Gamma}
	if kind == profile.Frequencies && s.Penalty > 1 {
		s.Penalty = frequencyPenalty
	}
	return s
}

func (o Opts) parallelism() int {
	if o.Parallelism > 0 {
		return o.Parallelism
	}
	return runtime.NumCPU()
}
