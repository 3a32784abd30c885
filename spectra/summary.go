// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package spectra

import (
	"fmt"

	"github.com/grailbio/spectra/profile"
)

// PartitionError locates a recoverable failure: a rejected window when
// counting, or a partition that fell back to a single bin when analyzing.
type PartitionError struct {
	profile.Key
	// Start and End are 1-based inclusive; both are zero when the whole
	// partition is concerned.
	Start, End int
	Err        error
}

// Error implements error.
func (e *PartitionError) Error() string {
	if e.Start == 0 && e.End == 0 {
		return fmt.Sprintf("%v: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("%v:%d-%d: %v", e.Key, e.Start, e.End, e.Err)
}

// Unwrap returns the underlying error.
func (e *PartitionError) Unwrap() error { return e.Err }

// Summary reports what a run did.
type Summary struct {
	// Sequences is the number of sequences counted.
	Sequences int
	// Bases is the total length of the counted sequences.
	Bases int64
	// Windows is the number of windows counted or analyzed.
	Windows int
	// Rejected is the number of windows dropped for invalid bases.
	Rejected int

	// Partitions is the number of partitions analyzed.
	Partitions int
	// Unsearched counts partitions too short to hold two segments.
	Unsearched int
	// Fallbacks counts partitions whose segmentation failed and that were
	// kept as a single bin.
	Fallbacks int
	// Breakpoints is the number of interior breakpoints found.
	Breakpoints int
	// Bins is the number of bins produced.
	Bins int
	// Degenerate counts bins without any valid k-mer position.
	Degenerate int

	// Errors lists the recoverable failures, in input order.
	Errors []error
}

// Merge adds the fields of o to s and returns the result.
func (s Summary) Merge(o Summary) Summary {
	s.Sequences += o.Sequences
	s.Bases += o.Bases
	s.Windows += o.Windows
	s.Rejected += o.Rejected
	s.Partitions += o.Partitions
	s.Unsearched += o.Unsearched
	s.Fallbacks += o.Fallbacks
	s.Breakpoints += o.Breakpoints
	s.Bins += o.Bins
	s.Degenerate += o.Degenerate
	s.Errors = append(s.Errors[:len(s.Errors):len(s.Errors)], o.Errors...)
	return s
}
