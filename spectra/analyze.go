// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package spectra

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/spectra/bins"
	"github.com/grailbio/spectra/profile"
	"github.com/grailbio/spectra/segment"
)

// Result is the outcome of Analyze.
type Result struct {
	// Table is a copy of the input with every window labeled with its bin.
	Table *profile.Table
	// Bins lists the bins of every partition, in table order.
	Bins    []bins.Bin
	Summary Summary
}

// Analyze segments every partition of t and aggregates the resulting bins.
// Partitions are processed in parallel and ctx is checked before each one. A
// partition whose segmentation fails becomes a single bin; the failure is
// logged and recorded in the summary. Only invalid options or tables, and
// cancellation, are returned as errors.
func Analyze(ctx context.Context, t *profile.Table, opts Opts) (*Result, error) {
	sopts := opts.SegmentOpts(t.Kind)
	if err := sopts.Validate(); err != nil {
		return nil, err
	}
	if opts.Parallelism < 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("spectra: negative parallelism %d", opts.Parallelism))
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if sopts.Penalty != opts.Penalty {
		log.Printf("spectra: segmenting frequencies, penalty %v lowered to %v", opts.Penalty, sopts.Penalty)
	}

	var (
		parts     = make([]profile.Partition, len(t.Partitions))
		summaries = make([]Summary, len(t.Partitions))
	)
	parallelism := opts.parallelism()
	if parallelism > len(parts) {
		parallelism = len(parts)
	}
	if parallelism < 1 {
		parallelism = 1
	}
	err := traverse.Each(parallelism, func(worker int) error {
		for i := worker; i < len(parts); i += parallelism {
			if err := ctx.Err(); err != nil {
				return err
			}
			var err error
			if parts[i], summaries[i], err = analyzePartition(t.Partitions[i], sopts); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r := &Result{Table: profile.NewTable(t.Mers, t.Kind)}
	for i, p := range parts {
		if err := r.Table.AddPartition(p); err != nil {
			return nil, err
		}
		r.Summary = r.Summary.Merge(summaries[i])
	}
	var flagged []error
	if r.Bins, flagged, err = bins.Aggregate(r.Table); err != nil {
		return nil, err
	}
	for _, err := range flagged {
		log.Error.Printf("spectra: %v", err)
	}
	r.Summary.Bins = len(r.Bins)
	r.Summary.Degenerate = len(flagged)
	r.Summary.Errors = append(r.Summary.Errors, flagged...)
	log.Printf("spectra: %d partitions, %d breakpoints, %d bins, %d fallbacks",
		r.Summary.Partitions, r.Summary.Breakpoints, r.Summary.Bins, r.Summary.Fallbacks)
	return r, nil
}

func analyzePartition(p profile.Partition, opts segment.Opts) (profile.Partition, Summary, error) {
	s := Summary{Partitions: 1, Windows: len(p.Windows)}
	if len(p.Windows) < 2*opts.MinSize {
		s.Unsearched++
	}
	bkps, coords, err := segment.Partition(p, opts)
	if err != nil {
		f, ok := err.(*segment.Failure)
		if !ok {
			return p, s, err
		}
		log.Error.Printf("spectra: %v: %v; keeping one bin", p.Key, f)
		s.Fallbacks++
		s.Errors = append(s.Errors, &PartitionError{Key: p.Key, Err: f})
		bkps, coords = nil, nil
	}
	if len(bkps) > 1 {
		s.Breakpoints = len(bkps) - 1
	}
	log.Debug.Printf("spectra: %v: %d windows, breakpoints %v", p.Key, len(p.Windows), coords)
	return bins.Assign(p, coords), s, nil
}
