// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package spectra

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/spectra/counter"
	"github.com/grailbio/spectra/mer"
	"github.com/grailbio/spectra/profile"
	"github.com/grailbio/spectra/window"
)

// Sequences is a window.Source that can list its sequences.
// *fasta.Fasta implementations satisfy it.
type Sequences interface {
	window.Source
	SeqNames() []string
}

// countJob is one chunk of one sequence.
type countJob struct {
	key    profile.Key
	name   string
	length int
	chunk  int
}

type countResult struct {
	windows []profile.Window
	summary Summary
}

// Count windows and counts every sequence of src. Partitions are keyed by
// library and sequence name, or by the library prefix of the name when
// opts.SplitLibrary is set. Chunks are counted in parallel and merged in
// source order. Windows rejected under mer.Reject are dropped and reported in
// the summary; any other failure aborts the run.
func Count(ctx context.Context, src Sequences, library string, opts Opts) (*profile.Table, Summary, error) {
	if err := opts.Validate(); err != nil {
		return nil, Summary{}, err
	}
	layout, err := opts.Layout()
	if err != nil {
		return nil, Summary{}, err
	}
	var (
		gen     = opts.Generator()
		ctr     = counter.New(layout, opts.CounterOpts())
		jobs    []countJob
		summary Summary
	)
	for _, name := range src.SeqNames() {
		n, err := src.Len(name)
		if err != nil {
			return nil, Summary{}, err
		}
		key := profile.Key{Library: library, Sequence: name}
		if opts.SplitLibrary {
			key = profile.ParseLibrary(name, library)
		}
		summary.Sequences++
		summary.Bases += int64(n)
		for c := 0; c < gen.NumChunks(int(n)); c++ {
			jobs = append(jobs, countJob{key: key, name: name, length: int(n), chunk: c})
		}
	}
	log.Printf("spectra: counting %d sequences (%s bases) in %d jobs",
		summary.Sequences, humanize.Comma(summary.Bases), len(jobs))

	results := make([]countResult, len(jobs))
	parallelism := opts.parallelism()
	if parallelism > len(jobs) {
		parallelism = len(jobs)
	}
	if parallelism < 1 {
		parallelism = 1
	}
	err = traverse.Each(parallelism, func(worker int) error {
		for j := worker; j < len(jobs); j += parallelism {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := countChunk(src, gen, ctr, jobs[j])
			if err != nil {
				return err
			}
			results[j] = r
		}
		return nil
	})
	if err != nil {
		return nil, Summary{}, err
	}

	kind := profile.Counts
	if opts.Proportions {
		kind = profile.Frequencies
	}
	table := profile.NewTable(layout.Columns(), kind)
	for j, r := range results {
		table.Add(jobs[j].key, r.windows...)
		summary = summary.Merge(r.summary)
	}
	table.Sort()
	if err := table.Validate(); err != nil {
		// Only possible with SplitLibrary mapping two names to one key.
		return nil, Summary{}, err
	}
	log.Printf("spectra: counted %s windows in %d partitions", humanize.Comma(int64(summary.Windows)), len(table.Partitions))
	if summary.Rejected > 0 {
		log.Error.Printf("spectra: dropped %d windows with invalid bases", summary.Rejected)
	}
	return table, summary, nil
}

func countChunk(src window.Source, gen window.Generator, ctr *counter.Counter, job countJob) (countResult, error) {
	var r countResult
	err := window.EachInChunk(src, job.name, job.length, gen, job.chunk, func(w window.Span, seq string) error {
		counts, err := ctr.Count(seq)
		if err != nil {
			if _, ok := err.(*mer.InvalidBaseError); ok {
				pw := profile.NewWindow(w, nil)
				r.summary.Rejected++
				r.summary.Errors = append(r.summary.Errors, &PartitionError{Key: job.key, Start: pw.Start, End: pw.End, Err: err})
				return nil
			}
			return errors.E(err, fmt.Sprintf("spectra: count %v%v", job.key, w))
		}
		r.windows = append(r.windows, profile.NewWindow(w, counts))
		r.summary.Windows++
		return nil
	})
	return r, err
}
