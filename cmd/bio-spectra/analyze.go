// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/spectra/bins"
	"github.com/grailbio/spectra/freq"
	"github.com/grailbio/spectra/profile"
	"github.com/grailbio/spectra/spectra"
)

type analyzeFlags struct {
	tableFlags
	bins        string
	byFrequency bool
	blocked     bool
}

func runAnalyze(ctx context.Context, path string, flags analyzeFlags, opts spectra.Opts) error {
	t, err := readTable(ctx, path, flags.kind())
	if err != nil {
		return err
	}
	if flags.blocked && t.HasBins() {
		// The table is already segmented.
		b, flagged, err := bins.Aggregate(t)
		if err != nil {
			return err
		}
		logFlagged(flagged)
		return writeBins(ctx, flags.bins, t.Mers, b)
	}
	if flags.byFrequency && t.Kind == profile.Counts {
		var flagged []error
		if t, flagged, err = freq.ToFrequencies(t); err != nil {
			return err
		}
		logFlagged(flagged)
	}
	r, err := spectra.Analyze(ctx, t, opts)
	if err != nil {
		return err
	}
	if n := r.Summary.Fallbacks; n > 0 {
		log.Printf("%s: %d of %d partitions kept as one bin", path, n, r.Summary.Partitions)
	}
	if err := writeTable(ctx, flags.out, r.Table); err != nil {
		return err
	}
	return writeBins(ctx, flags.bins, r.Table.Mers, r.Bins)
}

func writeBins(ctx context.Context, path string, mers []string, b []bins.Bin) error {
	if path == "" {
		return nil
	}
	return writeTo(ctx, path, func(w io.Writer) error { return bins.Write(w, mers, b) })
}

// parseLocus parses "library/sequence:pos".
func parseLocus(s string) (profile.Key, int, error) {
	colon := strings.LastIndexByte(s, ':')
	slash := strings.IndexByte(s, '/')
	if colon < 0 || slash < 0 || slash > colon {
		return profile.Key{}, 0, errors.E(errors.Invalid, fmt.Sprintf("locus %q is not library/sequence:pos", s))
	}
	pos, err := strconv.Atoi(s[colon+1:])
	if err != nil || pos < 1 {
		return profile.Key{}, 0, errors.E(errors.Invalid, fmt.Sprintf("locus %q: bad position", s))
	}
	return profile.Key{Library: s[:slash], Sequence: s[slash+1 : colon]}, pos, nil
}

// runLocate prints the bin of a labeled table that contains each locus.
func runLocate(ctx context.Context, path string, loci []string, flags tableFlags) error {
	t, err := readTable(ctx, path, flags.kind())
	if err != nil {
		return err
	}
	if !t.HasBins() {
		return errors.E(errors.Invalid, fmt.Sprintf("%s has no %s column; run analyze first", path, profile.BinColumn))
	}
	b, _, err := bins.Aggregate(t)
	if err != nil {
		return err
	}
	idx := bins.NewIndex(b)
	return writeTo(ctx, flags.out, func(w io.Writer) error {
		out := tsv.NewWriter(w)
		for _, h := range []string{"Locus", "Bin", "Start", "End"} {
			out.WriteString(h)
		}
		if err := out.EndLine(); err != nil {
			return err
		}
		for _, locus := range loci {
			key, pos, err := parseLocus(locus)
			if err != nil {
				return err
			}
			out.WriteString(locus)
			if bin, ok := idx.Locate(key, pos); ok {
				out.WriteString(bin.Label)
				out.WriteInt64(int64(bin.Start))
				out.WriteInt64(int64(bin.End))
			} else {
				out.WriteString(".")
				out.WriteString(".")
				out.WriteString(".")
			}
			if err := out.EndLine(); err != nil {
				return err
			}
		}
		return out.Flush()
	})
}
