// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/spectra/freq"
	"github.com/grailbio/spectra/mer"
	"github.com/grailbio/spectra/profile"
)

// tableFlags are shared by the commands that read profile tables.
type tableFlags struct {
	out         string
	frequencies bool
}

func (f tableFlags) kind() profile.Kind {
	if f.frequencies {
		return profile.Frequencies
	}
	return profile.Counts
}

func runCollate(ctx context.Context, paths []string, flags tableFlags) error {
	if len(paths) == 0 {
		return errors.E(errors.Invalid, "no tables given")
	}
	var tables []*profile.Table
	for _, path := range paths {
		t, err := readTable(ctx, path, flags.kind())
		if err != nil {
			return err
		}
		tables = append(tables, t)
	}
	t, err := profile.Collate(tables...)
	if err != nil {
		return err
	}
	return writeTable(ctx, flags.out, t)
}

func logFlagged(flagged []error) {
	for _, err := range flagged {
		log.Error.Printf("%v", err)
	}
}

type filterFlags struct {
	tableFlags
	outliers string
	weighted bool
}

// runFilter splits a table into its normal and outlier windows.
func runFilter(ctx context.Context, path string, flags filterFlags, threshold float64) error {
	t, err := readTable(ctx, path, flags.kind())
	if err != nil {
		return err
	}
	global, err := freq.TableGlobal(t, flags.weighted)
	if err != nil {
		return err
	}
	normal, outliers, err := freq.Split(t, global, threshold)
	if err != nil {
		return err
	}
	log.Printf("%s: %d normal windows, %d outliers", path, normal.NumWindows(), outliers.NumWindows())
	if err := writeTable(ctx, flags.out, normal); err != nil {
		return err
	}
	if flags.outliers == "" {
		return nil
	}
	return writeTable(ctx, flags.outliers, outliers)
}

func runNormalize(ctx context.Context, path string, flags tableFlags) error {
	t, err := readTable(ctx, path, flags.kind())
	if err != nil {
		return err
	}
	global, err := freq.TableGlobal(t, true)
	if err != nil {
		return err
	}
	out, flagged, err := freq.NormalizeTable(t, global)
	if err != nil {
		return err
	}
	logFlagged(flagged)
	return writeTable(ctx, flags.out, out)
}

func runResize(ctx context.Context, path string, flags tableFlags, factor int) error {
	t, err := readTable(ctx, path, flags.kind())
	if err != nil {
		return err
	}
	out, err := profile.Resize(t, factor)
	if err != nil {
		return err
	}
	return writeTable(ctx, flags.out, out)
}

func runFold(ctx context.Context, path string, flags tableFlags) error {
	t, err := readTable(ctx, path, flags.kind())
	if err != nil {
		return err
	}
	k, err := freq.K(t)
	if err != nil {
		return err
	}
	a, err := mer.NewDNA(k)
	if err != nil {
		return err
	}
	out, err := profile.Fold(t, a)
	if err != nil {
		return err
	}
	return writeTable(ctx, flags.out, out)
}

// runConvert converts counts to frequencies and back.
func runConvert(ctx context.Context, path string, flags tableFlags) error {
	t, err := readTable(ctx, path, flags.kind())
	if err != nil {
		return err
	}
	var (
		out     *profile.Table
		flagged []error
	)
	if t.Kind == profile.Counts {
		out, flagged, err = freq.ToFrequencies(t)
	} else {
		out, flagged, err = toCounts(t)
	}
	if err != nil {
		return err
	}
	logFlagged(flagged)
	return writeTable(ctx, flags.out, out)
}

func toCounts(t *profile.Table) (*profile.Table, []error, error) {
	k, err := freq.K(t)
	if err != nil {
		return nil, nil, err
	}
	var flagged []error
	out := profile.NewTable(t.Mers, profile.Counts)
	for _, p := range t.Partitions {
		c := profile.Partition{Key: p.Key, Windows: make([]profile.Window, len(p.Windows))}
		for i, w := range p.Windows {
			counts, err := freq.FrequenciesToCounts(w, w.Values, k)
			if err != nil {
				flagged = append(flagged, errors.E(err, fmt.Sprintf("%v:%d-%d", p.Key, w.Start, w.End)))
				counts = make([]float64, len(w.Values))
			}
			w.Values = counts
			c.Windows[i] = w
		}
		if err := out.AddPartition(c); err != nil {
			return nil, nil, err
		}
	}
	return out, flagged, nil
}

// runGlobal prints the global frequency of every mer.
func runGlobal(ctx context.Context, path string, flags tableFlags, weighted bool) error {
	t, err := readTable(ctx, path, flags.kind())
	if err != nil {
		return err
	}
	global, err := freq.TableGlobal(t, weighted)
	if err != nil {
		return err
	}
	return writeTo(ctx, flags.out, func(w io.Writer) error {
		out := tsv.NewWriter(w)
		out.WriteString("Mer")
		out.WriteString("Frequency")
		if err := out.EndLine(); err != nil {
			return err
		}
		for i, m := range t.Mers {
			out.WriteString(m)
			out.WriteString(profile.FormatValue(profile.Frequencies, global[i]))
			if err := out.EndLine(); err != nil {
				return err
			}
		}
		return out.Flush()
	})
}
