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
	"github.com/grailbio/spectra/encoding/fasta"
	"github.com/grailbio/spectra/profile"
	"github.com/grailbio/spectra/spectra"
)

type countFlags struct {
	out     string
	library string
}

// countFiles counts every sequence file and collates the results.
func countFiles(ctx context.Context, paths []string, flags countFlags, opts spectra.Opts) (*profile.Table, spectra.Summary, error) {
	if len(paths) == 0 {
		return nil, spectra.Summary{}, errors.E(errors.Invalid, "no sequence files given")
	}
	var (
		tables  []*profile.Table
		summary spectra.Summary
	)
	for _, path := range paths {
		src, err := openSequences(ctx, path)
		if err != nil {
			return nil, summary, err
		}
		library := flags.library
		if library == "" {
			library = libraryName(path)
		}
		t, s, err := spectra.Count(ctx, src, library, opts)
		if e := src.close(); e != nil && err == nil {
			err = e
		}
		if err != nil {
			return nil, summary, errors.E(err, path)
		}
		tables = append(tables, t)
		summary = summary.Merge(s)
	}
	t, err := profile.Collate(tables...)
	return t, summary, err
}

func runCount(ctx context.Context, paths []string, flags countFlags, opts spectra.Opts) error {
	t, summary, err := countFiles(ctx, paths, flags, opts)
	if err != nil {
		return err
	}
	for _, err := range summary.Errors {
		log.Debug.Printf("%v", err)
	}
	return writeTable(ctx, flags.out, t)
}

func runQuery(ctx context.Context, paths []string, flags countFlags, opts spectra.Opts) error {
	if len(opts.Query) == 0 {
		return errors.E(errors.Invalid, "query needs -query")
	}
	return runCount(ctx, paths, flags, opts)
}

// runIndex writes path.fai for each FASTA path.
func runIndex(ctx context.Context, paths []string) error {
	for _, path := range paths {
		err := func() error {
			r, closer, err := openInput(ctx, path)
			if err != nil {
				return err
			}
			err = writeTo(ctx, path+".fai", func(w io.Writer) error { return fasta.GenerateIndex(w, r) })
			if e := closer(); e != nil && err == nil {
				err = e
			}
			return err
		}()
		if err != nil {
			return errors.E(err, fmt.Sprintf("index %s", path))
		}
	}
	return nil
}
